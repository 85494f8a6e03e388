package broadcast

import (
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/utrading/utrading-boost-monitor/internal/monitor"
)

// SubjectEvents 广播事件镜像主题
const SubjectEvents = "boost_monitor.events"

// NatsMirror 把每个广播事件镜像到 NATS，供下游服务消费
type NatsMirror struct {
	*nats.Conn
	mu     sync.RWMutex
	closed bool
}

// NewNatsMirror 连接 NATS
func NewNatsMirror(url string) (*NatsMirror, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}

	monitor.GetMetrics().SetNATSConnected(true)

	return &NatsMirror{Conn: conn}, nil
}

// PublishEvent 发布一份已序列化的事件信封
func (m *NatsMirror) PublishEvent(data []byte) error {
	return m.Publish(SubjectEvents, data)
}

// IsConnected 检查连接状态
func (m *NatsMirror) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.closed && m.Conn != nil && !m.Conn.IsClosed()
}

// Close 关闭连接
func (m *NatsMirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true

	monitor.GetMetrics().SetNATSConnected(false)

	if m.Conn != nil {
		m.Conn.Close()
	}
	return nil
}
