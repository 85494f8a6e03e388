package broadcast

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/utrading/utrading-boost-monitor/internal/monitor"
	"github.com/utrading/utrading-boost-monitor/pkg/concurrent"
	"github.com/utrading/utrading-boost-monitor/pkg/goplus"
	"github.com/utrading/utrading-boost-monitor/pkg/logger"
)

const (
	writeWait      = 10 * time.Second // 单次写超时
	pongWait       = 60 * time.Second // 读超时，收到任意消息后刷新
	sendBufferSize = 256
)

// Mirror 可选的事件镜像出口（如 NATS）
type Mirror interface {
	PublishEvent(data []byte) error
}

// Hub 推送中心：持有当前所有在线订阅者
// 由组合根创建并按引用传给需要发布事件的组件，不做全局变量
type Hub struct {
	subscribers concurrent.Map[int64, *Subscriber]
	nextID      atomic.Int64
	mirror      Mirror
}

// NewHub 创建推送中心
func NewHub() *Hub {
	return &Hub{}
}

// SetMirror 设置事件镜像出口（可选，启动时调用一次）
func (h *Hub) SetMirror(m Mirror) {
	h.mirror = m
}

// Subscriber 单个推送连接
type Subscriber struct {
	id   int64
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Attach 接管一条已升级的 WebSocket 连接
// 连接注册后启动读写协程，连接断开时自行注销
func (h *Hub) Attach(conn *websocket.Conn) {
	sub := &Subscriber{
		id:   h.nextID.Add(1),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	h.subscribers.Store(sub.id, sub)
	monitor.SetSubscribers(h.SubscriberCount())

	logger.Debug().Int64("subscriber", sub.id).Msg("ws subscriber attached")

	goplus.Go(func() { h.writePump(sub) })
	goplus.Go(func() { h.readPump(sub) })
}

// detach 注销订阅者并关闭连接
func (h *Hub) detach(sub *Subscriber) {
	if _, loaded := h.subscribers.LoadAndDelete(sub.id); !loaded {
		return
	}
	close(sub.done)
	sub.conn.Close()
	monitor.SetSubscribers(h.SubscriberCount())

	logger.Debug().Int64("subscriber", sub.id).Msg("ws subscriber detached")
}

// SubscriberCount 当前在线订阅者数量
func (h *Hub) SubscriberCount() int {
	return int(h.subscribers.Len())
}

// Publish 向所有在线订阅者推送一个事件
// 只序列化一次；单个连接的发送失败不影响其他连接，也不回传给发布方。
// 没有历史回放：事件发出后才连上的客户端收不到它
func (h *Hub) Publish(eventType string, data interface{}) {
	envelope := &Envelope{Type: eventType, Data: data}
	payload, err := envelope.Marshal()
	if err != nil {
		return
	}

	h.subscribers.Range(func(_ int64, sub *Subscriber) bool {
		select {
		case sub.send <- payload:
		default:
			// 发送队列积压说明消费端已经跟不上，放弃该连接
			logger.Warn().Int64("subscriber", sub.id).Msg("subscriber too slow, dropping")
			h.detach(sub)
		}
		return true
	})

	monitor.IncBroadcast(eventType)

	if h.mirror != nil {
		if err = h.mirror.PublishEvent(payload); err != nil {
			logger.Error().Err(err).Str("type", eventType).Msg("mirror publish failed")
		}
	}
}

// writePump 订阅者写协程：把队列中的消息写到连接上
func (h *Hub) writePump(sub *Subscriber) {
	defer h.detach(sub)

	for {
		select {
		case payload, ok := <-sub.send:
			if !ok {
				return
			}
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug().Err(err).Int64("subscriber", sub.id).Msg("ws write failed")
				return
			}
		case <-sub.done:
			return
		}
	}
}

// readPump 订阅者读协程：处理 ping 保活并发现断开
func (h *Hub) readPump(sub *Subscriber) {
	defer h.detach(sub)

	sub.conn.SetReadLimit(512)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))

		// 客户端文本保活：ping -> pong
		if string(message) == "ping" {
			select {
			case sub.send <- []byte("pong"):
			case <-sub.done:
				return
			}
		}
	}
}

// Close 关闭所有连接（进程退出时调用）
func (h *Hub) Close() {
	h.subscribers.Range(func(_ int64, sub *Subscriber) bool {
		h.detach(sub)
		return true
	})
}
