package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utrading/utrading-boost-monitor/pkg/goplus"
	"github.com/utrading/utrading-boost-monitor/pkg/logger"
)

// HubRef 广播中心引用接口
type HubRef interface {
	SubscriberCount() int
}

// PublisherRef NATS 发布器引用接口
type PublisherRef interface {
	IsConnected() bool
}

// HunterRef 同步循环引用接口
type HunterRef interface {
	LastTickAt() time.Time
}

// HealthServer HTTP 健康检查和指标服务器
type HealthServer struct {
	addr      string
	hub       HubRef
	publisher PublisherRef
	hunter    HunterRef
	server    *http.Server
	mu        sync.RWMutex
	healthy   bool
	startTime time.Time
}

// NewHealthServer 创建健康检查服务器
func NewHealthServer(addr string, hub HubRef, publisher PublisherRef, hunter HunterRef) *HealthServer {
	return &HealthServer{
		addr:      addr,
		hub:       hub,
		publisher: publisher,
		hunter:    hunter,
		healthy:   true,
		startTime: time.Now(),
	}
}

// Start 启动HTTP服务器
func (h *HealthServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.healthHandler)
	mux.HandleFunc("/health/live", h.liveHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", h.statusHandler)

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	goplus.Go(func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health server error")
		}
	})

	logger.Info().Str("addr", h.addr).Msg("health server started")

	return nil
}

// Stop 停止服务器
func (h *HealthServer) Stop(ctx context.Context) error {
	h.mu.Lock()
	h.healthy = false
	h.mu.Unlock()

	return h.server.Shutdown(ctx)
}

func (h *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := h.getHealthStatus()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

func (h *HealthServer) liveHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := h.getHealthStatus()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// getHealthStatus 获取健康状态
func (h *HealthServer) getHealthStatus() HealthStatus {
	h.mu.RLock()
	healthy := h.healthy
	h.mu.RUnlock()

	natsConnected := false
	if h.publisher != nil {
		natsConnected = h.publisher.IsConnected()
	}

	subscribers := 0
	if h.hub != nil {
		subscribers = h.hub.SubscriberCount()
	}

	lastTick := ""
	if h.hunter != nil && !h.hunter.LastTickAt().IsZero() {
		lastTick = h.hunter.LastTickAt().Format(time.RFC3339)
	}

	return HealthStatus{
		Healthy:     healthy,
		Uptime:      time.Since(h.startTime).String(),
		Subscribers: subscribers,
		LastTickAt:  lastTick,
		NATS:        NATSStatus{Connected: natsConnected},
	}
}

// HealthStatus 健康状态结构
type HealthStatus struct {
	Healthy     bool       `json:"healthy"`
	Uptime      string     `json:"uptime"`
	Subscribers int        `json:"subscribers"`
	LastTickAt  string     `json:"last_tick_at,omitempty"`
	NATS        NATSStatus `json:"nats"`
}

// NATSStatus NATS 连接状态
type NATSStatus struct {
	Connected bool `json:"connected"`
}
