package monitor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 指标收集器
type Metrics struct {
	// 同步循环相关
	hunterTicks       prometheus.Counter
	hunterTickSecs    prometheus.Histogram
	tokensUpserted    *prometheus.CounterVec
	feedErrors        *prometheus.CounterVec
	tokensPurged      prometheus.Counter
	// 广播相关
	subscribersCount  prometheus.Gauge
	broadcastsSent    *prometheus.CounterVec
	natsConnected     prometheus.Gauge
	// 置顶订单相关
	ordersCreated     prometheus.Counter
	orderTransitions  *prometheus.CounterVec
	balanceCheckTotal *prometheus.CounterVec
	// 缓存相关
	cacheHitTotal  *prometheus.CounterVec
	cacheMissTotal *prometheus.CounterVec
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// InitMetrics 注册全局指标（应用启动时调用一次）
func InitMetrics() {
	GetMetrics()
}

// GetMetrics 获取指标收集器单例
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics("boost_monitor")
	})
	return metrics
}

// NewMetrics 创建指标收集器
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		hunterTicks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hunter_ticks_total",
				Help:      "同步 tick 总数",
			},
		),
		hunterTickSecs: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "hunter_tick_duration_seconds",
				Help:      "单个 tick 耗时分布（秒）",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		tokensUpserted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_upserted_total",
				Help:      "代币落库总数（按 new/update）",
			},
			[]string{"kind"},
		),
		feedErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_errors_total",
				Help:      "外部接口失败总数（按端点）",
			},
			[]string{"endpoint"}, // boosts, pairs, rpc
		),
		tokensPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_purged_total",
				Help:      "清理掉的过期代币总数",
			},
		),
		subscribersCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_subscribers",
				Help:      "当前 WebSocket 订阅者数量",
			},
		),
		broadcastsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcasts_sent_total",
				Help:      "广播事件总数（按事件类型）",
			},
			[]string{"event"},
		),
		natsConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "nats_connected",
				Help:      "NATS 连接状态（1=已连接）",
			},
		),
		ordersCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pin_orders_created_total",
				Help:      "创建的置顶订单总数",
			},
		),
		orderTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pin_order_transitions_total",
				Help:      "订单状态转移总数（按目标状态）",
			},
			[]string{"status"}, // paid, completed, expired, refund_needed
		),
		balanceCheckTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "balance_checks_total",
				Help:      "链上余额查询总数（按结果）",
			},
			[]string{"result"}, // paid, unpaid, error
		),
		cacheHitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hit_total",
				Help:      "缓存命中总数（按缓存类型）",
			},
			[]string{"cache_type"},
		),
		cacheMissTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_miss_total",
				Help:      "缓存未命中总数（按缓存类型）",
			},
			[]string{"cache_type"},
		),
	}

	prometheus.MustRegister(
		m.hunterTicks,
		m.hunterTickSecs,
		m.tokensUpserted,
		m.feedErrors,
		m.tokensPurged,
		m.subscribersCount,
		m.broadcastsSent,
		m.natsConnected,
		m.ordersCreated,
		m.orderTransitions,
		m.balanceCheckTotal,
		m.cacheHitTotal,
		m.cacheMissTotal,
	)

	return m
}

// IncHunterTick 增加 tick 计数
func (m *Metrics) IncHunterTick() {
	m.hunterTicks.Inc()
}

// ObserveHunterTickDuration 观察 tick 耗时
func (m *Metrics) ObserveHunterTickDuration(seconds float64) {
	m.hunterTickSecs.Observe(seconds)
}

// IncTokensUpserted 增加代币落库计数
func (m *Metrics) IncTokensUpserted(kind string) {
	m.tokensUpserted.WithLabelValues(kind).Inc()
}

// IncFeedError 增加外部接口失败计数
func (m *Metrics) IncFeedError(endpoint string) {
	m.feedErrors.WithLabelValues(endpoint).Inc()
}

// AddTokensPurged 增加清理计数
func (m *Metrics) AddTokensPurged(count int) {
	m.tokensPurged.Add(float64(count))
}

// SetSubscribers 设置订阅者数量
func (m *Metrics) SetSubscribers(count int) {
	m.subscribersCount.Set(float64(count))
}

// IncBroadcast 增加广播计数
func (m *Metrics) IncBroadcast(event string) {
	m.broadcastsSent.WithLabelValues(event).Inc()
}

// SetNATSConnected 设置 NATS 连接状态
func (m *Metrics) SetNATSConnected(connected bool) {
	if connected {
		m.natsConnected.Set(1)
	} else {
		m.natsConnected.Set(0)
	}
}

// IncOrdersCreated 增加订单创建计数
func (m *Metrics) IncOrdersCreated() {
	m.ordersCreated.Inc()
}

// IncOrderTransition 增加状态转移计数
func (m *Metrics) IncOrderTransition(status string) {
	m.orderTransitions.WithLabelValues(status).Inc()
}

// IncBalanceCheck 增加余额查询计数
func (m *Metrics) IncBalanceCheck(result string) {
	m.balanceCheckTotal.WithLabelValues(result).Inc()
}

// IncCacheHit 增加缓存命中计数
func (m *Metrics) IncCacheHit(cacheType string) {
	m.cacheHitTotal.WithLabelValues(cacheType).Inc()
}

// IncCacheMiss 增加缓存未命中计数
func (m *Metrics) IncCacheMiss(cacheType string) {
	m.cacheMissTotal.WithLabelValues(cacheType).Inc()
}
