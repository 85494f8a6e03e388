package hunter

import (
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	gocache "github.com/patrickmn/go-cache"

	"github.com/utrading/utrading-boost-monitor/config"
	"github.com/utrading/utrading-boost-monitor/internal/broadcast"
	"github.com/utrading/utrading-boost-monitor/internal/dao"
	"github.com/utrading/utrading-boost-monitor/internal/feed"
	"github.com/utrading/utrading-boost-monitor/internal/monitor"
	"github.com/utrading/utrading-boost-monitor/pkg/goplus"
	"github.com/utrading/utrading-boost-monitor/pkg/logger"
)

// FeedSource 外部数据源
type FeedSource interface {
	FetchBoosts() ([]feed.BoostEvent, error)
	FetchPairs(address string) ([]feed.Pair, error)
}

// Publisher 事件发布出口
type Publisher interface {
	Publish(eventType string, data interface{})
}

// Hunter 同步循环：拉取 boost 列表，检测变化，补全详情后落库并广播
// 间隔从 tick 结束起计时，慢 tick 自然推迟下一次，起到节流作用
type Hunter struct {
	source    FeedSource
	publisher Publisher

	interval      time.Duration
	chains        map[string]struct{}
	dexID         string
	pumpOnly      bool
	minBoostAlert float64

	pool *ants.Pool
	// 地址 -> 已处理的 totalAmount，挡掉多数不必要的存储查询
	seen *gocache.Cache

	done     chan struct{}
	stopOnce sync.Once
	mu       sync.RWMutex
	lastTick time.Time
}

// New 创建同步循环
func New(cfg config.Monitor, source FeedSource, publisher Publisher) *Hunter {
	chains := make(map[string]struct{}, len(cfg.Chains))
	for _, chain := range cfg.Chains {
		chains[chain] = struct{}{}
	}

	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = 30
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		logger.Fatal().Err(err).Msg("create hunter pool failed")
	}

	interval := cfg.HunterTimeout
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Hunter{
		source:        source,
		publisher:     publisher,
		interval:      interval,
		chains:        chains,
		dexID:         cfg.DexID,
		pumpOnly:      cfg.PumpOnly,
		minBoostAlert: cfg.MinBoostAlert,
		pool:          pool,
		seen:          gocache.New(time.Hour, 2*time.Hour),
		done:          make(chan struct{}),
	}
}

// Start 启动循环
func (h *Hunter) Start() {
	goplus.Go(func() {
		logger.Info().Dur("interval", h.interval).Msg("hunter started")
		for {
			h.tick()
			select {
			case <-time.After(h.interval):
			case <-h.done:
				logger.Info().Msg("hunter stopped")
				return
			}
		}
	})
}

// Stop 停止循环
func (h *Hunter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.pool.Release()
	})
}

// LastTickAt 上一次 tick 完成时间（健康检查用）
func (h *Hunter) LastTickAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastTick
}

// tick 一次完整同步：所有候选并发处理，全部结束后才返回
// 单个代币的失败只记日志，不影响同批其他代币
func (h *Hunter) tick() {
	start := time.Now()

	events, err := h.source.FetchBoosts()
	if err != nil {
		logger.Warn().Err(err).Msg("fetch boosts failed, will retry next tick")
		return
	}

	var wg sync.WaitGroup
	for _, event := range events {
		if !h.accept(event) {
			continue
		}

		changed, prevTotal, err := h.hasChanged(event)
		if err != nil {
			logger.Error().Err(err).Str("token", event.TokenAddress).Msg("change detection failed")
			continue
		}
		if !changed {
			continue
		}

		event := event
		wg.Add(1)
		if err = h.pool.Submit(func() {
			defer wg.Done()
			h.processEvent(event, prevTotal)
		}); err != nil {
			// 池子满时退回到当前协程处理，保证该代币不被丢掉
			h.processEvent(event, prevTotal)
			wg.Done()
		}
	}
	wg.Wait()

	h.mu.Lock()
	h.lastTick = time.Now()
	h.mu.Unlock()

	monitor.IncHunterTick()
	monitor.ObserveHunterTickDuration(time.Since(start).Seconds())
}

// accept 链与平台策略过滤
func (h *Hunter) accept(event feed.BoostEvent) bool {
	if _, ok := h.chains[event.ChainID]; !ok {
		return false
	}
	if h.pumpOnly && !strings.HasSuffix(strings.ToLower(event.TokenAddress), "pump") {
		return false
	}
	return true
}

// hasChanged totalAmount 变更检测：先查缓存，再落到存储
// 同时带出变更前的 totalAmount，供阈值跨越判断
func (h *Hunter) hasChanged(event feed.BoostEvent) (bool, float64, error) {
	if cached, ok := h.seen.Get(event.TokenAddress); ok {
		monitor.IncCacheHit("boost_total")
		prev := cached.(float64)
		if prev == event.TotalAmount {
			return false, prev, nil
		}
		return true, prev, nil
	}
	monitor.IncCacheMiss("boost_total")

	_, storedTotal, exists, err := dao.Token().GetBoostAmounts(event.TokenAddress)
	if err != nil {
		return false, 0, err
	}
	if !exists {
		return true, 0, nil
	}
	if storedTotal == event.TotalAmount {
		h.seen.Set(event.TokenAddress, event.TotalAmount, gocache.DefaultExpiration)
		return false, storedTotal, nil
	}
	return true, storedTotal, nil
}

// processEvent 处理单个变化的代币：取详情、选交易对、落库、广播
func (h *Hunter) processEvent(event feed.BoostEvent, prevTotal float64) {
	pairs, err := h.source.FetchPairs(event.TokenAddress)
	if err != nil {
		logger.Warn().Err(err).Str("token", event.TokenAddress).Msg("fetch pairs failed")
		return
	}

	pair, ok := selectPair(pairs, event.ChainID, h.dexID)
	if !ok {
		// 没有目标 DEX 的交易对就不写半截记录
		logger.Debug().Str("token", event.TokenAddress).Str("dex", h.dexID).Msg("no matching pair, skip")
		return
	}

	token := buildToken(event, pair, time.Now().UnixMilli())

	isNew, changed, err := dao.Token().Upsert(token)
	if err != nil {
		logger.Error().Err(err).Str("token", event.TokenAddress).Msg("upsert token failed")
		return
	}
	if !changed {
		return
	}

	h.seen.Set(event.TokenAddress, event.TotalAmount, gocache.DefaultExpiration)

	kind := broadcast.EventBoostUpdate
	metricKind := "update"
	if isNew {
		kind = broadcast.EventNewToken
		metricKind = "new"
	}
	monitor.IncTokensUpserted(metricKind)

	stored, err := dao.Token().Get(event.TokenAddress)
	if err != nil || stored == nil {
		// 落库成功但回读失败：退回用本地构造的记录广播
		stored = token
	}
	h.publisher.Publish(kind, stored)

	if crossedAlert(prevTotal, event.TotalAmount, h.minBoostAlert) {
		logger.Info().
			Str("token", event.TokenAddress).
			Str("symbol", token.Symbol).
			Float64("total_amount", event.TotalAmount).
			Msg("notable boost amount")
	}
}

// crossedAlert totalAmount 是否本次首次达到提醒阈值
func crossedAlert(prev, next, threshold float64) bool {
	return threshold > 0 && prev < threshold && next >= threshold
}
