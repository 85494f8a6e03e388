package cleaner

import (
	"sync"
	"time"

	"github.com/utrading/utrading-boost-monitor/internal/broadcast"
	"github.com/utrading/utrading-boost-monitor/internal/dao"
	"github.com/utrading/utrading-boost-monitor/internal/monitor"
	"github.com/utrading/utrading-boost-monitor/pkg/goplus"
	"github.com/utrading/utrading-boost-monitor/pkg/logger"
)

const (
	purgeInterval = 1 * time.Hour   // 过期代币清理间隔
	pinInterval   = 30 * time.Second // 置顶到期扫描间隔
)

// Publisher 事件发布出口
type Publisher interface {
	Publish(eventType string, data interface{})
}

// Cleaner 数据清理器：清除长期无 boost 的代币、回收到期的置顶
type Cleaner struct {
	publisher Publisher
	maxAge    time.Duration // 代币保留时长（自最后一次 boost 起）

	done     chan struct{}
	stopOnce sync.Once
}

// NewCleaner 创建清理器
func NewCleaner(publisher Publisher, maxAge time.Duration) *Cleaner {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Cleaner{
		publisher: publisher,
		maxAge:    maxAge,
		done:      make(chan struct{}),
	}
}

// Start 启动清理任务
func (c *Cleaner) Start() {
	goplus.Go(func() {
		purgeTicker := time.NewTicker(purgeInterval)
		pinTicker := time.NewTicker(pinInterval)
		defer purgeTicker.Stop()
		defer pinTicker.Stop()

		logger.Info().Dur("max_age", c.maxAge).Msg("cleaner started")

		// 启动时立即执行一次
		c.purgeStale()
		c.expirePins()

		for {
			select {
			case <-purgeTicker.C:
				c.purgeStale()
			case <-pinTicker.C:
				c.expirePins()
			case <-c.done:
				logger.Info().Msg("cleaner stopped")
				return
			}
		}
	})
}

// Stop 停止清理器
func (c *Cleaner) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

// purgeStale 删除超过保留期没有新 boost 的代币（连同其投票）
func (c *Cleaner) purgeStale() {
	cutoff := time.Now().Add(-c.maxAge).UnixMilli()
	addresses, err := dao.Token().PurgeStale(cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("purge stale tokens failed")
		return
	}
	if len(addresses) == 0 {
		return
	}

	monitor.AddTokensPurged(len(addresses))
	logger.Info().Int("purged", len(addresses)).Int64("cutoff", cutoff).Msg("purged stale tokens")

	for _, address := range addresses {
		c.publisher.Publish(broadcast.EventTokenDeleted, &broadcast.AddressPayload{TokenAddress: address})
	}
}

// expirePins 回收已过截止时间的置顶
func (c *Cleaner) expirePins() {
	nowMs := time.Now().UnixMilli()
	addresses, err := dao.Token().ClearExpiredPins(nowMs)
	if err != nil {
		logger.Error().Err(err).Msg("clear expired pins failed")
		return
	}

	for _, address := range addresses {
		logger.Info().Str("token", address).Msg("pin expired")
		c.publisher.Publish(broadcast.EventPinExpired, &broadcast.AddressPayload{TokenAddress: address})
	}
}
