package hunter

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/utrading/utrading-boost-monitor/config"
	"github.com/utrading/utrading-boost-monitor/internal/broadcast"
	"github.com/utrading/utrading-boost-monitor/internal/dao"
	"github.com/utrading/utrading-boost-monitor/internal/feed"
	"github.com/utrading/utrading-boost-monitor/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.BoostedToken{}, &models.TokenVote{}, &models.PinOrder{})
	assert.NoError(t, err)

	dao.InitDAO(db)

	assert.NoError(t, db.Exec("DELETE FROM boosted_tokens").Error)
	assert.NoError(t, db.Exec("DELETE FROM token_votes").Error)
	assert.NoError(t, db.Exec("DELETE FROM pin_orders").Error)

	return db
}

// fakeSource 可编程数据源
type fakeSource struct {
	mu        sync.Mutex
	boosts    []feed.BoostEvent
	boostsErr error
	pairs     map[string][]feed.Pair
	pairsErr  map[string]error
}

func (f *fakeSource) FetchBoosts() ([]feed.BoostEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.boosts, f.boostsErr
}

func (f *fakeSource) FetchPairs(address string) ([]feed.Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.pairsErr[address]; ok {
		return nil, err
	}
	return f.pairs[address], nil
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingPublisher) Publish(eventType string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recordingPublisher) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func testMonitorConfig() config.Monitor {
	return config.Monitor{
		HunterTimeout: 5 * time.Second,
		FetchTimeout:  time.Second,
		Chains:        []string{"solana"},
		DexID:         "pumpswap",
		PumpOnly:      true,
		MinBoostAlert: 500,
		MaxWorkers:    4,
	}
}

func solanaPair(name, symbol string) []feed.Pair {
	return []feed.Pair{{
		ChainID:   "solana",
		DexID:     "pumpswap",
		PriceUsd:  "0.001",
		BaseToken: feed.BaseToken{Name: name, Symbol: symbol},
		MarketCap: 100000,
		Liquidity: feed.Liquidity{Usd: 5000},
		Volume:    feed.Volume{H24: 1000},
	}}
}

func TestHunter_Accept(t *testing.T) {
	h := New(testMonitorConfig(), &fakeSource{}, &recordingPublisher{})
	defer h.Stop()

	assert.True(t, h.accept(feed.BoostEvent{ChainID: "solana", TokenAddress: "So1Xpump"}))
	assert.False(t, h.accept(feed.BoostEvent{ChainID: "ethereum", TokenAddress: "0xabcpump"}))
	assert.False(t, h.accept(feed.BoostEvent{ChainID: "solana", TokenAddress: "So1NoSuffix"}))

	// 关闭 pump 过滤后任意地址可通过
	cfg := testMonitorConfig()
	cfg.PumpOnly = false
	open := New(cfg, &fakeSource{}, &recordingPublisher{})
	defer open.Stop()
	assert.True(t, open.accept(feed.BoostEvent{ChainID: "solana", TokenAddress: "So1NoSuffix"}))
}

// 新代币：落库并广播 NEW_TOKEN
func TestHunter_TickNewToken(t *testing.T) {
	setupTestDB(t)

	source := &fakeSource{
		boosts: []feed.BoostEvent{{
			TokenAddress: "So1Freshpump", ChainID: "solana", Amount: 10, TotalAmount: 10,
		}},
		pairs: map[string][]feed.Pair{"So1Freshpump": solanaPair("Fresh", "FRSH")},
	}
	publisher := &recordingPublisher{}

	h := New(testMonitorConfig(), source, publisher)
	defer h.Stop()

	h.tick()

	stored, err := dao.Token().Get("So1Freshpump")
	assert.NoError(t, err)
	assert.NotNil(t, stored)
	assert.Equal(t, "FRSH", stored.Symbol)
	assert.Equal(t, float64(10), stored.TotalAmount)
	assert.Equal(t, []string{broadcast.EventNewToken}, publisher.Events())
	assert.False(t, h.LastTickAt().IsZero())
}

// totalAmount 没变的代币不再走详情与广播
func TestHunter_TickUnchangedSkipped(t *testing.T) {
	setupTestDB(t)

	source := &fakeSource{
		boosts: []feed.BoostEvent{{
			TokenAddress: "So1Samepump", ChainID: "solana", Amount: 10, TotalAmount: 10,
		}},
		pairs: map[string][]feed.Pair{"So1Samepump": solanaPair("Same", "SAME")},
	}
	publisher := &recordingPublisher{}

	h := New(testMonitorConfig(), source, publisher)
	defer h.Stop()

	h.tick()
	assert.Equal(t, []string{broadcast.EventNewToken}, publisher.Events())

	// 同样的 totalAmount 再来一轮：无新事件
	h.tick()
	assert.Equal(t, []string{broadcast.EventNewToken}, publisher.Events())

	// totalAmount 增大后再次广播
	source.mu.Lock()
	source.boosts[0].TotalAmount = 20
	source.mu.Unlock()

	h.tick()
	assert.Equal(t, []string{broadcast.EventNewToken, broadcast.EventBoostUpdate}, publisher.Events())

	stored, _ := dao.Token().Get("So1Samepump")
	assert.Equal(t, float64(20), stored.TotalAmount)
}

// 单个代币的详情失败不影响同批其他代币
func TestHunter_TickFailureIsolation(t *testing.T) {
	setupTestDB(t)

	source := &fakeSource{
		boosts: []feed.BoostEvent{
			{TokenAddress: "So1Brokenpump", ChainID: "solana", TotalAmount: 5},
			{TokenAddress: "So1Livepump", ChainID: "solana", TotalAmount: 7},
		},
		pairs:    map[string][]feed.Pair{"So1Livepump": solanaPair("Live", "LIVE")},
		pairsErr: map[string]error{"So1Brokenpump": errors.New("detail endpoint down")},
	}
	publisher := &recordingPublisher{}

	h := New(testMonitorConfig(), source, publisher)
	defer h.Stop()

	h.tick()

	broken, err := dao.Token().Get("So1Brokenpump")
	assert.NoError(t, err)
	assert.Nil(t, broken)

	live, err := dao.Token().Get("So1Livepump")
	assert.NoError(t, err)
	assert.NotNil(t, live)
	assert.Equal(t, []string{broadcast.EventNewToken}, publisher.Events())
}

// 列表接口失败：本轮放弃，不碰存储
func TestHunter_TickFetchError(t *testing.T) {
	setupTestDB(t)

	source := &fakeSource{boostsErr: errors.New("feed down")}
	publisher := &recordingPublisher{}

	h := New(testMonitorConfig(), source, publisher)
	defer h.Stop()

	h.tick()
	assert.Empty(t, publisher.Events())
}

// 目标 DEX 上没有交易对的代币不落半截记录
func TestHunter_TickNoMatchingPair(t *testing.T) {
	setupTestDB(t)

	source := &fakeSource{
		boosts: []feed.BoostEvent{{
			TokenAddress: "So1Orcapump", ChainID: "solana", TotalAmount: 5,
		}},
		pairs: map[string][]feed.Pair{"So1Orcapump": {{ChainID: "solana", DexID: "orca"}}},
	}
	publisher := &recordingPublisher{}

	h := New(testMonitorConfig(), source, publisher)
	defer h.Stop()

	h.tick()

	stored, err := dao.Token().Get("So1Orcapump")
	assert.NoError(t, err)
	assert.Nil(t, stored)
	assert.Empty(t, publisher.Events())
}

// 提醒日志只在 totalAmount 首次越过阈值时触发
func TestCrossedAlert(t *testing.T) {
	// 新代币直接越线
	assert.True(t, crossedAlert(0, 500, 500))
	// 从线下涨到线上
	assert.True(t, crossedAlert(499, 520, 500))
	// 已在线上继续上涨不再触发
	assert.False(t, crossedAlert(500, 600, 500))
	assert.False(t, crossedAlert(700, 800, 500))
	// 未达线
	assert.False(t, crossedAlert(0, 499, 500))
	// 阈值未配置
	assert.False(t, crossedAlert(0, 10_000, 0))
}
