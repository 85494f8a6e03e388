package pinorder

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
	"github.com/utrading/utrading-boost-monitor/internal/models"
	"github.com/utrading/utrading-boost-monitor/internal/payment"
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

// fakeChecker 模拟余额校验
type fakeChecker struct {
	paid bool
	err  error
}

func (f *fakeChecker) CheckPaid(address string, cost float64) (bool, error) {
	return f.paid, f.err
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

// fakePolicy 固定放行/拒绝
type fakePolicy struct {
	allow bool
	err   error
}

func (f *fakePolicy) Allow(tokenAddress string, nowMs int64) (bool, error) {
	return f.allow, f.err
}

func testPinConfig() config.Pin {
	return config.Pin{
		PollInterval: 10 * time.Second,
		OrderExpiry:  30 * time.Minute,
		Tolerance:    0.001,
		MaxPinned:    3,
		PriceTiers:   map[string]float64{"1": 0.5, "6": 2.0, "24": 6.0},
	}
}

func seedToken(t *testing.T, address string, pinnedUntil int64) {
	nowMs := time.Now().UnixMilli()
	_, _, err := dao.Token().Upsert(&models.BoostedToken{
		TokenAddress: address,
		ChainID:      "solana",
		Amount:       5,
		TotalAmount:  20,
		Boosted:      nowMs,
		DateAdded:    nowMs,
	})
	assert.NoError(t, err)
	if pinnedUntil > 0 {
		assert.NoError(t, dao.Token().ApplyPin(address, pinnedUntil-nowMs, nowMs))
	}
}

func TestWorkflow_CreateUnknownToken(t *testing.T) {
	setupTestDB(t)

	w := New(testPinConfig(), &fakeChecker{}, &recordingPublisher{}, &fakePolicy{allow: true})
	_, err := w.Create("So1Missing", 1, 0.5, "")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestWorkflow_CreateUnknownTier(t *testing.T) {
	setupTestDB(t)
	seedToken(t, "So1Tier", 0)

	w := New(testPinConfig(), &fakeChecker{}, &recordingPublisher{}, &fakePolicy{allow: true})

	// 不存在的时长
	_, err := w.Create("So1Tier", 3, 0.5, "")
	assert.ErrorIs(t, err, ErrUnknownTier)

	// 时长存在但价格不符
	_, err = w.Create("So1Tier", 1, 0.4, "")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestWorkflow_CreateCapacityFull(t *testing.T) {
	setupTestDB(t)
	seedToken(t, "So1Full", 0)

	w := New(testPinConfig(), &fakeChecker{}, &recordingPublisher{}, &fakePolicy{allow: false})
	_, err := w.Create("So1Full", 1, 0.5, "")
	assert.ErrorIs(t, err, ErrCapacityFull)
}

func TestWorkflow_CreatePending(t *testing.T) {
	setupTestDB(t)
	seedToken(t, "So1Order", 0)

	w := New(testPinConfig(), &fakeChecker{}, &recordingPublisher{}, &fakePolicy{allow: true})
	w.wallet = func() (*payment.Wallet, error) {
		return &payment.Wallet{Address: "PayAddr1", Secret: "sec"}, nil
	}

	before := time.Now().UnixMilli()
	order, err := w.Create("So1Order", 1, 0.5, "https://example.com")
	assert.NoError(t, err)
	assert.NotEmpty(t, order.OrderID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "PayAddr1", order.PaymentAddress)
	assert.InDelta(t, before+30*60_000, order.ExpiresAt, 1000)

	stored, err := w.Status(order.OrderID)
	assert.NoError(t, err)
	assert.NotNil(t, stored)
	assert.Equal(t, order.OrderID, stored.OrderID)
}

// 到账 -> paid -> completed，置顶生效并广播 PIN_UPDATE
func TestWorkflow_PollAppliesPin(t *testing.T) {
	setupTestDB(t)
	seedToken(t, "So1Paid", 0)

	publisher := &recordingPublisher{}
	w := New(testPinConfig(), &fakeChecker{paid: true}, publisher, &fakePolicy{allow: true})
	w.wallet = func() (*payment.Wallet, error) {
		return &payment.Wallet{Address: "PayAddr2", Secret: "sec"}, nil
	}

	order, err := w.Create("So1Paid", 1, 0.5, "")
	assert.NoError(t, err)

	w.pollOnce()

	stored, _ := w.Status(order.OrderID)
	assert.Equal(t, models.OrderStatusCompleted, stored.Status)
	assert.NotNil(t, stored.PaidAt)

	token, _ := dao.Token().Get("So1Paid")
	assert.Greater(t, token.PinnedUntil, time.Now().UnixMilli())
	assert.Equal(t, []string{broadcast.EventPinUpdate}, publisher.Events())

	// 第二次轮询不再重复生效
	pinnedUntil := token.PinnedUntil
	w.pollOnce()
	token, _ = dao.Token().Get("So1Paid")
	assert.Equal(t, pinnedUntil, token.PinnedUntil)
	assert.Equal(t, []string{broadcast.EventPinUpdate}, publisher.Events())
}

func TestWorkflow_PollExpiresUnpaid(t *testing.T) {
	db := setupTestDB(t)
	seedToken(t, "So1Unpaid", 0)

	cfg := testPinConfig()
	w := New(cfg, &fakeChecker{paid: false}, &recordingPublisher{}, &fakePolicy{allow: true})
	w.wallet = func() (*payment.Wallet, error) {
		return &payment.Wallet{Address: "PayAddr3", Secret: "sec"}, nil
	}

	order, err := w.Create("So1Unpaid", 1, 0.5, "")
	assert.NoError(t, err)

	// 未到期且未支付：保持 pending
	w.pollOnce()
	stored, _ := w.Status(order.OrderID)
	assert.Equal(t, models.OrderStatusPending, stored.Status)

	// 把订单推到过期线之后
	assert.NoError(t, db.Model(&models.PinOrder{}).
		Where("order_id = ?", order.OrderID).
		Update("expires_at", time.Now().UnixMilli()-1000).Error)

	w.pollOnce()
	stored, _ = w.Status(order.OrderID)
	assert.Equal(t, models.OrderStatusExpired, stored.Status)
}

// 支付后名额被抢光：转 refund_needed，不置顶
func TestWorkflow_PollRefundNeeded(t *testing.T) {
	setupTestDB(t)
	seedToken(t, "So1Refund", 0)

	policy := &togglePolicy{allow: true}
	publisher := &recordingPublisher{}
	w := New(testPinConfig(), &fakeChecker{paid: true}, publisher, policy)
	w.wallet = func() (*payment.Wallet, error) {
		return &payment.Wallet{Address: "PayAddr4", Secret: "sec"}, nil
	}

	order, err := w.Create("So1Refund", 1, 0.5, "")
	assert.NoError(t, err)

	// 创建后、生效前名额被占满
	policy.setAllow(false)

	w.pollOnce()
	stored, _ := w.Status(order.OrderID)
	assert.Equal(t, models.OrderStatusRefundNeeded, stored.Status)

	token, _ := dao.Token().Get("So1Refund")
	assert.Equal(t, int64(0), token.PinnedUntil)
	assert.Empty(t, publisher.Events())
}

// 余额查询失败：订单保持 pending，等下一轮
func TestWorkflow_PollCheckerError(t *testing.T) {
	setupTestDB(t)
	seedToken(t, "So1Retry", 0)

	w := New(testPinConfig(), &fakeChecker{err: errors.New("rpc down")}, &recordingPublisher{}, &fakePolicy{allow: true})
	w.wallet = func() (*payment.Wallet, error) {
		return &payment.Wallet{Address: "PayAddr5", Secret: "sec"}, nil
	}

	order, err := w.Create("So1Retry", 1, 0.5, "")
	assert.NoError(t, err)

	w.pollOnce()
	stored, _ := w.Status(order.OrderID)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
}

// togglePolicy 测试中途改变放行结果
type togglePolicy struct {
	mu    sync.Mutex
	allow bool
}

func (p *togglePolicy) setAllow(allow bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allow = allow
}

func (p *togglePolicy) Allow(tokenAddress string, nowMs int64) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allow, nil
}

func TestMaxPinnedPolicy(t *testing.T) {
	setupTestDB(t)

	nowMs := time.Now().UnixMilli()
	hourMs := int64(3600_000)

	// 占满 2 个名额
	seedToken(t, "So1Pinned1", nowMs+hourMs)
	seedToken(t, "So1Pinned2", nowMs+hourMs)
	seedToken(t, "So1Free", 0)

	policy := NewMaxPinnedPolicy(2)

	// 名额已满，新代币被拒
	allowed, err := policy.Allow("So1Free", nowMs)
	assert.NoError(t, err)
	assert.False(t, allowed)

	// 已置顶代币续期不占新名额
	allowed, err = policy.Allow("So1Pinned1", nowMs)
	assert.NoError(t, err)
	assert.True(t, allowed)

	// 上限为 0 表示不限制
	unlimited := NewMaxPinnedPolicy(0)
	allowed, err = unlimited.Allow("So1Free", nowMs)
	assert.NoError(t, err)
	assert.True(t, allowed)
}
