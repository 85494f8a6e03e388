package pinorder

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utrading/utrading-boost-monitor/config"
	"github.com/utrading/utrading-boost-monitor/internal/broadcast"
	"github.com/utrading/utrading-boost-monitor/internal/dao"
	"github.com/utrading/utrading-boost-monitor/internal/models"
	"github.com/utrading/utrading-boost-monitor/internal/monitor"
	"github.com/utrading/utrading-boost-monitor/internal/payment"
	"github.com/utrading/utrading-boost-monitor/pkg/goplus"
	"github.com/utrading/utrading-boost-monitor/pkg/logger"
)

// 接口层据此返回 4xx
var (
	ErrTokenNotFound = errors.New("token not found")
	ErrUnknownTier   = errors.New("unknown pricing tier")
	ErrCapacityFull  = errors.New("pin capacity exhausted")
)

// BalanceChecker 链上支付校验
type BalanceChecker interface {
	CheckPaid(address string, cost float64) (bool, error)
}

// Publisher 事件发布出口
type Publisher interface {
	Publish(eventType string, data interface{})
}

// WalletFunc 一次性收款地址生成
type WalletFunc func() (*payment.Wallet, error)

// Workflow 置顶订单流程：创建订单、轮询到账、推进状态机
// 状态只沿 pending -> {paid -> completed, expired, refund_needed} 流转，
// 置顶效果与 paid -> completed 在同一事务内，每单至多生效一次
type Workflow struct {
	checker   BalanceChecker
	publisher Publisher
	policy    CapacityPolicy
	wallet    WalletFunc

	priceTiers map[string]float64
	expiry     time.Duration
	interval   time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

// New 创建流程
func New(cfg config.Pin, checker BalanceChecker, publisher Publisher, policy CapacityPolicy) *Workflow {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	expiry := cfg.OrderExpiry
	if expiry <= 0 {
		expiry = 30 * time.Minute
	}

	return &Workflow{
		checker:    checker,
		publisher:  publisher,
		policy:     policy,
		wallet:     payment.GenerateWallet,
		priceTiers: cfg.PriceTiers,
		expiry:     expiry,
		interval:   interval,
		done:       make(chan struct{}),
	}
}

// Create 创建订单：校验代币、价目与容量，生成一次性收款地址
func (w *Workflow) Create(tokenAddress string, hours int, cost float64, requesterOrigin string) (*models.PinOrder, error) {
	token, err := dao.Token().Get(tokenAddress)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrTokenNotFound
	}

	tierCost, ok := w.priceTiers[strconv.Itoa(hours)]
	if !ok || tierCost != cost {
		return nil, ErrUnknownTier
	}

	nowMs := time.Now().UnixMilli()
	allowed, err := w.policy.Allow(tokenAddress, nowMs)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrCapacityFull
	}

	wallet, err := w.wallet()
	if err != nil {
		return nil, err
	}

	order := &models.PinOrder{
		OrderID:         uuid.NewString(),
		TokenAddress:    tokenAddress,
		Hours:           hours,
		Cost:            cost,
		PaymentAddress:  wallet.Address,
		PaymentSecret:   wallet.Secret,
		Status:          models.OrderStatusPending,
		RequesterOrigin: requesterOrigin,
		CreatedAtMs:     nowMs,
		ExpiresAt:       nowMs + w.expiry.Milliseconds(),
	}

	if err = dao.PinOrder().Create(order); err != nil {
		return nil, err
	}

	monitor.IncOrdersCreated()
	logger.Info().
		Str("order", order.OrderID).
		Str("token", tokenAddress).
		Int("hours", hours).
		Float64("cost", cost).
		Msg("pin order created")

	return order, nil
}

// Status 查询订单
func (w *Workflow) Status(orderID string) (*models.PinOrder, error) {
	return dao.PinOrder().Get(orderID)
}

// Start 启动支付轮询
// 循环串行执行：上一轮没结束不会开始下一轮，避免同一订单被重复推进
func (w *Workflow) Start() {
	goplus.Go(func() {
		logger.Info().Dur("interval", w.interval).Msg("pin order poller started")
		for {
			select {
			case <-time.After(w.interval):
				w.pollOnce()
			case <-w.done:
				logger.Info().Msg("pin order poller stopped")
				return
			}
		}
	})
}

// Stop 停止轮询
func (w *Workflow) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

// pollOnce 推进所有未到终态的订单
// 单个订单的失败只记日志，下一轮自然重试
func (w *Workflow) pollOnce() {
	orders, err := dao.PinOrder().GetOpen()
	if err != nil {
		logger.Error().Err(err).Msg("list open orders failed")
		return
	}

	nowMs := time.Now().UnixMilli()
	for _, order := range orders {
		w.advance(order, nowMs)
	}
}

// advance 推进单个订单
func (w *Workflow) advance(order *models.PinOrder, nowMs int64) {
	if order.Status == models.OrderStatusPending {
		if nowMs >= order.ExpiresAt {
			if ok, err := dao.PinOrder().MarkExpired(order.OrderID); err != nil {
				logger.Error().Err(err).Str("order", order.OrderID).Msg("mark expired failed")
			} else if ok {
				monitor.IncOrderTransition(models.OrderStatusExpired)
				logger.Info().Str("order", order.OrderID).Msg("pin order expired unpaid")
			}
			return
		}

		paid, err := w.checker.CheckPaid(order.PaymentAddress, order.Cost)
		if err != nil {
			logger.Warn().Err(err).Str("order", order.OrderID).Msg("balance check failed, will retry")
			return
		}
		if !paid {
			return
		}

		ok, err := dao.PinOrder().MarkPaid(order.OrderID, nowMs)
		if err != nil {
			logger.Error().Err(err).Str("order", order.OrderID).Msg("mark paid failed")
			return
		}
		if !ok {
			// 其他轮询周期已经处理过
			return
		}
		monitor.IncOrderTransition(models.OrderStatusPaid)
		logger.Info().Str("order", order.OrderID).Str("token", order.TokenAddress).Msg("pin order paid")
	}

	// 已支付：检查容量后让置顶生效
	allowed, err := w.policy.Allow(order.TokenAddress, nowMs)
	if err != nil {
		logger.Error().Err(err).Str("order", order.OrderID).Msg("capacity check failed, will retry")
		return
	}
	if !allowed {
		// 与其他已确认的订单抢名额失败，转人工退款
		if ok, err := dao.PinOrder().MarkRefundNeeded(order.OrderID); err != nil {
			logger.Error().Err(err).Str("order", order.OrderID).Msg("mark refund_needed failed")
		} else if ok {
			monitor.IncOrderTransition(models.OrderStatusRefundNeeded)
			logger.Warn().Str("order", order.OrderID).Str("token", order.TokenAddress).
				Msg("pin capacity exceeded after payment, refund needed")
		}
		return
	}

	applied, err := dao.PinOrder().CompleteAndApplyPin(order, nowMs)
	if err != nil {
		logger.Error().Err(err).Str("order", order.OrderID).Msg("complete order failed")
		return
	}
	if !applied {
		return
	}

	monitor.IncOrderTransition(models.OrderStatusCompleted)

	token, err := dao.Token().Get(order.TokenAddress)
	if err != nil || token == nil {
		logger.Error().Err(err).Str("token", order.TokenAddress).Msg("load token after pin failed")
		return
	}

	w.publisher.Publish(broadcast.EventPinUpdate, token)
	logger.Info().
		Str("order", order.OrderID).
		Str("token", order.TokenAddress).
		Int64("pinned_until", token.PinnedUntil).
		Msg("pin applied")
}
