package models

import "time"

// 置顶订单状态，只沿 pending -> {paid -> completed, expired, refund_needed} 单向流转
const (
	OrderStatusPending      = "pending"
	OrderStatusPaid         = "paid"
	OrderStatusCompleted    = "completed"
	OrderStatusExpired      = "expired"
	OrderStatusRefundNeeded = "refund_needed"
)

// PinOrder 置顶支付订单，作为审计记录保留，不删除
type PinOrder struct {
	ID      int64  `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	OrderID string `gorm:"column:order_id;type:varchar(40);not null;uniqueIndex:uidx_order_id" json:"orderId"`

	TokenAddress string  `gorm:"column:token_address;type:varchar(64);not null;index:idx_order_token" json:"tokenAddress"`
	Hours        int     `gorm:"column:hours;not null" json:"hours"`
	Cost         float64 `gorm:"column:cost;not null" json:"cost"` // SOL

	// 一次性收款地址及其私钥（base58）
	PaymentAddress string `gorm:"column:payment_address;type:varchar(64);not null" json:"paymentAddress"`
	PaymentSecret  string `gorm:"column:payment_secret;type:varchar(128);not null" json:"-"`

	Status          string `gorm:"column:status;type:varchar(16);not null;default:pending;index:idx_order_status" json:"status"`
	RequesterOrigin string `gorm:"column:requester_origin;type:varchar(64);not null;default:''" json:"-"`

	CreatedAtMs int64  `gorm:"column:created_at_ms;not null" json:"createdAt"` // 毫秒
	ExpiresAt   int64  `gorm:"column:expires_at;not null" json:"expiresAt"`    // 毫秒
	PaidAt      *int64 `gorm:"column:paid_at" json:"paidAt,omitempty"`         // 毫秒

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (PinOrder) TableName() string {
	return "pin_orders"
}

// IsTerminal 判断状态是否为终态
func IsTerminal(status string) bool {
	switch status {
	case OrderStatusCompleted, OrderStatusExpired, OrderStatusRefundNeeded:
		return true
	}
	return false
}
