package dao

import (
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/utrading/utrading-boost-monitor/internal/models"
)

type PinOrderDAO struct {
	db *gorm.DB
}

var (
	_pinOrder     *PinOrderDAO
	_pinOrderOnce sync.Once
)

// InitPinOrderDAO 初始化 PinOrderDAO
func InitPinOrderDAO(db *gorm.DB) {
	_pinOrderOnce.Do(func() {
		_pinOrder = &PinOrderDAO{db: db}
	})
}

// PinOrder 获取 PinOrderDAO 单例
func PinOrder() *PinOrderDAO {
	return _pinOrder
}

// Create 创建订单
func (d *PinOrderDAO) Create(order *models.PinOrder) error {
	return d.db.Create(order).Error
}

// Get 按订单号查询
func (d *PinOrderDAO) Get(orderID string) (*models.PinOrder, error) {
	var order models.PinOrder
	err := d.db.Where("order_id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOpen 获取所有未到终态的订单（pending / paid）
// paid 订单需要继续推进：进程可能在置顶生效前崩溃过
func (d *PinOrderDAO) GetOpen() ([]*models.PinOrder, error) {
	var orders []*models.PinOrder
	err := d.db.
		Where("status IN ?", []string{models.OrderStatusPending, models.OrderStatusPaid}).
		Order("created_at_ms asc").
		Find(&orders).Error
	return orders, err
}

// MarkPaid 条件转移 pending -> paid
// 返回 false 表示订单已不在 pending（其他轮询周期已处理）
func (d *PinOrderDAO) MarkPaid(orderID string, paidAtMs int64) (bool, error) {
	result := d.db.Model(&models.PinOrder{}).
		Where("order_id = ? AND status = ?", orderID, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":  models.OrderStatusPaid,
			"paid_at": paidAtMs,
		})
	return result.RowsAffected > 0, result.Error
}

// MarkExpired 条件转移 pending -> expired
func (d *PinOrderDAO) MarkExpired(orderID string) (bool, error) {
	result := d.db.Model(&models.PinOrder{}).
		Where("order_id = ? AND status = ?", orderID, models.OrderStatusPending).
		Update("status", models.OrderStatusExpired)
	return result.RowsAffected > 0, result.Error
}

// MarkRefundNeeded 条件转移 paid -> refund_needed（容量被并发占满时）
func (d *PinOrderDAO) MarkRefundNeeded(orderID string) (bool, error) {
	result := d.db.Model(&models.PinOrder{}).
		Where("order_id = ? AND status = ?", orderID, models.OrderStatusPaid).
		Update("status", models.OrderStatusRefundNeeded)
	return result.RowsAffected > 0, result.Error
}

// CompleteAndApplyPin 在同一事务内完成 paid -> completed 与置顶生效
// 状态转移作为置顶写入的闸门：转移没发生（重放、并发）就不做任何事，
// 保证置顶效果对每个订单至多应用一次
func (d *PinOrderDAO) CompleteAndApplyPin(order *models.PinOrder, nowMs int64) (applied bool, err error) {
	durationMs := int64(order.Hours) * 3600 * 1000

	err = d.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PinOrder{}).
			Where("order_id = ? AND status = ?", order.OrderID, models.OrderStatusPaid).
			Update("status", models.OrderStatusCompleted)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// 已经是终态，跳过
			return nil
		}

		applied = true
		affected, err := applyPin(tx, order.TokenAddress, durationMs, nowMs)
		if err != nil {
			return err
		}
		if affected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// CountByStatus 按状态统计订单数（指标用）
func (d *PinOrderDAO) CountByStatus(status string) (int64, error) {
	var count int64
	err := d.db.Model(&models.PinOrder{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
