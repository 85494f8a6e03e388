package dao

import (
	"errors"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/utrading/utrading-boost-monitor/internal/models"
)

type TokenDAO struct {
	db *gorm.DB
}

var (
	_token     *TokenDAO
	_tokenOnce sync.Once
)

// InitTokenDAO 初始化 TokenDAO
func InitTokenDAO(db *gorm.DB) {
	_tokenOnce.Do(func() {
		_token = &TokenDAO{db: db}
	})
}

// Token 获取 TokenDAO 单例
func Token() *TokenDAO {
	return _token
}

// tokenMergeColumns 地址冲突时允许覆盖的列
// date_added / pinned_until 不在其中：首见时间不可变，置顶截止只能走 ApplyPin
var tokenMergeColumns = []string{
	"chain_id", "name", "symbol", "icon", "header", "description", "links",
	"price_usd", "market_cap", "liquidity", "volume_24h", "volume_6h", "volume_1h",
	"amount", "total_amount", "boosted", "updated_at",
}

// Upsert 按地址合并写入
// isNew: 此前不存在该地址；changed: 本次写入实际落库
func (d *TokenDAO) Upsert(token *models.BoostedToken) (isNew bool, changed bool, err error) {
	var existing int64
	err = d.db.Model(&models.BoostedToken{}).
		Where("token_address = ?", token.TokenAddress).
		Count(&existing).Error
	if err != nil {
		return false, false, err
	}

	result := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_address"}},
		DoUpdates: clause.AssignmentColumns(tokenMergeColumns),
	}).Create(token)
	if result.Error != nil {
		return false, false, result.Error
	}

	return existing == 0, result.RowsAffected > 0, nil
}

// Get 按地址查询
func (d *TokenDAO) Get(address string) (*models.BoostedToken, error) {
	var token models.BoostedToken
	err := d.db.Where("token_address = ?", address).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// ListAll 按最近 boost 时间倒序返回全部代币
func (d *TokenDAO) ListAll() ([]*models.BoostedToken, error) {
	var tokens []*models.BoostedToken
	err := d.db.Order("boosted desc").Find(&tokens).Error
	return tokens, err
}

// GetBoostAmounts 变更检测：只取 amount / total_amount 两列
// ok=false 表示地址不存在
func (d *TokenDAO) GetBoostAmounts(address string) (amount, totalAmount float64, ok bool, err error) {
	var row struct {
		Amount      float64
		TotalAmount float64
	}
	err = d.db.Model(&models.BoostedToken{}).
		Select("amount", "total_amount").
		Where("token_address = ?", address).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, err
	}
	return row.Amount, row.TotalAmount, true, nil
}

// applyPin 在给定连接上延长置顶期并累加 boost 计数
// pinned_until 从 max(now, 当前值) 起算，只向后延长
// 单条 UPDATE，并发下不会回退
func applyPin(db *gorm.DB, address string, durationMs, nowMs int64) (int64, error) {
	result := db.Model(&models.BoostedToken{}).
		Where("token_address = ?", address).
		Updates(map[string]interface{}{
			"pinned_until": gorm.Expr(
				"(CASE WHEN pinned_until > ? THEN pinned_until ELSE ? END) + ?",
				nowMs, nowMs, durationMs),
			"amount":       gorm.Expr("amount + 1"),
			"total_amount": gorm.Expr("total_amount + 1"),
			"boosted":      nowMs,
		})
	return result.RowsAffected, result.Error
}

// ApplyPin 原子延长置顶期
func (d *TokenDAO) ApplyPin(address string, durationMs, nowMs int64) error {
	affected, err := applyPin(d.db, address, durationMs, nowMs)
	if err != nil {
		return err
	}
	if affected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountPinned 当前处于置顶期的代币数量
func (d *TokenDAO) CountPinned(nowMs int64) (int64, error) {
	var count int64
	err := d.db.Model(&models.BoostedToken{}).
		Where("pinned_until > ?", nowMs).
		Count(&count).Error
	return count, err
}

// PurgeStale 删除 boosted 早于 cutoff 的代币并级联删除其投票
// 返回被删除的地址列表，供调用方广播
func (d *TokenDAO) PurgeStale(cutoffMs int64) ([]string, error) {
	var addresses []string
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.BoostedToken{}).
			Where("boosted < ?", cutoffMs).
			Pluck("token_address", &addresses).Error; err != nil {
			return err
		}
		if len(addresses) == 0 {
			return nil
		}
		if err := tx.Where("token_address IN ?", addresses).
			Delete(&models.BoostedToken{}).Error; err != nil {
			return err
		}
		return tx.Where("token_address IN ?", addresses).
			Delete(&models.TokenVote{}).Error
	})
	return addresses, err
}

// ClearExpiredPins 将已过期的置顶位清零
// 返回本次清零的地址列表，供调用方广播 PIN_EXPIRED
func (d *TokenDAO) ClearExpiredPins(nowMs int64) ([]string, error) {
	var addresses []string
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.BoostedToken{}).
			Where("pinned_until > 0 AND pinned_until <= ?", nowMs).
			Pluck("token_address", &addresses).Error; err != nil {
			return err
		}
		if len(addresses) == 0 {
			return nil
		}
		return tx.Model(&models.BoostedToken{}).
			Where("token_address IN ? AND pinned_until <= ?", addresses, nowMs).
			Update("pinned_until", 0).Error
	})
	return addresses, err
}
