package dao

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/utrading/utrading-boost-monitor/internal/models"
)

// setupTestDB 初始化共享内存库并清空数据
// DAO 为进程级单例，各测试通过清表隔离
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.BoostedToken{}, &models.TokenVote{}, &models.PinOrder{})
	assert.NoError(t, err)

	InitDAO(db)

	assert.NoError(t, db.Exec("DELETE FROM boosted_tokens").Error)
	assert.NoError(t, db.Exec("DELETE FROM token_votes").Error)
	assert.NoError(t, db.Exec("DELETE FROM pin_orders").Error)

	return db
}

// newTestToken 构造一条测试代币
func newTestToken(address string, boostedMs int64) *models.BoostedToken {
	return &models.BoostedToken{
		TokenAddress: address,
		ChainID:      "solana",
		Name:         "Test Token",
		Symbol:       "TT",
		Amount:       10,
		TotalAmount:  50,
		Boosted:      boostedMs,
		DateAdded:    boostedMs,
	}
}
