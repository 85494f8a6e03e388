package models

import "time"

// SocialLink 社交链接，type 统一小写（website/telegram/twitter）
type SocialLink struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// BoostedToken 代币状态表，一个地址一行
// DateAdded 首次入库后不再变化；TotalAmount 只增不减；
// PinnedUntil 只能由置顶支付流程向后延长
type BoostedToken struct {
	ID           int64  `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	TokenAddress string `gorm:"column:token_address;type:varchar(64);not null;uniqueIndex:uidx_token_addr" json:"tokenAddress"`
	ChainID      string `gorm:"column:chain_id;type:varchar(16);not null" json:"chainId"`
	Name         string `gorm:"column:name;type:varchar(128);not null;default:''" json:"name"`
	Symbol       string `gorm:"column:symbol;type:varchar(32);not null;default:''" json:"symbol"`

	// 展示信息
	Icon        string       `gorm:"column:icon;type:varchar(512);not null;default:''" json:"icon"`
	Header      string       `gorm:"column:header;type:varchar(512);not null;default:''" json:"header"`
	Description string       `gorm:"column:description;type:text" json:"description"`
	Links       []SocialLink `gorm:"column:links;type:json;serializer:json" json:"links"`

	// 行情
	PriceUsd  float64 `gorm:"column:price_usd;not null;default:0" json:"priceUsd"`
	MarketCap float64 `gorm:"column:market_cap;not null;default:0" json:"marketCap"`
	Liquidity float64 `gorm:"column:liquidity;not null;default:0" json:"liquidity"`
	Volume24h float64 `gorm:"column:volume_24h;not null;default:0" json:"volume24h"`
	Volume6h  float64 `gorm:"column:volume_6h;not null;default:0" json:"volume6h"`
	Volume1h  float64 `gorm:"column:volume_1h;not null;default:0" json:"volume1h"`

	// boost 状态
	Amount      float64 `gorm:"column:amount;not null;default:0" json:"amount"`            // 最近一批 boost 数
	TotalAmount float64 `gorm:"column:total_amount;not null;default:0" json:"totalAmount"` // 累计 boost 数
	Boosted     int64   `gorm:"column:boosted;not null;default:0;index:idx_boosted" json:"boosted"` // 最近 boost 时间（毫秒）

	DateAdded   int64 `gorm:"column:date_added;not null;default:0" json:"dateAdded"`     // 首次入库时间（毫秒）
	PinnedUntil int64 `gorm:"column:pinned_until;not null;default:0" json:"pinnedUntil"` // 置顶截止时间（毫秒），0 表示未置顶

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (BoostedToken) TableName() string {
	return "boosted_tokens"
}

// IsPinned 判断当前是否处于置顶期
func (t *BoostedToken) IsPinned(nowMs int64) bool {
	return t.PinnedUntil > nowMs
}
