package models

import "time"

// TokenVote 投票记录，(token_address, voter_id) 唯一
// 同一投票人再次投票时整行覆盖（是否允许由接口层决定）
type TokenVote struct {
	ID           int64  `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	TokenAddress string `gorm:"column:token_address;type:varchar(64);not null;uniqueIndex:uidx_token_voter;index:idx_vote_token" json:"tokenAddress"`
	VoterID      string `gorm:"column:voter_id;type:varchar(64);not null;uniqueIndex:uidx_token_voter" json:"voterId"`
	Vote         int    `gorm:"column:vote;not null" json:"vote"` // +1 / -1
	Timestamp    int64  `gorm:"column:timestamp;not null" json:"timestamp"` // 最后一次投票时间（毫秒）

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (TokenVote) TableName() string {
	return "token_votes"
}

// VoteCounts 单个代币的投票聚合
type VoteCounts struct {
	Upvotes   int64 `json:"upvotes"`
	Downvotes int64 `json:"downvotes"`
}
