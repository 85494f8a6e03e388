package dao

import (
	"errors"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/utrading/utrading-boost-monitor/internal/models"
)

type VoteDAO struct {
	db *gorm.DB
}

var (
	_vote     *VoteDAO
	_voteOnce sync.Once
)

// InitVoteDAO 初始化 VoteDAO
func InitVoteDAO(db *gorm.DB) {
	_voteOnce.Do(func() {
		_vote = &VoteDAO{db: db}
	})
}

// Vote 获取 VoteDAO 单例
func Vote() *VoteDAO {
	return _vote
}

// Upsert 写入投票，(token_address, voter_id) 冲突时覆盖
// 是否允许覆盖由接口层决定，存储层始终支持
func (d *VoteDAO) Upsert(vote *models.TokenVote) error {
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_address"}, {Name: "voter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"vote", "timestamp", "updated_at"}),
	}).Create(vote).Error
}

// Insert 仅在 (token_address, voter_id) 不存在时写入，返回是否写入
// 冲突时不做任何修改，并发首投只有一个成功
func (d *VoteDAO) Insert(vote *models.TokenVote) (bool, error) {
	result := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_address"}, {Name: "voter_id"}},
		DoNothing: true,
	}).Create(vote)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetVote 查询某投票人对某代币的投票，不存在时返回 0
func (d *VoteDAO) GetVote(tokenAddress, voterID string) (int, bool, error) {
	var vote models.TokenVote
	err := d.db.Where("token_address = ? AND voter_id = ?", tokenAddress, voterID).
		Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return vote.Vote, true, nil
}

// GetCounts 单个代币的赞/踩聚合
func (d *VoteDAO) GetCounts(tokenAddress string) (*models.VoteCounts, error) {
	var row struct {
		Upvotes   int64
		Downvotes int64
	}
	err := d.db.Model(&models.TokenVote{}).
		Select(
			"COALESCE(SUM(CASE WHEN vote > 0 THEN 1 ELSE 0 END), 0) AS upvotes",
			"COALESCE(SUM(CASE WHEN vote < 0 THEN 1 ELSE 0 END), 0) AS downvotes",
		).
		Where("token_address = ?", tokenAddress).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &models.VoteCounts{Upvotes: row.Upvotes, Downvotes: row.Downvotes}, nil
}

// GetAllCounts 所有代币的投票聚合
func (d *VoteDAO) GetAllCounts() (map[string]*models.VoteCounts, error) {
	var rows []struct {
		TokenAddress string
		Upvotes      int64
		Downvotes    int64
	}
	err := d.db.Model(&models.TokenVote{}).
		Select(
			"token_address",
			"COALESCE(SUM(CASE WHEN vote > 0 THEN 1 ELSE 0 END), 0) AS upvotes",
			"COALESCE(SUM(CASE WHEN vote < 0 THEN 1 ELSE 0 END), 0) AS downvotes",
		).
		Group("token_address").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]*models.VoteCounts, len(rows))
	for _, row := range rows {
		counts[row.TokenAddress] = &models.VoteCounts{
			Upvotes:   row.Upvotes,
			Downvotes: row.Downvotes,
		}
	}
	return counts, nil
}
