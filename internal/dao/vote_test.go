package dao

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/utrading/utrading-boost-monitor/internal/models"
)

func TestVoteDAO_UpsertAndGet(t *testing.T) {
	setupTestDB(t)

	nowMs := time.Now().UnixMilli()
	err := Vote().Upsert(&models.TokenVote{
		TokenAddress: "So1Vote", VoterID: "voter-1", Vote: 1, Timestamp: nowMs,
	})
	assert.NoError(t, err)

	vote, voted, err := Vote().GetVote("So1Vote", "voter-1")
	assert.NoError(t, err)
	assert.True(t, voted)
	assert.Equal(t, 1, vote)

	// 未投票的组合
	_, voted, err = Vote().GetVote("So1Vote", "voter-2")
	assert.NoError(t, err)
	assert.False(t, voted)

	// 同一组合再次写入是覆盖而不是第二行
	err = Vote().Upsert(&models.TokenVote{
		TokenAddress: "So1Vote", VoterID: "voter-1", Vote: -1, Timestamp: nowMs + 1000,
	})
	assert.NoError(t, err)

	vote, voted, err = Vote().GetVote("So1Vote", "voter-1")
	assert.NoError(t, err)
	assert.True(t, voted)
	assert.Equal(t, -1, vote)
}

// 条件插入：同一 (token, voter) 只有首次写入成功，冲突时原票不被改写
func TestVoteDAO_InsertConditional(t *testing.T) {
	setupTestDB(t)

	nowMs := time.Now().UnixMilli()
	inserted, err := Vote().Insert(&models.TokenVote{
		TokenAddress: "So1First", VoterID: "voter-1", Vote: 1, Timestamp: nowMs,
	})
	assert.NoError(t, err)
	assert.True(t, inserted)

	// 第二次写入不生效
	inserted, err = Vote().Insert(&models.TokenVote{
		TokenAddress: "So1First", VoterID: "voter-1", Vote: -1, Timestamp: nowMs + 1000,
	})
	assert.NoError(t, err)
	assert.False(t, inserted)

	vote, voted, err := Vote().GetVote("So1First", "voter-1")
	assert.NoError(t, err)
	assert.True(t, voted)
	assert.Equal(t, 1, vote)

	counts, err := Vote().GetCounts("So1First")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), counts.Upvotes)
	assert.Equal(t, int64(0), counts.Downvotes)
}

func TestVoteDAO_GetCounts(t *testing.T) {
	setupTestDB(t)

	nowMs := time.Now().UnixMilli()
	votes := []*models.TokenVote{
		{TokenAddress: "So1Counted", VoterID: "v1", Vote: 1, Timestamp: nowMs},
		{TokenAddress: "So1Counted", VoterID: "v2", Vote: 1, Timestamp: nowMs},
		{TokenAddress: "So1Counted", VoterID: "v3", Vote: -1, Timestamp: nowMs},
		{TokenAddress: "So1Other", VoterID: "v1", Vote: -1, Timestamp: nowMs},
	}
	for _, v := range votes {
		assert.NoError(t, Vote().Upsert(v))
	}

	counts, err := Vote().GetCounts("So1Counted")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), counts.Upvotes)
	assert.Equal(t, int64(1), counts.Downvotes)

	// 无投票的代币返回零值
	counts, err = Vote().GetCounts("So1Empty")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), counts.Upvotes)
	assert.Equal(t, int64(0), counts.Downvotes)
}

func TestVoteDAO_GetAllCounts(t *testing.T) {
	setupTestDB(t)

	nowMs := time.Now().UnixMilli()
	votes := []*models.TokenVote{
		{TokenAddress: "So1A", VoterID: "v1", Vote: 1, Timestamp: nowMs},
		{TokenAddress: "So1A", VoterID: "v2", Vote: -1, Timestamp: nowMs},
		{TokenAddress: "So1B", VoterID: "v1", Vote: 1, Timestamp: nowMs},
	}
	for _, v := range votes {
		assert.NoError(t, Vote().Upsert(v))
	}

	all, err := Vote().GetAllCounts()
	assert.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, int64(1), all["So1A"].Upvotes)
	assert.Equal(t, int64(1), all["So1A"].Downvotes)
	assert.Equal(t, int64(1), all["So1B"].Upvotes)
}
