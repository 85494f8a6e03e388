package server

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/utrading/utrading-boost-monitor/internal/broadcast"
	"github.com/utrading/utrading-boost-monitor/internal/dao"
	"github.com/utrading/utrading-boost-monitor/internal/models"
	"github.com/utrading/utrading-boost-monitor/internal/pinorder"
	"github.com/utrading/utrading-boost-monitor/pkg/logger"
)

// listTokens 全量代币列表：置顶在前，其余按最近 boost 时间倒序
func (s *Server) listTokens(c *gin.Context) {
	tokens, err := dao.Token().ListAll()
	if err != nil {
		logger.Error().Err(err).Msg("list tokens failed")
		c.JSON(http.StatusInternalServerError, resultErr(500, "server error"))
		return
	}

	nowMs := time.Now().UnixMilli()
	sort.SliceStable(tokens, func(i, j int) bool {
		pi, pj := tokens[i].IsPinned(nowMs), tokens[j].IsPinned(nowMs)
		if pi != pj {
			return pi
		}
		return tokens[i].Boosted > tokens[j].Boosted
	})

	result := resultOK(tokens)
	result.Total = int64(len(tokens))
	c.JSON(http.StatusOK, result)
}

// castVote 投票：每个 voterId 对每个代币只能投一次
func (s *Server) castVote(c *gin.Context) {
	params := &struct {
		TokenAddress string `json:"tokenAddress"`
		VoterID      string `json:"voterId"`
		Vote         int    `json:"vote"`
	}{}

	if err := c.ShouldBindJSON(params); err != nil {
		c.JSON(http.StatusBadRequest, resultErr(400, err.Error()))
		return
	}
	if params.TokenAddress == "" || params.VoterID == "" {
		c.JSON(http.StatusBadRequest, resultErr(400, "tokenAddress and voterId are required"))
		return
	}
	if params.Vote != 1 && params.Vote != -1 {
		c.JSON(http.StatusBadRequest, resultErr(400, "vote must be 1 or -1"))
		return
	}

	token, err := dao.Token().Get(params.TokenAddress)
	if err != nil {
		logger.Error().Err(err).Msg("load token for vote failed")
		c.JSON(http.StatusInternalServerError, resultErr(500, "server error"))
		return
	}
	if token == nil {
		c.JSON(http.StatusNotFound, resultErr(404, "token not found"))
		return
	}

	// 条件插入：已投过票时不写入，不允许改票
	// 单条语句判重，并发首投也只有一个拿到 200
	vote := &models.TokenVote{
		TokenAddress: params.TokenAddress,
		VoterID:      params.VoterID,
		Vote:         params.Vote,
		Timestamp:    time.Now().UnixMilli(),
	}
	inserted, err := dao.Vote().Insert(vote)
	if err != nil {
		logger.Error().Err(err).Msg("save vote failed")
		c.JSON(http.StatusInternalServerError, resultErr(500, "server error"))
		return
	}
	if !inserted {
		c.JSON(http.StatusConflict, resultErr(409, "already voted"))
		return
	}

	counts, err := dao.Vote().GetCounts(params.TokenAddress)
	if err != nil {
		logger.Error().Err(err).Msg("aggregate votes failed")
		c.JSON(http.StatusInternalServerError, resultErr(500, "server error"))
		return
	}

	s.hub.Publish(broadcast.EventVoteUpdate, &broadcast.VotePayload{
		TokenAddress: params.TokenAddress,
		Upvotes:      counts.Upvotes,
		Downvotes:    counts.Downvotes,
	})

	c.JSON(http.StatusOK, resultOK(counts))
}

// getVote 查询某投票人对某代币的投票，连同该代币的聚合票数一并返回
func (s *Server) getVote(c *gin.Context) {
	tokenAddress := c.Param("tokenAddress")
	voterID := c.Param("voterId")

	vote, voted, err := dao.Vote().GetVote(tokenAddress, voterID)
	if err != nil {
		logger.Error().Err(err).Msg("get vote failed")
		c.JSON(http.StatusInternalServerError, resultErr(500, "server error"))
		return
	}

	counts, err := dao.Vote().GetCounts(tokenAddress)
	if err != nil {
		logger.Error().Err(err).Msg("aggregate votes failed")
		c.JSON(http.StatusInternalServerError, resultErr(500, "server error"))
		return
	}

	c.JSON(http.StatusOK, resultOK(gin.H{
		"tokenAddress": tokenAddress,
		"voterId":      voterID,
		"voted":        voted,
		"vote":         vote,
		"votes":        counts,
	}))
}

// listVotes 所有代币的投票聚合
func (s *Server) listVotes(c *gin.Context) {
	counts, err := dao.Vote().GetAllCounts()
	if err != nil {
		logger.Error().Err(err).Msg("list votes failed")
		c.JSON(http.StatusInternalServerError, resultErr(500, "server error"))
		return
	}
	c.JSON(http.StatusOK, resultOK(counts))
}

// createPinOrder 创建置顶订单
func (s *Server) createPinOrder(c *gin.Context) {
	params := &struct {
		TokenAddress string  `json:"tokenAddress"`
		Hours        int     `json:"hours"`
		Cost         float64 `json:"cost"`
	}{}

	if err := c.ShouldBindJSON(params); err != nil {
		c.JSON(http.StatusBadRequest, resultErr(400, err.Error()))
		return
	}
	if params.TokenAddress == "" || params.Hours <= 0 {
		c.JSON(http.StatusBadRequest, resultErr(400, "tokenAddress and hours are required"))
		return
	}

	order, err := s.workflow.Create(params.TokenAddress, params.Hours, params.Cost, c.GetHeader("Origin"))
	switch {
	case errors.Is(err, pinorder.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, resultErr(404, "token not found"))
		return
	case errors.Is(err, pinorder.ErrUnknownTier):
		c.JSON(http.StatusBadRequest, resultErr(400, "invalid hours/cost combination"))
		return
	case errors.Is(err, pinorder.ErrCapacityFull):
		c.JSON(http.StatusConflict, resultErr(409, "pin capacity exhausted, try later"))
		return
	case err != nil:
		logger.Error().Err(err).Msg("create pin order failed")
		c.JSON(http.StatusInternalServerError, resultErr(500, "server error"))
		return
	}

	c.JSON(http.StatusOK, resultOK(order))
}

// getPinOrder 查询置顶订单
func (s *Server) getPinOrder(c *gin.Context) {
	order, err := s.workflow.Status(c.Param("orderId"))
	if err != nil {
		logger.Error().Err(err).Msg("get pin order failed")
		c.JSON(http.StatusInternalServerError, resultErr(500, "server error"))
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, resultErr(404, "order not found"))
		return
	}
	c.JSON(http.StatusOK, resultOK(order))
}
