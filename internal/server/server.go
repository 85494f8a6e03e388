package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/utrading/utrading-boost-monitor/config"
	"github.com/utrading/utrading-boost-monitor/internal/broadcast"
	"github.com/utrading/utrading-boost-monitor/internal/pinorder"
	"github.com/utrading/utrading-boost-monitor/pkg/goplus"
	"github.com/utrading/utrading-boost-monitor/pkg/logger"
)

// Server 对外 HTTP 服务：查询/命令接口 + WebSocket 推送入口
type Server struct {
	hub      *broadcast.Hub
	workflow *pinorder.Workflow
	srv      *http.Server
	origins  []string
}

// New 创建 HTTP 服务
func New(cfg config.HTTP, hub *broadcast.Hub, workflow *pinorder.Workflow) *Server {
	s := &Server{
		hub:      hub,
		workflow: workflow,
		origins:  cfg.CORSOrigins,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.cors())

	api := engine.Group("/api")
	{
		api.GET("/tokens", s.listTokens)
		api.POST("/vote", s.castVote)
		api.GET("/vote/:tokenAddress/:voterId", s.getVote)
		api.GET("/votes", s.listVotes)
		api.POST("/pin-order", s.createPinOrder)
		api.GET("/pin-order/:orderId", s.getPinOrder)
	}
	engine.GET("/ws", s.serveWs)

	s.srv = &http.Server{
		Addr:    cfg.Addr,
		Handler: engine,
	}
	return s
}

// Start 启动监听
func (s *Server) Start() {
	goplus.Go(func() {
		logger.Info().Str("addr", s.srv.Addr).Msg("http server started")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server exited")
		}
	})
}

// Stop 优雅关闭
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}
}

// cors 按配置的来源放行跨域请求；"*" 或未配置时放行所有来源
func (s *Server) cors() gin.HandlerFunc {
	allowAll := len(s.origins) == 0
	allowed := make(map[string]struct{}, len(s.origins))
	for _, origin := range s.origins {
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if allowAll {
				c.Header("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowed[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
