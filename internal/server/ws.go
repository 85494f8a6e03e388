package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/utrading/utrading-boost-monitor/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域限制由 CORS 中间件统一处理
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveWs 升级连接并交给推送中心托管
func (s *Server) serveWs(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Str("remote", c.ClientIP()).Msg("ws upgrade failed")
		return
	}
	s.hub.Attach(conn)
}
