package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"portainer-monitor/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// handleWebSocket 推送提交的行。hello 带当前快照，之后每行一条 line 事件
func (s *Server) handleWebSocket(c *gin.Context) {
	// 鉴权：支持 token query 或 Authorization Bearer
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		fail(c, http.StatusUnauthorized, "未授权")
		return
	}
	if _, err := utils.VerifyJWT(token); err != nil {
		fail(c, http.StatusUnauthorized, "Token无效")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	cl := s.hub.Register(conn)
	defer func() {
		s.hub.Unregister(cl)
		_ = conn.Close()
	}()

	hello := gin.H{"message": "WebSocket连接成功"}
	if st, ok := s.state.Load(); ok {
		hello["console"] = NewConsoleDTO(st)
	}
	s.hub.Hello(cl, hello)

	// 写循环
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		defer close(done)
		for {
			select {
			case msg, ok := <-cl.Send:
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// 读循环只消费控制帧
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			// 关闭 Send 让写循环退出
			s.hub.Unregister(cl)
			<-done
			return
		}
	}
}
