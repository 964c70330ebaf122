package api

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"portainer-monitor/config"
	"portainer-monitor/internal/console"
	"portainer-monitor/internal/realtime"
	"portainer-monitor/internal/store"
	"portainer-monitor/internal/system"
)

// TransitionSource 状态变化记录
type TransitionSource interface {
	RecentTransitions(ctx context.Context, limit int) ([]store.Transition, error)
}

// PollerStatus 轮询器状态
type PollerStatus interface {
	Endpoint() string
	LastError() error
}

// Deps 服务依赖；Queue 和 State 必填
type Deps struct {
	Config      *config.Config
	Queue       *console.Queue
	State       *console.StateBox
	Hub         *realtime.Hub
	Transitions TransitionSource
	Poller      PollerStatus
	Stats       func() system.HostStats
}

// Server API服务器
type Server struct {
	config      *config.Config
	queue       *console.Queue
	state       *console.StateBox
	hub         *realtime.Hub
	transitions TransitionSource
	poller      PollerStatus
	stats       func() system.HostStats
	router      *gin.Engine

	// authMu 保护 config.Auth（登录与改密并发）
	authMu sync.RWMutex
}

// NewServer 创建API服务器
func NewServer(d Deps) *Server {
	if d.Stats == nil {
		d.Stats = system.CollectHostStats
	}
	if d.Hub == nil {
		d.Hub = realtime.NewHub()
	}
	s := &Server{
		config:      d.Config,
		queue:       d.Queue,
		state:       d.State,
		hub:         d.Hub,
		transitions: d.Transitions,
		poller:      d.Poller,
		stats:       d.Stats,
	}
	s.initRouter()
	return s
}

// Router 获取路由
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Hub websocket 推送中心
func (s *Server) Hub() *realtime.Hub {
	return s.hub
}

// initRouter 初始化路由
func (s *Server) initRouter() {
	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())

	api := s.router.Group("/api/v1")
	{
		// 认证路由（不需要JWT）
		api.POST("/auth/login", s.handleLogin)
		api.POST("/auth/change-password", s.authMiddleware(), s.handleChangePassword)

		// 控制台
		api.GET("/console", s.authMiddleware(), s.handleConsoleState)
		api.POST("/console/scroll/:direction", s.authMiddleware(), s.handleConsoleScroll)
		api.POST("/console/clear", s.authMiddleware(), s.handleConsoleClear)
		api.POST("/console/print", s.authMiddleware(), s.handleConsolePrint)
		// websocket 用 query token 鉴权
		api.GET("/console/ws", s.handleWebSocket)

		// 系统 / Portainer
		api.GET("/system/info", s.authMiddleware(), s.handleSystemInfo)
		api.GET("/portainer/status", s.authMiddleware(), s.handlePortainerStatus)
		api.GET("/portainer/transitions", s.authMiddleware(), s.handleTransitions)
	}

	s.router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			fail(c, http.StatusNotFound, "接口不存在")
			return
		}
		c.String(http.StatusNotFound, "404 page not found")
	})
}
