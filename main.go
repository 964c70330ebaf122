package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"portainer-monitor/config"
	"portainer-monitor/internal/api"
	"portainer-monitor/internal/console"
	"portainer-monitor/internal/display"
	"portainer-monitor/internal/envfile"
	"portainer-monitor/internal/logger"
	"portainer-monitor/internal/portainer"
	"portainer-monitor/internal/realtime"
	"portainer-monitor/internal/store"
	"portainer-monitor/internal/system"
	"portainer-monitor/utils"
)

func main() {
	// 默认在 Linux 设备上启用屏幕；其他平台用 -display -backend term 调试
	defaultDisplay := runtime.GOOS == "linux"
	enableDisplay := flag.Bool("display", defaultDisplay, "启用屏幕（macOS 预览需用 -tags preview 编译并指定 -backend sdl）")
	backendFlag := flag.String("backend", "", "覆盖配置中的屏幕后端：fb / sdl / term / null")
	configPath := flag.String("config", "", "配置文件路径（等同 PMON_CONFIG_PATH）")
	flag.Parse()

	if *configPath != "" {
		_ = os.Setenv("PMON_CONFIG_PATH", *configPath)
	}

	// SDL 在 macOS 必须占用主线程
	if *enableDisplay && runtime.GOOS == "darwin" {
		runtime.LockOSThread()
	}

	// 凭据等敏感项来自 .env
	envfile.Bootstrap()

	if err := logger.InitLogger(); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Close()
	logger.Info("启动 Portainer 状态监视器...")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("加载配置失败: %v", err)
	}
	if *backendFlag != "" {
		cfg.Display.Backend = *backendFlag
	}
	if !*enableDisplay {
		cfg.Display.Backend = config.BackendNull
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("配置无效: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = utils.RandomSecret()
		if err := cfg.Save(); err != nil {
			logger.Warn("保存 JWT 密钥失败（重启后需重新登录）: %v", err)
		}
	}
	utils.SetJWTSecret(cfg.Auth.JWTSecret)

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("初始化数据库失败: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("关闭数据库失败: %v", err)
		}
	}()

	queue := console.NewQueue(512)
	state := &console.StateBox{}
	hub := realtime.NewHub()
	defer hub.Close()

	client := portainer.NewClient(cfg.Portainer)
	fg, bg, _ := cfg.Console.Colors()
	poller := portainer.NewPoller(client, db, queue, portainer.PollerOptions{
		EndpointID:     cfg.Portainer.EndpointID,
		Interval:       time.Duration(cfg.Portainer.RefreshSeconds) * time.Second,
		ClearOnRefresh: cfg.Portainer.ClearOnRefresh,
		Server:         cfg.Portainer.Server,
		Foreground:     fg,
		Background:     bg,
	})

	apiServer := api.NewServer(api.Deps{
		Config:      cfg,
		Queue:       queue,
		State:       state,
		Hub:         hub,
		Transitions: db,
		Poller:      poller,
	})

	backend, err := display.Open(cfg.Display)
	if err != nil {
		logger.Error("初始化屏幕失败，改为无屏运行: %v", err)
		backend = display.NewNull(cfg.Display.Width, cfg.Display.Height)
	}
	window, err := console.New(backend, backend, console.Options{
		MaxRows:    cfg.Console.MaxRows,
		MaxColumns: cfg.Console.MaxColumns,
		Rotation:   cfg.Display.Rotation,
		TextSize:   cfg.Display.TextSize,
		Foreground: fg,
		Background: bg,
		OnCommit:   apiServer.PublishLine,
		OnClear:    apiServer.PublishClear,
	})
	if err != nil {
		logger.Fatal("创建控制台失败: %v", err)
	}

	window.Println("Portainer Monitor")
	window.Println("connecting to " + cfg.Portainer.BaseURL())
	if cfg.Portainer.APIKey == "" && cfg.Portainer.Username == "" {
		window.SetColors(console.Red, bg)
		window.Println("no credentials: set PORTAINER_API_KEY in " + envfile.DefaultPath())
		window.SetColors(fg, bg)
	}

	mopts := display.ManagerOptions{Brightness: cfg.System.Brightness}
	if cfg.System.ScreenOffSeconds != nil {
		mopts.ScreenOffSeconds = *cfg.System.ScreenOffSeconds
	}
	if bl, err := system.DiscoverBacklight(); err == nil {
		mopts.Backlight = bl
	} else {
		logger.Debug("未找到背光设备: %v", err)
	}
	mgr := display.NewManager(backend, window, queue, state, mopts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	httpServer := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        apiServer.Router(),
		ReadTimeout:    15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 12,
	}
	go func() {
		logger.Info("HTTP服务器启动在 %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("正在关闭服务...")
		mgr.Stop()
	}()

	// 显示循环占用主线程（macOS SDL 要求）
	if err := mgr.Run(ctx); err != nil {
		logger.Error("显示循环运行错误: %v", err)
	}
	cancel()

	if err := backend.Close(); err != nil {
		logger.Warn("关闭屏幕失败: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP服务器关闭失败: %v", err)
	}

	logger.Info("服务已关闭")
}
