package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"portainer-monitor/config"
	"portainer-monitor/internal/console"
	"portainer-monitor/internal/display"
)

func init() {
	// 锁定主线程用于 SDL（macOS 必须）
	runtime.LockOSThread()
}

func main() {
	def := config.DefaultConfig()
	backendName := flag.String("backend", def.Display.Backend, "屏幕后端：fb / sdl / term")
	lines := flag.Int("lines", 120, "填充的测试行数")
	rotation := flag.Int("rotation", def.Display.Rotation, "旋转 0~3")
	ttf := flag.Bool("ttf", false, "使用 TTF 字体")
	flag.Parse()

	cfg := def.Display
	cfg.Backend = *backendName
	cfg.Rotation = *rotation
	if *ttf {
		cfg.Font = config.FontTTF
		cfg.FontSize = 10
	}

	backend, err := display.Open(cfg)
	if err != nil {
		log.Fatalf("初始化显示失败: %v", err)
	}
	defer backend.Close()

	w, err := console.New(backend, backend, console.Options{
		MaxRows:    200,
		MaxColumns: 120,
		Rotation:   cfg.Rotation,
	})
	if err != nil {
		log.Fatalf("创建控制台失败: %v", err)
	}

	colors := []struct {
		name string
		c    color.RGBA
	}{
		{"green", console.Green},
		{"yellow", console.Yellow},
		{"red", console.Red},
		{"cyan", console.Cyan},
	}
	w.Printf("visible %dx%d, buffer %dx%d\n", w.VisibleColumns(), w.VisibleRows(), w.MaxColumns(), w.MaxRows())
	for i := 1; i <= *lines; i++ {
		c := colors[i%len(colors)]
		w.SetColors(c.c, console.Black)
		// 每行长短不一，方便测试左右滚动
		w.Println(fmt.Sprintf("%03d %s %s", i, c.name, strings.Repeat("=", i%90)))
	}
	w.SetColors(console.White, console.Black)
	w.Print("touch top/bottom/left/right to scroll")

	mgr := display.NewManager(backend, w, console.NewQueue(16), &console.StateBox{}, display.ManagerOptions{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		mgr.Stop()
	}()

	fmt.Println("显示测试已启动，ESC / q 或 Ctrl-C 退出")
	if err := mgr.Run(context.Background()); err != nil {
		log.Fatalf("显示运行错误: %v", err)
	}
}
