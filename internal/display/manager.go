package display

import (
	"context"
	"sync"
	"time"

	"portainer-monitor/internal/console"
	"portainer-monitor/internal/logger"
)

// Backlight 背光控制（system.Backlight 实现）
type Backlight interface {
	SetPercent(percent int) error
	GetPercent() (int, error)
	Off() error
}

// ManagerOptions 控制循环参数
type ManagerOptions struct {
	// ScreenOffSeconds 空闲熄屏时间，0 表示不熄屏
	ScreenOffSeconds int
	// Brightness 唤醒时的亮度；nil 时恢复熄屏前的亮度
	Brightness *int
	Backlight  Backlight
	// Frame 帧间隔，默认 16ms
	Frame time.Duration
}

// Manager 屏幕控制循环：窗口只在这个 goroutine 里被访问
type Manager struct {
	backend Backend
	window  *console.Window
	queue   *console.Queue
	state   *console.StateBox
	opts    ManagerOptions

	now         func() time.Time
	lastInputAt time.Time
	screenIsOff bool
	lastBright  int
	published   uint64
	hasState    bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewManager(backend Backend, window *console.Window, queue *console.Queue, state *console.StateBox, opts ManagerOptions) *Manager {
	if opts.Frame <= 0 {
		opts.Frame = 16 * time.Millisecond
	}
	m := &Manager{
		backend:    backend,
		window:     window,
		queue:      queue,
		state:      state,
		opts:       opts,
		now:        time.Now,
		lastBright: 100,
		stopCh:     make(chan struct{}),
	}
	m.lastInputAt = m.now()
	if opts.Backlight != nil && opts.Brightness != nil {
		if err := opts.Backlight.SetPercent(*opts.Brightness); err != nil {
			logger.Warn("设置亮度失败: %v", err)
		}
	}
	return m
}

// Run 运行显示循环，直到 ctx 结束、Stop 或后端要求退出
func (m *Manager) Run(ctx context.Context) error {
	m.publish()
	for {
		if m.Step() {
			logger.Info("收到退出事件，显示循环结束")
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-m.stopCh:
			return nil
		case <-time.After(m.opts.Frame):
		}
	}
}

// Step 跑一帧：事件 -> 队列 -> 触摸/按键 -> 刷屏 -> 发布快照 -> 熄屏；返回是否需要退出
func (m *Manager) Step() (quit bool) {
	if m.backend.PollEvents() {
		return true
	}

	m.queue.Drain(m.window)

	active := false
	if a, ok := m.backend.(ActivitySource); ok {
		active = a.TakeActivity()
	}
	if active {
		m.lastInputAt = m.now()
	}

	if m.screenIsOff && active {
		// 熄屏时的第一次触摸只负责唤醒，不滚动
		m.wakeScreen()
		m.backend.ReadTouch()
		m.keyGestures()
	} else {
		m.window.HandleTouch()
		for _, g := range m.keyGestures() {
			m.window.Apply(g)
		}
	}

	if err := m.backend.Flush(); err != nil {
		logger.Warn("刷新屏幕失败: %v", err)
	}
	m.publish()
	m.maybeScreenOff()
	return false
}

func (m *Manager) keyGestures() []console.Gesture {
	if gs, ok := m.backend.(GestureSource); ok {
		return gs.KeyGestures()
	}
	return nil
}

func (m *Manager) publish() {
	if m.state == nil {
		return
	}
	if v := m.window.Version(); !m.hasState || v != m.published {
		m.state.Publish(m.window.State())
		m.published = v
		m.hasState = true
	}
}

func (m *Manager) maybeScreenOff() {
	bl := m.opts.Backlight
	if bl == nil {
		return
	}
	sec := m.opts.ScreenOffSeconds
	if sec <= 0 {
		if m.screenIsOff {
			m.wakeScreen()
		}
		return
	}
	if m.screenIsOff || m.now().Sub(m.lastInputAt) < time.Duration(sec)*time.Second {
		return
	}
	if m.opts.Brightness != nil {
		m.lastBright = *m.opts.Brightness
	} else if p, err := bl.GetPercent(); err == nil {
		m.lastBright = p
	}
	if err := bl.Off(); err != nil {
		logger.Warn("关闭背光失败: %v", err)
		return
	}
	m.screenIsOff = true
	logger.Debug("空闲 %d 秒，已熄屏", sec)
}

func (m *Manager) wakeScreen() {
	m.screenIsOff = false
	bl := m.opts.Backlight
	if bl == nil {
		return
	}
	b := m.lastBright
	if m.opts.Brightness != nil {
		b = *m.opts.Brightness
	}
	if b <= 0 {
		// 避免唤醒后仍是黑屏
		b = 10
	}
	if err := bl.SetPercent(b); err != nil {
		logger.Warn("恢复背光失败: %v", err)
	}
}

// ScreenOff 当前是否熄屏
func (m *Manager) ScreenOff() bool { return m.screenIsOff }

// Stop 停止显示循环
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
