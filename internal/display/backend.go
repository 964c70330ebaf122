package display

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"portainer-monitor/config"
	"portainer-monitor/internal/console"
)

// Backend 控制台所在的屏幕：既是显示面也是触摸源
type Backend interface {
	console.Surface
	console.TouchSampler
	// PollEvents 处理输入事件，返回是否需要退出
	PollEvents() (shouldQuit bool)
	// Flush 把本帧绘制推到屏幕
	Flush() error
	Close() error
}

// GestureSource 可选：键盘等直接给出滚动方向
type GestureSource interface {
	KeyGestures() []console.Gesture
}

// ActivitySource 可选：报告自上次调用以来是否有输入（熄屏计时用）
type ActivitySource interface {
	TakeActivity() bool
}

// Open 按配置创建后端
func Open(cfg config.DisplayConfig) (Backend, error) {
	repeat := time.Duration(cfg.TouchRepeatMs) * time.Millisecond
	switch cfg.Backend {
	case config.BackendFB, config.BackendSDL:
		if PixelBackend != cfg.Backend {
			return nil, fmt.Errorf("当前构建不支持 %q 后端（可用: %q）", cfg.Backend, PixelBackend)
		}
		disp, err := NewDisplay("portainer-monitor", cfg.Width, cfg.Height)
		if err != nil {
			return nil, err
		}
		return NewPanel(disp, PanelOptions{
			Raster:      RasterOptions{TTF: cfg.Font == config.FontTTF, FontSize: cfg.FontSize},
			InvertTouch: cfg.InvertTouch,
			TouchRepeat: repeat,
		}), nil
	case config.BackendTerm:
		return NewTerminal(nil, repeat)
	case config.BackendNull:
		return NewNull(cfg.Width, cfg.Height), nil
	}
	return nil, fmt.Errorf("未知的屏幕后端: %q", cfg.Backend)
}

// PanelOptions 像素屏后端参数
type PanelOptions struct {
	Raster      RasterOptions
	InvertTouch bool
	TouchRepeat time.Duration
}

// Panel 像素屏后端：Display + RasterSurface + EventSampler
type Panel struct {
	*RasterSurface
	disp    Display
	sampler *EventSampler
	active  bool
}

var (
	_ Backend        = (*Panel)(nil)
	_ ActivitySource = (*Panel)(nil)
)

func NewPanel(disp Display, opts PanelOptions) *Panel {
	return &Panel{
		RasterSurface: NewRasterSurface(disp, opts.Raster),
		disp:          disp,
		sampler: NewEventSampler(PointMapper{
			Width:  disp.GetWidth(),
			Height: disp.GetHeight(),
			Invert: opts.InvertTouch,
		}, opts.TouchRepeat),
	}
}

// SetRotation 画面和触摸同步旋转
func (p *Panel) SetRotation(r int) {
	p.RasterSurface.SetRotation(r)
	p.sampler.mapper.Rotation = r
}

func (p *Panel) PollEvents() bool {
	quit := p.disp.PollEvents()
	if events := p.disp.GetTouchEvents(); len(events) > 0 {
		p.active = true
		p.sampler.Feed(events)
	}
	return quit
}

func (p *Panel) ReadTouch() []image.Point { return p.sampler.ReadTouch() }

func (p *Panel) TakeActivity() bool {
	a := p.active
	p.active = false
	return a
}

// Null 无屏运行：绘制全部丢弃，永远没有触摸
type Null struct {
	physW, physH int
	w, h         int
}

var _ Backend = (*Null)(nil)

func NewNull(w, h int) *Null {
	if w <= 0 || h <= 0 {
		w, h = 240, 320
	}
	return &Null{physW: w, physH: h, w: w, h: h}
}

func (n *Null) Begin() error { return nil }

// SetRotation 奇数旋转交换宽高，与真实屏幕一致
func (n *Null) SetRotation(r int) {
	n.w, n.h = n.physW, n.physH
	if normRotation(r)%2 == 1 {
		n.w, n.h = n.physH, n.physW
	}
}

func (n *Null) Width() int                   { return n.w }
func (n *Null) Height() int                  { return n.h }
func (n *Null) FillScreen(color.RGBA)        {}
func (n *Null) SetTextColor(_, _ color.RGBA) {}
func (n *Null) SetTextSize(int)              {}
func (n *Null) DrawChar(rune, int, int, int) {}
func (n *Null) DrawString(string, int, int)  {}
func (n *Null) ReadTouch() []image.Point     { return nil }
func (n *Null) PollEvents() bool             { return false }
func (n *Null) Flush() error                 { return nil }
func (n *Null) Close() error                 { return nil }
