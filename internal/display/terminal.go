package display

import (
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"portainer-monitor/internal/console"
)

// Terminal 字符终端后端：一个字符单元就是一个"像素"，字形 1x1。
// 鼠标左键模拟触摸，方向键直接滚动，Esc/q/Ctrl-C 退出。
type Terminal struct {
	screen  tcell.Screen
	sampler *EventSampler

	style tcell.Style
	bg    tcell.Style

	// w, h Begin 时的终端尺寸；控制台几何以此为准，之后的缩放不改变它
	w, h int

	events   chan tcell.Event
	stopOnce sync.Once
	stop     chan struct{}

	prevButtons tcell.ButtonMask
	gestures    []console.Gesture
	touched     bool
	dirty       bool
}

var (
	_ console.Surface      = (*Terminal)(nil)
	_ console.GlyphSizer   = (*Terminal)(nil)
	_ console.TouchSampler = (*Terminal)(nil)
)

// NewTerminal screen 为 nil 时使用真实终端
func NewTerminal(screen tcell.Screen, touchRepeat time.Duration) (*Terminal, error) {
	if screen == nil {
		s, err := tcell.NewScreen()
		if err != nil {
			return nil, err
		}
		screen = s
	}
	return &Terminal{
		screen:  screen,
		sampler: NewEventSampler(PointMapper{}, touchRepeat),
		style:   tcell.StyleDefault,
		bg:      tcell.StyleDefault,
		events:  make(chan tcell.Event, 64),
		stop:    make(chan struct{}),
	}, nil
}

func (t *Terminal) Begin() error {
	if err := t.screen.Init(); err != nil {
		return err
	}
	t.screen.EnableMouse()
	t.screen.HideCursor()
	t.screen.Clear()
	t.w, t.h = t.screen.Size()
	t.sampler.mapper = PointMapper{Width: t.w, Height: t.h}
	go t.pump()
	return nil
}

// pump PollEvent 会阻塞，放到独立 goroutine，主循环通过 channel 非阻塞取
func (t *Terminal) pump() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case t.events <- ev:
		case <-t.stop:
			return
		}
	}
}

// SetRotation 终端不旋转
func (t *Terminal) SetRotation(int) {}

func (t *Terminal) Width() int  { return t.w }
func (t *Terminal) Height() int { return t.h }

func (t *Terminal) GlyphSize() (int, int) { return 1, 1 }

func toTcell(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func (t *Terminal) FillScreen(c color.RGBA) {
	t.bg = tcell.StyleDefault.Background(toTcell(c))
	t.screen.Fill(' ', t.bg)
	t.dirty = true
}

func (t *Terminal) SetTextColor(fg, bg color.RGBA) {
	t.style = tcell.StyleDefault.Foreground(toTcell(fg)).Background(toTcell(bg))
}

// SetTextSize 终端字号固定
func (t *Terminal) SetTextSize(int) {}

func (t *Terminal) DrawChar(ch rune, x, y, _ int) {
	t.screen.SetContent(x, y, ch, nil, t.style)
	t.dirty = true
}

func (t *Terminal) DrawString(text string, x, y int) {
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		t.screen.SetContent(x, y, r, nil, t.style)
		x += w
	}
	t.dirty = true
}

// ReadTouch 实现 console.TouchSampler
func (t *Terminal) ReadTouch() []image.Point { return t.sampler.ReadTouch() }

// PollEvents 处理已到达的终端事件，返回是否需要退出
func (t *Terminal) PollEvents() (shouldQuit bool) {
	for {
		select {
		case ev := <-t.events:
			if t.handleEvent(ev) {
				return true
			}
		default:
			return false
		}
	}
}

func (t *Terminal) handleEvent(ev tcell.Event) (quit bool) {
	switch e := ev.(type) {
	case *tcell.EventKey:
		t.touched = true
		switch e.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyUp:
			t.gestures = append(t.gestures, console.GestureScrollUp)
		case tcell.KeyDown:
			t.gestures = append(t.gestures, console.GestureScrollDown)
		case tcell.KeyLeft:
			t.gestures = append(t.gestures, console.GestureScrollLeft)
		case tcell.KeyRight:
			t.gestures = append(t.gestures, console.GestureScrollRight)
		case tcell.KeyRune:
			if e.Rune() == 'q' {
				return true
			}
		}
	case *tcell.EventMouse:
		t.handleMouse(e)
	case *tcell.EventResize:
		// 控制台几何固定为 Begin 时的尺寸，鼠标坐标在 handleMouse 里按比例换算
		t.screen.Sync()
	}
	return false
}

func (t *Terminal) handleMouse(e *tcell.EventMouse) {
	x, y := t.scalePosition(e.Position())
	buttons := e.Buttons()
	down := buttons&tcell.Button1 != 0
	wasDown := t.prevButtons&tcell.Button1 != 0
	t.prevButtons = buttons

	var typ TouchType
	switch {
	case down && !wasDown:
		typ = TouchDown
	case !down && wasDown:
		typ = TouchUp
	case down:
		typ = TouchMove
	default:
		return
	}
	t.touched = true
	t.sampler.Feed([]TouchEvent{{Type: typ, X: x, Y: y, Timestamp: e.When().UnixMilli()}})
}

// scalePosition 终端缩放后把当前坐标换算回 Begin 时的几何
func (t *Terminal) scalePosition(x, y int) (int, int) {
	cw, ch := t.screen.Size()
	if cw > 0 && cw != t.w {
		x = x * t.w / cw
	}
	if ch > 0 && ch != t.h {
		y = y * t.h / ch
	}
	return min(max(x, 0), t.w-1), min(max(y, 0), t.h-1)
}

// KeyGestures 取走方向键产生的滚动
func (t *Terminal) KeyGestures() []console.Gesture {
	g := t.gestures
	t.gestures = nil
	return g
}

// TakeActivity 自上次调用以来是否有输入
func (t *Terminal) TakeActivity() bool {
	a := t.touched
	t.touched = false
	return a
}

func (t *Terminal) Flush() error {
	if t.dirty {
		t.dirty = false
		t.screen.Show()
	}
	return nil
}

func (t *Terminal) Close() error {
	t.stopOnce.Do(func() {
		close(t.stop)
		t.screen.Fini()
	})
	return nil
}
