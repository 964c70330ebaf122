package display

import (
	"image"
	"testing"

	"portainer-monitor/internal/console"
)

// memDisplay 内存中的 Display，记录刷新次数并按帧回放触摸事件
type memDisplay struct {
	buf     *image.RGBA
	updates int
	frames  [][]TouchEvent
	quit    bool
	closed  bool
}

func newMemDisplay(w, h int) *memDisplay {
	return &memDisplay{buf: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (d *memDisplay) Init() error                { return nil }
func (d *memDisplay) Close() error               { d.closed = true; return nil }
func (d *memDisplay) GetWidth() int              { return d.buf.Rect.Dx() }
func (d *memDisplay) GetHeight() int             { return d.buf.Rect.Dy() }
func (d *memDisplay) GetBackBuffer() *image.RGBA { return d.buf }
func (d *memDisplay) Update() error              { d.updates++; return nil }
func (d *memDisplay) PollEvents() bool           { return d.quit }

func (d *memDisplay) GetTouchEvents() []TouchEvent {
	if len(d.frames) == 0 {
		return nil
	}
	f := d.frames[0]
	d.frames = d.frames[1:]
	return f
}

func newPanelWindow(t *testing.T, opts PanelOptions) (*console.Window, *Panel, *memDisplay) {
	t.Helper()
	disp := newMemDisplay(240, 320)
	p := NewPanel(disp, opts)
	w, err := console.New(p, p, console.Options{Rotation: 1})
	if err != nil {
		t.Fatalf("console.New: %v", err)
	}
	return w, p, disp
}

func TestPanelGeometryFollowsRotation(t *testing.T) {
	w, p, _ := newPanelWindow(t, PanelOptions{})
	if p.Width() != 320 || p.Height() != 240 {
		t.Fatalf("logical size = %dx%d", p.Width(), p.Height())
	}
	// 8x8 位图字体
	if w.VisibleRows() != 30 || w.VisibleColumns() != 40 {
		t.Fatalf("visible = %dx%d", w.VisibleRows(), w.VisibleColumns())
	}
}

func TestPanelDrawsAndFlushesOnce(t *testing.T) {
	w, p, disp := newPanelWindow(t, PanelOptions{})
	w.Println("A")

	g := p.Graphics()
	// 'A' 第一行 0x0C：第 2、3 列点亮
	if g.Pixel(2, 0) != console.Green || g.Pixel(3, 0) != console.Green {
		t.Fatal("glyph not drawn in foreground")
	}
	if g.Pixel(0, 0) != console.Black {
		t.Fatal("glyph background not filled")
	}

	if err := p.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := p.Flush(); err != nil {
		t.Fatal(err)
	}
	if disp.updates != 1 {
		t.Fatalf("updates = %d, want 1", disp.updates)
	}
}

func TestPanelTouchScrollsWindow(t *testing.T) {
	w, p, disp := newPanelWindow(t, PanelOptions{})
	for i := 0; i < 50; i++ {
		w.Println("row")
	}
	// 物理 (229,160) 在旋转 1 下是逻辑 (160,10)，位于上方条带
	disp.frames = [][]TouchEvent{{{Type: TouchDown, X: 229, Y: 160}}}
	if p.PollEvents() {
		t.Fatal("unexpected quit")
	}
	if !p.TakeActivity() {
		t.Fatal("touch not reported as activity")
	}
	if g := w.HandleTouch(); g != console.GestureScrollDown {
		t.Fatalf("gesture = %v", g)
	}
	if v, _ := w.Offsets(); v != 1 {
		t.Fatalf("v = %d", v)
	}
}

func TestPanelTTF(t *testing.T) {
	w, p, _ := newPanelWindow(t, PanelOptions{Raster: RasterOptions{TTF: true, FontSize: 12}})
	gw, gh := p.GlyphSize()
	if gw <= 0 || gh <= 0 || gw >= gh {
		t.Fatalf("glyph = %dx%d", gw, gh)
	}
	w.Println("MMMM")

	g := p.Graphics()
	lit := false
	for y := 0; y < gh && !lit; y++ {
		for x := 0; x < gw; x++ {
			if g.Pixel(x, y).G > 0 {
				lit = true
				break
			}
		}
	}
	if !lit {
		t.Fatal("TTF glyph left no pixels")
	}
}

func TestNullBackend(t *testing.T) {
	n := NewNull(240, 320)
	w, err := console.New(n, n, console.Options{Rotation: 1})
	if err != nil {
		t.Fatal(err)
	}
	if n.Width() != 320 || n.Height() != 240 {
		t.Fatalf("null size = %dx%d", n.Width(), n.Height())
	}
	w.Println("headless")
	if w.HandleTouch() != console.GestureNone {
		t.Fatal("null backend produced a touch")
	}
}
