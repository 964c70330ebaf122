package display

import (
	"image"
	"image/color"
	"testing"
	"time"
)

var (
	testFG = color.RGBA{0, 255, 0, 255}
	testBG = color.RGBA{0, 0, 0, 255}
)

func TestRotationRoundTrip(t *testing.T) {
	const w, h = 5, 3
	for r := 0; r < 4; r++ {
		lw, lh := w, h
		if r%2 == 1 {
			lw, lh = h, w
		}
		seen := map[image.Point]bool{}
		for y := 0; y < lh; y++ {
			for x := 0; x < lw; x++ {
				px, py := toPhysical(x, y, w, h, r)
				if px < 0 || py < 0 || px >= w || py >= h {
					t.Fatalf("r=%d (%d,%d) -> (%d,%d) out of range", r, x, y, px, py)
				}
				if seen[image.Pt(px, py)] {
					t.Fatalf("r=%d mapping not injective at (%d,%d)", r, px, py)
				}
				seen[image.Pt(px, py)] = true
				if lx, ly := toLogical(px, py, w, h, r); lx != x || ly != y {
					t.Fatalf("r=%d round trip (%d,%d) -> (%d,%d)", r, x, y, lx, ly)
				}
			}
		}
	}
}

func TestGraphicsRotatedPixels(t *testing.T) {
	buf := image.NewRGBA(image.Rect(0, 0, 4, 3))
	g := NewGraphics(buf)
	g.SetRotation(1)
	if g.Width() != 3 || g.Height() != 4 {
		t.Fatalf("logical size = %dx%d", g.Width(), g.Height())
	}

	g.SetPixel(0, 0, testFG)
	if buf.RGBAAt(3, 0) != testFG {
		t.Fatalf("logical (0,0) should land on physical (3,0)")
	}
	if g.Pixel(0, 0) != testFG {
		t.Fatal("Pixel does not read back")
	}

	g.Clear(testBG)
	g.FillRect(0, 0, 2, 1, testFG)
	for _, p := range []image.Point{{3, 0}, {3, 1}} {
		if buf.RGBAAt(p.X, p.Y) != testFG {
			t.Fatalf("physical %v not filled", p)
		}
	}
	if buf.RGBAAt(2, 0) != testBG || buf.RGBAAt(3, 2) != testBG {
		t.Fatal("FillRect leaked outside the rectangle")
	}

	// 越界写入被裁剪
	g.SetPixel(-1, 0, testFG)
	g.FillRect(2, 3, 10, 10, testFG)
	if buf.RGBAAt(0, 0) != testBG {
		t.Fatal("clipped fill touched (0,0)")
	}
}

func TestDrawBitmapChar(t *testing.T) {
	buf := image.NewRGBA(image.Rect(0, 0, 16, 16))
	g := NewGraphics(buf)
	g.DrawBitmapChar('!', 0, 0, 1, testFG, testBG)

	// '!' 第一行 0x18：第 3、4 列点亮
	for x := 0; x < 8; x++ {
		want := testBG
		if x == 3 || x == 4 {
			want = testFG
		}
		if got := g.Pixel(x, 0); got != want {
			t.Fatalf("pixel (%d,0) = %v, want %v", x, got, want)
		}
	}
	// 第 5 行为空
	if g.Pixel(3, 5) != testBG {
		t.Fatal("row 5 should be background")
	}

	g.DrawBitmapChar('!', 0, 0, 2, testFG, testBG)
	if g.Pixel(6, 0) != testFG || g.Pixel(9, 1) != testFG || g.Pixel(5, 0) != testBG {
		t.Fatal("scaled glyph wrong")
	}

	// 不支持的字符画成 '?'
	g.DrawBitmapChar('é', 8, 8, 1, testFG, testBG)
	q := glyph8x8('?')
	for x := 0; x < 8; x++ {
		lit := q[0]&(1<<x) != 0
		if (g.Pixel(8+x, 8) == testFG) != lit {
			t.Fatalf("fallback glyph column %d", x)
		}
	}
}

func TestPackRGB565(t *testing.T) {
	if packRGB565(0xFF, 0xFF, 0xFF) != 0xFFFF || packRGB565(0, 0xFF, 0) != 0x07E0 || packRGB565(0xFF, 0, 0) != 0xF800 {
		t.Fatal("packRGB565")
	}
}

func TestPointMapper(t *testing.T) {
	tests := []struct {
		m    PointMapper
		x, y int
		want image.Point
	}{
		{PointMapper{Width: 240, Height: 320}, 10, 20, image.Pt(10, 20)},
		{PointMapper{Width: 240, Height: 320, Rotation: 1}, 239, 0, image.Pt(0, 0)},
		{PointMapper{Width: 240, Height: 320, Rotation: 1}, 229, 160, image.Pt(160, 10)},
		{PointMapper{Width: 240, Height: 320, Rotation: 1, Invert: true}, 0, 319, image.Pt(0, 0)},
		{PointMapper{Width: 240, Height: 320, Rotation: 2}, 0, 0, image.Pt(239, 319)},
	}
	for _, tt := range tests {
		if got := tt.m.Map(tt.x, tt.y); got != tt.want {
			t.Errorf("%+v.Map(%d,%d) = %v, want %v", tt.m, tt.x, tt.y, got, tt.want)
		}
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestEventSamplerPressAndRepeat(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	s := NewEventSampler(PointMapper{Width: 100, Height: 100}, 150*time.Millisecond)
	s.now = clk.now

	if pts := s.ReadTouch(); len(pts) != 0 {
		t.Fatalf("idle sampler returned %v", pts)
	}

	s.Feed([]TouchEvent{{Type: TouchDown, X: 10, Y: 20}})
	if pts := s.ReadTouch(); len(pts) != 1 || pts[0] != image.Pt(10, 20) {
		t.Fatalf("press = %v", pts)
	}
	// 未到重复间隔
	clk.advance(100 * time.Millisecond)
	if pts := s.ReadTouch(); len(pts) != 0 {
		t.Fatalf("early repeat %v", pts)
	}
	s.Feed([]TouchEvent{{Type: TouchMove, X: 15, Y: 25}})
	clk.advance(60 * time.Millisecond)
	if pts := s.ReadTouch(); len(pts) != 1 || pts[0] != image.Pt(15, 25) {
		t.Fatalf("repeat = %v", pts)
	}

	s.Feed([]TouchEvent{{Type: TouchUp, X: 15, Y: 25}})
	clk.advance(time.Second)
	if pts := s.ReadTouch(); len(pts) != 0 {
		t.Fatalf("released sampler returned %v", pts)
	}
}

func TestEventSamplerKeepsQuickTap(t *testing.T) {
	s := NewEventSampler(PointMapper{Width: 100, Height: 100}, 0)
	// 同一帧内按下又抬起
	s.Feed([]TouchEvent{{Type: TouchDown, X: 5, Y: 6}, {Type: TouchUp, X: 5, Y: 6}})
	if pts := s.ReadTouch(); len(pts) != 1 || pts[0] != image.Pt(5, 6) {
		t.Fatalf("tap lost: %v", pts)
	}
	if pts := s.ReadTouch(); len(pts) != 0 {
		t.Fatalf("tap reported twice: %v", pts)
	}
	// 未按下时的移动被忽略
	s.Feed([]TouchEvent{{Type: TouchMove, X: 50, Y: 50}})
	if s.Down() || len(s.ReadTouch()) != 0 {
		t.Fatal("hover move treated as touch")
	}
}
