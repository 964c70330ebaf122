package display

import (
	"errors"
	"image"
	"image/color"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font"

	"portainer-monitor/internal/console"
	"portainer-monitor/internal/logger"
)

// RasterOptions 像素屏文字渲染参数
type RasterOptions struct {
	// TTF 为 true 时用 Go Mono 矢量字体，否则用 8x8 位图字体
	TTF      bool
	FontSize float64
}

// RasterSurface 在 Display 后缓冲上实现 console.Surface。
// 只写后缓冲，Flush 时才推到屏幕。
type RasterSurface struct {
	disp Display
	opts RasterOptions
	g    *Graphics

	ttf     *truetype.Font
	ctx     *freetype.Context
	metrics CellMetrics

	fg, bg color.RGBA
	scale  int
	dirty  bool
}

var (
	_ console.Surface    = (*RasterSurface)(nil)
	_ console.GlyphSizer = (*RasterSurface)(nil)
)

// NewRasterSurface disp 需已 Init
func NewRasterSurface(disp Display, opts RasterOptions) *RasterSurface {
	if opts.FontSize <= 0 {
		opts.FontSize = 8
	}
	return &RasterSurface{
		disp:  disp,
		opts:  opts,
		fg:    console.Green,
		bg:    console.Black,
		scale: 1,
	}
}

func (s *RasterSurface) Begin() error {
	if s.disp == nil || s.disp.GetBackBuffer() == nil {
		return errors.New("display: back buffer not ready")
	}
	s.g = NewGraphics(s.disp.GetBackBuffer())

	if !s.opts.TTF {
		return nil
	}
	fm := GetFontManager()
	m, ok := fm.Metrics(s.opts.FontSize)
	if !ok || m.Width <= 0 || m.Height <= 0 {
		logger.Warn("TTF 字体不可用，回退到位图字体")
		s.opts.TTF = false
		return nil
	}
	s.ttf = fm.Mono()
	s.metrics = m
	s.ctx = freetype.NewContext()
	s.ctx.SetDPI(72)
	s.ctx.SetFont(s.ttf)
	s.ctx.SetHinting(font.HintingFull)
	s.ctx.SetFontSize(s.opts.FontSize)
	s.resetTarget()
	return nil
}

func (s *RasterSurface) SetRotation(r int) {
	s.g.SetRotation(r)
	s.resetTarget()
}

// resetTarget 旋转改变逻辑尺寸，裁剪区和目标都按逻辑坐标
func (s *RasterSurface) resetTarget() {
	if s.ctx == nil {
		return
	}
	s.ctx.SetClip(image.Rect(0, 0, s.g.Width(), s.g.Height()))
	s.ctx.SetDst(s.g.View())
}

func (s *RasterSurface) Width() int  { return s.g.Width() }
func (s *RasterSurface) Height() int { return s.g.Height() }

// GlyphSize 单倍字号下的字符单元
func (s *RasterSurface) GlyphSize() (int, int) {
	if s.opts.TTF {
		return s.metrics.Width, s.metrics.Height
	}
	return 8, 8
}

func (s *RasterSurface) FillScreen(c color.RGBA) {
	s.g.Clear(c)
	s.dirty = true
}

func (s *RasterSurface) SetTextColor(fg, bg color.RGBA) {
	s.fg, s.bg = fg, bg
}

func (s *RasterSurface) SetTextSize(scale int) {
	if scale < 1 {
		scale = 1
	}
	if scale == s.scale {
		return
	}
	s.scale = scale
	if s.ctx != nil {
		s.ctx.SetFontSize(s.opts.FontSize * float64(scale))
	}
}

func (s *RasterSurface) DrawChar(ch rune, x, y, scale int) {
	if scale < 1 {
		scale = 1
	}
	s.drawCell(ch, x, y, scale)
	s.dirty = true
}

// DrawString 按显示列排布；宽字符占两个单元
func (s *RasterSurface) DrawString(text string, x, y int) {
	gw, _ := s.GlyphSize()
	cw := gw * s.scale
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x >= s.g.Width() {
			break
		}
		s.drawCell(r, x, y, s.scale)
		if w == 2 {
			s.fillCell(x+cw, y, s.scale)
		}
		x += w * cw
	}
	s.dirty = true
}

func (s *RasterSurface) fillCell(x, y, scale int) {
	gw, gh := s.GlyphSize()
	s.g.FillRect(x, y, gw*scale, gh*scale, s.bg)
}

func (s *RasterSurface) drawCell(ch rune, x, y, scale int) {
	if !s.opts.TTF {
		s.g.DrawBitmapChar(ch, x, y, scale, s.fg, s.bg)
		return
	}
	s.fillCell(x, y, scale)
	if ch == ' ' {
		return
	}
	if scale != s.scale {
		s.ctx.SetFontSize(s.opts.FontSize * float64(scale))
		defer s.ctx.SetFontSize(s.opts.FontSize * float64(s.scale))
	}
	s.ctx.SetSrc(image.NewUniform(s.fg))
	if _, err := s.ctx.DrawString(string(ch), freetype.Pt(x, y+s.metrics.Ascent*scale)); err != nil {
		logger.Debug("绘制字符 %q 失败: %v", ch, err)
	}
}

// Flush 有改动时把后缓冲推到屏幕
func (s *RasterSurface) Flush() error {
	if !s.dirty {
		return nil
	}
	s.dirty = false
	return s.disp.Update()
}

// Graphics 底层绘图对象（Begin 之后有效）
func (s *RasterSurface) Graphics() *Graphics { return s.g }

func (s *RasterSurface) Close() error { return s.disp.Close() }
