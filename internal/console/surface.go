package console

import (
	"image"
	"image/color"
)

// Surface 显示面：固定分辨率的像素屏（或字符终端），由屏幕驱动提供。
// Window 只借用，不负责关闭。
type Surface interface {
	// Begin 初始化硬件（仅构造时调用一次）
	Begin() error
	// SetRotation 设置屏幕方向（0~3，每步 90°；仅构造时调用）
	SetRotation(rotation int)

	Width() int
	Height() int

	FillScreen(c color.RGBA)
	SetTextColor(fg, bg color.RGBA)
	SetTextSize(scale int)

	// DrawChar 以当前文字颜色在 (x, y) 绘制单个字符
	DrawChar(ch rune, x, y, scale int)
	// DrawString 以当前文字/背景颜色在 (x, y) 绘制一行文本
	DrawString(text string, x, y int)
}

// GlyphSizer 可选接口：报告等宽字形在 scale=1 时的像素尺寸。
// 未实现时按 6x8 处理。
type GlyphSizer interface {
	GlyphSize() (width, height int)
}

// TouchSampler 触摸采样：返回当前的触摸点（与 Surface 同一坐标系），无触摸时返回空。
type TouchSampler interface {
	ReadTouch() []image.Point
}

const (
	defaultGlyphWidth = 6
	defaultLineHeight = 8
)

func glyphSize(s Surface) (int, int) {
	if gs, ok := s.(GlyphSizer); ok {
		return gs.GlyphSize()
	}
	return defaultGlyphWidth, defaultLineHeight
}
