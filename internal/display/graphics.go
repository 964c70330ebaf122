package display

import (
	"image"
	"image/color"
	"image/draw"
)

// Graphics 图形绘制库：按逻辑坐标（旋转后）绘制到物理后缓冲
type Graphics struct {
	buffer   *image.RGBA
	physW    int
	physH    int
	rotation int
}

// NewGraphics 创建图形库实例
func NewGraphics(buffer *image.RGBA) *Graphics {
	b := buffer.Bounds()
	return &Graphics{
		buffer: buffer,
		physW:  b.Dx(),
		physH:  b.Dy(),
	}
}

// SetRotation 设置旋转（0~3，每步顺时针 90°）
func (g *Graphics) SetRotation(r int) { g.rotation = normRotation(r) }

func (g *Graphics) Rotation() int { return g.rotation }

// Width 逻辑宽度
func (g *Graphics) Width() int {
	if g.rotation%2 == 1 {
		return g.physH
	}
	return g.physW
}

// Height 逻辑高度
func (g *Graphics) Height() int {
	if g.rotation%2 == 1 {
		return g.physW
	}
	return g.physH
}

func normRotation(r int) int { return ((r % 4) + 4) % 4 }

// toPhysical 逻辑坐标 -> 物理像素
func toPhysical(x, y, physW, physH, rotation int) (int, int) {
	switch rotation {
	case 1:
		return physW - 1 - y, x
	case 2:
		return physW - 1 - x, physH - 1 - y
	case 3:
		return y, physH - 1 - x
	}
	return x, y
}

// toLogical 物理像素 -> 逻辑坐标（toPhysical 的逆）
func toLogical(px, py, physW, physH, rotation int) (int, int) {
	switch rotation {
	case 1:
		return py, physW - 1 - px
	case 2:
		return physW - 1 - px, physH - 1 - py
	case 3:
		return physH - 1 - py, px
	}
	return px, py
}

func (g *Graphics) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width() && y < g.Height()
}

// SetPixel 写一个逻辑像素
func (g *Graphics) SetPixel(x, y int, c color.RGBA) {
	if !g.inside(x, y) {
		return
	}
	px, py := toPhysical(x, y, g.physW, g.physH, g.rotation)
	i := g.buffer.PixOffset(px+g.buffer.Rect.Min.X, py+g.buffer.Rect.Min.Y)
	g.buffer.Pix[i+0] = c.R
	g.buffer.Pix[i+1] = c.G
	g.buffer.Pix[i+2] = c.B
	g.buffer.Pix[i+3] = c.A
}

// Pixel 读一个逻辑像素
func (g *Graphics) Pixel(x, y int) color.RGBA {
	if !g.inside(x, y) {
		return color.RGBA{}
	}
	px, py := toPhysical(x, y, g.physW, g.physH, g.rotation)
	return g.buffer.RGBAAt(px+g.buffer.Rect.Min.X, py+g.buffer.Rect.Min.Y)
}

// Clear 清屏
func (g *Graphics) Clear(c color.RGBA) {
	draw.Draw(g.buffer, g.buffer.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
}

// FillRect 填充逻辑矩形（自动裁剪）
func (g *Graphics) FillRect(x, y, w, h int, c color.RGBA) {
	r := image.Rect(x, y, x+w, y+h).Intersect(image.Rect(0, 0, g.Width(), g.Height()))
	if r.Empty() {
		return
	}
	x0, y0 := toPhysical(r.Min.X, r.Min.Y, g.physW, g.physH, g.rotation)
	x1, y1 := toPhysical(r.Max.X-1, r.Max.Y-1, g.physW, g.physH, g.rotation)
	pr := image.Rect(min(x0, x1), min(y0, y1), max(x0, x1)+1, max(y0, y1)+1).Add(g.buffer.Rect.Min)
	draw.Draw(g.buffer, pr, &image.Uniform{c}, image.Point{}, draw.Src)
}

// DrawBitmapChar 用 8x8 位图字体绘制一个字符单元（先铺背景）
func (g *Graphics) DrawBitmapChar(ch rune, x, y, scale int, fg, bg color.RGBA) {
	if scale < 1 {
		scale = 1
	}
	g.FillRect(x, y, 8*scale, 8*scale, bg)
	rows := glyph8x8(ch)
	for row := 0; row < 8; row++ {
		bits := rows[row]
		if bits == 0 {
			continue
		}
		for col := 0; col < 8; col++ {
			if bits&(1<<col) != 0 {
				g.FillRect(x+col*scale, y+row*scale, scale, scale, fg)
			}
		}
	}
}

// View 以逻辑坐标暴露后缓冲，供 freetype 等按 draw.Image 绘制
func (g *Graphics) View() draw.Image { return logicalView{g} }

type logicalView struct{ g *Graphics }

func (v logicalView) ColorModel() color.Model { return color.RGBAModel }

func (v logicalView) Bounds() image.Rectangle {
	return image.Rect(0, 0, v.g.Width(), v.g.Height())
}

func (v logicalView) At(x, y int) color.Color { return v.g.Pixel(x, y) }

func (v logicalView) Set(x, y int, c color.Color) {
	v.g.SetPixel(x, y, color.RGBAModel.Convert(c).(color.RGBA))
}
