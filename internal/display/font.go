package display

import (
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/math/fixed"

	"portainer-monitor/internal/logger"
)

var (
	fontManager     *FontManager
	fontManagerOnce sync.Once
)

// FontManager 字体管理器（内置 Go Mono 等宽字体）
type FontManager struct {
	mono *truetype.Font
}

// GetFontManager 获取字体管理器单例
func GetFontManager() *FontManager {
	fontManagerOnce.Do(func() {
		fontManager = &FontManager{}
		fontManager.loadFonts()
	})
	return fontManager
}

func (fm *FontManager) loadFonts() {
	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		logger.Error("Go Mono 字体加载失败: %v", err)
		return
	}
	fm.mono = f
}

// Mono 等宽字体；加载失败时为 nil
func (fm *FontManager) Mono() *truetype.Font { return fm.mono }

// CellMetrics 等宽字体在某字号下的字符单元
type CellMetrics struct {
	Width  int
	Height int
	Ascent int
}

// Metrics 计算字号 size（pt，72 DPI）下的单元格尺寸
func (fm *FontManager) Metrics(size float64) (CellMetrics, bool) {
	if fm.mono == nil || size <= 0 {
		return CellMetrics{}, false
	}
	face := truetype.NewFace(fm.mono, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	adv, ok := face.GlyphAdvance('M')
	if !ok {
		adv = fixed.I(int(size+1) / 2)
	}
	m := face.Metrics()
	return CellMetrics{
		Width:  adv.Ceil(),
		Height: (m.Ascent + m.Descent).Ceil(),
		Ascent: m.Ascent.Ceil(),
	}, true
}
