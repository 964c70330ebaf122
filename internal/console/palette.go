package console

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// RGB565 将 TFT 常用的 16 位颜色换算为 RGBA
func RGB565(c uint16) color.RGBA {
	r := uint8((c >> 11) & 0x1F)
	g := uint8((c >> 5) & 0x3F)
	b := uint8(c & 0x1F)
	return color.RGBA{R: r<<3 | r>>2, G: g<<2 | g>>4, B: b<<3 | b>>2, A: 0xFF}
}

// TFT 调色板（与常见 TFT 驱动的命名颜色一致）
var (
	Black     = RGB565(0x0000)
	Navy      = RGB565(0x000F)
	DarkGreen = RGB565(0x03E0)
	Maroon    = RGB565(0x7800)
	Blue      = RGB565(0x001F)
	Green     = RGB565(0x07E0)
	Cyan      = RGB565(0x07FF)
	Red       = RGB565(0xF800)
	Magenta   = RGB565(0xF81F)
	Yellow    = RGB565(0xFFE0)
	Orange    = RGB565(0xFDA0)
	White     = RGB565(0xFFFF)
	LightGrey = RGB565(0xD69A)
	DarkGrey  = RGB565(0x7BEF)
)

var namedColors = map[string]color.RGBA{
	"black":     Black,
	"navy":      Navy,
	"darkgreen": DarkGreen,
	"maroon":    Maroon,
	"blue":      Blue,
	"green":     Green,
	"cyan":      Cyan,
	"red":       Red,
	"magenta":   Magenta,
	"yellow":    Yellow,
	"orange":    Orange,
	"white":     White,
	"lightgrey": LightGrey,
	"darkgrey":  DarkGrey,
}

// ParseColor 解析 "#RRGGBB"、"RRGGBB" 或调色板名称（如 "green"）
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}

// FormatColor 输出 "#rrggbb"
func FormatColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
