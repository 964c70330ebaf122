//go:build !linux && !preview

package display

import "errors"

// PixelBackend 非 Linux 且未带 preview 标签时没有像素屏
const PixelBackend = ""

func NewDisplay(title string, width, height int) (Display, error) {
	return nil, errors.New("像素屏需要 Linux framebuffer 或 -tags preview 构建")
}
