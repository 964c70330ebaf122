//go:build preview

package display

// PixelBackend 本构建的像素屏后端
const PixelBackend = "sdl"

// NewDisplay 创建显示实例 (Preview)
func NewDisplay(title string, width, height int) (Display, error) {
	disp := newSDLDisplay(title, width, height)
	if err := disp.Init(); err != nil {
		return nil, err
	}
	return disp, nil
}
