//go:build linux && !preview

package display

// PixelBackend 本构建的像素屏后端
const PixelBackend = "fb"

// NewDisplay 创建显示实例 (Production - Framebuffer)
func NewDisplay(title string, width, height int) (Display, error) {
	disp := &fbDisplay{
		width:  width,
		height: height,
	}
	if err := disp.Init(); err != nil {
		return nil, err
	}
	return disp, nil
}
