//go:build preview

package display

import (
	"fmt"
	"image"
	"strings"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"
)

// sdlDisplay 桌面预览窗口：鼠标左键模拟触摸
type sdlDisplay struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	title      string
	width      int
	height     int
	backBuffer *image.RGBA

	touchEvents []TouchEvent
	mouseDown   bool
}

func newSDLDisplay(title string, width, height int) *sdlDisplay {
	return &sdlDisplay{title: title, width: width, height: height}
}

func (d *sdlDisplay) Init() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("SDL 初始化失败: %w", err)
	}

	title := d.title
	if strings.TrimSpace(title) == "" {
		title = "portainer-monitor preview"
	}
	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(d.width), int32(d.height), sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("创建窗口失败: %w", err)
	}
	d.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		return fmt.Errorf("创建渲染器失败: %w", err)
	}
	d.renderer = renderer

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING,
		int32(d.width), int32(d.height))
	if err != nil {
		return fmt.Errorf("创建纹理失败: %w", err)
	}
	d.texture = texture

	d.backBuffer = image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	return nil
}

func (d *sdlDisplay) Close() error {
	if d.texture != nil {
		_ = d.texture.Destroy()
	}
	if d.renderer != nil {
		_ = d.renderer.Destroy()
	}
	if d.window != nil {
		_ = d.window.Destroy()
	}
	sdl.Quit()
	return nil
}

func (d *sdlDisplay) GetWidth() int  { return d.width }
func (d *sdlDisplay) GetHeight() int { return d.height }

func (d *sdlDisplay) GetBackBuffer() *image.RGBA { return d.backBuffer }

func (d *sdlDisplay) Update() error {
	rect := &sdl.Rect{X: 0, Y: 0, W: int32(d.width), H: int32(d.height)}
	if err := d.texture.Update(rect, unsafe.Pointer(&d.backBuffer.Pix[0]), d.backBuffer.Stride); err != nil {
		return fmt.Errorf("更新纹理失败: %w", err)
	}
	_ = d.renderer.Clear()
	_ = d.renderer.Copy(d.texture, nil, nil)
	d.renderer.Present()
	return nil
}

func (d *sdlDisplay) PollEvents() (shouldQuit bool) {
	d.touchEvents = d.touchEvents[:0]
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			return true
		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
				return true
			}
		case *sdl.MouseButtonEvent:
			d.handleMouseButton(e)
		case *sdl.MouseMotionEvent:
			if d.mouseDown {
				d.push(TouchMove, e.X, e.Y, e.Timestamp)
			}
		}
	}
	return false
}

func (d *sdlDisplay) handleMouseButton(e *sdl.MouseButtonEvent) {
	if e.Button != sdl.BUTTON_LEFT {
		return
	}
	switch e.Type {
	case sdl.MOUSEBUTTONDOWN:
		d.mouseDown = true
		d.push(TouchDown, e.X, e.Y, e.Timestamp)
	case sdl.MOUSEBUTTONUP:
		d.mouseDown = false
		d.push(TouchUp, e.X, e.Y, e.Timestamp)
	}
}

func (d *sdlDisplay) push(t TouchType, x, y int32, ts uint32) {
	d.touchEvents = append(d.touchEvents, TouchEvent{Type: t, X: int(x), Y: int(y), Timestamp: int64(ts)})
}

func (d *sdlDisplay) GetTouchEvents() []TouchEvent { return d.touchEvents }
