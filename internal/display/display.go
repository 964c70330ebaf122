package display

import (
	"image"
)

// Display 像素屏接口（framebuffer / SDL 预览窗口）
type Display interface {
	// Init 初始化显示
	Init() error

	// Close 关闭显示
	Close() error

	// GetWidth 物理宽度（未旋转）
	GetWidth() int

	// GetHeight 物理高度（未旋转）
	GetHeight() int

	// GetBackBuffer 获取后缓冲区 (用于绘图)
	GetBackBuffer() *image.RGBA

	// Update 更新显示（将后缓冲区刷新到屏幕）
	Update() error

	// PollEvents 轮询事件（返回是否需要退出）
	PollEvents() (shouldQuit bool)

	// GetTouchEvents 获取本帧触摸事件（物理坐标）
	GetTouchEvents() []TouchEvent
}

// TouchType 触摸事件类型
type TouchType int

const (
	TouchDown TouchType = iota
	TouchUp
	TouchMove
)

func (t TouchType) String() string {
	switch t {
	case TouchDown:
		return "down"
	case TouchUp:
		return "up"
	default:
		return "move"
	}
}

// TouchEvent 触摸事件
type TouchEvent struct {
	Type      TouchType
	X         int
	Y         int
	Timestamp int64
}

// touchReader 触摸事件读取器（用于 Linux evdev；其它平台为 nil）
type touchReader interface {
	Init() error
	Poll() []TouchEvent
	Close() error
}
