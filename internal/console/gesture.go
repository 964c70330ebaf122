package console

import "image"

// Gesture 触摸区域对应的滚动方向
type Gesture int

const (
	GestureNone Gesture = iota
	GestureScrollDown
	GestureScrollUp
	GestureScrollRight
	GestureScrollLeft
)

func (g Gesture) String() string {
	switch g {
	case GestureScrollDown:
		return "down"
	case GestureScrollUp:
		return "up"
	case GestureScrollRight:
		return "right"
	case GestureScrollLeft:
		return "left"
	default:
		return "none"
	}
}

// ParseGesture 解析 "up"/"down"/"left"/"right"
func ParseGesture(s string) (Gesture, bool) {
	switch s {
	case "down":
		return GestureScrollDown, true
	case "up":
		return GestureScrollUp, true
	case "right":
		return GestureScrollRight, true
	case "left":
		return GestureScrollLeft, true
	}
	return GestureNone, false
}

// Classify 按触摸点所在区域决定滚动方向，按顺序匹配：
//
//	y < h/3    -> 下滚
//	y > 2h/3   -> 上滚
//	x < w/2    -> 右滚
//	其余       -> 左滚
func Classify(p image.Point, width, height int) Gesture {
	switch {
	case p.Y < height/3:
		return GestureScrollDown
	case p.Y > 2*height/3:
		return GestureScrollUp
	case p.X < width/2:
		return GestureScrollRight
	default:
		return GestureScrollLeft
	}
}
