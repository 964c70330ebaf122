package console

import "image/color"

// Line 已提交的一行（提交后不再修改）
type Line struct {
	Text       string
	Foreground color.RGBA
	Background color.RGBA
}

// scrollback 有界行缓冲（环形），超出容量时淘汰最早的一行
type scrollback struct {
	lines []Line
	head  int // 最早一行的位置
	size  int
}

func newScrollback(capacity int) *scrollback {
	return &scrollback{lines: make([]Line, capacity)}
}

func (sb *scrollback) Len() int { return sb.size }

func (sb *scrollback) Cap() int { return len(sb.lines) }

// Push 追加一行；缓冲已满时先淘汰最早一行并返回 true
func (sb *scrollback) Push(l Line) (evicted bool) {
	if sb.size == len(sb.lines) {
		sb.lines[sb.head] = l
		sb.head = (sb.head + 1) % len(sb.lines)
		return true
	}
	sb.lines[(sb.head+sb.size)%len(sb.lines)] = l
	sb.size++
	return false
}

// At 按时间顺序取第 i 行（0 为最早）
func (sb *scrollback) At(i int) Line {
	return sb.lines[(sb.head+i)%len(sb.lines)]
}

func (sb *scrollback) Reset() {
	for i := range sb.lines {
		sb.lines[i] = Line{}
	}
	sb.head = 0
	sb.size = 0
}

// Slice 按时间顺序复制全部行
func (sb *scrollback) Slice() []Line {
	out := make([]Line, sb.size)
	for i := range out {
		out[i] = sb.At(i)
	}
	return out
}
