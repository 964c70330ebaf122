package console

import (
	"image/color"

	"portainer-monitor/internal/logger"
)

// Producer 文本输出方（状态轮询、HTTP API 等）看到的接口
type Producer interface {
	Print(text string)
	Println(text string)
	SetColors(text, background color.RGBA)
	Clear()
}

var (
	_ Producer = (*Window)(nil)
	_ Producer = (*Queue)(nil)
)

// Queue 把其他 goroutine 的操作排队，交给控制循环在 Drain 时顺序执行，
// 这样 Window 本身不需要加锁。队列满时丢弃并记日志，不阻塞调用方。
type Queue struct {
	ops chan func(*Window)
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{ops: make(chan func(*Window), size)}
}

// Do 提交任意操作；返回 false 表示队列已满被丢弃
func (q *Queue) Do(op func(*Window)) bool {
	select {
	case q.ops <- op:
		return true
	default:
		logger.Warn("控制台命令队列已满，丢弃一条操作")
		return false
	}
}

func (q *Queue) Print(text string)   { q.Do(func(w *Window) { w.Print(text) }) }
func (q *Queue) Println(text string) { q.Do(func(w *Window) { w.Println(text) }) }
func (q *Queue) Clear()              { q.Do(func(w *Window) { w.Clear() }) }

func (q *Queue) SetColors(text, background color.RGBA) {
	q.Do(func(w *Window) { w.SetColors(text, background) })
}

// Scroll 排队一次滚动
func (q *Queue) Scroll(g Gesture) bool {
	return q.Do(func(w *Window) { w.Apply(g) })
}

// Batch 把一组输出作为一条操作提交，保证不会与其他生产者交错
func (q *Queue) Batch(fn func(p Producer)) bool {
	return q.Do(func(w *Window) { fn(w) })
}

// Drain 在控制循环中执行已排队的操作（单次最多一整队），返回执行条数
func (q *Queue) Drain(w *Window) int {
	n := 0
	for n < cap(q.ops) {
		select {
		case op := <-q.ops:
			op(w)
			n++
		default:
			return n
		}
	}
	return n
}

// Len 当前排队中的操作数
func (q *Queue) Len() int { return len(q.ops) }
