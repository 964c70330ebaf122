package console

import (
	"image/color"
	"sync/atomic"
)

// State 窗口状态快照（拷贝，可跨 goroutine 读取）
type State struct {
	Lines          []Line
	Pending        string
	Vertical       int
	Horizontal     int
	VisibleRows    int
	VisibleColumns int
	MaxRows        int
	MaxColumns     int
	Foreground     color.RGBA
	Background     color.RGBA
	Version        uint64
}

// VisibleLines 返回当前视口内的行（已按水平偏移截取）
func (s State) VisibleLines() []string {
	end := min(s.Vertical+s.VisibleRows, len(s.Lines))
	out := make([]string, 0, max(0, end-s.Vertical))
	for i := s.Vertical; i < end; i++ {
		out = append(out, columnWindow(s.Lines[i].Text, s.Horizontal, s.VisibleColumns))
	}
	return out
}

// StateBox 由控制循环发布、由其他 goroutine 无锁读取的最新快照
type StateBox struct {
	p atomic.Pointer[State]
}

func (b *StateBox) Publish(s State) { b.p.Store(&s) }

// Load 返回最近发布的快照；尚未发布时 ok=false
func (b *StateBox) Load() (State, bool) {
	s := b.p.Load()
	if s == nil {
		return State{}, false
	}
	return *s, true
}
