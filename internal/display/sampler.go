package display

import (
	"image"
	"time"

	"portainer-monitor/internal/console"
)

// PointMapper 物理触摸坐标 -> 逻辑坐标
type PointMapper struct {
	// Width/Height 物理分辨率（未旋转）
	Width    int
	Height   int
	Rotation int
	// Invert 面板触摸原点在右下角
	Invert bool
}

func (m PointMapper) Map(x, y int) image.Point {
	if m.Invert {
		x = m.Width - 1 - x
		y = m.Height - 1 - y
	}
	lx, ly := toLogical(x, y, m.Width, m.Height, normRotation(m.Rotation))
	return image.Pt(lx, ly)
}

// EventSampler 把触摸事件流转换成采样：
// 按下立即产生一个点，按住期间每隔 repeat 再产生一个，抬起后停止。
type EventSampler struct {
	mapper PointMapper
	repeat time.Duration
	now    func() time.Time

	down     bool
	pressed  bool // 按下后尚未被读取（快速点按也不丢）
	pos      image.Point
	lastEmit time.Time
}

var _ console.TouchSampler = (*EventSampler)(nil)

// NewEventSampler repeat<=0 表示按住不重复
func NewEventSampler(mapper PointMapper, repeat time.Duration) *EventSampler {
	return &EventSampler{
		mapper: mapper,
		repeat: repeat,
		now:    time.Now,
	}
}

// Feed 送入本帧的触摸事件（物理坐标）
func (s *EventSampler) Feed(events []TouchEvent) {
	for _, ev := range events {
		p := s.mapper.Map(ev.X, ev.Y)
		switch ev.Type {
		case TouchDown:
			s.down = true
			s.pressed = true
			s.pos = p
		case TouchMove:
			if s.down {
				s.pos = p
			}
		case TouchUp:
			s.down = false
		}
	}
}

// ReadTouch 实现 console.TouchSampler
func (s *EventSampler) ReadTouch() []image.Point {
	now := s.now()
	if s.pressed {
		s.pressed = false
		s.lastEmit = now
		return []image.Point{s.pos}
	}
	if s.down && s.repeat > 0 && now.Sub(s.lastEmit) >= s.repeat {
		s.lastEmit = now
		return []image.Point{s.pos}
	}
	return nil
}

// Down 当前是否按住
func (s *EventSampler) Down() bool { return s.down }
