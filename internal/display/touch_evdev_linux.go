//go:build linux && !preview

package display

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// evdevTouch 单指触摸读取：
// 兼容 ABS_X/ABS_Y 与 ABS_MT_POSITION_X/Y，按下/抬起看 BTN_TOUCH 或 tracking id，
// 每个 SYN_REPORT 结算一帧。
type evdevTouch struct {
	fd      int
	devPath string

	screenW int
	screenH int
	axisX   axisRange
	axisY   axisRange

	curX, curY int
	moved      bool
	isDown     bool

	lastDown bool
	lastX    int
	lastY    int
	out      []TouchEvent
}

type axisRange struct{ min, max int32 }

// scale 原始值映射到 [0, out)
func (a axisRange) scale(v int32, out int) int {
	if out <= 1 || a.max <= a.min {
		return 0
	}
	v = min(max(v, a.min), a.max)
	return int(int64(v-a.min) * int64(out-1) / int64(a.max-a.min))
}

func newLinuxEvdevTouch(screenW, screenH int) touchReader {
	return &evdevTouch{fd: -1, screenW: screenW, screenH: screenH}
}

func (t *evdevTouch) Init() error {
	path, err := findTouchDevice()
	if err != nil {
		return err
	}
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("打开触摸设备失败: %s: %w", path, err)
	}
	t.fd = fd
	t.devPath = path
	t.axisX = queryAxis(fd, absMTPositionX, absX, t.screenW)
	t.axisY = queryAxis(fd, absMTPositionY, absY, t.screenH)
	return nil
}

// queryAxis 优先多点触控轴，退回单点轴，都没有时按屏幕像素
func queryAxis(fd int, mt, single, screen int) axisRange {
	r := axisRange{0, int32(screen - 1)}
	if info, err := ioctlGetAbs(fd, mt); err == nil {
		r = axisRange{info.Minimum, info.Maximum}
	} else if info, err := ioctlGetAbs(fd, single); err == nil {
		r = axisRange{info.Minimum, info.Maximum}
	}
	if r.max <= r.min {
		r.max = r.min + 1
	}
	return r
}

func (t *evdevTouch) Close() error {
	if t.fd >= 0 {
		_ = unix.Close(t.fd)
		t.fd = -1
	}
	return nil
}

// Poll 非阻塞读完内核缓冲的全部事件
func (t *evdevTouch) Poll() []TouchEvent {
	if t.fd < 0 {
		return nil
	}
	t.out = t.out[:0]
	var ev inputEvent
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&ev)), unsafe.Sizeof(ev))
	for {
		n, err := unix.Read(t.fd, buf)
		if err != nil || n != len(buf) {
			break
		}
		t.handle(ev)
	}
	if len(t.out) == 0 {
		return nil
	}
	return append([]TouchEvent(nil), t.out...)
}

func (t *evdevTouch) handle(ev inputEvent) {
	switch ev.Type {
	case evAbs:
		switch ev.Code {
		case absX, absMTPositionX:
			t.curX = t.axisX.scale(ev.Value, t.screenW)
			t.moved = true
		case absY, absMTPositionY:
			t.curY = t.axisY.scale(ev.Value, t.screenH)
			t.moved = true
		case absMTTrackingID:
			// -1 表示手指离开
			t.isDown = ev.Value >= 0
		}
	case evKey:
		if ev.Code == btnTouch {
			t.isDown = ev.Value != 0
		}
	case evSyn:
		if ev.Code == synReport {
			t.endFrame()
		}
	}
}

func (t *evdevTouch) endFrame() {
	if !t.moved && t.isDown == t.lastDown {
		return
	}
	typ := TouchMove
	switch {
	case t.isDown && !t.lastDown:
		typ = TouchDown
	case !t.isDown && t.lastDown:
		typ = TouchUp
	case !t.isDown:
		// 悬空移动（部分面板会报）不算触摸
		t.moved = false
		return
	}
	if typ == TouchMove && t.curX == t.lastX && t.curY == t.lastY {
		t.moved = false
		return
	}
	t.out = append(t.out, TouchEvent{Type: typ, X: t.curX, Y: t.curY, Timestamp: time.Now().UnixMilli()})
	t.lastDown = t.isDown
	t.lastX, t.lastY = t.curX, t.curY
	t.moved = false
}

func findTouchDevice() (string, error) {
	cands, _ := filepath.Glob("/dev/input/event*")
	best := ""
	for _, p := range cands {
		name := ""
		if fd, err := unix.Open(p, unix.O_RDONLY|unix.O_NONBLOCK, 0); err == nil {
			name, _ = ioctlGetName(fd)
			_ = unix.Close(fd)
		}
		low := strings.ToLower(name)
		// 常见 SPI 屏触摸芯片
		for _, key := range []string{"xpt2046", "ads7846", "ft6236", "goodix", "touch"} {
			if strings.Contains(low, key) {
				return p, nil
			}
		}
		if best == "" && name != "" {
			best = p
		}
	}
	if best != "" {
		return best, nil
	}
	if len(cands) > 0 {
		return cands[0], nil
	}
	return "", fmt.Errorf("未找到触摸设备（/dev/input/event*）")
}

// ---- linux input 结构与 ioctl ----

type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

type inputAbsInfo struct {
	Value      int32
	Minimum    int32
	Maximum    int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0

	btnTouch = 0x014a

	absX            = 0x00
	absY            = 0x01
	absMTPositionX  = 0x35
	absMTPositionY  = 0x36
	absMTTrackingID = 0x39
)

// ioc 展开 linux/ioctl.h 的 _IOC 宏
func ioc(dir, typ, nr, size uintptr) uintptr {
	const (
		nrShift   = 0
		typeShift = nrShift + 8
		sizeShift = typeShift + 8
		dirShift  = sizeShift + 14
	)
	return dir<<dirShift | typ<<typeShift | nr<<nrShift | size<<sizeShift
}

const iocRead = 2

func evioCGName(n int) uintptr { return ioc(iocRead, 'E', 0x06, uintptr(n)) }

func evioCGAbs(axis int) uintptr {
	return ioc(iocRead, 'E', 0x40+uintptr(axis), unsafe.Sizeof(inputAbsInfo{}))
}

func ioctlGetName(fd int) (string, error) {
	buf := make([]byte, 256)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGName(len(buf)), uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return "", errno
	}
	return unix.ByteSliceToString(buf), nil
}

func ioctlGetAbs(fd int, axis int) (*inputAbsInfo, error) {
	var info inputAbsInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGAbs(axis), uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return nil, errno
	}
	return &info, nil
}
