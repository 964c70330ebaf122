//go:build linux && !preview

package display

import (
	"encoding/binary"
	"fmt"
	"image"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"portainer-monitor/internal/logger"
)

type fbDisplay struct {
	fbFile *os.File
	fbMem  []byte
	// width/height: 后缓冲分辨率（配置里的物理分辨率）
	width  int
	height int
	// fbWidth/fbHeight: /dev/fb0 的真实分辨率
	fbWidth  int
	fbHeight int
	fbStride int
	fbBpp    int
	// 32bpp 时红/蓝通道的位偏移（区分 RGBA 与 BGRA）
	redOffset  int
	blueOffset int

	backBuffer *image.RGBA

	touch touchReader
}

// fbVarScreenInfoRaw:
// FBIOGET_VSCREENINFO 会写入完整的 struct fb_var_screeninfo，结构体过小会被内核写越界。
// 用足够大的原始 buffer 接收，再按偏移解析需要的字段。
type fbVarScreenInfoRaw [160]byte

const (
	fbioGetVScreenInfo = 0x4600
	fbDevice           = "/dev/fb0"
)

func (d *fbDisplay) Init() error {
	fbFile, err := os.OpenFile(fbDevice, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("打开 %s 失败: %w", fbDevice, err)
	}
	d.fbFile = fbFile

	var info fbVarScreenInfoRaw
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		fbFile.Fd(),
		uintptr(fbioGetVScreenInfo),
		uintptr(unsafe.Pointer(&info[0])),
	)
	if errno != 0 {
		_ = fbFile.Close()
		return fmt.Errorf("获取 framebuffer 信息失败: %w", errno)
	}

	le := binary.LittleEndian
	d.fbWidth = int(le.Uint32(info[0:4]))
	d.fbHeight = int(le.Uint32(info[4:8]))
	virtualW := int(le.Uint32(info[8:12]))
	d.fbBpp = int(le.Uint32(info[24:28]))
	d.redOffset = int(le.Uint32(info[32:36]))
	d.blueOffset = int(le.Uint32(info[56:60]))
	if virtualW < d.fbWidth {
		virtualW = d.fbWidth
	}
	d.fbStride = virtualW * d.fbBpp / 8

	if d.fbBpp != 16 && d.fbBpp != 32 {
		_ = fbFile.Close()
		return fmt.Errorf("不支持的 framebuffer 色深: %d bpp", d.fbBpp)
	}

	// 未指定分辨率时跟随真实 framebuffer
	if d.width <= 0 || d.height <= 0 {
		d.width = d.fbWidth
		d.height = d.fbHeight
	}

	fbMem, err := unix.Mmap(int(fbFile.Fd()), 0, d.fbStride*d.fbHeight, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = fbFile.Close()
		return fmt.Errorf("映射 framebuffer 内存失败: %w", err)
	}
	d.fbMem = fbMem

	d.backBuffer = image.NewRGBA(image.Rect(0, 0, d.width, d.height))
	logger.Info("framebuffer: %dx%d %dbpp，后缓冲 %dx%d", d.fbWidth, d.fbHeight, d.fbBpp, d.width, d.height)

	d.touch = newLinuxEvdevTouch(d.width, d.height)
	if err := d.touch.Init(); err != nil {
		logger.Warn("触摸初始化失败: %v", err)
		d.touch = nil
	} else {
		logger.Info("触摸已启用（evdev）")
	}
	return nil
}

func (d *fbDisplay) Close() error {
	if d.touch != nil {
		_ = d.touch.Close()
	}
	if d.fbMem != nil {
		_ = unix.Munmap(d.fbMem)
		d.fbMem = nil
	}
	if d.fbFile != nil {
		_ = d.fbFile.Close()
		d.fbFile = nil
	}
	return nil
}

func (d *fbDisplay) GetWidth() int  { return d.width }
func (d *fbDisplay) GetHeight() int { return d.height }

func (d *fbDisplay) GetBackBuffer() *image.RGBA { return d.backBuffer }

// Update 把后缓冲写进 framebuffer；分辨率不一致时做最近邻缩放
func (d *fbDisplay) Update() error {
	if d.fbMem == nil {
		return nil
	}
	src := d.backBuffer
	bytesPP := d.fbBpp / 8
	for dy := 0; dy < d.fbHeight; dy++ {
		sy := dy * d.height / d.fbHeight
		srcRow := sy * src.Stride
		dstRow := dy * d.fbStride
		if dstRow+d.fbWidth*bytesPP > len(d.fbMem) {
			break
		}
		for dx := 0; dx < d.fbWidth; dx++ {
			sx := dx * d.width / d.fbWidth
			si := srcRow + sx*4
			di := dstRow + dx*bytesPP
			r, g, b := src.Pix[si], src.Pix[si+1], src.Pix[si+2]
			if bytesPP == 2 {
				binary.LittleEndian.PutUint16(d.fbMem[di:], packRGB565(r, g, b))
				continue
			}
			px := d.fbMem[di : di+4]
			px[d.redOffset/8] = r
			px[1] = g
			px[d.blueOffset/8] = b
			px[3] = 0xFF
		}
	}
	return nil
}

func (d *fbDisplay) PollEvents() (shouldQuit bool) {
	// framebuffer 没有窗口事件；退出靠信号
	return false
}

func (d *fbDisplay) GetTouchEvents() []TouchEvent {
	if d.touch == nil {
		return nil
	}
	return d.touch.Poll()
}
