package console

import (
	"errors"
	"fmt"
	"image/color"
	"unicode"

	"github.com/mattn/go-runewidth"

	"portainer-monitor/internal/logger"
)

var (
	ErrInvalidCapacity = errors.New("console: max rows and max columns must be positive")
	ErrInvalidGeometry = errors.New("console: display too small for one text cell")
)

const (
	DefaultMaxRows    = 200
	DefaultMaxColumns = 200

	tabWidth = 4
)

// Options 构造参数；零值字段取默认值
type Options struct {
	MaxRows    int
	MaxColumns int
	Rotation   int
	TextSize   int
	Foreground color.RGBA
	Background color.RGBA

	// OnCommit 每提交一行回调一次（在调用 Print 的 goroutine 上执行）
	OnCommit func(Line)
	// OnClear 每次 Clear 回调一次，与 OnCommit 在同一 goroutine 上按顺序执行
	OnClear func()
}

// Window 虚拟窗口：比物理屏大得多的可滚动文本缓冲 + 视口。
// 非并发安全：所有方法必须在同一个控制循环里调用（跨 goroutine 用 Queue）。
type Window struct {
	surface Surface
	touch   TouchSampler

	width, height  int
	cellW, cellH   int
	textSize       int
	visibleRows    int
	visibleColumns int
	maxColumns     int

	buf         *scrollback
	pending     []rune
	pendingCols int

	vertical   int
	horizontal int

	fg, bg color.RGBA

	onCommit func(Line)
	onClear  func()
	version  uint64
}

// New 初始化显示面并创建虚拟窗口
func New(surface Surface, touch TouchSampler, opts Options) (*Window, error) {
	if surface == nil {
		return nil, errors.New("console: nil surface")
	}
	if opts.MaxRows < 0 || opts.MaxColumns < 0 {
		return nil, fmt.Errorf("%w: rows=%d columns=%d", ErrInvalidCapacity, opts.MaxRows, opts.MaxColumns)
	}
	if opts.MaxRows == 0 {
		opts.MaxRows = DefaultMaxRows
	}
	if opts.MaxColumns == 0 {
		opts.MaxColumns = DefaultMaxColumns
	}
	if opts.TextSize <= 0 {
		opts.TextSize = 1
	}
	if opts.Foreground == (color.RGBA{}) {
		opts.Foreground = Green
	}
	if opts.Background == (color.RGBA{}) {
		opts.Background = Black
	}

	if err := surface.Begin(); err != nil {
		return nil, fmt.Errorf("console: begin display: %w", err)
	}
	// 旋转会交换宽高，几何必须在旋转之后读取
	surface.SetRotation(opts.Rotation)

	gw, gh := glyphSize(surface)
	cellW, cellH := gw*opts.TextSize, gh*opts.TextSize
	if cellW <= 0 || cellH <= 0 {
		return nil, fmt.Errorf("%w: glyph %dx%d", ErrInvalidGeometry, gw, gh)
	}
	width, height := surface.Width(), surface.Height()
	rows, cols := height/cellH, width/cellW
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d px, cell %dx%d", ErrInvalidGeometry, width, height, cellW, cellH)
	}

	w := &Window{
		surface:        surface,
		touch:          touch,
		width:          width,
		height:         height,
		cellW:          cellW,
		cellH:          cellH,
		textSize:       opts.TextSize,
		visibleRows:    rows,
		visibleColumns: cols,
		maxColumns:     opts.MaxColumns,
		buf:            newScrollback(opts.MaxRows),
		fg:             opts.Foreground,
		bg:             opts.Background,
		onCommit:       opts.OnCommit,
		onClear:        opts.OnClear,
	}

	surface.FillScreen(w.bg)
	surface.SetTextSize(w.textSize)
	surface.SetTextColor(w.fg, w.bg)

	logger.Info("虚拟窗口已初始化: %dx%d 像素, 可见 %d 行 x %d 列, 缓冲 %d 行 x %d 列",
		width, height, rows, cols, opts.MaxRows, opts.MaxColumns)
	return w, nil
}

// Print 追加文本：'\n' 提交当前行，'\r' 丢弃，其余字符进入当前行。
// 超出容量时淘汰最早的行，视口随之上移一行。
func (w *Window) Print(text string) {
	if text == "" {
		return
	}
	w.version++

	// shifted: 淘汰时视口已在顶部，屏幕上的行整体错位，结束后整屏重绘
	shifted := false
	for _, ch := range text {
		switch ch {
		case '\r':
		case '\n':
			if w.commit() {
				shifted = true
			}
			if !shifted {
				w.RenderLine(w.buf.Len() - 1)
			}
		case '\t':
			for n := tabWidth - w.pendingCols%tabWidth; n > 0; n-- {
				w.putRune(' ', !shifted)
			}
		default:
			if !unicode.IsPrint(ch) {
				continue
			}
			w.putRune(ch, !shifted)
		}
	}
	if shifted {
		w.Render()
	}
}

// Println 等价于 Print(text + "\n")
func (w *Window) Println(text string) {
	w.Print(text + "\n")
}

// Printf 格式化后 Print
func (w *Window) Printf(format string, args ...any) {
	w.Print(fmt.Sprintf(format, args...))
}

// Write 实现 io.Writer，永不失败
func (w *Window) Write(p []byte) (int, error) {
	w.Print(string(p))
	return len(p), nil
}

func (w *Window) commit() (shifted bool) {
	line := Line{Text: string(w.pending), Foreground: w.fg, Background: w.bg}
	w.pending = w.pending[:0]
	w.pendingCols = 0

	if w.buf.Push(line) {
		if w.vertical > 0 {
			w.vertical--
		} else {
			shifted = true
		}
	}
	if w.onCommit != nil {
		w.onCommit(line)
	}
	return shifted
}

func (w *Window) putRune(ch rune, draw bool) {
	cw := runewidth.RuneWidth(ch)
	if cw == 0 {
		return
	}
	col := w.pendingCols
	if col+cw > w.maxColumns {
		return
	}
	w.pending = append(w.pending, ch)
	w.pendingCols += cw
	if !draw {
		return
	}

	// 当前行是缓冲末尾之后的虚拟行，只在它落在视口内时才即时绘制
	row := w.buf.Len()
	if !w.rowVisible(row) {
		return
	}
	if col < w.horizontal || col+cw > w.horizontal+w.visibleColumns {
		return
	}
	w.surface.SetTextColor(w.fg, w.bg)
	w.surface.DrawChar(ch, (col-w.horizontal)*w.cellW, (row-w.vertical)*w.cellH, w.textSize)
}

// Clear 清空缓冲与当前行，视口归零并清屏
func (w *Window) Clear() {
	w.version++
	w.buf.Reset()
	w.pending = w.pending[:0]
	w.pendingCols = 0
	w.vertical = 0
	w.horizontal = 0
	w.surface.FillScreen(w.bg)
	if w.onClear != nil {
		w.onClear()
	}
}

// Render 整屏重绘当前视口
func (w *Window) Render() {
	w.surface.SetTextSize(w.textSize)
	w.surface.FillScreen(w.bg)

	end := min(w.vertical+w.visibleRows, w.buf.Len())
	for i := w.vertical; i < end; i++ {
		w.drawRow(w.buf.At(i), i)
	}
	if len(w.pending) > 0 && w.rowVisible(w.buf.Len()) {
		w.drawRow(Line{Text: string(w.pending), Foreground: w.fg, Background: w.bg}, w.buf.Len())
	}
}

// RenderLine 只重绘第 index 行；不在视口内时什么都不做
func (w *Window) RenderLine(index int) {
	if index < 0 || index >= w.buf.Len() || !w.rowVisible(index) {
		return
	}
	w.drawRow(w.buf.At(index), index)
}

func (w *Window) drawRow(l Line, index int) {
	text := columnWindow(l.Text, w.horizontal, w.visibleColumns)
	if text == "" {
		return
	}
	w.surface.SetTextColor(l.Foreground, l.Background)
	w.surface.DrawString(text, 0, (index-w.vertical)*w.cellH)
}

func (w *Window) rowVisible(index int) bool {
	return index >= w.vertical && index < w.vertical+w.visibleRows
}

func (w *Window) maxVertical() int {
	return max(0, w.buf.Len()-w.visibleRows)
}

func (w *Window) maxHorizontal() int {
	return max(0, w.maxColumns-w.visibleColumns)
}

// ScrollUp 视口上移一行（看更早的内容）
func (w *Window) ScrollUp() bool {
	if w.vertical <= 0 {
		return false
	}
	w.vertical--
	w.scrolled()
	return true
}

// ScrollDown 视口下移一行（看更新的内容）
func (w *Window) ScrollDown() bool {
	if w.vertical >= w.maxVertical() {
		return false
	}
	w.vertical++
	w.scrolled()
	return true
}

// ScrollLeft 视口左移一列
func (w *Window) ScrollLeft() bool {
	if w.horizontal <= 0 {
		return false
	}
	w.horizontal--
	w.scrolled()
	return true
}

// ScrollRight 视口右移一列
func (w *Window) ScrollRight() bool {
	if w.horizontal >= w.maxHorizontal() {
		return false
	}
	w.horizontal++
	w.scrolled()
	return true
}

func (w *Window) scrolled() {
	w.version++
	w.Render()
}

// Apply 执行一个手势对应的滚动，返回视口是否变化
func (w *Window) Apply(g Gesture) bool {
	switch g {
	case GestureScrollDown:
		return w.ScrollDown()
	case GestureScrollUp:
		return w.ScrollUp()
	case GestureScrollRight:
		return w.ScrollRight()
	case GestureScrollLeft:
		return w.ScrollLeft()
	}
	return false
}

// HandleTouch 采样一次触摸；只看第一个触摸点
func (w *Window) HandleTouch() Gesture {
	if w.touch == nil {
		return GestureNone
	}
	pts := w.touch.ReadTouch()
	if len(pts) == 0 {
		return GestureNone
	}
	g := Classify(pts[0], w.width, w.height)
	w.Apply(g)
	return g
}

// SetColors 设置之后内容使用的前景/背景色，不重绘
func (w *Window) SetColors(text, background color.RGBA) {
	w.version++
	w.fg = text
	w.bg = background
}

// Colors 当前前景/背景色
func (w *Window) Colors() (text, background color.RGBA) { return w.fg, w.bg }

// Len 缓冲中已提交的行数
func (w *Window) Len() int { return w.buf.Len() }

// Lines 按时间顺序复制已提交的行
func (w *Window) Lines() []Line { return w.buf.Slice() }

// Pending 尚未换行的当前行
func (w *Window) Pending() string { return string(w.pending) }

// Offsets 返回 (垂直, 水平) 视口偏移
func (w *Window) Offsets() (vertical, horizontal int) { return w.vertical, w.horizontal }

func (w *Window) VisibleRows() int    { return w.visibleRows }
func (w *Window) VisibleColumns() int { return w.visibleColumns }
func (w *Window) MaxRows() int        { return w.buf.Cap() }
func (w *Window) MaxColumns() int     { return w.maxColumns }

// Version 每次状态变化递增，用于判断是否需要重新发布快照
func (w *Window) Version() uint64 { return w.version }

// State 当前状态的拷贝
func (w *Window) State() State {
	return State{
		Lines:          w.buf.Slice(),
		Pending:        string(w.pending),
		Vertical:       w.vertical,
		Horizontal:     w.horizontal,
		VisibleRows:    w.visibleRows,
		VisibleColumns: w.visibleColumns,
		MaxRows:        w.buf.Cap(),
		MaxColumns:     w.maxColumns,
		Foreground:     w.fg,
		Background:     w.bg,
		Version:        w.version,
	}
}

// columnWindow 截取显示列 [from, from+n)，跨边界的宽字符用空格补齐
func columnWindow(s string, from, n int) string {
	if n <= 0 {
		return ""
	}
	to := from + n
	out := make([]rune, 0, n)
	col := 0
	for _, r := range s {
		if col >= to {
			break
		}
		cw := runewidth.RuneWidth(r)
		if cw == 0 {
			continue
		}
		switch {
		case col >= from && col+cw <= to:
			out = append(out, r)
		case col+cw > from:
			for c := max(col, from); c < min(col+cw, to); c++ {
				out = append(out, ' ')
			}
		}
		col += cw
	}
	return string(out)
}
