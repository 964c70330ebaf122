package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

var prefixes = map[level]string{
	levelDebug: "[DEBUG] ",
	levelInfo:  "[INFO] ",
	levelWarn:  "[WARN] ",
	levelError: "[ERROR] ",
}

var (
	loggers = map[level]*log.Logger{}
	logFile *os.File

	logMu           sync.Mutex
	lastRotateCheck int64 // unix nano
)

const (
	// MaxLogSizeBytes 单文件最大 5MB，超过就轮转
	MaxLogSizeBytes int64 = 5 * 1024 * 1024
	// MaxRotatedFiles 保留最近 N 份轮转文件（不含当前 system.log）
	MaxRotatedFiles = 2

	defaultLogDir = "/var/log/portainer-monitor"
	logName       = "system.log"
)

func init() {
	// 未调用 InitLogger 时（测试、工具程序）只写 stderr
	setOutput(os.Stderr)
}

func setOutput(w io.Writer) {
	for lv, p := range prefixes {
		loggers[lv] = log.New(w, p, log.Ldate|log.Ltime|log.Lshortfile)
	}
}

func logDir() string {
	if d := os.Getenv("PMON_LOG_DIR"); d != "" {
		return d
	}
	return defaultLogDir
}

// InitLogger 打开日志文件，同时输出到控制台。
// 目录无权限时（本地调试常见）降级到临时目录。
func InitLogger() error {
	logMu.Lock()
	defer logMu.Unlock()

	dir := logDir()
	file, err := openIn(dir)
	if err != nil {
		fallback := filepath.Join(os.TempDir(), "portainer-monitor")
		var err2 error
		if file, err2 = openIn(fallback); err2 != nil {
			return err
		}
	}
	logFile = file
	setOutput(io.MultiWriter(os.Stdout, logFile))
	return nil
}

func openIn(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, logName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

func output(lv level, format string, v ...interface{}) {
	logMu.Lock()
	defer logMu.Unlock()
	maybeRotateLocked()
	if l := loggers[lv]; l != nil {
		_ = l.Output(3, fmt.Sprintf(format, v...))
	}
}

func maybeRotateLocked() {
	// 限流：最多 1 秒检查一次，避免每条日志都 stat
	now := time.Now().UnixNano()
	last := atomic.LoadInt64(&lastRotateCheck)
	if last != 0 && now-last < int64(time.Second) {
		return
	}
	atomic.StoreInt64(&lastRotateCheck, now)
	_ = rotateLocked(MaxLogSizeBytes)
}

// Info 记录信息日志
func Info(format string, v ...interface{}) { output(levelInfo, format, v...) }

// Warn 记录警告日志
func Warn(format string, v ...interface{}) { output(levelWarn, format, v...) }

// Error 记录错误日志
func Error(format string, v ...interface{}) { output(levelError, format, v...) }

// Debug 记录调试日志
func Debug(format string, v ...interface{}) { output(levelDebug, format, v...) }

// Fatal 记录致命错误并退出
func Fatal(format string, v ...interface{}) {
	output(levelError, format, v...)
	Close()
	os.Exit(1)
}

// Close 关闭日志文件
func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
		setOutput(os.Stderr)
	}
}

// CurrentLogPath 当前写入的日志文件路径
func CurrentLogPath() string {
	if logFile != nil {
		return logFile.Name()
	}
	return filepath.Join(logDir(), logName)
}

// RotateLog 日志轮转（按大小）
func RotateLog(maxSize int64) error {
	logMu.Lock()
	defer logMu.Unlock()
	return rotateLocked(maxSize)
}

func rotateLocked(maxSize int64) error {
	if logFile == nil {
		return nil
	}
	stat, err := logFile.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < maxSize {
		return nil
	}

	baseDir := filepath.Dir(logFile.Name())
	cur := filepath.Join(baseDir, logName)
	_ = logFile.Close()
	_ = os.Rename(cur, filepath.Join(baseDir, fmt.Sprintf("system.%s.log", time.Now().Format("20060102-150405"))))

	file, err := os.OpenFile(cur, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logFile = nil
		setOutput(os.Stdout)
		return err
	}
	logFile = file
	setOutput(io.MultiWriter(os.Stdout, logFile))
	cleanupRotatedLogs(baseDir)
	return nil
}

func cleanupRotatedLogs(dir string) {
	// 清理旧轮转日志：system.YYYYMMDD-HHMMSS.log，按修改时间保留最新 MaxRotatedFiles 份
	matches, _ := filepath.Glob(filepath.Join(dir, "system.*.log"))
	if len(matches) <= MaxRotatedFiles {
		return
	}
	type fi struct {
		path string
		mod  time.Time
	}
	arr := make([]fi, 0, len(matches))
	for _, p := range matches {
		if st, err := os.Stat(p); err == nil {
			arr = append(arr, fi{path: p, mod: st.ModTime()})
		}
	}
	sort.Slice(arr, func(i, j int) bool { return arr[i].mod.After(arr[j].mod) })
	for i := MaxRotatedFiles; i < len(arr); i++ {
		_ = os.Remove(arr[i].path)
	}
}
