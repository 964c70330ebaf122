package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultBacklightRoot sysfs 背光目录
const DefaultBacklightRoot = "/sys/class/backlight"

// Backlight 基于 sysfs 的背光控制器（SPI TFT 常见 gpio/pwm 背光）
type Backlight struct {
	BaseDir        string // /sys/class/backlight/<name>
	BrightnessPath string
	MaxPath        string
}

// DiscoverBacklight 在默认位置找第一个可用背光
func DiscoverBacklight() (*Backlight, error) {
	return DiscoverBacklightIn(DefaultBacklightRoot)
}

// DiscoverBacklightIn 在 root 下找第一个同时有 brightness 与 max_brightness 的节点
func DiscoverBacklightIn(root string) (*Backlight, error) {
	ents, err := filepath.Glob(filepath.Join(root, "*"))
	if err != nil || len(ents) == 0 {
		return nil, fmt.Errorf("未检测到背光设备（%s）", root)
	}
	for _, d := range ents {
		bp := filepath.Join(d, "brightness")
		mp := filepath.Join(d, "max_brightness")
		if _, err := os.Stat(bp); err != nil {
			continue
		}
		if _, err := os.Stat(mp); err != nil {
			continue
		}
		return &Backlight{BaseDir: d, BrightnessPath: bp, MaxPath: mp}, nil
	}
	return nil, fmt.Errorf("未找到可用背光节点（brightness/max_brightness）")
}

func (b *Backlight) Max() (int, error) {
	v, err := readInt(b.MaxPath)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("max_brightness 无效: %d", v)
	}
	return v, nil
}

// SetPercent 设置亮度百分比（0~100）；非零百分比至少写 1，避免被截断成熄屏
func (b *Backlight) SetPercent(percent int) error {
	percent = min(max(percent, 0), 100)
	maxV, err := b.Max()
	if err != nil {
		return err
	}
	raw := percent * maxV / 100
	if percent > 0 && raw == 0 {
		raw = 1
	}
	return writeInt(b.BrightnessPath, raw)
}

func (b *Backlight) GetPercent() (int, error) {
	maxV, err := b.Max()
	if err != nil {
		return 0, err
	}
	raw, err := readInt(b.BrightnessPath)
	if err != nil {
		return 0, err
	}
	raw = min(max(raw, 0), maxV)
	return raw * 100 / maxV, nil
}

func (b *Backlight) Off() error {
	return writeInt(b.BrightnessPath, 0)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

func writeInt(path string, v int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(v)), 0o644)
}
