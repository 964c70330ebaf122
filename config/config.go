package config

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"portainer-monitor/internal/console"
)

// Config 应用配置
type Config struct {
	Display   DisplayConfig   `json:"display"`
	Console   ConsoleConfig   `json:"console"`
	Portainer PortainerConfig `json:"portainer"`
	System    SystemConfig    `json:"system"`
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Auth      AuthConfig      `json:"auth"`
}

// 屏幕后端
const (
	BackendFB   = "fb"
	BackendSDL  = "sdl"
	BackendTerm = "term"
	BackendNull = "null"
)

// 字体
const (
	FontBitmap = "bitmap"
	FontTTF    = "ttf"
)

// DisplayConfig 屏幕与触摸
type DisplayConfig struct {
	Backend  string  `json:"backend"`  // fb, sdl, term, null
	Width    int     `json:"width"`    // 物理宽度（未旋转）
	Height   int     `json:"height"`   // 物理高度（未旋转）
	Rotation int     `json:"rotation"` // 0~3
	Font     string  `json:"font"`     // bitmap, ttf
	FontSize float64 `json:"font_size"`
	TextSize int     `json:"text_size"`
	// InvertTouch 面板触摸原点在右下角时打开
	InvertTouch   bool `json:"invert_touch"`
	TouchRepeatMs int  `json:"touch_repeat_ms"`
}

// ConsoleConfig 虚拟窗口
type ConsoleConfig struct {
	MaxRows    int    `json:"max_rows"`
	MaxColumns int    `json:"max_columns"`
	Foreground string `json:"foreground"`
	Background string `json:"background"`
}

// PortainerConfig Portainer 服务
// 账号、密码、API Key 只从环境变量（.env）读取，不落盘
type PortainerConfig struct {
	Server         string `json:"server"`
	Port           int    `json:"port"`
	EndpointID     string `json:"endpoint_id"` // 为空时自动发现
	UseTLS         bool   `json:"use_tls"`
	RefreshSeconds int    `json:"refresh_seconds"`
	ClearOnRefresh bool   `json:"clear_on_refresh"`

	Username string `json:"-"`
	Password string `json:"-"`
	APIKey   string `json:"-"`
}

// SystemConfig 面板设置
type SystemConfig struct {
	// Brightness 亮度（0~100）；nil 表示不主动修改
	Brightness *int `json:"brightness,omitempty"`
	// ScreenOffSeconds 熄屏时间（秒，0 表示不熄屏）
	ScreenOffSeconds *int `json:"screen_off_seconds,omitempty"`
}

// ServerConfig 本地 API
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `json:"path"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	PasswordHash string `json:"password_hash"` // bcrypt hash
	JWTSecret    string `json:"jwt_secret"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	defOff := 0
	backend := BackendTerm
	if runtime.GOOS == "linux" {
		backend = BackendFB
	}
	return &Config{
		Display: DisplayConfig{
			Backend:       backend,
			Width:         240,
			Height:        320,
			Rotation:      1,
			Font:          FontBitmap,
			FontSize:      8,
			TextSize:      1,
			TouchRepeatMs: 150,
		},
		Console: ConsoleConfig{
			MaxRows:    200,
			MaxColumns: 64,
			Foreground: console.FormatColor(console.Green),
			Background: console.FormatColor(console.Black),
		},
		Portainer: PortainerConfig{
			Server:         "127.0.0.1",
			Port:           9000,
			RefreshSeconds: 60,
			ClearOnRefresh: true,
		},
		System: SystemConfig{
			ScreenOffSeconds: &defOff,
		},
		Server: ServerConfig{
			Port: 18081,
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			Path: defaultDBPath(),
		},
	}
}

func defaultConfigPath() string {
	if runtime.GOOS == "linux" {
		return "/etc/portainer-monitor/config.json"
	}
	// 本地调试：当前工作目录
	if wd, err := os.Getwd(); err == nil && strings.TrimSpace(wd) != "" {
		return filepath.Join(wd, "config.json")
	}
	return filepath.Join(os.TempDir(), "portainer-monitor", "config.json")
}

func defaultDBPath() string {
	if runtime.GOOS == "linux" {
		return "/var/lib/portainer-monitor/monitor.db"
	}
	if wd, err := os.Getwd(); err == nil && strings.TrimSpace(wd) != "" {
		return filepath.Join(wd, "data", "monitor.db")
	}
	return filepath.Join(os.TempDir(), "portainer-monitor", "monitor.db")
}

// GetConfigPath 获取配置文件路径
func GetConfigPath() string {
	configPath := os.Getenv("PMON_CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath()
	}
	return configPath
}

// LoadConfig 加载配置；文件不存在时写入默认配置
func LoadConfig() (*Config, error) {
	configPath := GetConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		cfg.ResolvePortainerCredentials()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", configPath, err)
	}

	// 旧版本或手写配置缺字段时补齐，补齐过就回写，避免每次启动重复
	if cfg.fillDefaults() {
		_ = cfg.Save()
	}
	cfg.ResolvePortainerCredentials()
	return &cfg, nil
}

func (c *Config) fillDefaults() (changed bool) {
	def := DefaultConfig()
	setStr := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
			changed = true
		}
	}
	setInt := func(dst *int, v int) {
		if *dst <= 0 {
			*dst = v
			changed = true
		}
	}

	setStr(&c.Display.Backend, def.Display.Backend)
	setInt(&c.Display.Width, def.Display.Width)
	setInt(&c.Display.Height, def.Display.Height)
	setStr(&c.Display.Font, def.Display.Font)
	if c.Display.FontSize <= 0 {
		c.Display.FontSize = def.Display.FontSize
		changed = true
	}
	setInt(&c.Display.TextSize, def.Display.TextSize)
	setInt(&c.Display.TouchRepeatMs, def.Display.TouchRepeatMs)

	setInt(&c.Console.MaxRows, def.Console.MaxRows)
	setInt(&c.Console.MaxColumns, def.Console.MaxColumns)
	setStr(&c.Console.Foreground, def.Console.Foreground)
	setStr(&c.Console.Background, def.Console.Background)

	setStr(&c.Portainer.Server, def.Portainer.Server)
	setInt(&c.Portainer.Port, def.Portainer.Port)
	setInt(&c.Portainer.RefreshSeconds, def.Portainer.RefreshSeconds)

	if c.System.ScreenOffSeconds == nil {
		c.System.ScreenOffSeconds = def.System.ScreenOffSeconds
		changed = true
	}

	setInt(&c.Server.Port, def.Server.Port)
	setStr(&c.Server.Host, def.Server.Host)
	setStr(&c.Database.Path, def.Database.Path)
	return changed
}

// ResolvePortainerCredentials 从环境变量读取 Portainer 凭据
func (c *Config) ResolvePortainerCredentials() {
	c.Portainer.Username = strings.TrimSpace(os.Getenv("PORTAINER_USERNAME"))
	c.Portainer.Password = os.Getenv("PORTAINER_PASSWORD")
	c.Portainer.APIKey = strings.TrimSpace(os.Getenv("PORTAINER_API_KEY"))
}

// BaseURL 返回 Portainer 地址（带 scheme，无尾部 /）
func (p PortainerConfig) BaseURL() string {
	host := strings.TrimSpace(p.Server)
	host = strings.TrimPrefix(strings.TrimPrefix(host, "http://"), "https://")
	host = strings.TrimRight(host, "/")
	scheme := "http"
	if p.UseTLS {
		scheme = "https"
	}
	if p.Port > 0 && !strings.Contains(host, ":") {
		host = host + ":" + strconv.Itoa(p.Port)
	}
	return scheme + "://" + host
}

// Colors 解析控制台前景/背景色
func (c ConsoleConfig) Colors() (fg, bg color.RGBA, err error) {
	if fg, err = console.ParseColor(c.Foreground); err != nil {
		return fg, bg, fmt.Errorf("console.foreground: %w", err)
	}
	if bg, err = console.ParseColor(c.Background); err != nil {
		return fg, bg, fmt.Errorf("console.background: %w", err)
	}
	return fg, bg, nil
}

// Save 保存配置
func (c *Config) Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.Display.Backend {
	case BackendFB, BackendSDL, BackendTerm, BackendNull:
	default:
		return fmt.Errorf("未知的屏幕后端: %q", c.Display.Backend)
	}
	switch c.Display.Font {
	case FontBitmap, FontTTF:
	default:
		return fmt.Errorf("未知的字体: %q", c.Display.Font)
	}
	if c.Display.Rotation < 0 || c.Display.Rotation > 3 {
		return fmt.Errorf("屏幕旋转无效: %d", c.Display.Rotation)
	}
	if c.Console.MaxRows <= 0 || c.Console.MaxColumns <= 0 {
		return fmt.Errorf("控制台缓冲无效: %d 行 x %d 列", c.Console.MaxRows, c.Console.MaxColumns)
	}
	if _, _, err := c.Console.Colors(); err != nil {
		return err
	}
	if c.Portainer.RefreshSeconds <= 0 {
		return fmt.Errorf("刷新间隔无效: %d", c.Portainer.RefreshSeconds)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("服务器端口无效: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("数据库路径不能为空")
	}
	return nil
}
