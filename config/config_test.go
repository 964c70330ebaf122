package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"portainer-monitor/internal/console"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "etc", "config.json")
	t.Setenv("PMON_CONFIG_PATH", path)
	return path
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := useTempConfig(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if cfg.Console.MaxRows != 200 || cfg.Console.MaxColumns != 64 {
		t.Fatalf("console = %+v", cfg.Console)
	}
	if cfg.Display.Width != 240 || cfg.Display.Height != 320 || cfg.Display.Rotation != 1 {
		t.Fatalf("display = %+v", cfg.Display)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadConfigFillsMissingFields(t *testing.T) {
	path := useTempConfig(t)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	raw := `{"portainer":{"server":"10.0.0.5","endpoint_id":"3"},"console":{"max_rows":50}}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Portainer.Server != "10.0.0.5" || cfg.Portainer.EndpointID != "3" {
		t.Fatalf("explicit values lost: %+v", cfg.Portainer)
	}
	if cfg.Console.MaxRows != 50 || cfg.Console.MaxColumns != 64 {
		t.Fatalf("console = %+v", cfg.Console)
	}
	if cfg.Portainer.Port != 9000 || cfg.Portainer.RefreshSeconds != 60 {
		t.Fatalf("portainer defaults not filled: %+v", cfg.Portainer)
	}

	// 补齐后应回写
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"refresh_seconds": 60`) {
		t.Fatalf("filled config not saved:\n%s", data)
	}
}

func TestCredentialsComeFromEnvOnly(t *testing.T) {
	path := useTempConfig(t)
	t.Setenv("PORTAINER_USERNAME", " admin ")
	t.Setenv("PORTAINER_PASSWORD", "s3cret")
	t.Setenv("PORTAINER_API_KEY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Portainer.Username != "admin" || cfg.Portainer.Password != "s3cret" {
		t.Fatalf("credentials = %q/%q", cfg.Portainer.Username, cfg.Portainer.Password)
	}
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "s3cret") {
		t.Fatal("password written to config file")
	}
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		p    PortainerConfig
		want string
	}{
		{PortainerConfig{Server: "10.0.0.5", Port: 9000}, "http://10.0.0.5:9000"},
		{PortainerConfig{Server: "portainer.lan", Port: 9443, UseTLS: true}, "https://portainer.lan:9443"},
		{PortainerConfig{Server: "http://host:8000/", Port: 9000}, "http://host:8000"},
		{PortainerConfig{Server: "host"}, "http://host"},
	}
	for _, tt := range tests {
		if got := tt.p.BaseURL(); got != tt.want {
			t.Errorf("BaseURL(%+v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"backend", func(c *Config) { c.Display.Backend = "vga" }},
		{"font", func(c *Config) { c.Display.Font = "serif" }},
		{"rotation", func(c *Config) { c.Display.Rotation = 4 }},
		{"rows", func(c *Config) { c.Console.MaxRows = 0 }},
		{"color", func(c *Config) { c.Console.Foreground = "#12" }},
		{"refresh", func(c *Config) { c.Portainer.RefreshSeconds = 0 }},
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"db", func(c *Config) { c.Database.Path = "" }},
	}
	for _, tt := range tests {
		c := DefaultConfig()
		tt.mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestConsoleColors(t *testing.T) {
	c := ConsoleConfig{Foreground: "yellow", Background: "#000080"}
	fg, bg, err := c.Colors()
	if err != nil {
		t.Fatal(err)
	}
	if fg != console.Yellow {
		t.Fatalf("fg = %v", fg)
	}
	if bg.B != 0x80 || bg.R != 0 || bg.G != 0 {
		t.Fatalf("bg = %v", bg)
	}
}
