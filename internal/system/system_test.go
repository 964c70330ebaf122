package system

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeBacklight(t *testing.T, max, cur string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "fb_ili9341")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "max_brightness"), []byte(max+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "brightness"), []byte(cur+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestBacklightPercent(t *testing.T) {
	root := fakeBacklight(t, "255", "255")
	bl, err := DiscoverBacklightIn(root)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if p, err := bl.GetPercent(); err != nil || p != 100 {
		t.Fatalf("GetPercent = %d, %v", p, err)
	}
	if err := bl.SetPercent(50); err != nil {
		t.Fatal(err)
	}
	raw, _ := readInt(bl.BrightnessPath)
	if raw != 127 {
		t.Fatalf("raw = %d", raw)
	}
	if err := bl.Off(); err != nil {
		t.Fatal(err)
	}
	if p, _ := bl.GetPercent(); p != 0 {
		t.Fatalf("after Off = %d", p)
	}
}

func TestBacklightSmallRange(t *testing.T) {
	// gpio 背光只有 0/1
	bl, err := DiscoverBacklightIn(fakeBacklight(t, "1", "0"))
	if err != nil {
		t.Fatal(err)
	}
	if err := bl.SetPercent(10); err != nil {
		t.Fatal(err)
	}
	if raw, _ := readInt(bl.BrightnessPath); raw != 1 {
		t.Fatalf("raw = %d, want 1", raw)
	}
	if err := bl.SetPercent(150); err != nil {
		t.Fatal(err)
	}
	if p, _ := bl.GetPercent(); p != 100 {
		t.Fatalf("percent = %d", p)
	}
}

func TestDiscoverBacklightMissing(t *testing.T) {
	if _, err := DiscoverBacklightIn(t.TempDir()); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		sec  uint64
		want string
	}{
		{59, "0m"},
		{7 * 60, "7m"},
		{5*3600 + 12*60, "5h12m"},
		{3*86400 + 4*3600 + 59, "3d4h"},
	}
	for _, tt := range tests {
		if got := FormatUptime(tt.sec); got != tt.want {
			t.Errorf("FormatUptime(%d) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}

func TestHostStatsLine(t *testing.T) {
	s := HostStats{CPUUsage: 12.4, MemoryUsage: 55.6, Uptime: 3700}
	if got := s.Line(); got != "cpu 12% mem 56% up 1h1m" {
		t.Fatalf("Line = %q", got)
	}
	if st := CollectHostStats(); st.CollectedAt == 0 || strings.TrimSpace(st.Line()) == "" {
		t.Fatalf("CollectHostStats = %+v", st)
	}
}
