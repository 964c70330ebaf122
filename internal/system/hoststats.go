package system

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats 本机状态（报告行与 /system/info 共用）
type HostStats struct {
	Hostname    string  `json:"hostname"`
	Uptime      uint64  `json:"uptime"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
	MemoryTotal uint64  `json:"memory_total"`
	DiskUsage   float64 `json:"disk_usage"`
	Load1       float64 `json:"load1"`
	CollectedAt int64   `json:"collected_at"`
}

// CollectHostStats 各项尽力采集，失败的项保持零值
func CollectHostStats() HostStats {
	st := HostStats{CollectedAt: time.Now().Unix()}
	st.Hostname, _ = os.Hostname()
	st.Uptime, _ = host.Uptime()
	if v, err := cpu.Percent(0, false); err == nil && len(v) > 0 {
		st.CPUUsage = v[0]
	}
	if m, err := mem.VirtualMemory(); err == nil && m != nil {
		st.MemoryUsage = m.UsedPercent
		st.MemoryTotal = m.Total
	}
	if du, err := disk.Usage("/"); err == nil && du != nil {
		st.DiskUsage = du.UsedPercent
	}
	if l, err := load.Avg(); err == nil && l != nil {
		st.Load1 = l.Load1
	}
	return st
}

// Line 压缩成一行，适合小屏
func (s HostStats) Line() string {
	return fmt.Sprintf("cpu %.0f%% mem %.0f%% up %s", s.CPUUsage, s.MemoryUsage, FormatUptime(s.Uptime))
}

// FormatUptime 3d4h / 5h12m / 7m
func FormatUptime(sec uint64) string {
	d := sec / 86400
	h := sec % 86400 / 3600
	m := sec % 3600 / 60
	switch {
	case d > 0:
		return fmt.Sprintf("%dd%dh", d, h)
	case h > 0:
		return fmt.Sprintf("%dh%dm", h, m)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
