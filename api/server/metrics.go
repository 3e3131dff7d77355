package server

import (
	"net/http"
	"runtime"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// NodeMetrics holds granular health metrics for the ledger node.
type NodeMetrics struct {
	UptimeSeconds  int64   `json:"uptime_seconds"`
	Appends        int     `json:"appends"`
	Patients       int     `json:"patients"`
	CPULoadPercent float64 `json:"cpu_load_percent"`
	MemoryMB       float64 `json:"memory_mb"`
	DiskFreeMB     float64 `json:"disk_free_mb"`
	LastAppendTime string  `json:"last_append_time,omitempty"`
}

func (s *Server) handleNodeHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collectMetrics())
}

func (s *Server) collectMetrics() NodeMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	diskFreeMB := 0.0
	var disk syscall.Statfs_t
	if err := syscall.Statfs("/", &disk); err == nil {
		diskFreeMB = float64(disk.Bfree) * float64(disk.Bsize) / (1024 * 1024)
	}

	cpuLoad := 0.0
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		cpuLoad = percents[0]
	}

	stats := s.ledger.Stats()
	metrics := NodeMetrics{
		UptimeSeconds:  int64(s.uptime().Seconds()),
		Appends:        stats.Appends,
		Patients:       stats.Patients,
		CPULoadPercent: cpuLoad,
		MemoryMB:       float64(m.Alloc) / (1024 * 1024),
		DiskFreeMB:     diskFreeMB,
	}
	if !stats.LastAppend.IsZero() {
		metrics.LastAppendTime = stats.LastAppend.Format(time.RFC3339)
	}
	return metrics
}
