package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	// Status is healthy, degraded (disk nearly full) or unhealthy (database down)
	Status   string     `json:"status"`
	Database string     `json:"database"`
	Uptime   string     `json:"uptime"`
	Host     HostReport `json:"host"`
}

// HostReport is best-effort host resource usage; unavailable stats are omitted
type HostReport struct {
	Memory *UsageReport `json:"memory,omitempty"`
	Disk   *UsageReport `json:"disk,omitempty"`
}

// UsageReport describes one host resource
type UsageReport struct {
	Used        uint64  `json:"used"`
	Total       uint64  `json:"total"`
	UsedPercent float64 `json:"usedPercent"`
	Human       string  `json:"human"`
}

func usage(used, total uint64, percent float64) *UsageReport {
	return &UsageReport{
		Used:        used,
		Total:       total,
		UsedPercent: percent,
		Human:       humanize.Bytes(used) + " / " + humanize.Bytes(total),
	}
}

// Health reports database reachability and host resource usage.
// Host metrics are best effort; only a failing database makes the service unhealthy.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:   "healthy",
		Database: "ok",
		Uptime:   time.Since(h.started).Round(time.Second).String(),
	}
	status := http.StatusOK

	if err := h.shop.Store().HealthCheck(ctx); err != nil {
		h.log.Warn("Database health check failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		resp.Host.Memory = usage(vm.Used, vm.Total, vm.UsedPercent)
	} else {
		h.log.Debug("Memory stats unavailable", zap.Error(err))
	}
	if du, err := disk.UsageWithContext(ctx, h.dataDir); err == nil {
		resp.Host.Disk = usage(du.Used, du.Total, du.UsedPercent)
		if du.UsedPercent > 95 && status == http.StatusOK {
			resp.Status = "degraded"
		}
	} else {
		h.log.Debug("Disk stats unavailable", zap.String("path", h.dataDir), zap.Error(err))
	}

	writeJSON(w, status, resp)
}
