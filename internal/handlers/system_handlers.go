package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemInfo samples host telemetry for the dashboard's status panel.
// Individual probe failures leave their section null rather than failing
// the whole response.
func (h *API) SystemInfo(c *gin.Context) {
	ctx := c.Request.Context()
	out := gin.H{
		"go_version":    runtime.Version(),
		"num_goroutine": runtime.NumGoroutine(),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}

	if info, err := host.InfoWithContext(ctx); err == nil {
		out["host"] = gin.H{
			"hostname":       info.Hostname,
			"os":             info.OS,
			"platform":       info.Platform,
			"kernel_version": info.KernelVersion,
			"uptime_seconds": info.Uptime,
		}
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		out["cpu"] = gin.H{"percent": percents[0], "cores": runtime.NumCPU()}
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out["memory"] = gin.H{
			"total":        vm.Total,
			"used":         vm.Used,
			"used_percent": vm.UsedPercent,
		}
	}
	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		out["disk"] = gin.H{
			"total":        usage.Total,
			"used":         usage.Used,
			"used_percent": usage.UsedPercent,
		}
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		out["load"] = gin.H{"load1": avg.Load1, "load5": avg.Load5, "load15": avg.Load15}
	}

	c.JSON(http.StatusOK, out)
}
