package integrity

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/ixugo/goddd/pkg/system"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// 建议级别
const (
	LevelCritical = "critical"
	LevelWarning  = "warning"
	LevelInfo     = "info"
)

// DatabaseStats 存储侧聚合统计
type DatabaseStats struct {
	TotalAnnotations  int64                                 `json:"total_annotations"`
	ValidatedCount    int64                                 `json:"validated_count"`
	ValidationRate    float64                               `json:"validation_rate"`
	NullBoundingBoxes int64                                 `json:"null_bounding_boxes"`
	OrphanAnnotations int64                                 `json:"orphan_annotations"`
	TotalVideos       int64                                 `json:"total_videos"`
	ByStatus          map[annotation.ValidationStatus]int64 `json:"by_status"`
	IntegrityScore    float64                               `json:"integrity_score"`
	Error             string                                `json:"error,omitempty"`
}

// SystemStats 主机资源快照
type SystemStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	DiskPercent   float64 `json:"disk_percent"`
	Goroutines    int     `json:"goroutines"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	Error         string  `json:"error,omitempty"`
}

// DetectorStatus 检测服务探测结果
type DetectorStatus struct {
	Addr   string `json:"addr,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Recommendation 运维建议
type Recommendation struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Dashboard 健康面板快照
// 任一子聚合失败只影响本节的 error 字段，不拖垮整个快照
type Dashboard struct {
	PipelineHealth  HealthReport     `json:"pipeline_health"`
	Database        DatabaseStats    `json:"database"`
	Detector        DetectorStatus   `json:"detector"`
	System          SystemStats      `json:"system"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// Dashboard 聚合监控器报告、存储统计与主机资源，产出运维快照
func (c *Core) Dashboard(ctx context.Context) *Dashboard {
	health := c.monitor.HealthReport()
	dbStats := c.databaseStats(ctx)
	sysStats := c.systemStats(ctx)

	return &Dashboard{
		PipelineHealth:  health,
		Database:        dbStats,
		Detector:        c.detectorStats(ctx),
		System:          sysStats,
		Recommendations: c.recommend(health, dbStats),
		GeneratedAt:     time.Now(),
	}
}

func (c *Core) detectorStats(ctx context.Context) DetectorStatus {
	if c.probe == nil {
		return DetectorStatus{Status: "unconfigured"}
	}
	out := DetectorStatus{Addr: c.probe.Addr()}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	status, err := c.probe.Check(ctx)
	if err != nil {
		out.Status = "unreachable"
		out.Error = err.Error()
		return out
	}
	out.Status = status
	return out
}

func (c *Core) databaseStats(ctx context.Context) DatabaseStats {
	var out DatabaseStats

	total, err := c.an.CountAnnotations(ctx)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.TotalAnnotations = total

	// 后续统计失败不影响已取得的指标
	if n, err := c.an.CountValidated(ctx); err != nil {
		out.Error = err.Error()
	} else {
		out.ValidatedCount = n
	}
	if n, err := c.an.CountMissingBoundingBox(ctx); err != nil {
		out.Error = err.Error()
	} else {
		out.NullBoundingBoxes = n
	}
	if n, err := c.an.CountOrphanAnnotations(ctx); err != nil {
		out.Error = err.Error()
	} else {
		out.OrphanAnnotations = n
	}
	if n, err := c.an.CountVideos(ctx); err != nil {
		out.Error = err.Error()
	} else {
		out.TotalVideos = n
	}
	if byStatus, err := c.an.CountByStatus(ctx); err != nil {
		out.Error = err.Error()
	} else {
		out.ByStatus = byStatus
	}

	out.IntegrityScore = 1.0
	if total > 0 {
		out.ValidationRate = float64(out.ValidatedCount) / float64(total)
		out.IntegrityScore = 1.0 - float64(out.NullBoundingBoxes)/float64(total)
	}
	return out
}

func (c *Core) systemStats(ctx context.Context) SystemStats {
	out := SystemStats{
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: int64(time.Since(c.startedAt).Seconds()),
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		out.Error = err.Error()
	} else if len(percents) > 0 {
		out.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		out.Error = err.Error()
	} else {
		out.MemoryPercent = vm.UsedPercent
		out.MemoryUsedMB = vm.Used / 1024 / 1024
	}
	if du, err := disk.UsageWithContext(ctx, system.Getwd()); err != nil {
		out.Error = err.Error()
	} else {
		out.DiskPercent = du.UsedPercent
	}
	return out
}

// recommend 固定启发式建议表
func (c *Core) recommend(health HealthReport, db DatabaseStats) []Recommendation {
	out := make([]Recommendation, 0, 4)

	if db.NullBoundingBoxes > 0 {
		out = append(out, Recommendation{
			Level:   LevelCritical,
			Message: fmt.Sprintf("%d annotations missing bounding boxes, run auto repair", db.NullBoundingBoxes),
		})
	}
	if health.PipelineStatus == PipelineDegraded {
		out = append(out, Recommendation{
			Level:   LevelWarning,
			Message: fmt.Sprintf("pipeline success rate %.4f below healthy threshold", health.Metrics.SuccessRate),
		})
	}
	if db.OrphanAnnotations > 0 {
		out = append(out, Recommendation{
			Level:   LevelWarning,
			Message: fmt.Sprintf("%d annotations reference missing videos", db.OrphanAnnotations),
		})
	}
	if health.Metrics.Quarantined > 0 {
		out = append(out, Recommendation{
			Level:   LevelInfo,
			Message: fmt.Sprintf("%d records quarantined since startup, inspect corruption log", health.Metrics.Quarantined),
		})
	}
	if len(out) == 0 {
		out = append(out, Recommendation{
			Level:   LevelInfo,
			Message: "all integrity checks passing",
		})
	}
	return out
}
