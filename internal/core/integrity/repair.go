package integrity

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
	"gorm.io/gorm"
)

// ErrRepairRunning 同一存储上不允许重叠的修复扫描
var ErrRepairRunning = errors.New("repair scan already running")

// 单次报告内保留的明细上限，超出部分只计数不记明细
const maxRepairDetails = 200

// 全表扫描的分页大小
const repairBatchSize = 500

// RepairDetail 单条记录的修复明细
type RepairDetail struct {
	ID     string   `json:"id"`
	Errors []string `json:"errors,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// RepairReport 批量修复结果
type RepairReport struct {
	Scanned       int64          `json:"scanned"`
	Corrupted     int64          `json:"corrupted"`
	Repaired      int64          `json:"repaired"`
	FailedRepairs int64          `json:"failed_repairs"`
	SuccessRate   float64        `json:"success_rate"`
	Details       []RepairDetail `json:"details"`
	FatalError    string         `json:"fatal_error,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	ElapsedMs     int64          `json:"elapsed_ms"`
}

// ScanAndRepair 幂等地把整个标注存储拉回合法状态
// 逐条修复是尽力而为，单条失败不中断扫描；
// 落库在一个事务内全量提交，提交失败整体回滚并报告致命错误
func (c *Core) ScanAndRepair(ctx context.Context) (*RepairReport, error) {
	if !c.repairMu.TryLock() {
		return nil, ErrRepairRunning
	}
	defer c.repairMu.Unlock()

	timeout := c.cfg.RepairTimeout.Duration()
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	report := RepairReport{
		Details:   make([]RepairDetail, 0, 16),
		StartedAt: start,
	}
	v := c.monitor.Validator()
	store := c.an.Store().Annotation()

	dirty := make([]*annotation.Annotation, 0, 64)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			report.FatalError = err.Error()
			return c.finishRepair(ctx, &report, start), nil
		}

		var records []*annotation.Annotation
		pager := web.PagerFilter{Page: page, Size: repairBatchSize}
		if _, err := store.Find(ctx, &records, &pager, orm.OrderBy("id ASC")); err != nil {
			report.FatalError = err.Error()
			return c.finishRepair(ctx, &report, start), nil
		}
		if len(records) == 0 {
			break
		}

		for _, rec := range records {
			report.Scanned++
			res := v.Validate(rec.Flatten())
			if res.Valid {
				// 数据已合法但遗留状态仍是待修复，归一化状态位
				if rec.IntegrityStatus == annotation.StatusNeedsRepair ||
					rec.IntegrityStatus == annotation.StatusCorrupted {
					rec.IntegrityStatus = annotation.StatusValid
					rec.UpdatedAt = orm.Now()
					dirty = append(dirty, rec)
					c.appendDetail(&report, RepairDetail{
						ID:     rec.ID,
						Errors: []string{"integrity status normalized"},
					})
				}
				continue
			}

			report.Corrupted++
			candidate, err := annotation.FromRepaired(res.Repaired, annotation.StatusRepaired)
			if err != nil {
				report.FailedRepairs++
				c.appendDetail(&report, RepairDetail{ID: rec.ID, Errors: res.Errors, Error: err.Error()})
				continue
			}

			rec.BoundingBox = candidate.BoundingBox
			rec.VRUType = candidate.VRUType
			rec.Timestamp = candidate.Timestamp
			rec.EndTimestamp = candidate.EndTimestamp
			rec.FrameNumber = candidate.FrameNumber
			rec.Occluded = candidate.Occluded
			rec.Truncated = candidate.Truncated
			rec.Difficult = candidate.Difficult
			rec.Validated = candidate.Validated
			rec.IntegrityStatus = annotation.StatusRepaired
			rec.UpdatedAt = orm.Now()

			dirty = append(dirty, rec)
			report.Repaired++
			c.appendDetail(&report, RepairDetail{ID: rec.ID, Errors: res.Errors})
		}

		if len(records) < repairBatchSize {
			break
		}
	}

	if len(dirty) > 0 {
		err := store.Session(ctx, func(tx *gorm.DB) error {
			for _, rec := range dirty {
				if err := tx.Save(rec).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			report.FatalError = err.Error()
			slog.ErrorContext(ctx, "repair commit failed, rolled back", "err", err)
		}
	}
	return c.finishRepair(ctx, &report, start), nil
}

func (c *Core) appendDetail(report *RepairReport, d RepairDetail) {
	if len(report.Details) < maxRepairDetails {
		report.Details = append(report.Details, d)
	}
}

func (c *Core) finishRepair(ctx context.Context, report *RepairReport, start time.Time) *RepairReport {
	report.SuccessRate = float64(report.Repaired) / math.Max(1, float64(report.Corrupted))
	report.ElapsedMs = time.Since(start).Milliseconds()
	slog.InfoContext(ctx, "repair scan finished",
		"scanned", report.Scanned,
		"corrupted", report.Corrupted,
		"repaired", report.Repaired,
		"failed", report.FailedRepairs,
		"elapsed_ms", report.ElapsedMs,
		"fatal", report.FatalError,
	)
	return report
}

// StartRepairWorker 启动定时修复协程，间隔由配置指定
func (c *Core) StartRepairWorker(ctx context.Context) {
	minutes := c.cfg.RepairIntervalMinute
	if minutes <= 0 {
		slog.Info("auto repair worker disabled", "interval_minute", minutes)
		return
	}

	slog.Info("auto repair worker started", "interval_minute", minutes)

	ticker := time.NewTicker(time.Duration(minutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("auto repair worker stopped")
			return
		case <-ticker.C:
			report, err := c.ScanAndRepair(ctx)
			if err != nil {
				if !errors.Is(err, ErrRepairRunning) {
					slog.Error("scheduled repair failed", "err", err)
				}
				continue
			}
			slog.Info("scheduled repair finished",
				"scanned", report.Scanned,
				"corrupted", report.Corrupted,
				"repaired", report.Repaired,
			)
		}
	}
}
