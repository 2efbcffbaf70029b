package integrity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/ixugo/goddd/pkg/queue"
)

// 管道阶段，两个数据流向独立计量
const (
	StageProducerToStore = "producer_to_store"
	StageStoreToConsumer = "store_to_consumer"
)

// 管道状态
const (
	PipelineHealthy  = "healthy"
	PipelineDegraded = "degraded"
)

// ErrQuarantined 写入路径的数据丢失边界
// 修复后仍无法满足硬性不变量的记录被隔离丢弃，绝不入库
var ErrQuarantined = errors.New("annotation quarantined")

// Metrics 管道健康计数，每处理一条记录后原子更新
type Metrics struct {
	TotalProcessed int64   `json:"total_processed"`
	CorruptedData  int64   `json:"corrupted_data"`
	AutoRepaired   int64   `json:"auto_repaired"`
	Quarantined    int64   `json:"quarantined"`
	SuccessRate    float64 `json:"success_rate"`
}

// CorruptionEntry 损坏日志条目
type CorruptionEntry struct {
	Stage     string         `json:"stage"`
	Errors    []string       `json:"errors"`
	Original  map[string]any `json:"original"`
	Repaired  map[string]any `json:"repaired"`
	Timestamp time.Time      `json:"timestamp"`
}

// RepairEntry 修复日志条目
type RepairEntry struct {
	Stage     string    `json:"stage"`
	ID        string    `json:"id"`
	Errors    []string  `json:"errors"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthReport 监控器健康报告
type HealthReport struct {
	Metrics           Metrics           `json:"metrics"`
	CorruptionCount   int64             `json:"corruption_count"`
	RecentCorruptions []CorruptionEntry `json:"recent_corruptions"`
	RepairSuccessRate float64           `json:"repair_success_rate"`
	PipelineStatus    string            `json:"pipeline_status"`
}

// Monitor 管道完整性监控器
// 日志使用固定容量环形队列，计数使用独立单调计数器，
// 日志被截断不影响比率计算
type Monitor struct {
	validator   *Validator
	healthyRate float64

	mu            sync.Mutex
	metrics       Metrics
	corruptionLog *queue.CirQueue[CorruptionEntry]
	repairLog     *queue.CirQueue[RepairEntry]
}

type MonitorOption func(*Monitor)

// WithLogCapacity 损坏与修复日志的环形队列容量
func WithLogCapacity(n int) MonitorOption {
	return func(m *Monitor) {
		if n > 0 {
			m.corruptionLog = queue.NewCirQueue[CorruptionEntry](uint8(n))
			m.repairLog = queue.NewCirQueue[RepairEntry](uint8(n))
		}
	}
}

// WithHealthyRate 健康判定阈值，成功率高于该值视为 healthy
func WithHealthyRate(rate float64) MonitorOption {
	return func(m *Monitor) {
		if rate > 0 && rate <= 1 {
			m.healthyRate = rate
		}
	}
}

// WithValidator 注入校验器
func WithValidator(v *Validator) MonitorOption {
	return func(m *Monitor) {
		m.validator = v
	}
}

func NewMonitor(opts ...MonitorOption) *Monitor {
	m := Monitor{
		validator:     NewValidator(),
		healthyRate:   0.95,
		corruptionLog: queue.NewCirQueue[CorruptionEntry](255),
		repairLog:     queue.NewCirQueue[RepairEntry](255),
		metrics:       Metrics{SuccessRate: 1.0},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return &m
}

// Validator 暴露内部校验器，批量修复服务与监控器共用同一套规则
func (m *Monitor) Validator() *Validator {
	return m.validator
}

// ProcessIncoming 生产者到存储方向的入口
// 合法记录直接放行，可修复记录带 repaired 状态放行，
// 修复后仍不满足不变量的记录隔离丢弃并返回 ErrQuarantined
func (m *Monitor) ProcessIncoming(ctx context.Context, raw map[string]any) (*annotation.Annotation, error) {
	res := m.validator.Validate(raw)

	if res.Valid {
		a, err := annotation.FromRepaired(res.Repaired, annotation.StatusValid)

		m.mu.Lock()
		defer m.mu.Unlock()
		m.metrics.TotalProcessed++
		if err != nil {
			m.metrics.Quarantined++
			m.refreshSuccessRate()
			slog.WarnContext(ctx, "annotation quarantined", "stage", StageProducerToStore, "err", err)
			return nil, fmt.Errorf("%w: %s", ErrQuarantined, err.Error())
		}
		m.refreshSuccessRate()
		return a, nil
	}

	a, err := annotation.FromRepaired(res.Repaired, annotation.StatusRepaired)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.TotalProcessed++
	m.metrics.CorruptedData++
	m.corruptionLog.Push(CorruptionEntry{
		Stage:     StageProducerToStore,
		Errors:    res.Errors,
		Original:  raw,
		Repaired:  res.Repaired,
		Timestamp: time.Now(),
	})
	if err != nil {
		m.metrics.Quarantined++
		m.refreshSuccessRate()
		slog.WarnContext(ctx, "annotation quarantined", "stage", StageProducerToStore,
			"errors", res.Errors, "err", err)
		return nil, fmt.Errorf("%w: %s", ErrQuarantined, err.Error())
	}
	m.metrics.AutoRepaired++
	m.repairLog.Push(RepairEntry{
		Stage:     StageProducerToStore,
		ID:        a.ID,
		Errors:    res.Errors,
		Timestamp: time.Now(),
	})
	m.refreshSuccessRate()
	slog.InfoContext(ctx, "annotation repaired", "stage", StageProducerToStore,
		"id", a.ID, "error_count", len(res.Errors))
	return a, nil
}

// PrepareOutgoing 存储到消费者方向的出口，永不失败
// 库内已有的损坏数据也要以某种安全形态展示给客户端，
// 兜底时返回带隔离标记的最小安全映射而不是错误
func (m *Monitor) PrepareOutgoing(ctx context.Context, a *annotation.Annotation) map[string]any {
	if a == nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.metrics.TotalProcessed++
		m.metrics.Quarantined++
		m.refreshSuccessRate()
		return minimalSafe(nil)
	}

	flat := a.Flatten()
	res := m.validator.Validate(flat)

	status := annotation.StatusRepaired
	if res.Valid {
		status = a.IntegrityStatus
		if _, ok := annotation.ParseValidationStatus(string(status)); !ok {
			status = annotation.StatusValid
		}
	}
	out, err := annotation.FromRepaired(res.Repaired, status)
	if err == nil {
		// 保留持久化记录的标识与时间，序列化不得改写历史
		out.ID = a.ID
		out.CreatedAt = a.CreatedAt
		out.UpdatedAt = a.UpdatedAt
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.TotalProcessed++
	if !res.Valid {
		m.metrics.CorruptedData++
		m.corruptionLog.Push(CorruptionEntry{
			Stage:     StageStoreToConsumer,
			Errors:    res.Errors,
			Original:  flat,
			Repaired:  res.Repaired,
			Timestamp: time.Now(),
		})
	}
	if err != nil {
		m.metrics.Quarantined++
		m.refreshSuccessRate()
		slog.WarnContext(ctx, "annotation degraded to minimal form", "stage", StageStoreToConsumer,
			"id", a.ID, "err", err)
		return minimalSafe(a)
	}
	if !res.Valid {
		m.metrics.AutoRepaired++
		m.repairLog.Push(RepairEntry{
			Stage:     StageStoreToConsumer,
			ID:        a.ID,
			Errors:    res.Errors,
			Timestamp: time.Now(),
		})
	}
	m.refreshSuccessRate()
	return out.ToMap()
}

// HealthReport 当前健康快照，含最近 10 条损坏记录
func (m *Monitor) HealthReport() HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	recent := m.corruptionLog.Range()
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	corrupted := m.metrics.CorruptedData
	repairRate := 1.0
	if corrupted > 0 {
		repairRate = float64(m.metrics.AutoRepaired) / float64(corrupted)
	}

	status := PipelineHealthy
	if m.metrics.SuccessRate <= m.healthyRate {
		status = PipelineDegraded
	}

	return HealthReport{
		Metrics:           m.metrics,
		CorruptionCount:   corrupted,
		RecentCorruptions: recent,
		RepairSuccessRate: repairRate,
		PipelineStatus:    status,
	}
}

// Metrics 当前计数快照
func (m *Monitor) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

// refreshSuccessRate 调用方必须持有 m.mu
func (m *Monitor) refreshSuccessRate() {
	if m.metrics.TotalProcessed == 0 {
		m.metrics.SuccessRate = 1.0
		return
	}
	m.metrics.SuccessRate = float64(m.metrics.TotalProcessed-m.metrics.Quarantined) /
		float64(m.metrics.TotalProcessed)
}

// minimalSafe 读取路径的最后兜底形态
func minimalSafe(a *annotation.Annotation) map[string]any {
	id, videoID := "", "unknown"
	if a != nil {
		id = a.ID
		if a.VideoID != "" {
			videoID = a.VideoID
		}
	}
	box := annotation.DefaultBoundingBox().AsMap()
	return map[string]any{
		"id":               id,
		"video_id":         videoID,
		"videoId":          videoID,
		"vru_type":         string(annotation.VRUTypePedestrian),
		"vruType":          string(annotation.VRUTypePedestrian),
		"bounding_box":     box,
		"boundingBox":      box,
		"integrity_status": string(annotation.StatusQuarantined),
		"integrityStatus":  string(annotation.StatusQuarantined),
	}
}
