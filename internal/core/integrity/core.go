package integrity

import (
	"context"
	"sync"
	"time"

	"github.com/edwinttmm/Testing-sub002/internal/conf"
	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
)

// DetectorProbe 探测外部检测服务可用性
type DetectorProbe interface {
	Addr() string
	Check(ctx context.Context) (string, error)
}

// Core business domain
type Core struct {
	an        annotation.Core
	monitor   *Monitor
	probe     DetectorProbe
	cfg       conf.Integrity
	startedAt time.Time

	repairMu sync.Mutex
}

type Option func(*Core)

// WithConfig 注入完整性管道配置
func WithConfig(cfg conf.Integrity) Option {
	return func(c *Core) {
		c.cfg = cfg
	}
}

// WithMonitor 注入监控器，不注入时按配置新建
func WithMonitor(m *Monitor) Option {
	return func(c *Core) {
		c.monitor = m
	}
}

// WithDetectorProbe 注入检测服务探测器
func WithDetectorProbe(p DetectorProbe) Option {
	return func(c *Core) {
		c.probe = p
	}
}

// NewCore create business domain
func NewCore(an annotation.Core, opts ...Option) *Core {
	c := Core{
		an: an,
		cfg: conf.Integrity{
			CorruptionLogSize:  1000,
			HealthySuccessRate: 0.95,
			RepairTimeout:      "10m",
		},
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.monitor == nil {
		c.monitor = NewMonitor(
			WithLogCapacity(c.cfg.CorruptionLogSize),
			WithHealthyRate(c.cfg.HealthySuccessRate),
		)
	}
	return &c
}

// Monitor 流式管道监控器
func (c *Core) Monitor() *Monitor {
	return c.monitor
}

// HealthReport 监控器健康报告
func (c *Core) HealthReport() HealthReport {
	return c.monitor.HealthReport()
}
