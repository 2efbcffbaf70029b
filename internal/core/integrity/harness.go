package integrity

import (
	"context"
	"errors"
	"time"

	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
)

// 场景分类
const (
	OutcomePassed      = "passed"
	OutcomeRepaired    = "repaired"
	OutcomeQuarantined = "quarantined"
	OutcomeFailed      = "failed"
)

// Scenario 诊断场景，输入为字面量损坏样本
type Scenario struct {
	Name   string         `json:"name"`
	Input  map[string]any `json:"input"`
	Expect string         `json:"expect"`
}

// ScenarioResult 单场景执行结果
type ScenarioResult struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Expect  string `json:"expect"`
	Ok      bool   `json:"ok"`
	Detail  string `json:"detail,omitempty"`
}

// DiagnosticsReport 自诊断报告
// 六个固定场景全部落在 passed 或 repaired 才算健康，
// 出现 quarantined 或 failed 说明某条修复路径被破坏
type DiagnosticsReport struct {
	Scenarios   []ScenarioResult `json:"scenarios"`
	Passed      int              `json:"passed"`
	Repaired    int              `json:"repaired"`
	Quarantined int              `json:"quarantined"`
	Failed      int              `json:"failed"`
	SuccessRate float64          `json:"success_rate"`
	Healthy     bool             `json:"healthy"`
	Monitor     HealthReport     `json:"monitor"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// diagnosticScenarios 固定的六场景清单
func diagnosticScenarios() []Scenario {
	return []Scenario{
		{
			Name:   "valid_record",
			Expect: OutcomePassed,
			Input: map[string]any{
				"video_id":      "vd_diag_1",
				"frame_number":  10,
				"timestamp":     1.5,
				"end_timestamp": 2.5,
				"vru_type":      "pedestrian",
				"bounding_box": map[string]any{
					"x": 100.0, "y": 200.0, "width": 50.0, "height": 100.0,
					"confidence": 0.95,
				},
				"occluded":  false,
				"truncated": false,
				"difficult": false,
				"validated": true,
			},
		},
		{
			Name:   "json_string_bounding_box",
			Expect: OutcomeRepaired,
			Input: map[string]any{
				"video_id":     "vd_diag_2",
				"frame_number": 20,
				"timestamp":    3.0,
				"vru_type":     "cyclist",
				"bounding_box": `{"x":150,"y":300,"width":75,"height":125}`,
			},
		},
		{
			Name:   "missing_video_id",
			Expect: OutcomeRepaired,
			Input: map[string]any{
				"frame_number": 30,
				"timestamp":    4.5,
				"vru_type":     "pedestrian",
				"bounding_box": map[string]any{
					"x": 10.0, "y": 20.0, "width": 30.0, "height": 40.0,
				},
			},
		},
		{
			Name:   "unknown_vru_type",
			Expect: OutcomeRepaired,
			Input: map[string]any{
				"video_id":     "vd_diag_4",
				"frame_number": 40,
				"timestamp":    6.0,
				"vru_type":     "unknown_type",
				"bounding_box": map[string]any{
					"x": 10.0, "y": 20.0, "width": 30.0, "height": 40.0,
				},
			},
		},
		{
			Name:   "negative_dimensions",
			Expect: OutcomeRepaired,
			Input: map[string]any{
				"video_id":     "vd_diag_5",
				"frame_number": 50,
				"timestamp":    7.5,
				"vru_type":     "scooter",
				"bounding_box": map[string]any{
					"x": 100.0, "y": 200.0, "width": -50.0, "height": -100.0,
				},
			},
		},
		{
			Name:   "null_bounding_box",
			Expect: OutcomeRepaired,
			Input: map[string]any{
				"video_id":     "vd_diag_6",
				"frame_number": 60,
				"timestamp":    9.0,
				"vru_type":     "wheelchair",
				"bounding_box": nil,
			},
		},
	}
}

// RunDiagnostics 在全新监控器上执行六场景自诊断
// 使用独立实例，不污染生产监控器的计数与日志
func (c *Core) RunDiagnostics(ctx context.Context) *DiagnosticsReport {
	m := NewMonitor(
		WithLogCapacity(c.cfg.CorruptionLogSize),
		WithHealthyRate(c.cfg.HealthySuccessRate),
	)

	scenarios := diagnosticScenarios()
	report := DiagnosticsReport{
		Scenarios:   make([]ScenarioResult, 0, len(scenarios)),
		GeneratedAt: time.Now(),
	}

	for _, sc := range scenarios {
		result := ScenarioResult{Name: sc.Name, Expect: sc.Expect}

		a, err := m.ProcessIncoming(ctx, sc.Input)
		switch {
		case err == nil && a.IntegrityStatus == annotation.StatusValid:
			result.Outcome = OutcomePassed
			report.Passed++
		case err == nil && a.IntegrityStatus == annotation.StatusRepaired:
			result.Outcome = OutcomeRepaired
			report.Repaired++
		case errors.Is(err, ErrQuarantined):
			result.Outcome = OutcomeQuarantined
			result.Detail = err.Error()
			report.Quarantined++
		default:
			result.Outcome = OutcomeFailed
			if err != nil {
				result.Detail = err.Error()
			}
			report.Failed++
		}
		result.Ok = result.Outcome == sc.Expect
		report.Scenarios = append(report.Scenarios, result)
	}

	report.SuccessRate = float64(report.Passed+report.Repaired) / float64(len(scenarios))
	report.Healthy = report.SuccessRate == 1.0
	report.Monitor = m.HealthReport()
	return &report
}
