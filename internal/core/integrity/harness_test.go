package integrity

import (
	"context"
	"testing"

	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
)

func TestRunDiagnostics(t *testing.T) {
	c := NewCore(annotation.Core{})

	report := c.RunDiagnostics(context.Background())
	if len(report.Scenarios) != 6 {
		t.Fatalf("scenario count = %d", len(report.Scenarios))
	}
	if report.Passed != 1 || report.Repaired != 5 {
		t.Fatalf("report = %+v", report)
	}
	if report.Quarantined != 0 || report.Failed != 0 {
		t.Fatalf("no scenario should quarantine or fail, got %+v", report)
	}
	if report.SuccessRate != 1.0 || !report.Healthy {
		t.Fatalf("success rate = %v healthy = %v", report.SuccessRate, report.Healthy)
	}
	for _, sc := range report.Scenarios {
		if !sc.Ok {
			t.Fatalf("scenario %s: outcome %s, expect %s", sc.Name, sc.Outcome, sc.Expect)
		}
	}
}

func TestRunDiagnosticsIsolated(t *testing.T) {
	c := NewCore(annotation.Core{})

	before := c.Monitor().Metrics()
	_ = c.RunDiagnostics(context.Background())
	after := c.Monitor().Metrics()

	if before.TotalProcessed != after.TotalProcessed {
		t.Fatal("diagnostics must not touch the production monitor")
	}
}
