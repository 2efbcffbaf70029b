package integrity

import (
	"context"
	"errors"
	"testing"

	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
)

func TestProcessIncomingValid(t *testing.T) {
	m := NewMonitor()
	a, err := m.ProcessIncoming(context.Background(), validRaw())
	if err != nil {
		t.Fatalf("ProcessIncoming() error = %v", err)
	}
	if a.IntegrityStatus != annotation.StatusValid {
		t.Fatalf("status = %v", a.IntegrityStatus)
	}

	got := m.Metrics()
	if got.TotalProcessed != 1 || got.CorruptedData != 0 || got.SuccessRate != 1.0 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestProcessIncomingRepaired(t *testing.T) {
	m := NewMonitor()
	raw := validRaw()
	raw["vru_type"] = "unknown_type"

	a, err := m.ProcessIncoming(context.Background(), raw)
	if err != nil {
		t.Fatalf("ProcessIncoming() error = %v", err)
	}
	if a.IntegrityStatus != annotation.StatusRepaired {
		t.Fatalf("status = %v", a.IntegrityStatus)
	}
	if a.VRUType != annotation.VRUTypePedestrian {
		t.Fatalf("vru = %v", a.VRUType)
	}

	got := m.Metrics()
	if got.CorruptedData != 1 || got.AutoRepaired != 1 || got.Quarantined != 0 {
		t.Fatalf("metrics = %+v", got)
	}
	if got.SuccessRate != 1.0 {
		t.Fatalf("repaired records should not hurt success rate, got %v", got.SuccessRate)
	}
}

func TestProcessIncomingQuarantined(t *testing.T) {
	// 让 ID 生成器产出空串，修复后的 video_id 占位符无法满足硬性不变量
	broken := NewValidator(WithIDFunc(func() string { return "" }))
	m := NewMonitor(WithValidator(broken))

	raw := validRaw()
	delete(raw, "video_id")

	a, err := m.ProcessIncoming(context.Background(), raw)
	if !errors.Is(err, ErrQuarantined) {
		t.Fatalf("expected ErrQuarantined, got %v", err)
	}
	if a != nil {
		t.Fatal("quarantined record should be dropped")
	}

	got := m.Metrics()
	if got.Quarantined != 1 || got.CorruptedData != 1 {
		t.Fatalf("metrics = %+v", got)
	}
	if got.SuccessRate != 0.0 {
		t.Fatalf("success rate = %v", got.SuccessRate)
	}
}

func TestPrepareOutgoingRepairsCorruptRow(t *testing.T) {
	m := NewMonitor()

	// 模拟绕过管道写入的历史损坏行
	row := annotation.Annotation{
		ID:          "an_legacy",
		VideoID:     "vd_1",
		FrameNumber: -7,
		Timestamp:   3.0,
		VRUType:     "bicycle_rider",
		BoundingBox: nil,
	}

	out := m.PrepareOutgoing(context.Background(), &row)
	if out == nil {
		t.Fatal("read path must always return a mapping")
	}
	if out["id"] != "an_legacy" {
		t.Fatalf("id not preserved: %v", out["id"])
	}
	if out["integrity_status"] != "repaired" || out["integrityStatus"] != "repaired" {
		t.Fatalf("status = %v", out["integrity_status"])
	}
	if out["frame_number"] != 0 {
		t.Fatalf("frame not repaired: %v", out["frame_number"])
	}
	box := out["bounding_box"].(map[string]any)
	if box["width"] != 1.0 {
		t.Fatalf("expected default unit box, got %v", box)
	}

	got := m.Metrics()
	if got.CorruptedData != 1 || got.AutoRepaired != 1 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestPrepareOutgoingValidRowKeepsStatus(t *testing.T) {
	m := NewMonitor()

	a, err := m.ProcessIncoming(context.Background(), validRaw())
	if err != nil {
		t.Fatal(err)
	}
	out := m.PrepareOutgoing(context.Background(), a)
	if out["integrity_status"] != "valid" {
		t.Fatalf("status = %v", out["integrity_status"])
	}
	if out["video_id"] != "vd_1" || out["videoId"] != "vd_1" {
		t.Fatal("both key spellings must be present")
	}
}

func TestPrepareOutgoingNil(t *testing.T) {
	m := NewMonitor()
	out := m.PrepareOutgoing(context.Background(), nil)
	if out["integrity_status"] != "quarantined" {
		t.Fatalf("nil record should degrade to quarantined form, got %v", out)
	}
}

func TestHealthReport(t *testing.T) {
	m := NewMonitor()

	if got := m.HealthReport(); got.PipelineStatus != PipelineHealthy {
		t.Fatalf("fresh monitor should be healthy, got %v", got.PipelineStatus)
	}

	raw := validRaw()
	raw["vru_type"] = "unknown_type"
	if _, err := m.ProcessIncoming(context.Background(), raw); err != nil {
		t.Fatal(err)
	}

	got := m.HealthReport()
	if got.CorruptionCount != 1 || len(got.RecentCorruptions) != 1 {
		t.Fatalf("report = %+v", got)
	}
	if got.RepairSuccessRate != 1.0 {
		t.Fatalf("repair rate = %v", got.RepairSuccessRate)
	}
	if got.PipelineStatus != PipelineHealthy {
		t.Fatalf("repaired-only traffic should stay healthy, got %v", got.PipelineStatus)
	}
}

func TestHealthReportDegraded(t *testing.T) {
	broken := NewValidator(WithIDFunc(func() string { return "" }))
	m := NewMonitor(WithValidator(broken))

	raw := validRaw()
	delete(raw, "video_id")
	_, _ = m.ProcessIncoming(context.Background(), raw)

	if got := m.HealthReport(); got.PipelineStatus != PipelineDegraded {
		t.Fatalf("quarantine should degrade pipeline, got %+v", got)
	}
}
