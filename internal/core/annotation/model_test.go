package annotation

import (
	"testing"
)

func TestNewBoundingBoxRounding(t *testing.T) {
	conf := 0.98765
	b, err := NewBoundingBox(10.126, 20.994, 100.006, 50.0, &conf, "pedestrian")
	if err != nil {
		t.Fatalf("NewBoundingBox() error = %v", err)
	}
	if b.X != 10.13 || b.Y != 20.99 {
		t.Fatalf("position not rounded to 2 decimals: (%v, %v)", b.X, b.Y)
	}
	if b.Width != 100.01 || b.Height != 50 {
		t.Fatalf("dimensions not rounded to 2 decimals: %vx%v", b.Width, b.Height)
	}
	if *b.Confidence != 0.9877 {
		t.Fatalf("confidence not rounded to 4 decimals: %v", *b.Confidence)
	}
}

func TestNewBoundingBoxInvalid(t *testing.T) {
	if _, err := NewBoundingBox(-1, 0, 10, 10, nil, ""); err == nil {
		t.Fatal("negative x should be rejected")
	}
	if _, err := NewBoundingBox(0, 0, 0, 10, nil, ""); err == nil {
		t.Fatal("zero width should be rejected")
	}
	if _, err := NewBoundingBox(0, 0, 10, -5, nil, ""); err == nil {
		t.Fatal("negative height should be rejected")
	}
	over := 1.5
	if _, err := NewBoundingBox(0, 0, 10, 10, &over, ""); err == nil {
		t.Fatal("confidence above 1 should be rejected")
	}
}

func TestParseBoundingBox(t *testing.T) {
	b, err := ParseBoundingBox(map[string]any{"x": 1.0, "y": 2.0, "width": 3.0, "height": 4.0})
	if err != nil {
		t.Fatalf("ParseBoundingBox(map) error = %v", err)
	}
	if b.Width != 3 || b.Height != 4 {
		t.Fatalf("unexpected box %+v", b)
	}

	b, err = ParseBoundingBox(`{"x":5,"y":6,"width":7,"height":8,"confidence":0.5}`)
	if err != nil {
		t.Fatalf("ParseBoundingBox(json) error = %v", err)
	}
	if b.X != 5 || *b.Confidence != 0.5 {
		t.Fatalf("unexpected box %+v", b)
	}

	if _, err := ParseBoundingBox(nil); err == nil {
		t.Fatal("nil should be rejected")
	}
	if _, err := ParseBoundingBox(42); err == nil {
		t.Fatal("unsupported type should be rejected")
	}
	if _, err := ParseBoundingBox(map[string]any{"x": 1.0, "y": 2.0}); err == nil {
		t.Fatal("missing dimensions should be rejected")
	}
}

func TestSafeBoundingBoxDegrades(t *testing.T) {
	b := SafeBoundingBox("not json at all")
	if b.X != 0 || b.Y != 0 || b.Width != 1 || b.Height != 1 {
		t.Fatalf("expected default unit box, got %+v", b)
	}
	b = SafeBoundingBox(nil)
	if b.Width != 1 || b.Height != 1 {
		t.Fatalf("expected default unit box, got %+v", b)
	}
}

func TestParseVRUType(t *testing.T) {
	v, ok := ParseVRUType(" Pedestrian ")
	if !ok || v != VRUTypePedestrian {
		t.Fatalf("ParseVRUType() = %v, %v", v, ok)
	}
	if _, ok := ParseVRUType("martian"); ok {
		t.Fatal("unknown type should not parse")
	}
}

func TestMatchVRUType(t *testing.T) {
	cases := map[string]VRUType{
		"person":          VRUTypePedestrian,
		"bike":            VRUTypeCyclist,
		"bicycle":         VRUTypeCyclist,
		"motorcycle":      VRUTypeMotorcyclist,
		"motorbike":       VRUTypeMotorcyclist,
		"wheelchair_user": VRUTypeWheelchair,
		"scooter_rider":   VRUTypeScooter,
	}
	for in, want := range cases {
		got, ok := MatchVRUType(in)
		if !ok || got != want {
			t.Fatalf("MatchVRUType(%q) = %v, want %v", in, got, want)
		}
	}
	if _, ok := MatchVRUType("truck"); ok {
		t.Fatal("truck should not match any VRU type")
	}
}

func TestFromRepaired(t *testing.T) {
	m := map[string]any{
		"id":           "an_123",
		"video_id":     "vd_1",
		"frame_number": 10,
		"timestamp":    1.23456,
		"vru_type":     "cyclist",
		"bounding_box": map[string]any{"x": 1.0, "y": 2.0, "width": 3.0, "height": 4.0},
		"occluded":     true,
	}
	a, err := FromRepaired(m, StatusRepaired)
	if err != nil {
		t.Fatalf("FromRepaired() error = %v", err)
	}
	if a.Timestamp != 1.235 {
		t.Fatalf("timestamp not rounded to 3 decimals: %v", a.Timestamp)
	}
	if a.VRUType != VRUTypeCyclist || !a.Occluded {
		t.Fatalf("unexpected annotation %+v", a)
	}
	if a.IntegrityStatus != StatusRepaired {
		t.Fatalf("unexpected status %v", a.IntegrityStatus)
	}
}

func TestFromRepairedInvariants(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"video_id":     "vd_1",
			"frame_number": 0,
			"timestamp":    5.0,
			"vru_type":     "pedestrian",
			"bounding_box": map[string]any{"x": 0.0, "y": 0.0, "width": 1.0, "height": 1.0},
		}
	}

	m := base()
	delete(m, "video_id")
	if _, err := FromRepaired(m, StatusValid); err == nil {
		t.Fatal("missing video_id should be rejected")
	}

	m = base()
	m["frame_number"] = -1
	if _, err := FromRepaired(m, StatusValid); err == nil {
		t.Fatal("negative frame_number should be rejected")
	}

	m = base()
	m["end_timestamp"] = 2.0
	if _, err := FromRepaired(m, StatusValid); err == nil {
		t.Fatal("end_timestamp before timestamp should be rejected")
	}

	m = base()
	m["vru_type"] = "bike"
	if _, err := FromRepaired(m, StatusValid); err == nil {
		t.Fatal("non-canonical vru_type should be rejected by the strict constructor")
	}

	m = base()
	m["bounding_box"] = nil
	if _, err := FromRepaired(m, StatusValid); err == nil {
		t.Fatal("missing bounding box should be rejected")
	}
}

func TestToMapDualKeys(t *testing.T) {
	a, err := FromRepaired(map[string]any{
		"video_id":     "vd_1",
		"frame_number": 3,
		"timestamp":    1.5,
		"vru_type":     "scooter",
		"bounding_box": map[string]any{"x": 0.0, "y": 0.0, "width": 2.0, "height": 2.0},
	}, StatusValid)
	if err != nil {
		t.Fatalf("FromRepaired() error = %v", err)
	}

	m := a.ToMap()
	if m["video_id"] != "vd_1" || m["videoId"] != "vd_1" {
		t.Fatalf("video id missing in one spelling: %v / %v", m["video_id"], m["videoId"])
	}
	if m["frame_number"] != 3 || m["frameNumber"] != 3 {
		t.Fatal("frame number missing in one spelling")
	}
	if m["bounding_box"] == nil || m["boundingBox"] == nil {
		t.Fatal("bounding box missing in one spelling")
	}
	if _, ok := m["createdAt"].(string); !ok {
		t.Fatalf("createdAt should be an ISO string, got %T", m["createdAt"])
	}
	if m["integrity_status"] != "valid" {
		t.Fatalf("unexpected status %v", m["integrity_status"])
	}
}

func TestFlatten(t *testing.T) {
	a, err := FromRepaired(map[string]any{
		"video_id":     "vd_9",
		"frame_number": 1,
		"timestamp":    0.0,
		"vru_type":     "animal",
		"bounding_box": map[string]any{"x": 1.0, "y": 1.0, "width": 5.0, "height": 5.0},
	}, StatusValid)
	if err != nil {
		t.Fatalf("FromRepaired() error = %v", err)
	}

	m := a.Flatten()
	if _, ok := m["videoId"]; ok {
		t.Fatal("flatten should only emit snake_case keys")
	}
	box, ok := m["bounding_box"].(map[string]any)
	if !ok {
		t.Fatalf("bounding_box should flatten to a map, got %T", m["bounding_box"])
	}
	if box["width"] != 5.0 {
		t.Fatalf("unexpected box %v", box)
	}
}
