package integrity

import (
	"strings"
	"testing"
)

func validRaw() map[string]any {
	return map[string]any{
		"video_id":     "vd_1",
		"frame_number": 5,
		"timestamp":    1.5,
		"vru_type":     "pedestrian",
		"bounding_box": map[string]any{"x": 10.0, "y": 20.0, "width": 30.0, "height": 40.0},
	}
}

func TestValidateValid(t *testing.T) {
	v := NewValidator()
	res := v.Validate(validRaw())
	if !res.Valid || len(res.Errors) != 0 {
		t.Fatalf("Validate() = %+v", res)
	}
	if res.Repaired["id"] == "" {
		t.Fatal("id should be generated silently")
	}
	if res.Repaired["vru_type"] != "pedestrian" {
		t.Fatalf("unexpected vru_type %v", res.Repaired["vru_type"])
	}
}

func TestValidMatchesErrorCount(t *testing.T) {
	v := NewValidator()
	inputs := []map[string]any{
		validRaw(),
		{},
		nil,
		{"video_id": "vd_1", "vru_type": "bike"},
		{"timestamp": -3.0},
	}
	for i, in := range inputs {
		res := v.Validate(in)
		if res.Valid != (len(res.Errors) == 0) {
			t.Fatalf("case %d: valid=%v but %d errors", i, res.Valid, len(res.Errors))
		}
	}
}

func TestValidateBoundingBox(t *testing.T) {
	v := NewValidator()

	raw := validRaw()
	raw["bounding_box"] = map[string]any{"x": 100.0, "y": 200.0, "width": -50.0, "height": -100.0}
	res := v.Validate(raw)
	if res.Valid {
		t.Fatal("negative dimensions should be invalid")
	}
	box := res.Repaired["bounding_box"].(map[string]any)
	if box["width"] != 1.0 || box["height"] != 1.0 {
		t.Fatalf("expected default unit box, got %v", box)
	}

	raw = validRaw()
	raw["bounding_box"] = `{"x":150,"y":300,"width":75,"height":125}`
	res = v.Validate(raw)
	if res.Valid {
		t.Fatal("JSON string bounding box should still count as an error")
	}
	box = res.Repaired["bounding_box"].(map[string]any)
	if box["x"] != 150.0 || box["width"] != 75.0 {
		t.Fatalf("JSON string should parse transparently, got %v", box)
	}

	raw = validRaw()
	raw["bounding_box"] = nil
	res = v.Validate(raw)
	if res.Valid {
		t.Fatal("null bounding box should be invalid")
	}
	box = res.Repaired["bounding_box"].(map[string]any)
	if box["width"] != 1.0 {
		t.Fatalf("expected default unit box, got %v", box)
	}
}

func TestValidateVRUType(t *testing.T) {
	v := NewValidator()

	raw := validRaw()
	raw["vru_type"] = "PEDESTRIAN"
	res := v.Validate(raw)
	if !res.Valid || res.Repaired["vru_type"] != "pedestrian" {
		t.Fatalf("case-varied exact match should pass, got %+v", res)
	}

	raw["vru_type"] = "bike"
	res = v.Validate(raw)
	if !res.Valid || res.Repaired["vru_type"] != "cyclist" {
		t.Fatalf("fuzzy match should repair silently, got %+v", res)
	}

	raw["vru_type"] = "unknown_type"
	res = v.Validate(raw)
	if res.Valid || res.Repaired["vru_type"] != "pedestrian" {
		t.Fatalf("unknown type should error and default, got %+v", res)
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "Unknown VRU type") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unknown type error, got %v", res.Errors)
	}

	delete(raw, "vru_type")
	res = v.Validate(raw)
	if res.Valid || res.Repaired["vru_type"] != "pedestrian" {
		t.Fatalf("missing type should error and default, got %+v", res)
	}
}

func TestValidateTimestamps(t *testing.T) {
	v := NewValidator()

	raw := validRaw()
	raw["timestamp"] = -2.5
	res := v.Validate(raw)
	if res.Valid || res.Repaired["timestamp"] != 0.0 {
		t.Fatalf("negative timestamp should clamp to zero, got %+v", res)
	}

	raw = validRaw()
	raw["end_timestamp"] = 0.5
	res = v.Validate(raw)
	if res.Valid {
		t.Fatal("end before start should be an error")
	}
	if res.Repaired["end_timestamp"] != 1.5 {
		t.Fatalf("end should clamp to timestamp, got %v", res.Repaired["end_timestamp"])
	}

	raw = validRaw()
	raw["end_timestamp"] = "not a number"
	res = v.Validate(raw)
	if res.Valid || res.Repaired["end_timestamp"] != nil {
		t.Fatalf("unparseable end should become nil with error, got %+v", res)
	}

	raw = validRaw()
	raw["timestamp"] = "abc"
	raw["end_timestamp"] = 3.0
	res = v.Validate(raw)
	if res.Valid {
		t.Fatal("unparseable timestamp should be an error")
	}
	// 两项检查独立，end 以修复后的 timestamp 为基准保留
	if res.Repaired["timestamp"] != 0.0 || res.Repaired["end_timestamp"] != 3.0 {
		t.Fatalf("unexpected repaired timestamps %+v", res.Repaired)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	v := NewValidator()

	raw := validRaw()
	delete(raw, "video_id")
	res := v.Validate(raw)
	if res.Valid {
		t.Fatal("missing video_id should be an error")
	}
	if res.Repaired["video_id"] == "" {
		t.Fatal("video_id placeholder should be generated")
	}

	raw = validRaw()
	raw["frame_number"] = -5
	res = v.Validate(raw)
	if res.Valid || res.Repaired["frame_number"] != 0 {
		t.Fatalf("negative frame should clamp to zero with error, got %+v", res)
	}

	raw = validRaw()
	raw["occluded"] = 1
	raw["truncated"] = "true"
	raw["difficult"] = "nope"
	res = v.Validate(raw)
	if !res.Valid {
		t.Fatalf("flag coercion should never error, got %v", res.Errors)
	}
	if res.Repaired["occluded"] != true || res.Repaired["truncated"] != true || res.Repaired["difficult"] != false {
		t.Fatalf("unexpected flags %+v", res.Repaired)
	}
}

func TestValidateCamelCaseAliases(t *testing.T) {
	v := NewValidator()
	res := v.Validate(map[string]any{
		"videoId":     "vd_1",
		"frameNumber": 7,
		"timestamp":   2.0,
		"vruType":     "cyclist",
		"boundingBox": map[string]any{"x": 1.0, "y": 2.0, "width": 3.0, "height": 4.0},
	})
	if !res.Valid {
		t.Fatalf("camelCase aliases should be accepted, got %v", res.Errors)
	}
	if res.Repaired["video_id"] != "vd_1" || res.Repaired["frame_number"] != 7 {
		t.Fatalf("unexpected repaired %+v", res.Repaired)
	}
}

func TestValidateIdempotent(t *testing.T) {
	v := NewValidator()
	corrupt := map[string]any{
		"frame_number": -3,
		"timestamp":    -1.0,
		"vru_type":     "unknown_type",
		"bounding_box": `{"x":1,"y":2,"width":3,"height":4}`,
	}
	first := v.Validate(corrupt)
	if first.Valid {
		t.Fatal("corrupt input should be invalid")
	}
	second := v.Validate(first.Repaired)
	if !second.Valid || len(second.Errors) != 0 {
		t.Fatalf("repair should be a fixed point, got %v", second.Errors)
	}
}
