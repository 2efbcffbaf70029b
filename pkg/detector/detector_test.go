package detector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStartAnalysis(t *testing.T) {
	var gotBody map[string]any
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiStartAnalysis {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotKey = r.Header.Get("X-API-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0, "msg": "success",
			"data": map[string]any{"task_id": "task_1"},
		})
	}))
	defer srv.Close()

	engine := NewEngine().SetConfig(Config{URL: srv.URL, APIKey: "secret"})
	resp, err := engine.StartAnalysis(context.Background(), StartAnalysisRequest{
		VideoID:   "vd_1",
		SourceURL: "http://media/vd_1.mp4",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Data.TaskID != "task_1" {
		t.Fatalf("task id = %s", resp.Data.TaskID)
	}
	if gotKey != "secret" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if gotBody["detect_fps"] != float64(5) || gotBody["threshold"] != 0.5 || gotBody["retry_limit"] != float64(10) {
		t.Fatalf("defaults not applied: %+v", gotBody)
	}
}

func TestStartAnalysisMissingFields(t *testing.T) {
	engine := NewEngine()
	if _, err := engine.StartAnalysis(context.Background(), StartAnalysisRequest{}); err == nil {
		t.Fatal("expected error for missing video_id")
	}
	if _, err := engine.StartAnalysis(context.Background(), StartAnalysisRequest{VideoID: "vd_1"}); err == nil {
		t.Fatal("expected error for missing source_url")
	}
}

func TestStartAnalysisErrCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 2003, "msg": "task running"})
	}))
	defer srv.Close()

	engine := NewEngine().SetConfig(Config{URL: srv.URL})
	_, err := engine.StartAnalysis(context.Background(), StartAnalysisRequest{
		VideoID: "vd_1", SourceURL: "http://media/vd_1.mp4",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "分析任务已存在") {
		t.Fatalf("err = %v", err)
	}
}

func TestGetStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != apiAnalysisStatus {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("task_id") != "task_1" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0, "msg": "success",
			"data": map[string]any{
				"task_id": "task_1", "video_id": "vd_1", "state": "running",
				"progress": 0.42, "frames_done": 210, "detection_count": 12,
			},
		})
	}))
	defer srv.Close()

	engine := NewEngine().SetConfig(Config{URL: srv.URL})
	resp, err := engine.GetStatus(context.Background(), "task_1")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Data.State != "running" || resp.Data.DetectionCount != 12 {
		t.Fatalf("data = %+v", resp.Data)
	}
}

func TestStopAnalysis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["task_id"] != "task_1" {
			t.Errorf("body = %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 0, "msg": "success", "result": true})
	}))
	defer srv.Close()

	engine := NewEngine().SetConfig(Config{URL: srv.URL})
	resp, err := engine.StopAnalysis(context.Background(), "task_1")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Result {
		t.Fatal("expected result true")
	}
}

func TestErrHandle(t *testing.T) {
	var e Engine
	if err := e.ErrHandle(CodeSuccess, "success"); err != nil {
		t.Fatal(err)
	}
	if err := e.ErrHandle(CodeModelNotReady, ""); err == nil {
		t.Fatal("expected error")
	}
	err := e.ErrHandle(ResCode(9999), "boom")
	if err == nil || !strings.Contains(err.Error(), "9999") {
		t.Fatalf("err = %v", err)
	}
}
