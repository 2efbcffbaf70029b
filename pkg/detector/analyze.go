package detector

import (
	"context"
	"fmt"
	"net/url"
)

const (
	apiStartAnalysis  = "/api/v1/analysis/start"
	apiStopAnalysis   = "/api/v1/analysis/stop"
	apiAnalysisStatus = "/api/v1/analysis/status"
)

type StartAnalysisRequest struct {
	VideoID    string `json:"video_id"`    // 必填项，待分析的视频 ID
	SourceURL  string `json:"source_url"`  // 必填项，视频源地址
	WebhookURL string `json:"webhook_url"` // 选填项，检测事件回调地址
	// 选填项，抽帧检测帧率，默认 5
	DetectFps int `json:"detect_fps"`
	// 选填项，检测置信度阈值，默认 0.5
	Threshold float64 `json:"threshold"`
	// 选填项，解码失败重试次数，默认 10
	RetryLimit int `json:"retry_limit"`
}

type StartAnalysisResponse struct {
	FixedHeader
	Data struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

type StopAnalysisResponse struct {
	FixedHeader
	Result bool `json:"result"`
}

type AnalysisStatusResponse struct {
	FixedHeader
	Data struct {
		TaskID         string  `json:"task_id"`
		VideoID        string  `json:"video_id"`
		State          string  `json:"state"`
		Progress       float64 `json:"progress"`
		FramesDone     int     `json:"frames_done"`
		DetectionCount int     `json:"detection_count"`
	} `json:"data"`
}

// StartAnalysis 下发视频分析任务，检测事件经 webhook 回推
func (e *Engine) StartAnalysis(ctx context.Context, in StartAnalysisRequest) (*StartAnalysisResponse, error) {
	if in.VideoID == "" {
		return nil, fmt.Errorf("detector: video_id is required")
	}
	if in.SourceURL == "" {
		return nil, fmt.Errorf("detector: source_url is required")
	}
	if in.DetectFps == 0 {
		in.DetectFps = 5
	}
	if in.Threshold == 0 {
		in.Threshold = 0.5
	}
	if in.RetryLimit == 0 {
		in.RetryLimit = 10
	}

	body, err := struct2map(in)
	if err != nil {
		return nil, err
	}
	var resp StartAnalysisResponse
	if err := e.post(ctx, apiStartAnalysis, body, &resp); err != nil {
		return nil, err
	}
	if err := e.ErrHandle(resp.Code, resp.Msg); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopAnalysis 停止指定分析任务
func (e *Engine) StopAnalysis(ctx context.Context, taskID string) (*StopAnalysisResponse, error) {
	if taskID == "" {
		return nil, fmt.Errorf("detector: task_id is required")
	}

	var resp StopAnalysisResponse
	if err := e.post(ctx, apiStopAnalysis, map[string]any{"task_id": taskID}, &resp); err != nil {
		return nil, err
	}
	if err := e.ErrHandle(resp.Code, resp.Msg); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetStatus 查询分析任务进度
func (e *Engine) GetStatus(ctx context.Context, taskID string) (*AnalysisStatusResponse, error) {
	if taskID == "" {
		return nil, fmt.Errorf("detector: task_id is required")
	}

	var resp AnalysisStatusResponse
	path := fmt.Sprintf("%s?task_id=%s", apiAnalysisStatus, url.QueryEscape(taskID))
	if err := e.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if err := e.ErrHandle(resp.Code, resp.Msg); err != nil {
		return nil, err
	}
	return &resp, nil
}
