package api

// DetectKeepaliveInput 心跳回调请求体
type DetectKeepaliveInput struct {
	Timestamp int64              `json:"timestamp"` // Unix 时间戳 (毫秒)
	Stats     *DetectGlobalStats `json:"stats"`     // 全局统计信息
	Message   string             `json:"message"`   // 附加消息
}

// DetectStartedInput 任务启动回调请求体
type DetectStartedInput struct {
	TaskID    string `json:"task_id"`  // 分析任务 ID
	VideoID   string `json:"video_id"` // 视频 ID
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// DetectEventsInput 检测事件回调请求体
// 检测对象列表来自模型原始输出，字段形态不可信，由完整性管道负责校验修复
type DetectEventsInput struct {
	TaskID      string            `json:"task_id"`
	VideoID     string            `json:"video_id"`
	FrameNumber int               `json:"frame_number"` // 事件所在帧号
	Timestamp   float64           `json:"timestamp"`    // 帧时间（秒）
	Detections  []DetectDetection `json:"detections"`   // 检测结果列表
	Snapshot    string            `json:"snapshot"`     // Base64 编码的抽帧快照 (JPEG)
}

// DetectStoppedInput 任务停止回调请求体
type DetectStoppedInput struct {
	TaskID  string `json:"task_id"`
	VideoID string `json:"video_id"`
	Reason  string `json:"reason"` // 停止原因 (completed, user_requested, error)
	Message string `json:"message"`
}

// DetectDetection 单个检测对象
type DetectDetection struct {
	DetectionID string  `json:"detection_id"` // 检测事件 ID
	Label       string  `json:"label"`        // 模型输出的类别标签
	Confidence  float64 `json:"confidence"`   // 置信度 (0.0 - 1.0)
	// 检测框，形态不定（结构体、JSON 字符串或缺失），原样传给管道
	Box any `json:"box"`
}

// DetectGlobalStats 全局统计信息
type DetectGlobalStats struct {
	ActiveTasks     int   `json:"active_tasks"`     // 活跃任务数量
	TotalDetections int64 `json:"total_detections"` // 总检测次数
	UptimeSeconds   int64 `json:"uptime_seconds"`   // 运行时间 (秒)
}

// DetectWebhookOutput 通用响应体
type DetectWebhookOutput struct {
	Code int    `json:"code"` // 错误代码，0 表示成功
	Msg  string `json:"msg"`  // 消息
}

func newDetectWebhookOutputOK() DetectWebhookOutput {
	return DetectWebhookOutput{Code: 0, Msg: "success"}
}
