package annotation

import (
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
)

type FindAnnotationInput struct {
	web.PagerFilter
	web.DateFilter
	VideoID string `form:"video_id"` // 视频 ID (video.ID)
	VRUType string `form:"vru_type"` // 弱势道路使用者类型
	Status  string `form:"status"`   // 完整性状态
}

// EditAnnotationInput 指针字段表示可选修改，nil 即不变更
type EditAnnotationInput struct {
	Notes       *string        `json:"notes"`
	Annotator   *string        `json:"annotator"`
	Validated   *bool          `json:"validated"`
	Occluded    *bool          `json:"occluded"`
	Truncated   *bool          `json:"truncated"`
	Difficult   *bool          `json:"difficult"`
	VRUType     string         `json:"vru_type"`
	BoundingBox map[string]any `json:"bounding_box"`
}

type FindVideoInput struct {
	web.PagerFilter
	SessionID string `form:"session_id"` // 采集会话 ID
	Status    string `form:"status"`     // 视频状态
}

type AddVideoInput struct {
	SessionID  string    `json:"session_id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	DurationS  float64   `json:"duration_s"`  // 片段时长（秒）
	SizeBytes  int64     `json:"size_bytes"`  // 文件大小（字节）
	RecordedAt *orm.Time `json:"recorded_at"` // 采集时间，缺省为当前时间
}

type EditVideoInput struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}
