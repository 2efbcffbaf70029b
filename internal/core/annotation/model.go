package annotation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
)

// VRUType 弱势道路使用者类型，平台内分类标签的唯一来源
type VRUType string

const (
	VRUTypePedestrian   VRUType = "pedestrian"
	VRUTypeCyclist      VRUType = "cyclist"
	VRUTypeMotorcyclist VRUType = "motorcyclist"
	VRUTypeWheelchair   VRUType = "wheelchair"
	VRUTypeScooter      VRUType = "scooter"
	VRUTypeAnimal       VRUType = "animal"
	VRUTypeOther        VRUType = "other"
)

// VRUTypes 全部合法类型
var VRUTypes = []VRUType{
	VRUTypePedestrian,
	VRUTypeCyclist,
	VRUTypeMotorcyclist,
	VRUTypeWheelchair,
	VRUTypeScooter,
	VRUTypeAnimal,
	VRUTypeOther,
}

// ParseVRUType 精确匹配，大小写不敏感
func ParseVRUType(s string) (VRUType, bool) {
	v := VRUType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range VRUTypes {
		if v == t {
			return t, true
		}
	}
	return "", false
}

// vruSynonyms 模糊匹配表，按序做子串包含匹配
// 注意顺序：motorbike 包含 bike，必须先于 bike 检查
var vruSynonyms = []struct {
	Pattern string
	Type    VRUType
}{
	{"person", VRUTypePedestrian},
	{"motorcycle", VRUTypeMotorcyclist},
	{"motorbike", VRUTypeMotorcyclist},
	{"bicycle", VRUTypeCyclist},
	{"bike", VRUTypeCyclist},
	{"wheelchair", VRUTypeWheelchair},
	{"scooter", VRUTypeScooter},
	{"animal", VRUTypeAnimal},
}

// MatchVRUType 按同义词表模糊匹配，如 "bike" -> cyclist、"wheelchair_user" -> wheelchair
func MatchVRUType(s string) (VRUType, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return "", false
	}
	for _, syn := range vruSynonyms {
		if strings.Contains(v, syn.Pattern) {
			return syn.Type, true
		}
	}
	return "", false
}

// ValidationStatus 标注记录的完整性状态
type ValidationStatus string

const (
	StatusValid       ValidationStatus = "valid"
	StatusCorrupted   ValidationStatus = "corrupted"
	StatusRepaired    ValidationStatus = "repaired"
	StatusNeedsRepair ValidationStatus = "needs_repair"
	StatusQuarantined ValidationStatus = "quarantined"
)

// ParseValidationStatus 精确匹配状态值
func ParseValidationStatus(s string) (ValidationStatus, bool) {
	switch v := ValidationStatus(strings.ToLower(strings.TrimSpace(s))); v {
	case StatusValid, StatusCorrupted, StatusRepaired, StatusNeedsRepair, StatusQuarantined:
		return v, true
	}
	return "", false
}

// BoundingBox 矩形检测框，构造即归一化
// 坐标与宽高保留 2 位小数，置信度保留 4 位小数
type BoundingBox struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
	Confidence *float64 `json:"confidence,omitempty"`
	Label      string   `json:"label,omitempty"`
}

// NewBoundingBox 严格构造，违反不变量返回错误
func NewBoundingBox(x, y, width, height float64, confidence *float64, label string) (*BoundingBox, error) {
	if x < 0 || y < 0 {
		return nil, fmt.Errorf("bounding box position must be non-negative, got (%v, %v)", x, y)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("bounding box dimensions must be positive, got %vx%v", width, height)
	}
	b := BoundingBox{
		X:      round2(x),
		Y:      round2(y),
		Width:  round2(width),
		Height: round2(height),
		Label:  label,
	}
	if confidence != nil {
		if *confidence < 0 || *confidence > 1 {
			return nil, fmt.Errorf("confidence must be within [0,1], got %v", *confidence)
		}
		c := round4(*confidence)
		b.Confidence = &c
	}
	return &b, nil
}

// DefaultBoundingBox 安全缺省单位框
func DefaultBoundingBox() *BoundingBox {
	return &BoundingBox{X: 0, Y: 0, Width: 1, Height: 1}
}

// ParseBoundingBox 宽容解析任意形态的检测框输入
// 支持 *BoundingBox、map、JSON 字符串，其余类型返回诊断错误
func ParseBoundingBox(v any) (*BoundingBox, error) {
	switch data := v.(type) {
	case nil:
		return nil, fmt.Errorf("bounding box is empty")
	case *BoundingBox:
		if data == nil {
			return nil, fmt.Errorf("bounding box is empty")
		}
		return NewBoundingBox(data.X, data.Y, data.Width, data.Height, data.Confidence, data.Label)
	case BoundingBox:
		return NewBoundingBox(data.X, data.Y, data.Width, data.Height, data.Confidence, data.Label)
	case map[string]any:
		return parseBoundingBoxMap(data)
	case string:
		if strings.TrimSpace(data) == "" {
			return nil, fmt.Errorf("bounding box is empty")
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, fmt.Errorf("bounding box is not valid JSON: %w", err)
		}
		return parseBoundingBoxMap(m)
	case []byte:
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("bounding box is not valid JSON: %w", err)
		}
		return parseBoundingBoxMap(m)
	default:
		return nil, fmt.Errorf("unsupported bounding box type %T", v)
	}
}

func parseBoundingBoxMap(m map[string]any) (*BoundingBox, error) {
	x, err := numField(m, "x")
	if err != nil {
		return nil, err
	}
	y, err := numField(m, "y")
	if err != nil {
		return nil, err
	}
	w, err := numField(m, "width")
	if err != nil {
		return nil, err
	}
	h, err := numField(m, "height")
	if err != nil {
		return nil, err
	}
	var conf *float64
	if raw, ok := m["confidence"]; ok && raw != nil {
		c, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("confidence is not numeric: %v", raw)
		}
		conf = &c
	}
	label, _ := m["label"].(string)
	return NewBoundingBox(x, y, w, h, conf, label)
}

func numField(m map[string]any, key string) (float64, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("bounding box missing field %q", key)
	}
	f, ok := toFloat(raw)
	if !ok {
		return 0, fmt.Errorf("bounding box field %q is not numeric: %v", key, raw)
	}
	return f, nil
}

// SafeBoundingBox 永不失败的工厂
// 解析失败时记录告警并退化为安全缺省单位框
func SafeBoundingBox(v any) *BoundingBox {
	b, err := ParseBoundingBox(v)
	if err != nil {
		slog.Warn("bounding box degraded to default", "err", err)
		return DefaultBoundingBox()
	}
	return b
}

// AsMap 结构化存储形态，与持久化列格式一致
func (b *BoundingBox) AsMap() map[string]any {
	if b == nil {
		return nil
	}
	m := map[string]any{
		"x":      b.X,
		"y":      b.Y,
		"width":  b.Width,
		"height": b.Height,
	}
	if b.Confidence != nil {
		m["confidence"] = *b.Confidence
	}
	if b.Label != "" {
		m["label"] = b.Label
	}
	return m
}

// Annotation 标注记录，管道的可信输出
// 未经校验的外部数据必须先通过 integrity 校验修复，不允许直接构造
type Annotation struct {
	ID              string           `gorm:"primaryKey" json:"id"`
	VideoID         string           `gorm:"column:video_id;index;notNull" json:"video_id"`
	DetectionID     string           `gorm:"column:detection_id" json:"detection_id"`
	FrameNumber     int              `gorm:"column:frame_number" json:"frame_number"`
	Timestamp       float64          `gorm:"column:timestamp" json:"timestamp"`
	EndTimestamp    *float64         `gorm:"column:end_timestamp" json:"end_timestamp"`
	VRUType         VRUType          `gorm:"column:vru_type" json:"vru_type"`
	BoundingBox     *BoundingBox     `gorm:"column:bounding_box;serializer:json" json:"bounding_box"`
	Occluded        bool             `gorm:"column:occluded" json:"occluded"`
	Truncated       bool             `gorm:"column:truncated" json:"truncated"`
	Difficult       bool             `gorm:"column:difficult" json:"difficult"`
	Validated       bool             `gorm:"column:validated" json:"validated"`
	Notes           string           `gorm:"column:notes" json:"notes"`
	Annotator       string           `gorm:"column:annotator" json:"annotator"`
	IntegrityStatus ValidationStatus `gorm:"column:integrity_status" json:"integrity_status"`
	CreatedAt       orm.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       orm.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (*Annotation) TableName() string {
	return "annotations"
}

// FromRepaired 从校验器修复后的映射构造标注契约
// 全有或全无：任一硬性不变量不满足则返回错误，不产生半构造对象
func FromRepaired(m map[string]any, status ValidationStatus) (*Annotation, error) {
	box, err := ParseBoundingBox(m["bounding_box"])
	if err != nil {
		return nil, fmt.Errorf("bounding box: %w", err)
	}

	a := Annotation{
		ID:              asString(m["id"]),
		VideoID:         asString(m["video_id"]),
		DetectionID:     asString(m["detection_id"]),
		FrameNumber:     asInt(m["frame_number"]),
		Timestamp:       round3(asFloat(m["timestamp"])),
		EndTimestamp:    asFloatPtr(m["end_timestamp"]),
		BoundingBox:     box,
		Occluded:        asBool(m["occluded"]),
		Truncated:       asBool(m["truncated"]),
		Difficult:       asBool(m["difficult"]),
		Validated:       asBool(m["validated"]),
		Notes:           asString(m["notes"]),
		Annotator:       asString(m["annotator"]),
		IntegrityStatus: status,
		CreatedAt:       orm.Now(),
		UpdatedAt:       orm.Now(),
	}
	if a.EndTimestamp != nil {
		v := round3(*a.EndTimestamp)
		a.EndTimestamp = &v
	}

	vru, ok := ParseVRUType(asString(m["vru_type"]))
	if !ok {
		return nil, fmt.Errorf("invalid vru_type: %v", m["vru_type"])
	}
	a.VRUType = vru

	if err := a.ValidateInvariants(); err != nil {
		return nil, err
	}
	return &a, nil
}

// ValidateInvariants 校验硬性不变量
func (a *Annotation) ValidateInvariants() error {
	if a.VideoID == "" {
		return fmt.Errorf("video_id is required")
	}
	if a.FrameNumber < 0 {
		return fmt.Errorf("frame_number must be non-negative, got %d", a.FrameNumber)
	}
	if a.Timestamp < 0 {
		return fmt.Errorf("timestamp must be non-negative, got %v", a.Timestamp)
	}
	if a.EndTimestamp != nil && *a.EndTimestamp < a.Timestamp {
		return fmt.Errorf("end_timestamp %v earlier than timestamp %v", *a.EndTimestamp, a.Timestamp)
	}
	return nil
}

// ToMap 双格式序列化
// 每个字段同时以 snake_case 与 camelCase 两种键名输出，时间戳同时给出
// 平台原生毫秒形态与 ISO-8601 字符串形态，兼容两类下游消费者
func (a *Annotation) ToMap() map[string]any {
	box := a.BoundingBox.AsMap()
	var endTs any
	if a.EndTimestamp != nil {
		endTs = *a.EndTimestamp
	}
	return map[string]any{
		"id":               a.ID,
		"video_id":         a.VideoID,
		"videoId":          a.VideoID,
		"detection_id":     a.DetectionID,
		"detectionId":      a.DetectionID,
		"frame_number":     a.FrameNumber,
		"frameNumber":      a.FrameNumber,
		"timestamp":        a.Timestamp,
		"end_timestamp":    endTs,
		"endTimestamp":     endTs,
		"vru_type":         string(a.VRUType),
		"vruType":          string(a.VRUType),
		"bounding_box":     box,
		"boundingBox":      box,
		"occluded":         a.Occluded,
		"truncated":        a.Truncated,
		"difficult":        a.Difficult,
		"validated":        a.Validated,
		"notes":            a.Notes,
		"annotator":        a.Annotator,
		"integrity_status": string(a.IntegrityStatus),
		"integrityStatus":  string(a.IntegrityStatus),
		"created_at":       a.CreatedAt,
		"createdAt":        a.CreatedAt.Format(time.RFC3339),
		"updated_at":       a.UpdatedAt,
		"updatedAt":        a.UpdatedAt.Format(time.RFC3339),
	}
}

// Flatten 展平为校验器可消费的 snake_case 映射
func (a *Annotation) Flatten() map[string]any {
	var endTs any
	if a.EndTimestamp != nil {
		endTs = *a.EndTimestamp
	}
	var box any
	if a.BoundingBox != nil {
		box = a.BoundingBox.AsMap()
	}
	return map[string]any{
		"id":            a.ID,
		"video_id":      a.VideoID,
		"detection_id":  a.DetectionID,
		"frame_number":  a.FrameNumber,
		"timestamp":     a.Timestamp,
		"end_timestamp": endTs,
		"vru_type":      string(a.VRUType),
		"bounding_box":  box,
		"occluded":      a.Occluded,
		"truncated":     a.Truncated,
		"difficult":     a.Difficult,
		"validated":     a.Validated,
		"notes":         a.Notes,
		"annotator":     a.Annotator,
	}
}

// Video 视频片段，按采集会话分组
type Video struct {
	ID         string   `gorm:"primaryKey" json:"id"`
	SessionID  string   `gorm:"column:session_id;index" json:"session_id"`
	Name       string   `gorm:"column:name" json:"name"`
	Path       string   `gorm:"column:path" json:"path"`
	DurationS  float64  `gorm:"column:duration_s" json:"duration_s"`
	SizeBytes  int64    `gorm:"column:size_bytes" json:"size_bytes"`
	Status     string   `gorm:"column:status" json:"status"`
	RecordedAt orm.Time `gorm:"column:recorded_at" json:"recorded_at"`
	CreatedAt  orm.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  orm.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (*Video) TableName() string {
	return "videos"
}

// 视频状态
const (
	VideoStatusUploaded  = "uploaded"
	VideoStatusAnalyzing = "analyzing"
	VideoStatusAnnotated = "annotated"
)

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

// toFloat 宽容数值转换，接受各类数值与数字字符串
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%g", &f); err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	f, _ := toFloat(v)
	return f
}

func asFloatPtr(v any) *float64 {
	if v == nil {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1"
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
}
