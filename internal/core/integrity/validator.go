// Package integrity 数据完整性校验与修复管道
//
// 外部产生的标注数据（模型输出、请求体、历史库记录）先经校验器检查修复，
// 再由监控器决定放行、修复或隔离，最终才能进入存储或返回给消费者。
package integrity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/google/uuid"
)

// Result 校验结果
// Valid 为真当且仅当 Errors 为空，Repaired 永远是全字段填充的映射，
// 无论输入多么破损，下游都可以无条件用它构造标注契约
type Result struct {
	Valid    bool           `json:"valid"`
	Errors   []string       `json:"errors"`
	Repaired map[string]any `json:"repaired"`
}

// Validator 无状态规则校验器，任何输入都不会引发 panic
type Validator struct {
	idFn func() string
}

type ValidatorOption func(*Validator)

// WithIDFunc 注入 ID 生成器，用于缺失 id 与 video_id 占位符
func WithIDFunc(fn func() string) ValidatorOption {
	return func(v *Validator) {
		v.idFn = fn
	}
}

func NewValidator(opts ...ValidatorOption) *Validator {
	v := Validator{idFn: uuid.NewString}
	for _, opt := range opts {
		opt(&v)
	}
	return &v
}

// Validate 校验任意来源的标注映射，聚合四类子校验的错误并输出修复映射
// 永不失败：内部一切异常都折叠为单条通用错误，原样返回输入作为兜底
func (v *Validator) Validate(raw map[string]any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Valid:    false,
				Errors:   []string{fmt.Sprintf("internal validation error: %v", r)},
				Repaired: raw,
			}
		}
	}()

	if raw == nil {
		raw = map[string]any{}
	}

	errs := make([]string, 0, 4)
	repaired := make(map[string]any, 16)

	errs = v.validateBoundingBox(raw, repaired, errs)
	errs = v.validateVRUType(raw, repaired, errs)
	errs = v.validateTimestamps(raw, repaired, errs)
	errs = v.validateRequiredFields(raw, repaired, errs)

	return Result{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Repaired: repaired,
	}
}

// validateBoundingBox 检测框校验，解析失败退化为安全缺省单位框
// JSON 字符串形态可以透明解析，但仍记为一条错误，保证该记录走修复分支
func (v *Validator) validateBoundingBox(raw, repaired map[string]any, errs []string) []string {
	value, _ := pick(raw, "bounding_box", "boundingBox")

	wasString := false
	if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
		wasString = true
	}

	box, err := annotation.ParseBoundingBox(value)
	if err != nil {
		errs = append(errs, fmt.Sprintf("Invalid bounding box: %s", err.Error()))
		box = annotation.DefaultBoundingBox()
	} else if wasString {
		errs = append(errs, "Bounding box provided as JSON string")
	}
	repaired["bounding_box"] = box.AsMap()
	return errs
}

// validateVRUType 类型校验，精确匹配优先，其次同义词模糊匹配
// 模糊命中是静默修复不记错误，完全未知才记错误并默认 pedestrian
func (v *Validator) validateVRUType(raw, repaired map[string]any, errs []string) []string {
	value, ok := pick(raw, "vru_type", "vruType")
	if !ok {
		errs = append(errs, "Missing VRU type")
		repaired["vru_type"] = string(annotation.VRUTypePedestrian)
		return errs
	}

	s := fmt.Sprint(value)
	if t, ok := annotation.ParseVRUType(s); ok {
		repaired["vru_type"] = string(t)
		return errs
	}
	if t, ok := annotation.MatchVRUType(s); ok {
		repaired["vru_type"] = string(t)
		return errs
	}

	errs = append(errs, fmt.Sprintf("Unknown VRU type: %v", value))
	repaired["vru_type"] = string(annotation.VRUTypePedestrian)
	return errs
}

// validateTimestamps 时间戳校验，负值归零、区间倒挂钳制，两项检查相互独立
func (v *Validator) validateTimestamps(raw, repaired map[string]any, errs []string) []string {
	var ts float64
	value, ok := pick(raw, "timestamp")
	if !ok {
		errs = append(errs, "Invalid timestamp: missing")
	} else if f, ok := coerceFloat(value); !ok {
		errs = append(errs, fmt.Sprintf("Invalid timestamp: %v", value))
	} else if f < 0 {
		errs = append(errs, fmt.Sprintf("Negative timestamp: %v", value))
	} else {
		ts = round3(f)
	}
	repaired["timestamp"] = ts

	endValue, ok := pick(raw, "end_timestamp")
	if !ok {
		repaired["end_timestamp"] = nil
		return errs
	}
	end, isNum := coerceFloat(endValue)
	if !isNum {
		errs = append(errs, fmt.Sprintf("Invalid end_timestamp: %v", endValue))
		repaired["end_timestamp"] = nil
		return errs
	}
	end = round3(end)
	if end < ts {
		errs = append(errs, fmt.Sprintf("end_timestamp %v earlier than timestamp %v", end, ts))
		end = ts
	}
	repaired["end_timestamp"] = end
	return errs
}

// validateRequiredFields 必填字段与标志位校验
// 缺失 video_id 生成占位符并记错误，缺失 id 静默生成，布尔标志永不报错
func (v *Validator) validateRequiredFields(raw, repaired map[string]any, errs []string) []string {
	if id, ok := pick(raw, "id"); ok {
		if s, ok := id.(string); ok && s != "" {
			repaired["id"] = s
		} else {
			repaired["id"] = v.idFn()
		}
	} else {
		repaired["id"] = v.idFn()
	}

	videoID, ok := pick(raw, "video_id", "videoId")
	if s, isStr := videoID.(string); ok && isStr && s != "" {
		repaired["video_id"] = s
	} else {
		errs = append(errs, "Missing video_id, generated placeholder")
		repaired["video_id"] = v.idFn()
	}

	var frame int
	frameValue, ok := pick(raw, "frame_number", "frameNumber")
	if !ok {
		errs = append(errs, "Invalid frame_number: missing")
	} else if n, isNum := coerceInt(frameValue); !isNum {
		errs = append(errs, fmt.Sprintf("Invalid frame_number: %v", frameValue))
	} else if n < 0 {
		errs = append(errs, fmt.Sprintf("Negative frame_number: %v", frameValue))
	} else {
		frame = n
	}
	repaired["frame_number"] = frame

	repaired["occluded"] = coerceBool(raw["occluded"])
	repaired["truncated"] = coerceBool(raw["truncated"])
	repaired["difficult"] = coerceBool(raw["difficult"])
	repaired["validated"] = coerceBool(raw["validated"])

	repaired["detection_id"] = coerceString(raw["detection_id"])
	repaired["notes"] = coerceString(raw["notes"])
	repaired["annotator"] = coerceString(raw["annotator"])
	return errs
}

// pick 按别名顺序取第一个非空键值，nil 视为缺失
func pick(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func coerceFloat(v any) (float64, bool) {
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
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case json.Number:
		f, err := n.Float64()
		return int(f), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

func coerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		ok, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && ok
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
}

func coerceString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
