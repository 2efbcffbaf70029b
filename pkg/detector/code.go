package detector

import "fmt"

type ResCode int64

const (
	CodeSuccess      ResCode = 0
	CodeInvalidParam ResCode = 1001
	CodeServerBusy   ResCode = 1002

	CodeModelNotReady ResCode = 2001
	CodeVideoNotFound ResCode = 2002
	CodeTaskExists    ResCode = 2003
	CodeTaskNotFound  ResCode = 2004
	CodeDecodeFail    ResCode = 2005
)

var codeMsgMap = map[ResCode]string{
	CodeSuccess:       "success",
	CodeInvalidParam:  "请求参数错误",
	CodeServerBusy:    "服务繁忙",
	CodeModelNotReady: "检测模型未就绪",
	CodeVideoNotFound: "视频源不存在",
	CodeTaskExists:    "分析任务已存在",
	CodeTaskNotFound:  "分析任务不存在",
	CodeDecodeFail:    "视频解码失败",
}

// FixedHeader 检测服务响应公共头
type FixedHeader struct {
	Code ResCode `json:"code"`
	Msg  string  `json:"msg"`
}

// ErrHandle 将非成功响应码转换为错误
func (e *Engine) ErrHandle(code ResCode, msg string) error {
	if code == CodeSuccess {
		return nil
	}
	desc, ok := codeMsgMap[code]
	if !ok {
		return fmt.Errorf("detector: code %d: %s", code, msg)
	}
	if msg != "" && msg != desc {
		return fmt.Errorf("detector: %s: %s", desc, msg)
	}
	return fmt.Errorf("detector: %s", desc)
}
