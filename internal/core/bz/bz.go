// Package bz 业务公共常量
package bz

// 唯一 ID 前缀
const (
	IDPrefixVideo      = "vd"
	IDPrefixAnnotation = "an"
	IDPrefixSession    = "se"
)
