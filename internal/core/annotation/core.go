package annotation

import (
	"github.com/ixugo/goddd/domain/uniqueid"
)

// Storer data persistence
type Storer interface {
	Annotation() AnnotationStorer
	Video() VideoStorer
}

// Core business domain
type Core struct {
	store Storer
	uni   uniqueid.Core
}

// NewCore create business domain
func NewCore(store Storer, uni uniqueid.Core) Core {
	return Core{store: store, uni: uni}
}

// Store 暴露底层存储，供 integrity 领域复用同一持久化层
func (c Core) Store() Storer {
	return c.store
}
