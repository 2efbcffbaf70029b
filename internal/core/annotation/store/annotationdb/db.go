package annotationdb

import (
	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"gorm.io/gorm"
)

var _ annotation.Storer = DB{}

type DB struct {
	db *gorm.DB
}

func NewDB(db *gorm.DB) DB {
	return DB{db: db}
}

// AutoMigrate 根据开关执行表结构迁移
func (d DB) AutoMigrate(ok bool) DB {
	if !ok {
		return d
	}
	if err := d.db.AutoMigrate(
		&annotation.Annotation{},
		&annotation.Video{},
	); err != nil {
		panic(err)
	}
	return d
}

func (d DB) Annotation() annotation.AnnotationStorer {
	return NewAnnotation(d.db)
}

func (d DB) Video() annotation.VideoStorer {
	return NewVideo(d.db)
}
