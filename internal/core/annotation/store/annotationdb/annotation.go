package annotationdb

import (
	"context"

	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ annotation.AnnotationStorer = Annotation{}

type Annotation struct {
	db *gorm.DB
}

func NewAnnotation(db *gorm.DB) Annotation {
	return Annotation{db: db}
}

// Find implements annotation.AnnotationStorer.
func (a Annotation) Find(ctx context.Context, items *[]*annotation.Annotation, pager orm.Pager, opts ...orm.QueryOption) (int64, error) {
	db := a.db.WithContext(ctx).Model(&annotation.Annotation{})
	for _, opt := range opts {
		db = opt(db)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return 0, err
	}
	if pager != nil {
		db = db.Offset(pager.Offset()).Limit(pager.Limit())
	}
	return total, db.Find(items).Error
}

// Get implements annotation.AnnotationStorer.
func (a Annotation) Get(ctx context.Context, item *annotation.Annotation, opts ...orm.QueryOption) error {
	db := a.db.WithContext(ctx)
	for _, opt := range opts {
		db = opt(db)
	}
	return db.First(item).Error
}

// Add implements annotation.AnnotationStorer.
func (a Annotation) Add(ctx context.Context, item *annotation.Annotation) error {
	return a.db.WithContext(ctx).Create(item).Error
}

// Edit implements annotation.AnnotationStorer.
func (a Annotation) Edit(ctx context.Context, item *annotation.Annotation, changeFn func(*annotation.Annotation), opts ...orm.QueryOption) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		db := tx
		for _, opt := range opts {
			db = opt(db)
		}
		if err := db.First(item).Error; err != nil {
			return err
		}
		changeFn(item)
		return tx.Save(item).Error
	})
}

// Del implements annotation.AnnotationStorer.
func (a Annotation) Del(ctx context.Context, item *annotation.Annotation, opts ...orm.QueryOption) error {
	db := a.db.WithContext(ctx).Clauses(clause.Returning{})
	for _, opt := range opts {
		db = opt(db)
	}
	return db.Delete(item).Error
}

// Count implements annotation.AnnotationStorer.
func (a Annotation) Count(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	db := a.db.WithContext(ctx).Model(&annotation.Annotation{})
	for _, opt := range opts {
		db = opt(db)
	}
	var total int64
	err := db.Count(&total).Error
	return total, err
}

// Session implements annotation.AnnotationStorer.
func (a Annotation) Session(ctx context.Context, changeFns ...func(*gorm.DB) error) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, fn := range changeFns {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return nil
	})
}
