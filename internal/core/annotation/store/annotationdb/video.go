package annotationdb

import (
	"context"

	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ annotation.VideoStorer = Video{}

type Video struct {
	db *gorm.DB
}

func NewVideo(db *gorm.DB) Video {
	return Video{db: db}
}

// Find implements annotation.VideoStorer.
func (v Video) Find(ctx context.Context, items *[]*annotation.Video, pager orm.Pager, opts ...orm.QueryOption) (int64, error) {
	db := v.db.WithContext(ctx).Model(&annotation.Video{})
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

// Get implements annotation.VideoStorer.
func (v Video) Get(ctx context.Context, item *annotation.Video, opts ...orm.QueryOption) error {
	db := v.db.WithContext(ctx)
	for _, opt := range opts {
		db = opt(db)
	}
	return db.First(item).Error
}

// Add implements annotation.VideoStorer.
func (v Video) Add(ctx context.Context, item *annotation.Video) error {
	return v.db.WithContext(ctx).Create(item).Error
}

// Edit implements annotation.VideoStorer.
func (v Video) Edit(ctx context.Context, item *annotation.Video, changeFn func(*annotation.Video), opts ...orm.QueryOption) error {
	return v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
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

// Del implements annotation.VideoStorer.
func (v Video) Del(ctx context.Context, item *annotation.Video, opts ...orm.QueryOption) error {
	db := v.db.WithContext(ctx).Clauses(clause.Returning{})
	for _, opt := range opts {
		db = opt(db)
	}
	return db.Delete(item).Error
}

// Count implements annotation.VideoStorer.
func (v Video) Count(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	db := v.db.WithContext(ctx).Model(&annotation.Video{})
	for _, opt := range opts {
		db = opt(db)
	}
	var total int64
	err := db.Count(&total).Error
	return total, err
}

// Session implements annotation.VideoStorer.
func (v Video) Session(ctx context.Context, changeFns ...func(*gorm.DB) error) error {
	return v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, fn := range changeFns {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return nil
	})
}
