package annotation

import (
	"context"

	"github.com/edwinttmm/Testing-sub002/internal/core/bz"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
	"gorm.io/gorm"
)

// AnnotationStorer Instantiation interface
type AnnotationStorer interface {
	Find(context.Context, *[]*Annotation, orm.Pager, ...orm.QueryOption) (int64, error)
	Get(context.Context, *Annotation, ...orm.QueryOption) error
	Add(context.Context, *Annotation) error
	Edit(context.Context, *Annotation, func(*Annotation), ...orm.QueryOption) error
	Del(context.Context, *Annotation, ...orm.QueryOption) error
	Count(context.Context, ...orm.QueryOption) (int64, error)

	Session(context.Context, ...func(*gorm.DB) error) error
}

// FindAnnotations 分页查询标注列表，支持视频、类型、状态与时间范围筛选
func (c Core) FindAnnotations(ctx context.Context, in *FindAnnotationInput) ([]*Annotation, int64, error) {
	query := orm.NewQuery(4).OrderBy("created_at DESC")

	if in.VideoID != "" {
		query.Where("video_id = ?", in.VideoID)
	}
	if in.VRUType != "" {
		query.Where("vru_type = ?", in.VRUType)
	}
	if in.Status != "" {
		query.Where("integrity_status = ?", in.Status)
	}
	if in.StartMs > 0 && in.EndMs > 0 {
		query.Where("created_at >= ? AND created_at <= ?", in.StartAt(), in.EndAt())
	}

	items := make([]*Annotation, 0, in.Limit())
	total, err := c.store.Annotation().Find(ctx, &items, in, query.Encode()...)
	if err != nil {
		return nil, 0, reason.ErrDB.Withf(`Find in[%+v] err[%s]`, in, err.Error())
	}
	return items, total, nil
}

// GetAnnotation Query a single object
func (c Core) GetAnnotation(ctx context.Context, id string) (*Annotation, error) {
	var out Annotation
	if err := c.store.Annotation().Get(ctx, &out, orm.Where("id=?", id)); err != nil {
		if orm.IsErrRecordNotFound(err) {
			return nil, reason.ErrNotFound.Withf(`Get id[%v] err[%s]`, id, err.Error())
		}
		return nil, reason.ErrDB.Withf(`Get id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// CreateAnnotation 持久化一条已通过完整性管道的标注
// 写入路径禁止绕过 integrity 校验直接调用
func (c Core) CreateAnnotation(ctx context.Context, a *Annotation) (*Annotation, error) {
	if a.ID == "" {
		a.ID = c.uni.UniqueID(bz.IDPrefixAnnotation)
	}
	if err := c.store.Annotation().Add(ctx, a); err != nil {
		return nil, reason.ErrDB.Withf(`Add err[%s]`, err.Error())
	}
	return a, nil
}

// EditAnnotation Update object information
// 只允许修改无法破坏硬性不变量的字段，检测框修改走严格解析
func (c Core) EditAnnotation(ctx context.Context, in *EditAnnotationInput, id string) (*Annotation, error) {
	var box *BoundingBox
	if in.BoundingBox != nil {
		b, err := ParseBoundingBox(in.BoundingBox)
		if err != nil {
			return nil, reason.ErrBadRequest.Withf("bounding_box: %s", err.Error())
		}
		box = b
	}
	var vru VRUType
	if in.VRUType != "" {
		v, ok := ParseVRUType(in.VRUType)
		if !ok {
			return nil, reason.ErrBadRequest.Withf("invalid vru_type[%s]", in.VRUType)
		}
		vru = v
	}

	var out Annotation
	if err := c.store.Annotation().Edit(ctx, &out, func(b *Annotation) {
		if in.Notes != nil {
			b.Notes = *in.Notes
		}
		if in.Annotator != nil {
			b.Annotator = *in.Annotator
		}
		if in.Validated != nil {
			b.Validated = *in.Validated
		}
		if in.Occluded != nil {
			b.Occluded = *in.Occluded
		}
		if in.Truncated != nil {
			b.Truncated = *in.Truncated
		}
		if in.Difficult != nil {
			b.Difficult = *in.Difficult
		}
		if vru != "" {
			b.VRUType = vru
		}
		if box != nil {
			b.BoundingBox = box
		}
		b.UpdatedAt = orm.Now()
	}, orm.Where("id=?", id)); err != nil {
		if orm.IsErrRecordNotFound(err) {
			return nil, reason.ErrNotFound.Withf(`Edit id[%v] err[%s]`, id, err.Error())
		}
		return nil, reason.ErrDB.Withf(`Edit id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// DelAnnotation Delete object
func (c Core) DelAnnotation(ctx context.Context, id string) (*Annotation, error) {
	var out Annotation
	if err := c.store.Annotation().Del(ctx, &out, orm.Where("id=?", id)); err != nil {
		return nil, reason.ErrDB.Withf(`Del id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// CountAnnotations 标注总数
func (c Core) CountAnnotations(ctx context.Context) (int64, error) {
	return c.store.Annotation().Count(ctx)
}

// statusCount 用于接收 GROUP BY 查询结果
type statusCount struct {
	Status string `gorm:"column:integrity_status"`
	Count  int64  `gorm:"column:cnt"`
}

// CountByStatus 按完整性状态统计标注数
// SELECT integrity_status, COUNT(*) as cnt FROM annotations GROUP BY integrity_status
func (c Core) CountByStatus(ctx context.Context) (map[ValidationStatus]int64, error) {
	var counts []statusCount
	err := c.store.Annotation().Session(ctx, func(db *gorm.DB) error {
		return db.Model(&Annotation{}).
			Select("integrity_status, COUNT(*) as cnt").
			Group("integrity_status").
			Find(&counts).Error
	})
	if err != nil {
		return nil, reason.ErrDB.Withf(`CountByStatus err[%s]`, err.Error())
	}

	result := make(map[ValidationStatus]int64, len(counts))
	for _, s := range counts {
		result[ValidationStatus(s.Status)] = s.Count
	}
	return result, nil
}

// CountValidated 统计已人工确认的标注数
func (c Core) CountValidated(ctx context.Context) (int64, error) {
	return c.store.Annotation().Count(ctx, orm.Where("validated = ?", true))
}

// CountMissingBoundingBox 统计缺失检测框的标注数
func (c Core) CountMissingBoundingBox(ctx context.Context) (int64, error) {
	return c.store.Annotation().Count(ctx,
		orm.Where("bounding_box IS NULL OR bounding_box = '' OR bounding_box = 'null'"))
}

// CountOrphanAnnotations 统计关联视频已不存在的孤儿标注数
func (c Core) CountOrphanAnnotations(ctx context.Context) (int64, error) {
	var total int64
	err := c.store.Annotation().Session(ctx, func(db *gorm.DB) error {
		return db.Model(&Annotation{}).
			Where("video_id NOT IN (?)", db.Session(&gorm.Session{NewDB: true}).Model(&Video{}).Select("id")).
			Count(&total).Error
	})
	if err != nil {
		return 0, reason.ErrDB.Withf(`CountOrphanAnnotations err[%s]`, err.Error())
	}
	return total, nil
}
