package annotation

import (
	"context"
	"log/slog"

	"github.com/edwinttmm/Testing-sub002/internal/core/bz"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

// VideoStorer Instantiation interface
type VideoStorer interface {
	Find(context.Context, *[]*Video, orm.Pager, ...orm.QueryOption) (int64, error)
	Get(context.Context, *Video, ...orm.QueryOption) error
	Add(context.Context, *Video) error
	Edit(context.Context, *Video, func(*Video), ...orm.QueryOption) error
	Del(context.Context, *Video, ...orm.QueryOption) error
	Count(context.Context, ...orm.QueryOption) (int64, error)

	Session(context.Context, ...func(*gorm.DB) error) error
}

// FindVideos 分页查询视频列表
func (c Core) FindVideos(ctx context.Context, in *FindVideoInput) ([]*Video, int64, error) {
	query := orm.NewQuery(2).OrderBy("recorded_at DESC")

	if in.SessionID != "" {
		query.Where("session_id = ?", in.SessionID)
	}
	if in.Status != "" {
		query.Where("status = ?", in.Status)
	}

	items := make([]*Video, 0, in.Limit())
	total, err := c.store.Video().Find(ctx, &items, in, query.Encode()...)
	if err != nil {
		return nil, 0, reason.ErrDB.Withf(`Find in[%+v] err[%s]`, in, err.Error())
	}
	return items, total, nil
}

// GetVideo Query a single object
func (c Core) GetVideo(ctx context.Context, id string) (*Video, error) {
	var out Video
	if err := c.store.Video().Get(ctx, &out, orm.Where("id=?", id)); err != nil {
		if orm.IsErrRecordNotFound(err) {
			return nil, reason.ErrNotFound.Withf(`Get id[%v] err[%s]`, id, err.Error())
		}
		return nil, reason.ErrDB.Withf(`Get id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// AddVideo Insert into database
func (c Core) AddVideo(ctx context.Context, in *AddVideoInput) (*Video, error) {
	var out Video
	if err := copier.Copy(&out, in); err != nil {
		slog.ErrorContext(ctx, "Copy", "err", err)
	}
	out.ID = c.uni.UniqueID(bz.IDPrefixVideo)
	if out.Status == "" {
		out.Status = VideoStatusUploaded
	}
	if in.RecordedAt != nil {
		out.RecordedAt = *in.RecordedAt
	} else {
		out.RecordedAt = orm.Now()
	}

	if err := c.store.Video().Add(ctx, &out); err != nil {
		return nil, reason.ErrDB.Withf(`Add err[%s]`, err.Error())
	}
	return &out, nil
}

// EditVideo Update object information
func (c Core) EditVideo(ctx context.Context, in *EditVideoInput, id string) (*Video, error) {
	var out Video
	if err := c.store.Video().Edit(ctx, &out, func(b *Video) {
		if in.Name != "" {
			b.Name = in.Name
		}
		if in.Status != "" {
			b.Status = in.Status
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

// DelVideo 删除视频并连带删除其全部标注，同一事务内完成
func (c Core) DelVideo(ctx context.Context, id string) (*Video, error) {
	out := Video{ID: id}
	if err := c.store.Video().Get(ctx, &out, orm.Where("id=?", id)); err != nil {
		if orm.IsErrRecordNotFound(err) {
			return nil, reason.ErrNotFound.Withf(`Get id[%v] err[%s]`, id, err.Error())
		}
		return nil, reason.ErrDB.Withf(`Get id[%v] err[%s]`, id, err.Error())
	}

	err := c.store.Video().Session(ctx, func(db *gorm.DB) error {
		if err := db.Where("video_id = ?", id).Delete(&Annotation{}).Error; err != nil {
			return err
		}
		return db.Where("id = ?", id).Delete(&Video{}).Error
	})
	if err != nil {
		return nil, reason.ErrDB.Withf(`Del id[%v] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// FindSessionVideos 按采集时间升序返回会话内全部片段，用于生成回放清单
func (c Core) FindSessionVideos(ctx context.Context, sessionID string) ([]*Video, error) {
	if sessionID == "" {
		return nil, reason.ErrBadRequest.Withf("session_id is required")
	}

	query := orm.NewQuery(1).OrderBy("recorded_at ASC")
	query.Where("session_id = ?", sessionID)

	var videos []*Video
	// 使用默认分页器避免 nil pointer
	pager := &defaultPager{limit: 1000}
	_, err := c.store.Video().Find(ctx, &videos, pager, query.Encode()...)
	if err != nil {
		return nil, reason.ErrDB.Withf(`FindSessionVideos err[%s]`, err.Error())
	}
	return videos, nil
}

// CountVideos 视频总数
func (c Core) CountVideos(ctx context.Context) (int64, error) {
	return c.store.Video().Count(ctx)
}

// defaultPager 内部使用的分页器，避免传入 nil 导致空指针
type defaultPager struct {
	limit int
}

func (p *defaultPager) Offset() int { return 0 }
func (p *defaultPager) Limit() int  { return p.limit }
