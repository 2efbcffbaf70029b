package data

import (
	"context"
	"log/slog"

	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/edwinttmm/Testing-sub002/internal/core/bz"
	"github.com/ixugo/goddd/domain/uniqueid"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
)

// LegacyAnnotation 旧的平铺标注模型（用于迁移）
// 旧表用四个独立列存边界框，新表统一为 JSON 列
type LegacyAnnotation struct {
	ID         string   `gorm:"primaryKey"`
	VideoID    string   `gorm:"column:video_id"`
	FrameIndex int      `gorm:"column:frame_index"`
	TimeSec    float64  `gorm:"column:time_sec"`
	EndTimeSec *float64 `gorm:"column:end_time_sec"`
	Label      string   `gorm:"column:label"`
	BboxX      *float64 `gorm:"column:bbox_x"`
	BboxY      *float64 `gorm:"column:bbox_y"`
	BboxW      *float64 `gorm:"column:bbox_w"`
	BboxH      *float64 `gorm:"column:bbox_h"`
	Confidence *float64 `gorm:"column:confidence"`
	Occluded   bool     `gorm:"column:occluded"`
	Validated  bool     `gorm:"column:validated"`
	CreatedAt  orm.Time `gorm:"column:created_at"`
	UpdatedAt  orm.Time `gorm:"column:updated_at"`
}

func (*LegacyAnnotation) TableName() string {
	return "legacy_annotations"
}

// MigrateAnnotationData 迁移 legacy_annotations 平铺数据到 annotations 表
// 无法转换的行打上 needs_repair 状态，交给修复扫描处理
// 迁移完成后，旧表数据保留，建议手动确认后删除
func MigrateAnnotationData(db *gorm.DB, uni uniqueid.Core) error {
	ctx := context.Background()

	if !db.Migrator().HasTable("legacy_annotations") {
		slog.Info("没有需要迁移的旧表数据")
		return nil
	}

	var rows []LegacyAnnotation
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		slog.Error("查询 legacy_annotations 失败", "err", err)
		return err
	}
	if len(rows) == 0 {
		slog.Info("legacy_annotations 为空，无需迁移")
		return nil
	}

	// 占位视频，挂载缺失 video_id 的旧数据
	var placeholder *annotation.Video
	ensurePlaceholder := func() (string, error) {
		if placeholder != nil {
			return placeholder.ID, nil
		}
		v := annotation.Video{
			ID:         uni.UniqueID(bz.IDPrefixVideo),
			Name:       "迁移占位视频",
			Status:     annotation.VideoStatusUploaded,
			RecordedAt: orm.Now(),
			CreatedAt:  orm.Now(),
			UpdatedAt:  orm.Now(),
		}
		if err := db.WithContext(ctx).FirstOrCreate(&v, "name = ?", v.Name).Error; err != nil {
			slog.Error("创建迁移占位视频失败", "err", err)
			return "", err
		}
		placeholder = &v
		slog.Info("迁移占位视频已创建/存在", "id", v.ID)
		return v.ID, nil
	}

	migratedCount := 0
	flaggedCount := 0
	for _, la := range rows {
		id := la.ID
		if id == "" {
			id = uni.UniqueID(bz.IDPrefixAnnotation)
		}

		// 检查是否已迁移过
		var existing annotation.Annotation
		if err := db.WithContext(ctx).Where("id = ?", id).First(&existing).Error; err == nil {
			slog.Debug("标注已存在，跳过", "id", id)
			continue
		}

		status := annotation.StatusValid

		videoID := la.VideoID
		if videoID == "" {
			vid, err := ensurePlaceholder()
			if err != nil {
				return err
			}
			videoID = vid
			status = annotation.StatusNeedsRepair
		}

		var box *annotation.BoundingBox
		if la.BboxX != nil && la.BboxY != nil && la.BboxW != nil && la.BboxH != nil {
			b, err := annotation.NewBoundingBox(*la.BboxX, *la.BboxY, *la.BboxW, *la.BboxH, la.Confidence, "")
			if err != nil {
				slog.Warn("旧边界框无法转换", "id", id, "err", err)
				status = annotation.StatusNeedsRepair
			} else {
				box = b
			}
		} else {
			status = annotation.StatusNeedsRepair
		}

		vru, ok := annotation.ParseVRUType(la.Label)
		if !ok {
			if matched, matchOK := annotation.MatchVRUType(la.Label); matchOK {
				vru = matched
			} else {
				// 保留原始标签，由修复扫描归一化
				vru = annotation.VRUType(la.Label)
				status = annotation.StatusNeedsRepair
			}
		}

		row := annotation.Annotation{
			ID:              id,
			VideoID:         videoID,
			FrameNumber:     la.FrameIndex,
			Timestamp:       la.TimeSec,
			EndTimestamp:    la.EndTimeSec,
			VRUType:         vru,
			BoundingBox:     box,
			Occluded:        la.Occluded,
			Validated:       la.Validated,
			IntegrityStatus: status,
			CreatedAt:       la.CreatedAt,
			UpdatedAt:       orm.Now(),
		}
		if err := db.WithContext(ctx).Create(&row).Error; err != nil {
			slog.Error("迁移标注失败", "err", err, "id", id)
			continue
		}
		migratedCount++
		if status == annotation.StatusNeedsRepair {
			flaggedCount++
		}
	}
	slog.Info("标注数据迁移完成", "total", len(rows), "migrated", migratedCount, "needs_repair", flaggedCount)

	slog.Info("数据迁移全部完成！旧表数据已保留，请手动确认后删除。")
	return nil
}
