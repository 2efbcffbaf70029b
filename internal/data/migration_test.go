package data

import (
	"testing"

	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/edwinttmm/Testing-sub002/internal/core/annotation/store/annotationdb"
	"github.com/glebarez/sqlite"
	"github.com/ixugo/goddd/domain/uniqueid"
	"github.com/ixugo/goddd/domain/uniqueid/store/uniqueiddb"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
)

func setupMigrationDB(t *testing.T) (*gorm.DB, uniqueid.Core) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"))
	if err != nil {
		t.Fatal(err)
	}
	annotationdb.NewDB(db).AutoMigrate(true)
	uni := uniqueid.NewCore(uniqueiddb.NewDB(db).AutoMigrate(true), 5)
	if err := db.AutoMigrate(&LegacyAnnotation{}); err != nil {
		t.Fatal(err)
	}
	return db, uni
}

func f(v float64) *float64 { return &v }

func TestMigrateAnnotationData(t *testing.T) {
	db, uni := setupMigrationDB(t)

	rows := []LegacyAnnotation{
		{
			ID: "an_legacy_1", VideoID: "vd_1", FrameIndex: 10, TimeSec: 1.5,
			Label: "pedestrian", BboxX: f(10), BboxY: f(20), BboxW: f(30), BboxH: f(40),
			Confidence: f(0.9), Validated: true,
			CreatedAt: orm.Now(), UpdatedAt: orm.Now(),
		},
		{
			// 边界框列缺失，应打 needs_repair
			ID: "an_legacy_2", VideoID: "vd_1", FrameIndex: 11, TimeSec: 2.0,
			Label:     "bike",
			CreatedAt: orm.Now(), UpdatedAt: orm.Now(),
		},
		{
			// 未知标签与非法宽度
			ID: "an_legacy_3", VideoID: "vd_1", FrameIndex: 12, TimeSec: 2.5,
			Label: "martian", BboxX: f(10), BboxY: f(20), BboxW: f(-5), BboxH: f(40),
			CreatedAt: orm.Now(), UpdatedAt: orm.Now(),
		},
		{
			// 缺失 video_id，应挂载到占位视频
			ID: "an_legacy_4", FrameIndex: 13, TimeSec: 3.0,
			Label: "cyclist", BboxX: f(1), BboxY: f(2), BboxW: f(3), BboxH: f(4),
			CreatedAt: orm.Now(), UpdatedAt: orm.Now(),
		},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	if err := MigrateAnnotationData(db, uni); err != nil {
		t.Fatal(err)
	}

	var got annotation.Annotation
	if err := db.Where("id = ?", "an_legacy_1").First(&got).Error; err != nil {
		t.Fatal(err)
	}
	if got.IntegrityStatus != annotation.StatusValid {
		t.Fatalf("status = %s", got.IntegrityStatus)
	}
	if got.BoundingBox == nil || got.BoundingBox.Width != 30 {
		t.Fatalf("bounding box = %+v", got.BoundingBox)
	}
	if !got.Validated {
		t.Fatal("validated flag lost")
	}

	got = annotation.Annotation{}
	if err := db.Where("id = ?", "an_legacy_2").First(&got).Error; err != nil {
		t.Fatal(err)
	}
	if got.IntegrityStatus != annotation.StatusNeedsRepair || got.BoundingBox != nil {
		t.Fatalf("row 2 = %+v", got)
	}
	if got.VRUType != annotation.VRUTypeCyclist {
		t.Fatalf("fuzzy label = %s", got.VRUType)
	}

	got = annotation.Annotation{}
	if err := db.Where("id = ?", "an_legacy_3").First(&got).Error; err != nil {
		t.Fatal(err)
	}
	if got.IntegrityStatus != annotation.StatusNeedsRepair {
		t.Fatalf("row 3 status = %s", got.IntegrityStatus)
	}
	if got.VRUType != "martian" {
		t.Fatalf("raw label = %s", got.VRUType)
	}

	got = annotation.Annotation{}
	if err := db.Where("id = ?", "an_legacy_4").First(&got).Error; err != nil {
		t.Fatal(err)
	}
	if got.VideoID == "" || got.VideoID == "vd_1" {
		t.Fatalf("placeholder video id = %s", got.VideoID)
	}
	var video annotation.Video
	if err := db.Where("id = ?", got.VideoID).First(&video).Error; err != nil {
		t.Fatal(err)
	}

	// 重复迁移应跳过全部已有行
	var before int64
	db.Model(&annotation.Annotation{}).Count(&before)
	if err := MigrateAnnotationData(db, uni); err != nil {
		t.Fatal(err)
	}
	var after int64
	db.Model(&annotation.Annotation{}).Count(&after)
	if before != after {
		t.Fatalf("second run created rows: %d -> %d", before, after)
	}
}

func TestMigrateAnnotationDataNoLegacyTable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"))
	if err != nil {
		t.Fatal(err)
	}
	uni := uniqueid.NewCore(uniqueiddb.NewDB(db).AutoMigrate(true), 5)
	if err := MigrateAnnotationData(db, uni); err != nil {
		t.Fatal(err)
	}
}
