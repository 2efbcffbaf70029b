package annotationdb

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func generateMockDB() (*gorm.DB, sqlmock.Sqlmock, error) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		return nil, nil, err
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{})
	if err != nil {
		return nil, nil, err
	}
	return db, mock, nil
}

type testPager struct{}

func (testPager) Offset() int { return 0 }
func (testPager) Limit() int  { return 10 }

func TestAnnotationGet(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	annDB := NewAnnotation(db)

	mock.ExpectQuery(`SELECT \* FROM "annotations" WHERE id=\$1 (.+) LIMIT \$2`).
		WithArgs("an_1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "video_id", "vru_type", "integrity_status"}).
			AddRow("an_1", "vd_1", "pedestrian", "valid"))

	var out annotation.Annotation
	if err := annDB.Get(context.Background(), &out, orm.Where("id=?", "an_1")); err != nil {
		t.Fatal(err)
	}
	if out.VideoID != "vd_1" || out.VRUType != annotation.VRUTypePedestrian {
		t.Fatalf("unexpected annotation %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}

func TestAnnotationFind(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	annDB := NewAnnotation(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "annotations" WHERE video_id = \$1`).
		WithArgs("vd_1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT \* FROM "annotations" WHERE video_id = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("vd_1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "video_id"}).
			AddRow("an_1", "vd_1").
			AddRow("an_2", "vd_1"))

	var items []*annotation.Annotation
	total, err := annDB.Find(context.Background(), &items, testPager{},
		orm.Where("video_id = ?", "vd_1"), orm.OrderBy("created_at DESC"))
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total = %d, items = %d", total, len(items))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}

func TestVideoGet(t *testing.T) {
	db, mock, err := generateMockDB()
	if err != nil {
		t.Fatal(err)
	}
	videoDB := NewVideo(db)

	mock.ExpectQuery(`SELECT \* FROM "videos" WHERE id=\$1 (.+) LIMIT \$2`).
		WithArgs("vd_1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "status"}).
			AddRow("vd_1", "se_1", "uploaded"))

	var out annotation.Video
	if err := videoDB.Get(context.Background(), &out, orm.Where("id=?", "vd_1")); err != nil {
		t.Fatal(err)
	}
	if out.SessionID != "se_1" {
		t.Fatalf("unexpected video %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}
