package api

import (
	"log/slog"
	"net/http"

	"github.com/edwinttmm/Testing-sub002/internal/conf"
	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/edwinttmm/Testing-sub002/internal/core/annotation/store/annotationdb"
	"github.com/edwinttmm/Testing-sub002/internal/core/bz"
	"github.com/edwinttmm/Testing-sub002/internal/core/integrity"
	"github.com/edwinttmm/Testing-sub002/internal/data"
	"github.com/edwinttmm/Testing-sub002/internal/rpc"
	"github.com/edwinttmm/Testing-sub002/pkg/detector"
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/ixugo/goddd/domain/uniqueid"
	"github.com/ixugo/goddd/domain/uniqueid/store/uniqueiddb"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
	"gorm.io/gorm"
)

var ProviderSet = wire.NewSet(
	wire.Struct(new(Usecase), "*"),
	NewHTTPHandler,
	NewUniqueID,
	NewAnnotationStore, NewAnnotationCore,
	NewIntegrityCore,
	NewDetectorEngine,
	NewAnnotationAPI,
	NewVideoAPI,
	NewIntegrityAPI,
	NewDetectWebhookAPI,
)

type Usecase struct {
	Conf     *conf.Bootstrap
	DB       *gorm.DB
	UniqueID uniqueid.Core

	AnnotationAPI AnnotationAPI
	VideoAPI      VideoAPI
	IntegrityAPI  IntegrityAPI
	WebhookAPI    DetectWebhookAPI
}

// NewHTTPHandler 生成Gin框架路由内容
func NewHTTPHandler(uc *Usecase) http.Handler {
	if !uc.Conf.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	g := gin.New()
	g.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"msg": "来到了无人的荒漠"})
	})
	// 如果启用了 Pprof，设置 Pprof 监控
	if cfg := uc.Conf.Server; cfg.HTTP.PProf.Enabled {
		web.SetupPProf(g, &cfg.HTTP.PProf.AccessIps)
	}

	setupRouter(g, uc)
	return g
}

// NewUniqueID 唯一 id 生成器
func NewUniqueID(db *gorm.DB) uniqueid.Core {
	return uniqueid.NewCore(uniqueiddb.NewDB(db).AutoMigrate(orm.GetEnabledAutoMigrate()), 5)
}

// NewAnnotationStore 创建标注存储层
func NewAnnotationStore(db *gorm.DB) annotation.Storer {
	return annotationdb.NewDB(db).AutoMigrate(orm.GetEnabledAutoMigrate())
}

// NewAnnotationCore 创建标注领域核心，并迁移旧的平铺边界框数据
func NewAnnotationCore(cfg *conf.Bootstrap, db *gorm.DB, store annotation.Storer, uni uniqueid.Core) annotation.Core {
	if err := data.MigrateAnnotationData(db, uni); err != nil {
		slog.Error("legacy annotation migration failed", "err", err)
	}
	core := annotation.NewCore(store, uni)

	// 启动清理协程
	go core.StartSnapshotCleanupWorker(cfg.Server.SnapshotRetainDays)

	return core
}

// NewIntegrityCore 创建完整性管道核心
// 校验器补写的 id 与业务前缀保持一致，检测服务探测器走 gRPC 健康协议
func NewIntegrityCore(cfg *conf.Bootstrap, an annotation.Core, uni uniqueid.Core) *integrity.Core {
	validator := integrity.NewValidator(integrity.WithIDFunc(func() string {
		return uni.UniqueID(bz.IDPrefixAnnotation)
	}))
	monitor := integrity.NewMonitor(
		integrity.WithValidator(validator),
		integrity.WithLogCapacity(cfg.Integrity.CorruptionLogSize),
		integrity.WithHealthyRate(cfg.Integrity.HealthySuccessRate),
	)
	return integrity.NewCore(an,
		integrity.WithConfig(cfg.Integrity),
		integrity.WithMonitor(monitor),
		integrity.WithDetectorProbe(rpc.NewDetectorClient(cfg.Detector.GRPCAddr)),
	)
}

// NewDetectorEngine 创建检测服务 HTTP 客户端
func NewDetectorEngine(cfg *conf.Bootstrap) detector.Engine {
	return detector.NewEngine().SetConfig(detector.Config{
		URL: cfg.Detector.HTTPAddr,
	})
}
