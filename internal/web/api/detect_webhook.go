package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/edwinttmm/Testing-sub002/internal/conf"
	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/edwinttmm/Testing-sub002/internal/core/integrity"
	"github.com/gin-gonic/gin"
	"github.com/ixugo/goddd/pkg/conc"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/system"
	"github.com/ixugo/goddd/pkg/web"
)

// DetectWebhookAPI 处理外部检测服务的回调请求
// 这是生产者边界：模型输出的原始数据未经信任，逐条通过完整性管道后才入库
type DetectWebhookAPI struct {
	log            *slog.Logger
	conf           *conf.Bootstrap
	tasks          *conc.Map[string, DetectTask]
	annotationCore annotation.Core
	integrityCore  *integrity.Core
}

// DetectTask 运行中的分析任务
type DetectTask struct {
	TaskID    string   `json:"task_id"`
	VideoID   string   `json:"video_id"`
	StartedAt orm.Time `json:"started_at"`
}

// NewDetectWebhookAPI 创建检测回调 API 实例
func NewDetectWebhookAPI(conf *conf.Bootstrap, log *slog.Logger, core annotation.Core, ic *integrity.Core) DetectWebhookAPI {
	return DetectWebhookAPI{
		log:            log.With("hook", "detector"),
		conf:           conf,
		tasks:          conc.NewMap[string, DetectTask](),
		annotationCore: core,
		integrityCore:  ic,
	}
}

// registerDetectWebhookAPI 注册检测回调路由，接收来自检测服务的各类事件通知
func registerDetectWebhookAPI(r gin.IRouter, api DetectWebhookAPI, handler ...gin.HandlerFunc) {
	group := r.Group("/detector", handler...)
	group.POST("/keepalive", web.WrapH(api.onKeepalive))
	group.POST("/started", web.WrapH(api.onStarted))
	group.POST("/events", web.WrapH(api.onEvents))
	group.POST("/stopped", web.WrapH(api.onStopped))
}

// onKeepalive 接收检测服务心跳，用于监控检测服务存活状态
func (a DetectWebhookAPI) onKeepalive(c *gin.Context, in *DetectKeepaliveInput) (DetectWebhookOutput, error) {
	var activeTasks int
	var uptimeSeconds int64
	if in.Stats != nil {
		activeTasks = in.Stats.ActiveTasks
		uptimeSeconds = in.Stats.UptimeSeconds
	}
	a.log.InfoContext(c.Request.Context(), "detector keepalive",
		"timestamp", in.Timestamp,
		"message", in.Message,
		"active_tasks", activeTasks,
		"uptime_seconds", uptimeSeconds,
	)
	return newDetectWebhookOutputOK(), nil
}

// onStarted 接收分析任务启动通知，登记运行中任务
func (a DetectWebhookAPI) onStarted(c *gin.Context, in *DetectStartedInput) (DetectWebhookOutput, error) {
	a.log.InfoContext(c.Request.Context(), "detector task started",
		"task_id", in.TaskID,
		"video_id", in.VideoID,
		"timestamp", in.Timestamp,
		"message", in.Message,
	)
	a.tasks.Store(in.VideoID, DetectTask{
		TaskID:    in.TaskID,
		VideoID:   in.VideoID,
		StartedAt: orm.Now(),
	})
	return newDetectWebhookOutputOK(), nil
}

// onEvents 接收检测事件，每个检测对象作为一条标注经完整性管道入库
// 修复后仍不满足不变量的检测被隔离丢弃，不阻塞同批其余检测
func (a DetectWebhookAPI) onEvents(c *gin.Context, in *DetectEventsInput) (DetectWebhookOutput, error) {
	ctx := c.Request.Context()

	a.log.InfoContext(ctx, "detection event",
		"task_id", in.TaskID,
		"video_id", in.VideoID,
		"frame_number", in.FrameNumber,
		"timestamp", in.Timestamp,
		"detection_count", len(in.Detections),
	)

	// 保存抽帧快照并获取相对路径
	var imagePath string
	if in.Snapshot != "" {
		var err error
		imagePath, err = saveDetectionSnapshot(in.VideoID, in.FrameNumber, in.Snapshot)
		if err != nil {
			a.log.ErrorContext(ctx, "save snapshot failed", "err", err)
		}
	}

	monitor := a.integrityCore.Monitor()
	var stored, quarantined int
	for i, det := range in.Detections {
		a.log.DebugContext(ctx, "detection detail",
			"index", i,
			"label", det.Label,
			"confidence", det.Confidence,
		)

		// 原始映射交给校验器处理，检测框形态由管道负责解析
		raw := map[string]any{
			"video_id":     in.VideoID,
			"detection_id": det.DetectionID,
			"frame_number": in.FrameNumber,
			"timestamp":    in.Timestamp,
			"vru_type":     det.Label,
			"bounding_box": det.Box,
			"annotator":    "detector",
		}
		if imagePath != "" {
			raw["notes"] = "snapshot: " + imagePath
		}

		item, err := monitor.ProcessIncoming(ctx, raw)
		if err != nil {
			if errors.Is(err, integrity.ErrQuarantined) {
				quarantined++
				a.log.WarnContext(ctx, "detection quarantined",
					"video_id", in.VideoID,
					"label", det.Label,
					"err", err,
				)
				continue
			}
			a.log.ErrorContext(ctx, "process detection failed", "err", err)
			continue
		}

		if _, err := a.annotationCore.CreateAnnotation(ctx, item); err != nil {
			a.log.ErrorContext(ctx, "save annotation failed",
				"label", det.Label,
				"err", err,
			)
			continue
		}
		stored++
	}

	a.log.InfoContext(ctx, "detections stored",
		"video_id", in.VideoID,
		"stored", stored,
		"quarantined", quarantined,
	)
	return newDetectWebhookOutputOK(), nil
}

// onStopped 接收分析任务停止通知，任务正常完成时视频进入已标注状态
func (a DetectWebhookAPI) onStopped(c *gin.Context, in *DetectStoppedInput) (DetectWebhookOutput, error) {
	ctx := c.Request.Context()
	a.log.InfoContext(ctx, "detector task stopped",
		"task_id", in.TaskID,
		"video_id", in.VideoID,
		"reason", in.Reason,
		"message", in.Message,
	)
	a.tasks.Delete(in.VideoID)

	if in.Reason == "completed" {
		if _, err := a.annotationCore.EditVideo(ctx, &annotation.EditVideoInput{
			Status: annotation.VideoStatusAnnotated,
		}, in.VideoID); err != nil {
			a.log.ErrorContext(ctx, "update video status failed", "video_id", in.VideoID, "err", err)
		}
	}
	return newDetectWebhookOutputOK(), nil
}

// saveDetectionSnapshot 将 Base64 编码的抽帧快照保存到 configs/snapshots/{videoID}/ 目录
// 返回相对路径: videoID/帧号_随机6位.jpg
func saveDetectionSnapshot(videoID string, frameNumber int, snapshotB64 string) (string, error) {
	snapshotsDir := filepath.Join(system.Getwd(), "configs", "snapshots")

	data, err := base64.StdEncoding.DecodeString(snapshotB64)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}

	randomSuffix := fmt.Sprintf("%06d", rand.IntN(1000000))
	filename := fmt.Sprintf("%08d_%s.jpg", frameNumber, randomSuffix)

	relativePath := filepath.Join(videoID, filename)
	fullPath := filepath.Join(snapshotsDir, relativePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create snapshots dir: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	slog.Info("detection snapshot saved", "path", fullPath, "size", len(data))
	return relativePath, nil
}
