package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/edwinttmm/Testing-sub002/internal/conf"
	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/edwinttmm/Testing-sub002/internal/core/integrity"
	"github.com/edwinttmm/Testing-sub002/pkg/detector"
	"github.com/gin-gonic/gin"
	"github.com/grafov/m3u8"
	"github.com/ixugo/goddd/pkg/system"
	"github.com/ixugo/goddd/pkg/web"
)

// VideoAPI 为 http 提供业务方法
type VideoAPI struct {
	annotationCore annotation.Core
	integrityCore  *integrity.Core
	engine         detector.Engine
	conf           *conf.Bootstrap
}

func NewVideoAPI(core annotation.Core, ic *integrity.Core, engine detector.Engine, conf *conf.Bootstrap) VideoAPI {
	return VideoAPI{annotationCore: core, integrityCore: ic, engine: engine, conf: conf}
}

func RegisterVideo(g gin.IRouter, api VideoAPI, handler ...gin.HandlerFunc) {
	{
		group := g.Group("/videos", handler...)
		group.GET("", web.WrapH(api.findVideos))
		group.POST("", web.WrapH(api.addVideo))
		group.GET("/:id", web.WrapH(api.getVideo))
		group.PUT("/:id", web.WrapH(api.editVideo))
		group.DELETE("/:id", web.WrapH(api.delVideo))
		group.GET("/:id/annotations", web.WrapH(api.findVideoAnnotations))
		group.POST("/:id/analyze", web.WrapH(api.analyzeVideo))
	}

	// HLS 播放列表（按采集会话生成 m3u8，供标注复核页回放）
	g.GET("/sessions/:id/playlist.m3u8", api.sessionPlaylist)

	// 静态文件服务，用于访问视频 MP4 文件
	// Gin Static 支持 HTTP Range 请求，实现边下载边播放（秒播）
	if api.conf != nil && api.conf.Server.VideoDir != "" {
		dir := filepath.Join(system.Getwd(), api.conf.Server.VideoDir)
		slog.Info("注册视频静态文件服务", "path", "/static/videos", "dir", dir)
		g.Static("/static/videos", dir)
	}
}

// findVideos 分页查询视频列表
func (a VideoAPI) findVideos(c *gin.Context, in *annotation.FindVideoInput) (any, error) {
	items, total, err := a.annotationCore.FindVideos(c.Request.Context(), in)
	return gin.H{"items": items, "total": total}, err
}

func (a VideoAPI) getVideo(c *gin.Context, _ *struct{}) (*annotation.Video, error) {
	return a.annotationCore.GetVideo(c.Request.Context(), c.Param("id"))
}

func (a VideoAPI) addVideo(c *gin.Context, in *annotation.AddVideoInput) (*annotation.Video, error) {
	return a.annotationCore.AddVideo(c.Request.Context(), in)
}

func (a VideoAPI) editVideo(c *gin.Context, in *annotation.EditVideoInput) (*annotation.Video, error) {
	return a.annotationCore.EditVideo(c.Request.Context(), in, c.Param("id"))
}

// delVideo 删除视频并连带删除其全部标注
func (a VideoAPI) delVideo(c *gin.Context, _ *struct{}) (*annotation.Video, error) {
	return a.annotationCore.DelVideo(c.Request.Context(), c.Param("id"))
}

// findVideoAnnotations 查询视频下的全部标注，读取路径经过完整性监控器
func (a VideoAPI) findVideoAnnotations(c *gin.Context, in *annotation.FindAnnotationInput) (any, error) {
	ctx := c.Request.Context()
	in.VideoID = c.Param("id")

	items, total, err := a.annotationCore.FindAnnotations(ctx, in)
	if err != nil {
		return nil, err
	}

	monitor := a.integrityCore.Monitor()
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, monitor.PrepareOutgoing(ctx, item))
	}
	return gin.H{"items": out, "total": total}, nil
}

// AnalyzeVideoInput 下发分析任务的可选参数
type AnalyzeVideoInput struct {
	DetectFps int     `json:"detect_fps"` // 抽帧检测帧率，缺省 5
	Threshold float64 `json:"threshold"`  // 检测置信度阈值，缺省 0.5
}

// analyzeVideo 将视频下发给外部检测服务分析
// 检测事件经 /detector/events 回调逐条进入完整性管道
func (a VideoAPI) analyzeVideo(c *gin.Context, in *AnalyzeVideoInput) (any, error) {
	ctx := c.Request.Context()
	video, err := a.annotationCore.GetVideo(ctx, c.Param("id"))
	if err != nil {
		return nil, err
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	baseURL := fmt.Sprintf("%s://%s", scheme, c.Request.Host)

	resp, err := a.engine.StartAnalysis(ctx, detector.StartAnalysisRequest{
		VideoID:    video.ID,
		SourceURL:  fmt.Sprintf("%s/static/videos/%s", baseURL, strings.TrimPrefix(video.Path, "/")),
		WebhookURL: baseURL + "/detector",
		DetectFps:  in.DetectFps,
		Threshold:  in.Threshold,
	})
	if err != nil {
		return nil, err
	}

	if _, err := a.annotationCore.EditVideo(ctx, &annotation.EditVideoInput{
		Status: annotation.VideoStatusAnalyzing,
	}, video.ID); err != nil {
		slog.ErrorContext(ctx, "update video status failed", "id", video.ID, "err", err)
	}
	return gin.H{"task_id": resp.Data.TaskID, "video_id": video.ID}, nil
}

// sessionPlaylist 生成 HLS m3u8 播放列表
// 将同一采集会话的全部视频片段按时间升序拼成 VOD 清单
// 路径: /sessions/:id/playlist.m3u8
func (a VideoAPI) sessionPlaylist(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1, "msg": "session id is required"})
		return
	}

	videos, err := a.annotationCore.FindSessionVideos(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 1, "msg": err.Error()})
		return
	}
	if len(videos) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"code": 1, "msg": "no videos found in session"})
		return
	}

	content := generateSessionM3U8(videos)
	if content == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 1, "msg": "generate playlist failed"})
		return
	}

	c.Header("Content-Type", "application/vnd.apple.mpegurl")
	c.Header("Cache-Control", "no-cache")
	c.String(http.StatusOK, content)
}

// generateSessionM3U8 根据视频片段列表生成 m3u8 播放列表
// 片段已按采集时间升序排列
func generateSessionM3U8(videos []*annotation.Video) string {
	count := len(videos)
	if count == 0 {
		return ""
	}

	// 创建媒体播放列表 (winSize=0 表示 VOD，不使用滑动窗口)
	pl, err := m3u8.NewMediaPlaylist(0, uint(count))
	if err != nil {
		return ""
	}
	pl.MediaType = m3u8.VOD

	// 各片段来自独立的采集文件，时间戳互不连续，
	// 必须在片段之间添加 DISCONTINUITY 让播放器重置解码器
	for i, v := range videos {
		if i > 0 {
			pl.SetDiscontinuity()
		}

		// 使用相对路径（不带域名），让浏览器根据当前页面域名访问
		uri := "/static/videos/" + strings.TrimPrefix(v.Path, "/")
		_ = pl.Append(uri, v.DurationS, "")
	}

	// 关闭播放列表，添加 #EXT-X-ENDLIST 标签
	pl.Close()
	return pl.String()
}
