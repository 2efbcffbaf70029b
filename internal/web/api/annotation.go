package api

import (
	"net/http"

	"github.com/edwinttmm/Testing-sub002/internal/core/annotation"
	"github.com/edwinttmm/Testing-sub002/internal/core/integrity"
	"github.com/gin-gonic/gin"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
)

// AnnotationAPI 为 http 提供业务方法
type AnnotationAPI struct {
	annotationCore annotation.Core
	integrityCore  *integrity.Core
}

func NewAnnotationAPI(core annotation.Core, ic *integrity.Core) AnnotationAPI {
	return AnnotationAPI{annotationCore: core, integrityCore: ic}
}

func RegisterAnnotation(g gin.IRouter, api AnnotationAPI, handler ...gin.HandlerFunc) {
	group := g.Group("/annotations", handler...)
	group.GET("", web.WrapH(api.findAnnotations))
	group.POST("", api.createAnnotation)
	group.GET("/:id", web.WrapH(api.getAnnotation))
	group.PUT("/:id", web.WrapH(api.editAnnotation))
	group.DELETE("/:id", web.WrapH(api.delAnnotation))
}

// findAnnotations 分页查询标注列表
// 读取路径逐条经过完整性监控器，库内损坏数据以安全形态返回
func (a AnnotationAPI) findAnnotations(c *gin.Context, in *annotation.FindAnnotationInput) (any, error) {
	ctx := c.Request.Context()
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

// createAnnotation 写入路径入口，任意形态的请求体先过完整性管道
// 可修复的数据带 repaired 状态入库，修复后仍不满足不变量的直接拒绝
func (a AnnotationAPI) createAnnotation(c *gin.Context) {
	ctx := c.Request.Context()

	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		web.Fail(c, reason.ErrBadRequest.Withf("invalid body: %s", err.Error()))
		return
	}

	item, err := a.integrityCore.Monitor().ProcessIncoming(ctx, raw)
	if err != nil {
		web.Fail(c, reason.ErrBadRequest.Withf("annotation rejected: %s", err.Error()))
		return
	}

	saved, err := a.annotationCore.CreateAnnotation(ctx, item)
	if err != nil {
		web.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved.ToMap())
}

func (a AnnotationAPI) getAnnotation(c *gin.Context, _ *struct{}) (map[string]any, error) {
	ctx := c.Request.Context()
	item, err := a.annotationCore.GetAnnotation(ctx, c.Param("id"))
	if err != nil {
		return nil, err
	}
	return a.integrityCore.Monitor().PrepareOutgoing(ctx, item), nil
}

func (a AnnotationAPI) editAnnotation(c *gin.Context, in *annotation.EditAnnotationInput) (map[string]any, error) {
	ctx := c.Request.Context()
	item, err := a.annotationCore.EditAnnotation(ctx, in, c.Param("id"))
	if err != nil {
		return nil, err
	}
	return a.integrityCore.Monitor().PrepareOutgoing(ctx, item), nil
}

func (a AnnotationAPI) delAnnotation(c *gin.Context, _ *struct{}) (*annotation.Annotation, error) {
	return a.annotationCore.DelAnnotation(c.Request.Context(), c.Param("id"))
}
