package api

import (
	"errors"

	"github.com/edwinttmm/Testing-sub002/internal/core/integrity"
	"github.com/gin-gonic/gin"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
)

// IntegrityAPI 为 http 提供业务方法
type IntegrityAPI struct {
	integrityCore *integrity.Core
}

func NewIntegrityAPI(core *integrity.Core) IntegrityAPI {
	return IntegrityAPI{integrityCore: core}
}

func RegisterIntegrity(g gin.IRouter, api IntegrityAPI, handler ...gin.HandlerFunc) {
	group := g.Group("/integrity", handler...)
	group.GET("/health", web.WrapH(api.getHealth))
	group.GET("/dashboard", web.WrapH(api.getDashboard))
	group.POST("/repair", web.WrapH(api.runRepair))
	group.POST("/diagnostics", web.WrapH(api.runDiagnostics))
}

// getHealth 管道健康报告，含最近损坏记录
func (a IntegrityAPI) getHealth(_ *gin.Context, _ *struct{}) (integrity.HealthReport, error) {
	return a.integrityCore.HealthReport(), nil
}

// getDashboard 运维面板快照，聚合管道、存储、检测服务与主机指标
func (a IntegrityAPI) getDashboard(c *gin.Context, _ *struct{}) (*integrity.Dashboard, error) {
	return a.integrityCore.Dashboard(c.Request.Context()), nil
}

// runRepair 全表扫描修复，同一存储上同时只允许一个修复任务
func (a IntegrityAPI) runRepair(c *gin.Context, _ *struct{}) (*integrity.RepairReport, error) {
	report, err := a.integrityCore.ScanAndRepair(c.Request.Context())
	if err != nil {
		if errors.Is(err, integrity.ErrRepairRunning) {
			return nil, reason.ErrBadRequest.Withf("repair scan already running")
		}
		return nil, reason.ErrServer.Withf("repair failed: %s", err.Error())
	}
	return report, nil
}

// runDiagnostics 六场景自诊断，在独立监控器上执行，不污染生产计数
func (a IntegrityAPI) runDiagnostics(c *gin.Context, _ *struct{}) (*integrity.DiagnosticsReport, error) {
	return a.integrityCore.RunDiagnostics(c.Request.Context()), nil
}
