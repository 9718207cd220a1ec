package controller

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"catalog_sync_v1/internal/model"
	"catalog_sync_v1/internal/service"
	"catalog_sync_v1/internal/task"
)

// ImportTrigger 手动触发导入，*task.TaskManager 实现
type ImportTrigger interface {
	TriggerImport(ctx context.Context) (*service.RunResult, error)
}

// SyncStatusProvider 游标与运行日志，*service.ImportService 实现
type SyncStatusProvider interface {
	Status(ctx context.Context) (*model.SyncState, error)
	ResetCursor(ctx context.Context) error
	RecentLogs(ctx context.Context, runID string, limit int) ([]model.RunLog, error)
}

// SyncController 同步控制器
type SyncController struct {
	trigger ImportTrigger
	status  SyncStatusProvider
}

// NewSyncController 创建同步控制器
func NewSyncController(trigger ImportTrigger, status SyncStatusProvider) *SyncController {
	return &SyncController{trigger: trigger, status: status}
}

// ==================== Handler 实现 ====================

// TriggerCatalog 手动导入一页
// 只返回成功/失败，详情写入运行日志
// POST /api/v1/sync/catalog
func (c *SyncController) TriggerCatalog(ctx *gin.Context) {
	result, err := c.trigger.TriggerImport(ctx.Request.Context())
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		ctx.JSON(http.StatusConflict, gin.H{"code": 409, "message": "目录同步正在进行中"})
		return
	case errors.Is(err, task.ErrTaskDisabled):
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"code": 503, "message": "目录同步任务未启用"})
		return
	case err != nil:
		log.Printf("[SyncController] 手动同步失败: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "同步失败"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "同步成功",
		"data": gin.H{
			"run_id":     result.RunID,
			"page":       result.Page,
			"next_page":  result.NextPage,
			"item_count": result.ItemCount,
		},
	})
}

// CatalogStatus 当前游标与最近一次运行
// GET /api/v1/sync/catalog/status
func (c *SyncController) CatalogStatus(ctx *gin.Context) {
	state, err := c.status.Status(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": state})
}

// ResetCatalog 游标重置到第 1 页
// POST /api/v1/sync/catalog/reset
func (c *SyncController) ResetCatalog(ctx *gin.Context) {
	if err := c.status.ResetCursor(ctx.Request.Context()); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "重置失败: " + err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "message": "游标已重置到第 1 页"})
}

// CatalogLogs 运行日志
// GET /api/v1/sync/catalog/logs?run_id=&limit=
func (c *SyncController) CatalogLogs(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 1000 {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "无效的 limit"})
		return
	}

	logs, err := c.status.RecentLogs(ctx.Request.Context(), ctx.Query("run_id"), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"code": 200, "data": logs})
}
