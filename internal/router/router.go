package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"catalog_sync_v1/internal/controller"
	"catalog_sync_v1/internal/middleware"
	"catalog_sync_v1/internal/observability"
)

// Controllers 路由依赖的控制器
type Controllers struct {
	Sync    *controller.SyncController
	Product *controller.ProductController
}

// Options 路由选项
type Options struct {
	AdminToken string
	// 本地存储时暴露上传目录，为空不注册
	UploadsDir string
	// 手动导入 / 重置的冷却，0 使用默认值
	ImportCooldown time.Duration
	ResetCooldown  time.Duration
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctl Controllers, opts Options) {
	// 1. 运维
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/metrics", observability.Handler())
	if opts.UploadsDir != "" {
		r.Static("/uploads", opts.UploadsDir)
	}

	// 2. API 路由组
	api := r.Group("/api/v1")
	{
		// 本地目录 (只读)
		api.GET("/products", ctl.Product.GetProducts)
		api.GET("/products/:sku", ctl.Product.GetProduct)
		api.GET("/categories", ctl.Product.GetCategories)
		api.GET("/attributes", ctl.Product.GetAttributes)

		// 同步管理，需要管理员令牌
		throttle := middleware.NewSyncThrottle(map[middleware.SyncAction]time.Duration{
			middleware.SyncActionImport: opts.ImportCooldown,
			middleware.SyncActionReset:  opts.ResetCooldown,
		})
		sync := api.Group("/sync/catalog", middleware.AdminAuth(opts.AdminToken))
		{
			// POST /api/v1/sync/catalog
			sync.POST("", throttle.Guard(middleware.SyncActionImport), ctl.Sync.TriggerCatalog)
			sync.GET("/status", ctl.Sync.CatalogStatus)
			sync.POST("/reset", throttle.Guard(middleware.SyncActionReset), ctl.Sync.ResetCatalog)
			sync.GET("/logs", ctl.Sync.CatalogLogs)
		}
	}
}
