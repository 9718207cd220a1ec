package observability

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PagesTotal 按结果统计的分页次数 (ok / empty / fetch_error)
	PagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_pages_total",
			Help: "Catalog pages processed, by result",
		},
		[]string{"result"},
	)

	// ProductsTotal 商品对账结果 (created / updated / failed)
	ProductsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_products_total",
			Help: "Products reconciled, by action",
		},
		[]string{"action"},
	)

	// AspectFailuresTotal 子资源失败次数 (price / inventory / category / assets)
	AspectFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_aspect_failures_total",
			Help: "Per-product aspect failures, by aspect",
		},
		[]string{"aspect"},
	)

	// AssetsTotal 图片导入结果 (imported / reused / skipped / failed)
	AssetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_assets_total",
			Help: "Image imports, by result",
		},
		[]string{"result"},
	)

	// CursorPage 当前游标
	CursorPage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_sync_cursor_page",
			Help: "Persisted catalog page cursor",
		},
	)

	// RunDuration 单次运行耗时
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_sync_run_duration_seconds",
			Help:    "Duration of one page import run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)
)

var registerOnce sync.Once

// Register 注册到默认 Registry，可重复调用
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			PagesTotal,
			ProductsTotal,
			AspectFailuresTotal,
			AssetsTotal,
			CursorPage,
			RunDuration,
		)
	})
}

// Handler /metrics 路由
func Handler() gin.HandlerFunc {
	Register()
	return gin.WrapH(promhttp.Handler())
}
