package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"catalog_sync_v1/internal/config"
	"catalog_sync_v1/internal/controller"
	"catalog_sync_v1/internal/event"
	"catalog_sync_v1/internal/lock"
	"catalog_sync_v1/internal/model"
	"catalog_sync_v1/internal/observability"
	"catalog_sync_v1/internal/repository"
	"catalog_sync_v1/internal/router"
	"catalog_sync_v1/internal/runlog"
	"catalog_sync_v1/internal/service"
	"catalog_sync_v1/internal/task"
	"catalog_sync_v1/pkg/catalog"
	"catalog_sync_v1/pkg/database"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化数据库
	db, err := database.InitDB(cfg.DatabaseDSN, model.All()...)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}

	// 3. 初始化依赖
	deps := initDependencies(cfg, db)
	defer deps.close()

	// 4. 启动定时任务
	taskManager := initTasks(cfg, deps)

	// 5. 初始化路由
	r := gin.Default()
	opts := router.Options{
		AdminToken:     cfg.AdminToken,
		ImportCooldown: cfg.ImportCooldown,
		ResetCooldown:  cfg.ResetCooldown,
	}
	if cfg.Storage.Provider == "local" {
		opts.UploadsDir = cfg.Storage.BasePath
	}
	router.InitRoutes(r, deps.Controllers, opts)

	// 6. 启动服务
	startServer(cfg.ServerPort, r, taskManager)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers router.Controllers

	closers []func()
}

// Repositories 仓库集合
type Repositories struct {
	Product   repository.ProductRepository
	Category  repository.CategoryRepository
	Attribute repository.AttributeRepository
	Media     repository.MediaRepository
	SyncState repository.SyncStateRepository
	RunLog    repository.RunLogRepository
}

// Services 服务集合
type Services struct {
	Storage   *service.StorageService
	Taxonomy  *service.TaxonomyService
	Reconcile *service.ReconcileService
	Asset     *service.AssetService
	Import    *service.ImportService
}

func (d *Dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// ==================== 初始化函数 ====================

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB) *Dependencies {
	deps := &Dependencies{DB: db}
	observability.Register()

	// -------- Repo 层 --------
	repos := &Repositories{
		Product:   repository.NewProductRepository(db),
		Category:  repository.NewCategoryRepository(db),
		Attribute: repository.NewAttributeRepository(db),
		Media:     repository.NewMediaRepository(db),
		SyncState: repository.NewSyncStateRepository(db),
		RunLog:    repository.NewRunLogRepository(db),
	}
	deps.Repos = repos

	// -------- 远端客户端 --------
	creds := cfg.Catalog.ResolveCredentials()
	if !creds.Complete() {
		log.Printf("[Main] ⚠️ 未配置 %s 环境的目录接口凭据，导入将跳过", cfg.Catalog.Environment)
	}
	client := catalog.NewClient(catalog.Config{
		BaseURL:     cfg.Catalog.BaseURL,
		AssetHost:   cfg.Catalog.AssetHost,
		Lang:        cfg.Catalog.Lang,
		Currency:    cfg.Catalog.Currency,
		Credentials: catalog.Credentials{Username: creds.Username, Password: creds.Password},
		Timeout:     cfg.Catalog.Timeout,
		ProxyURL:    cfg.Catalog.ProxyURL,
	})

	// -------- 基础设施 --------
	storageSvc, err := service.NewStorageService(service.StorageConfig{
		Provider:  cfg.Storage.Provider,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		CDNDomain: cfg.Storage.CDNDomain,
		BasePath:  cfg.Storage.BasePath,
	})
	if err != nil {
		log.Fatalf("初始化存储服务失败: %v", err)
	}

	sink := initRunLogSink(cfg, deps)
	locker := initLocker(cfg, deps)
	publisher := initPublisher(cfg, deps)

	// -------- 业务服务 --------
	services := &Services{Storage: storageSvc}
	services.Taxonomy = service.NewTaxonomyService(repos.Attribute, repos.Product)
	services.Reconcile = service.NewReconcileService(
		client, repos.Product, repos.Category, services.Taxonomy, publisher,
		service.ReconcileOptions{ReassignCategoryOnUpdate: cfg.Import.ReassignCategory},
	)
	services.Asset = service.NewAssetService(client, repos.Product, repos.Media, storageSvc)
	services.Import = service.NewImportService(
		client, services.Reconcile, services.Asset,
		repos.SyncState, repos.RunLog,
		sink, locker, publisher,
		service.ImportOptions{
			PageSize:         cfg.Catalog.PageSize,
			LockTTL:          cfg.Import.LockTTL,
			MaxFetchFailures: cfg.Import.MaxFetchFailures,
		},
	)
	deps.Services = services

	return deps
}

// initRunLogSink 标准输出 + zap 结构化日志 + 按天滚动文件
func initRunLogSink(cfg *config.Config, deps *Dependencies) runlog.Sink {
	sinks := []runlog.Sink{runlog.Std("[CatalogSync]")}

	if logger, err := zap.NewProduction(); err == nil {
		sinks = append(sinks, runlog.NewZapSink(logger.Named("catalog_sync")))
		deps.closers = append(deps.closers, func() { _ = logger.Sync() })
	} else {
		log.Printf("[Main] zap 初始化失败: %v", err)
	}

	if cfg.RunLogDir != "" {
		fileSink, err := runlog.NewFileSink(cfg.RunLogDir)
		if err != nil {
			log.Printf("[Main] ⚠️ 运行日志目录不可用 (%s): %v", cfg.RunLogDir, err)
		} else {
			sinks = append(sinks, fileSink)
			deps.closers = append(deps.closers, func() { _ = fileSink.Close() })
		}
	}

	return runlog.Multi(sinks...)
}

// initLocker 配置了 Redis 时使用分布式锁，否则进程内锁
func initLocker(cfg *config.Config, deps *Dependencies) lock.Locker {
	if cfg.RedisAddr == "" {
		return lock.NewLocalLocker()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[Main] ⚠️ Redis 不可用，退回进程内锁: %v", err)
		_ = client.Close()
		return lock.NewLocalLocker()
	}

	deps.closers = append(deps.closers, func() { _ = client.Close() })
	log.Printf("[Main] 运行锁使用 Redis: %s", cfg.RedisAddr)
	return lock.NewRedisLocker(client)
}

// initPublisher 配置了 Kafka 时发布商品事件
func initPublisher(cfg *config.Config, deps *Dependencies) event.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return event.Nop()
	}
	publisher := event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	deps.closers = append(deps.closers, func() { _ = publisher.Close() })
	log.Printf("[Main] 商品事件发布到 Kafka topic: %s", cfg.KafkaTopic)
	return publisher
}

// initTasks 初始化定时任务并注册控制器
func initTasks(cfg *config.Config, deps *Dependencies) *task.TaskManager {
	taskManager := task.NewTaskManager(&task.TaskManagerDeps{
		Importer:   deps.Services.Import,
		RunLogRepo: deps.Repos.RunLog,
	}, &task.TaskManagerConfig{
		ImportEnabled: cfg.Import.Enabled,
		ImportCron:    cfg.Import.Cron,
		ImportTimeout: cfg.Import.Timeout,
		FirstRunDelay: cfg.Import.FirstRunDelay,
		LogRetention:  cfg.Import.LogRetention,
	})

	if err := taskManager.Start(); err != nil {
		log.Fatalf("启动定时任务失败: %v", err)
	}

	deps.Controllers = router.Controllers{
		Sync:    controller.NewSyncController(taskManager, deps.Services.Import),
		Product: controller.NewProductController(deps.Repos.Product, deps.Repos.Category, deps.Repos.Attribute),
	}
	return taskManager
}

// startServer 启动 HTTP 服务并处理优雅退出
func startServer(port string, r *gin.Engine, taskManager *task.TaskManager) {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("[Main] 服务启动，监听端口 %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Main] 正在关闭服务...")
	taskManager.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Main] 服务关闭出错: %v", err)
	}
	log.Println("[Main] 服务已退出")
}
