package task

import (
	"context"
	"log"
	"time"

	"catalog_sync_v1/internal/repository"
	"catalog_sync_v1/internal/service"
)

// ==================== TaskManager 同步任务管理器 ====================

// TaskManager 统一管理目录导入与日志清理任务
type TaskManager struct {
	importTask  *ImportTask
	cleanupTask *RunLogCleanupTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Importer   PageRunner
	RunLogRepo repository.RunLogRepository
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	// 目录导入
	ImportEnabled bool
	ImportCron    string
	ImportTimeout time.Duration
	FirstRunDelay time.Duration

	// 运行日志保留时长，0 表示不清理
	LogRetention time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		ImportEnabled: true,
		ImportCron:    "0 0 * * * *",
		ImportTimeout: 20 * time.Minute,
		FirstRunDelay: 30 * time.Second,
		LogRetention:  30 * 24 * time.Hour,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}

	if cfg.ImportEnabled && deps.Importer != nil {
		tm.importTask = NewImportTask(deps.Importer, cfg.ImportCron, cfg.ImportTimeout, cfg.FirstRunDelay)
	}

	if cfg.LogRetention > 0 && deps.RunLogRepo != nil {
		tm.cleanupTask = NewRunLogCleanupTask(deps.RunLogRepo, cfg.LogRetention)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	log.Println("[TaskManager] 正在启动同步任务...")

	if tm.importTask != nil {
		if err := tm.importTask.Start(); err != nil {
			return err
		}
	}
	if tm.cleanupTask != nil {
		tm.cleanupTask.Start()
	}

	log.Println("[TaskManager] 同步任务已全部启动")
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	log.Println("[TaskManager] 正在停止同步任务...")

	if tm.importTask != nil {
		tm.importTask.Stop()
	}
	if tm.cleanupTask != nil {
		tm.cleanupTask.Stop()
	}

	log.Println("[TaskManager] 同步任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerImport 立即导入一页
func (tm *TaskManager) TriggerImport(ctx context.Context) (*service.RunResult, error) {
	if tm.importTask == nil {
		return nil, ErrTaskDisabled
	}
	return tm.importTask.RunNow(ctx)
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"import":  tm.importTask != nil,
		"cleanup": tm.cleanupTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
