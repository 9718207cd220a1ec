package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"catalog_sync_v1/internal/repository"
)

// RunLogCleanupTask 清理过期运行日志
type RunLogCleanupTask struct {
	repo      repository.RunLogRepository
	cron      *cron.Cron
	retention time.Duration
	now       func() time.Time
}

// NewRunLogCleanupTask 创建清理任务
func NewRunLogCleanupTask(repo repository.RunLogRepository, retention time.Duration) *RunLogCleanupTask {
	return &RunLogCleanupTask{
		repo:      repo,
		cron:      cron.New(cron.WithSeconds()),
		retention: retention,
		now:       time.Now,
	}
}

// Start 每日凌晨 4 点执行
func (t *RunLogCleanupTask) Start() {
	_, _ = t.cron.AddFunc("0 0 4 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := t.CleanNow(ctx); err != nil {
			log.Printf("[RunLogCleanupTask] 清理失败: %v", err)
		}
	})
	t.cron.Start()
	log.Printf("[RunLogCleanupTask] 已启动 (保留 %s)", t.retention)
}

// Stop 停止任务
func (t *RunLogCleanupTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[RunLogCleanupTask] 已停止")
}

// CleanNow 删除保留期之前的日志
func (t *RunLogCleanupTask) CleanNow(ctx context.Context) (int64, error) {
	deleted, err := t.repo.DeleteBefore(ctx, t.now().Add(-t.retention))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("[RunLogCleanupTask] 已删除 %d 条运行日志", deleted)
	}
	return deleted, nil
}
