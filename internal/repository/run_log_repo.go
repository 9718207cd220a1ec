package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"catalog_sync_v1/internal/model"
)

// ==================== 仓储接口 ====================

// RunLogRepository 运行日志仓储接口
type RunLogRepository interface {
	Create(ctx context.Context, log *model.RunLog) error
	ListByRun(ctx context.Context, runID string) ([]model.RunLog, error)
	ListRecent(ctx context.Context, limit int) ([]model.RunLog, error)

	// 清理
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ==================== 仓储实现 ====================

type runLogRepo struct {
	db *gorm.DB
}

// NewRunLogRepository 创建运行日志仓储
func NewRunLogRepository(db *gorm.DB) RunLogRepository {
	return &runLogRepo{db: db}
}

func (r *runLogRepo) Create(ctx context.Context, log *model.RunLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *runLogRepo) ListByRun(ctx context.Context, runID string) ([]model.RunLog, error) {
	var logs []model.RunLog
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&logs).Error
	return logs, err
}

func (r *runLogRepo) ListRecent(ctx context.Context, limit int) ([]model.RunLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []model.RunLog
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *runLogRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&model.RunLog{})
	return result.RowsAffected, result.Error
}
