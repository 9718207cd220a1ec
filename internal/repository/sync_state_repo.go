package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"catalog_sync_v1/internal/model"
)

// SyncStateRepository 同步游标仓储接口
type SyncStateRepository interface {
	// Get 读取游标，不存在时返回 CurrentPage=1 的默认值
	Get(ctx context.Context, key string) (*model.SyncState, error)
	// Save 整行写入（单次原子提交）
	Save(ctx context.Context, state *model.SyncState) error
	// ResetPage 将游标重置到第 1 页
	ResetPage(ctx context.Context, key string) error
}

type syncStateRepo struct {
	db *gorm.DB
}

// NewSyncStateRepository 创建游标仓储
func NewSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &syncStateRepo{db: db}
}

func (r *syncStateRepo) Get(ctx context.Context, key string) (*model.SyncState, error) {
	var state model.SyncState
	err := r.db.WithContext(ctx).Where("sync_key = ?", key).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.SyncState{Key: key, CurrentPage: 1}, nil
	}
	if err != nil {
		return nil, err
	}
	if state.CurrentPage < 1 {
		state.CurrentPage = 1
	}
	return &state, nil
}

func (r *syncStateRepo) Save(ctx context.Context, state *model.SyncState) error {
	state.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sync_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_page", "last_run_id", "last_run_at",
			"last_page", "last_item_count", "last_error", "fetch_failures", "updated_at",
		}),
	}).Create(state).Error
}

func (r *syncStateRepo) ResetPage(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sync_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_page", "fetch_failures", "updated_at"}),
	}).Create(&model.SyncState{Key: key, CurrentPage: 1, UpdatedAt: time.Now()}).Error
}
