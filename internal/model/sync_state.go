package model

import "time"

// SyncStateCatalogPage 目录分页游标
const SyncStateCatalogPage = "catalog_page"

// SyncState 持久化的同步游标
type SyncState struct {
	Key           string     `gorm:"column:sync_key;primaryKey;size:64" json:"key"`
	CurrentPage   int        `gorm:"not null;default:1" json:"current_page"`
	LastRunID     string     `gorm:"size:64" json:"last_run_id"`
	LastRunAt     *time.Time `json:"last_run_at"`
	LastPage      int        `gorm:"default:0" json:"last_page"`
	LastItemCount int        `gorm:"default:0" json:"last_item_count"`
	LastError     string     `gorm:"size:1024" json:"last_error"`
	FetchFailures int        `gorm:"default:0" json:"fetch_failures"` // 当前页连续拉取失败次数
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (SyncState) TableName() string {
	return "sync_states"
}
