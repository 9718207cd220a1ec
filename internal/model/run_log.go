package model

import "time"

// RunLog 导入运行日志
type RunLog struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	RunID     string    `gorm:"size:64;index;comment:运行ID" json:"run_id"`
	Level     string    `gorm:"size:16;default:info;comment:级别(info/error)" json:"level"`
	Message   string    `gorm:"type:text;comment:日志内容" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (RunLog) TableName() string {
	return "run_logs"
}

// ==================== 级别常量 ====================

const (
	RunLogLevelInfo  = "info"
	RunLogLevelError = "error"
)
