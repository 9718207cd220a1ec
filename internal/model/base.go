package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BaseModel struct {
	ID        int64          `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// ==================== JSON 列辅助 ====================

// decodeJSON 空列视为零值
func decodeJSON(raw datatypes.JSON, out interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// encodeJSON 序列化为 JSON 列
func encodeJSON(v interface{}) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// All 需要自动建表的模型
func All() []interface{} {
	return []interface{}{
		&Product{},
		&Category{},
		&AttributeAxis{},
		&AttributeTerm{},
		&ProductTerm{},
		&MediaAsset{},
		&SyncState{},
		&RunLog{},
	}
}
