package model

import "gorm.io/datatypes"

// MediaAsset 本地媒体资源
// FileName 为从远端地址推导出的规范文件名，去重依据
type MediaAsset struct {
	BaseModel

	// --- 身份 ---
	FileName string `gorm:"size:255;index;not null"`
	FilePath string `gorm:"size:512;index"` // 存储 key

	// --- 资源地址 ---
	URL       string `gorm:"size:1024"`
	SourceURL string `gorm:"size:1024"`

	// --- 元数据 ---
	MimeType   string         `gorm:"size:100"`
	Size       int64          `gorm:"default:0"`
	Width      int            `gorm:"default:0"`
	Height     int            `gorm:"default:0"`
	Renditions datatypes.JSON `gorm:"type:jsonb"` // {"thumbnail": "key", "medium": "key"}

	// --- 首次导入时所属商品 ---
	ParentProductID int64 `gorm:"index"`
}

func (MediaAsset) TableName() string {
	return "media_assets"
}

// EncodeRenditions 派生图 规格 -> 存储 key
func EncodeRenditions(keys map[string]string) (datatypes.JSON, error) {
	return encodeJSON(keys)
}

// RenditionKeys 解析派生图
func (m *MediaAsset) RenditionKeys() (map[string]string, error) {
	keys := make(map[string]string)
	if err := decodeJSON(m.Renditions, &keys); err != nil {
		return nil, err
	}
	return keys, nil
}
