package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// 商品发布状态
const (
	ProductStatusPublish = "publish"
	ProductStatusDraft   = "draft"
)

// Product 本地目录商品
type Product struct {
	BaseModel

	// --- 身份字段 ---
	SKU  string `gorm:"size:100;uniqueIndex;not null"` // = 远端 productUId，设置后不再变化
	Slug string `gorm:"size:255;index"`

	// --- 基本信息 ---
	Title       string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	Status      string `gorm:"size:20;default:publish"`

	// --- 价格 (远端未返回完整价格前为 NULL) ---
	RegularPrice   decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	DisplayPrice   decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	WholesalePrice decimal.NullDecimal `gorm:"type:decimal(12,2)"`

	// --- 库存 ---
	ManageStock        bool   `gorm:"default:false"`
	StockQuantity      int    `gorm:"default:0"`
	InventoryUpdatedAt string `gorm:"size:64"` // 远端库存时间戳原样回写

	// --- 图片同步水位 (远端 lastUpdated，空表示从未导入) ---
	LastUpdated string `gorm:"size:64"`

	// --- 分类与图片 ---
	CategoryID      *int64         `gorm:"index"`
	FeaturedMediaID *int64         `gorm:"index"`
	GalleryMediaIDs datatypes.JSON `gorm:"type:jsonb"` // [12, 15, 18]

	// --- 属性与自定义字段 ---
	Attributes datatypes.JSON `gorm:"type:jsonb"` // {"pa_color": {...}}
	Meta       datatypes.JSON `gorm:"type:jsonb"` // {"product_origin": "Iran"}
}

func (Product) TableName() string {
	return "products"
}

// ProductAttribute 商品属性块中的一项
type ProductAttribute struct {
	Name       string `json:"name"`
	Value      string `json:"value"`
	IsVisible  bool   `json:"is_visible"`
	IsVariable bool   `json:"is_variation"`
	IsTaxonomy bool   `json:"is_taxonomy"`
}

// AttributeMap 解析属性块
func (p *Product) AttributeMap() (map[string]ProductAttribute, error) {
	attrs := make(map[string]ProductAttribute)
	if err := decodeJSON(p.Attributes, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// SetAttributeMap 写回属性块
func (p *Product) SetAttributeMap(attrs map[string]ProductAttribute) error {
	raw, err := encodeJSON(attrs)
	if err != nil {
		return err
	}
	p.Attributes = raw
	return nil
}

// MetaMap 解析自定义字段
func (p *Product) MetaMap() (map[string]string, error) {
	meta := make(map[string]string)
	if err := decodeJSON(p.Meta, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// Gallery 解析图集
func (p *Product) Gallery() ([]int64, error) {
	var ids []int64
	if err := decodeJSON(p.GalleryMediaIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// EncodeGallery 图集序列化
func EncodeGallery(ids []int64) (datatypes.JSON, error) {
	if ids == nil {
		ids = []int64{}
	}
	return encodeJSON(ids)
}

// EncodeMeta 自定义字段序列化
func EncodeMeta(meta map[string]string) (datatypes.JSON, error) {
	return encodeJSON(meta)
}
