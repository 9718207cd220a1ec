package model

import "time"

// AttributeAxisPrefix 分类轴 slug 前缀
const AttributeAxisPrefix = "pa_"

// Category 本地商品分类，按名称唯一
type Category struct {
	BaseModel
	Name        string `gorm:"size:255;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
}

func (Category) TableName() string {
	return "categories"
}

// AttributeAxis 分类轴 (color / length / width / size)
// 一旦声明不会删除
type AttributeAxis struct {
	BaseModel
	Slug  string `gorm:"size:100;uniqueIndex;not null"` // pa_color
	Label string `gorm:"size:100"`                      // Color
}

func (AttributeAxis) TableName() string {
	return "attribute_axes"
}

// AttributeTerm 分类轴下的取值
type AttributeTerm struct {
	BaseModel
	AxisID int64  `gorm:"uniqueIndex:idx_axis_term_value;not null"`
	Value  string `gorm:"size:255;uniqueIndex:idx_axis_term_value;not null"`
	Slug   string `gorm:"size:255;index"`
}

func (AttributeTerm) TableName() string {
	return "attribute_terms"
}

// ProductTerm 商品与取值的关联，只追加
type ProductTerm struct {
	ID        int64 `gorm:"primaryKey"`
	ProductID int64 `gorm:"uniqueIndex:idx_product_term;not null"`
	TermID    int64 `gorm:"uniqueIndex:idx_product_term;not null"`
	AxisID    int64 `gorm:"index"`
	CreatedAt time.Time
}

func (ProductTerm) TableName() string {
	return "product_terms"
}
