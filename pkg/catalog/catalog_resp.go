package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ==========================================
// DTO: 用于接收远端目录 API 返回的原始 JSON 数据
// ==========================================

// Product 远端商品记录
// GET /products?lang&currencyISOCode&itemsPerPage&pageNumber
type Product struct {
	ProductUID    Text    `json:"productUId"`
	Name          Text    `json:"name"`
	LongDescText  Text    `json:"longdesctext"`
	Description   Text    `json:"description"`
	Origin        Text    `json:"origin"`
	Manufacturing Text    `json:"manufacturing"`
	Pile          Text    `json:"pile"`
	Warp          Text    `json:"warp"`
	Condition     Text    `json:"condition"`
	Age           Text    `json:"age"`
	Shape         Text    `json:"shape"`
	SQM           Text    `json:"sqm"`
	Length        Text    `json:"length"`
	Width         Text    `json:"width"`
	Design        Text    `json:"design"`
	Color         Text    `json:"color"`
	ColorsString  Text    `json:"colorsString"`
	KnotDensity   Text    `json:"knotDensity"`
	Points        Text    `json:"points"`
	Backing       Text    `json:"backing"`
	KG            Text    `json:"kg"`
	KnotDensityCM Text    `json:"knotDensityCM"`
	ColorCode     Text    `json:"colorCode"`
	Categories    Text    `json:"categories"`
	Inventory     Text    `json:"inventory"`
	LastUpdated   Version `json:"lastUpdated"`
}

// SKU 本地商品主键，数字 uid 按字面量处理
func (p *Product) SKU() string {
	return strings.TrimSpace(p.ProductUID.String())
}

// ProductsResp 商品分页响应
type ProductsResp struct {
	Data []Product `json:"data"`
}

// Category 远端分类详情
// GET /category?lang&categoryUid
type Category struct {
	Name        Text `json:"name"`
	DisplayName Text `json:"displayName"`
}

// Assets 商品图片清单
// GET /product-asset/{uid}?hideHtml=true
type Assets struct {
	Image        Text   `json:"image"`
	ImageGallery []Text `json:"imageGallery"`
}

// Price 商品价格
// GET /product-price/{uid}?currencyISOCode
// 字段缺失时为 nil
type Price struct {
	RecommendedRetailPrice *decimal.Decimal `json:"recommendedRetailPrice"`
	WholesalePrice         *decimal.Decimal `json:"wholesalePrice"`
}

// Complete 零售价与批发价均存在
func (p *Price) Complete() bool {
	return p != nil && p.RecommendedRetailPrice != nil && p.WholesalePrice != nil
}

// Inventory 库存
// GET /inventory/{uid}
type Inventory struct {
	Inventory                     *Text `json:"inventory"`
	InventoryLastUpdatedTimestamp Text  `json:"inventoryLastUpdatedTimestamp"`
	InventoryLastUpdated          Text  `json:"inventoryLastUpdated"`
}

// Timestamp 库存更新时间，兼容两种字段名
func (i *Inventory) Timestamp() string {
	if i == nil {
		return ""
	}
	if !i.InventoryLastUpdatedTimestamp.Empty() {
		return i.InventoryLastUpdatedTimestamp.String()
	}
	return i.InventoryLastUpdated.String()
}

// Complete 数量与时间戳均存在
func (i *Inventory) Complete() bool {
	return i != nil && i.Inventory != nil && !i.Inventory.Empty() && i.Timestamp() != ""
}
