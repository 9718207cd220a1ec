package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"catalog_sync_v1/internal/model"
	"catalog_sync_v1/internal/repository"
)

// ProductController 本地目录查询
type ProductController struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	attrRepo     repository.AttributeRepository
}

func NewProductController(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	attrRepo repository.AttributeRepository,
) *ProductController {
	return &ProductController{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		attrRepo:     attrRepo,
	}
}

// ProductResp 商品列表项
type ProductResp struct {
	ID              int64                             `json:"id"`
	SKU             string                            `json:"sku"`
	Slug            string                            `json:"slug"`
	Title           string                            `json:"title"`
	Status          string                            `json:"status"`
	RegularPrice    *string                           `json:"regular_price"`
	WholesalePrice  *string                           `json:"wholesale_price"`
	StockQuantity   int                               `json:"stock_quantity"`
	CategoryID      *int64                            `json:"category_id"`
	FeaturedMediaID *int64                            `json:"featured_media_id"`
	Gallery         []int64                           `json:"gallery"`
	Attributes      map[string]model.ProductAttribute `json:"attributes"`
	LastUpdated     string                            `json:"last_updated"`
}

// ==================== 查询接口 ====================

// GetProducts 获取商品列表
// GET /api/v1/products?category_id=&keyword=&page=&page_size=
func (ctrl *ProductController) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	categoryID, _ := strconv.ParseInt(c.Query("category_id"), 10, 64)

	products, total, err := ctrl.productRepo.List(c.Request.Context(), repository.ProductFilter{
		CategoryID: categoryID,
		Keyword:    c.Query("keyword"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}

	respList := make([]ProductResp, 0, len(products))
	for i := range products {
		respList = append(respList, toProductResp(&products[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"list":  respList,
			"total": total,
			"page":  page,
		},
	})
}

// GetProduct 按 SKU 查询
// GET /api/v1/products/:sku
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	product, err := ctrl.productRepo.FindBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": "商品不存在"})
		return
	}

	meta, _ := product.MetaMap()
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"data": gin.H{
			"product":     toProductResp(product),
			"description": product.Description,
			"meta":        meta,
		},
	})
}

// GetCategories 分类列表
// GET /api/v1/categories
func (ctrl *ProductController) GetCategories(c *gin.Context) {
	categories, err := ctrl.categoryRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": categories})
}

// GetAttributes 分类轴列表
// GET /api/v1/attributes
func (ctrl *ProductController) GetAttributes(c *gin.Context) {
	axes, err := ctrl.attrRepo.ListAxes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": "查询失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": axes})
}

// ==================== 工具函数 ====================

func toProductResp(p *model.Product) ProductResp {
	resp := ProductResp{
		ID:              p.ID,
		SKU:             p.SKU,
		Slug:            p.Slug,
		Title:           p.Title,
		Status:          p.Status,
		StockQuantity:   p.StockQuantity,
		CategoryID:      p.CategoryID,
		FeaturedMediaID: p.FeaturedMediaID,
		LastUpdated:     p.LastUpdated,
	}
	if p.RegularPrice.Valid {
		v := p.RegularPrice.Decimal.StringFixed(2)
		resp.RegularPrice = &v
	}
	if p.WholesalePrice.Valid {
		v := p.WholesalePrice.Decimal.StringFixed(2)
		resp.WholesalePrice = &v
	}
	resp.Gallery, _ = p.Gallery()
	resp.Attributes, _ = p.AttributeMap()
	return resp
}
