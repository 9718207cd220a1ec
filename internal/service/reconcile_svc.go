package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"catalog_sync_v1/internal/event"
	"catalog_sync_v1/internal/model"
	"catalog_sync_v1/internal/observability"
	"catalog_sync_v1/internal/repository"
	"catalog_sync_v1/internal/runlog"
	"catalog_sync_v1/pkg/catalog"
	"catalog_sync_v1/pkg/utils"
)

// ErrIncompletePayload 远端返回的数据缺少必需字段
var ErrIncompletePayload = errors.New("incomplete payload")

// 对账动作
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// 子资源
const (
	AspectPrice     = "price"
	AspectInventory = "inventory"
	AspectCategory  = "category"
	AspectTaxonomy  = "taxonomy"
	AspectMeta      = "meta"
	AspectAssets    = "assets"
)

// ReconcileOptions 对账选项
type ReconcileOptions struct {
	// 更新已有商品时是否重新指定分类，默认不指定
	ReassignCategoryOnUpdate bool
	// 远端分类详情缓存时长
	CategoryCacheTTL time.Duration
}

// ReconcileResult 单个商品的对账结果
type ReconcileResult struct {
	SKU       string
	ProductID int64
	Action    string
	// 失败的子资源，不影响其他字段
	Failures []string
}

func (r *ReconcileResult) fail(aspect string) {
	r.Failures = append(r.Failures, aspect)
	observability.AspectFailuresTotal.WithLabelValues(aspect).Inc()
}

// ReconcileService 远端商品 -> 本地商品
type ReconcileService struct {
	api          CatalogAPI
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	taxonomy     *TaxonomyService
	publisher    event.Publisher
	opts         ReconcileOptions

	categoryCache *utils.TTLCache[*catalog.Category]
}

func NewReconcileService(
	api CatalogAPI,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	taxonomy *TaxonomyService,
	publisher event.Publisher,
	opts ReconcileOptions,
) *ReconcileService {
	if publisher == nil {
		publisher = event.Nop()
	}
	if opts.CategoryCacheTTL <= 0 {
		opts.CategoryCacheTTL = 10 * time.Minute
	}
	return &ReconcileService{
		api:           api,
		productRepo:   productRepo,
		categoryRepo:  categoryRepo,
		taxonomy:      taxonomy,
		publisher:     publisher,
		opts:          opts,
		categoryCache: utils.NewTTLCache[*catalog.Category](opts.CategoryCacheTTL),
	}
}

// Reconcile 按 SKU 查找本地商品，存在则更新，不存在则创建
// 价格、库存、分类、属性各自独立，单项失败只记录日志
func (s *ReconcileService) Reconcile(ctx context.Context, p catalog.Product) (*ReconcileResult, error) {
	runID, sink := runFromContext(ctx)

	sku := p.SKU()
	if sku == "" {
		return nil, fmt.Errorf("%w: productUId 为空", ErrIncompletePayload)
	}
	result := &ReconcileResult{SKU: sku}

	product, err := s.productRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("查询商品 %s 失败: %w", sku, err)
	}

	var category *catalog.Category
	if product != nil {
		// 1. 已存在: 更新标题，刷新价格与库存
		result.Action = ActionUpdated
		product.Title = p.Name.String()
		if err := s.productRepo.UpdateFields(ctx, product.ID, map[string]interface{}{
			"title": product.Title,
		}); err != nil {
			return nil, fmt.Errorf("更新商品 %s 失败: %w", sku, err)
		}
		runlog.Logf(sink, "Updated product %s (SKU: %s)", product.Title, sku)

		s.refreshPrice(ctx, product, result, sink)
		s.refreshInventory(ctx, product, result, sink)

		// 分类详情仅用于规格表，是否重新指定由选项决定
		category = s.fetchCategory(ctx, p.Categories.String(), result, sink)
		if s.opts.ReassignCategoryOnUpdate {
			s.assignCategory(ctx, product, category, result, sink)
		}
	} else {
		// 2. 不存在: 新建
		result.Action = ActionCreated
		product = &model.Product{
			SKU:         sku,
			Slug:        slug.Make(p.Name.String() + "-" + sku),
			Title:       p.Name.String(),
			Description: p.LongDescText.String(),
			Status:      model.ProductStatusPublish,
		}
		if err := s.productRepo.Create(ctx, product); err != nil {
			return nil, fmt.Errorf("创建商品 %s 失败: %w", sku, err)
		}
		runlog.Logf(sink, "Created product %s (SKU: %s)", product.Title, sku)

		s.refreshPrice(ctx, product, result, sink)
		s.refreshInventory(ctx, product, result, sink)

		category = s.fetchCategory(ctx, p.Categories.String(), result, sink)
		s.assignCategory(ctx, product, category, result, sink)
	}
	result.ProductID = product.ID

	// 3. 属性: size = 长 x 宽，其余按字段
	s.assignTerms(ctx, product, &p, result, sink)

	// 4. 自定义字段，每次覆盖
	if err := s.writeMeta(ctx, product, &p); err != nil {
		result.fail(AspectMeta)
		runlog.Logf(sink, "Failed to write meta for SKU %s: %v", sku, err)
	}

	// 5. 描述 = 正文 + 规格表
	description := ComposeDescription(p.LongDescText.String(), BuildSpecTable(&p, category))
	if err := s.productRepo.UpdateFields(ctx, product.ID, map[string]interface{}{
		"description": description,
	}); err != nil {
		return nil, fmt.Errorf("更新商品 %s 描述失败: %w", sku, err)
	}

	observability.ProductsTotal.WithLabelValues(result.Action).Inc()
	eventType := event.TypeProductUpdated
	if result.Action == ActionCreated {
		eventType = event.TypeProductCreated
	}
	event.PublishQuietly(ctx, s.publisher, event.Event{
		Type:      eventType,
		RunID:     runID,
		SKU:       sku,
		ProductID: product.ID,
		Data: map[string]interface{}{
			"title":    product.Title,
			"failures": result.Failures,
		},
	})

	return result, nil
}

// ==================== 价格 / 库存 ====================

func (s *ReconcileService) refreshPrice(ctx context.Context, product *model.Product, result *ReconcileResult, sink runlog.Sink) {
	price, err := s.api.FetchPrice(ctx, product.SKU)
	if err != nil {
		result.fail(AspectPrice)
		runlog.Logf(sink, "Failed to fetch price for SKU %s: %v", product.SKU, err)
		return
	}
	if !price.Complete() {
		result.fail(AspectPrice)
		runlog.Logf(sink, "Price data incomplete for SKU %s", product.SKU)
		return
	}

	rrp := decimal.NewNullDecimal(*price.RecommendedRetailPrice)
	wholesale := decimal.NewNullDecimal(*price.WholesalePrice)
	if err := s.productRepo.UpdateFields(ctx, product.ID, map[string]interface{}{
		"regular_price":   rrp,
		"display_price":   rrp,
		"wholesale_price": wholesale,
	}); err != nil {
		result.fail(AspectPrice)
		runlog.Logf(sink, "Failed to save price for SKU %s: %v", product.SKU, err)
		return
	}
	product.RegularPrice, product.DisplayPrice, product.WholesalePrice = rrp, rrp, wholesale
	runlog.Logf(sink, "Updated price for SKU %s: %s / %s",
		product.SKU, price.RecommendedRetailPrice.StringFixed(2), price.WholesalePrice.StringFixed(2))
}

func (s *ReconcileService) refreshInventory(ctx context.Context, product *model.Product, result *ReconcileResult, sink runlog.Sink) {
	inv, err := s.api.FetchInventory(ctx, product.SKU)
	if err != nil {
		result.fail(AspectInventory)
		runlog.Logf(sink, "Failed to fetch inventory for SKU %s: %v", product.SKU, err)
		return
	}
	if !inv.Complete() {
		result.fail(AspectInventory)
		runlog.Logf(sink, "Inventory data incomplete for SKU %s", product.SKU)
		return
	}

	qty, err := parseQuantity(inv.Inventory.String())
	if err != nil {
		result.fail(AspectInventory)
		runlog.Logf(sink, "Invalid inventory %q for SKU %s", inv.Inventory.String(), product.SKU)
		return
	}

	if err := s.productRepo.UpdateFields(ctx, product.ID, map[string]interface{}{
		"manage_stock":         true,
		"stock_quantity":       qty,
		"inventory_updated_at": inv.Timestamp(),
	}); err != nil {
		result.fail(AspectInventory)
		runlog.Logf(sink, "Failed to save inventory for SKU %s: %v", product.SKU, err)
		return
	}
	product.ManageStock, product.StockQuantity, product.InventoryUpdatedAt = true, qty, inv.Timestamp()
	runlog.Logf(sink, "Updated inventory for SKU %s: %d", product.SKU, qty)
}

// parseQuantity "3" / "3.0" / 3
func parseQuantity(raw string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// ==================== 分类 ====================

// fetchCategory 远端分类详情，失败时返回 nil
func (s *ReconcileService) fetchCategory(ctx context.Context, uid string, result *ReconcileResult, sink runlog.Sink) *catalog.Category {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil
	}
	if cached, ok := s.categoryCache.Get(uid); ok {
		return cached
	}

	category, err := s.api.FetchCategory(ctx, uid)
	if err != nil {
		result.fail(AspectCategory)
		runlog.Logf(sink, "Failed to fetch category %s: %v", uid, err)
		return nil
	}
	if category == nil || category.Name.Empty() {
		runlog.Logf(sink, "Category %s has no name", uid)
		return nil
	}
	s.categoryCache.Set(uid, category)
	return category
}

// assignCategory 按名称精确匹配本地分类，不存在时创建
func (s *ReconcileService) assignCategory(ctx context.Context, product *model.Product, category *catalog.Category, result *ReconcileResult, sink runlog.Sink) {
	if category == nil {
		return
	}
	name := category.Name.String()

	local, err := s.categoryRepo.FindByName(ctx, name)
	if err != nil {
		result.fail(AspectCategory)
		runlog.Logf(sink, "Failed to look up category %s: %v", name, err)
		return
	}
	if local == nil {
		local = &model.Category{Name: name, Description: category.DisplayName.String()}
		if err := s.categoryRepo.Create(ctx, local); err != nil {
			existing, findErr := s.categoryRepo.FindByName(ctx, name)
			if findErr != nil || existing == nil {
				result.fail(AspectCategory)
				runlog.Logf(sink, "Failed to create category %s: %v", name, err)
				return
			}
			local = existing
		} else {
			runlog.Logf(sink, "Created category %s", name)
		}
	}

	if err := s.productRepo.UpdateFields(ctx, product.ID, map[string]interface{}{
		"category_id": local.ID,
	}); err != nil {
		result.fail(AspectCategory)
		runlog.Logf(sink, "Failed to assign category %s to SKU %s: %v", name, product.SKU, err)
		return
	}
	product.CategoryID = &local.ID
}

// ==================== 属性 / 自定义字段 ====================

func (s *ReconcileService) assignTerms(ctx context.Context, product *model.Product, p *catalog.Product, result *ReconcileResult, sink runlog.Sink) {
	terms := []struct {
		axis  string
		value string
	}{
		{AxisSize, SizeValue(p.Length.String(), p.Width.String())},
		{AxisColor, p.Color.String()},
		{AxisLength, p.Length.String()},
		{AxisWidth, p.Width.String()},
	}

	for _, t := range terms {
		if strings.TrimSpace(t.value) == "" {
			continue
		}
		if err := s.taxonomy.AssignAttribute(ctx, product, t.axis, t.value); err != nil {
			result.fail(AspectTaxonomy)
			runlog.Logf(sink, "Failed to assign %s=%s to SKU %s: %v", t.axis, t.value, product.SKU, err)
		}
	}
}

// productMeta 自定义字段全集，空值同样写入以覆盖旧值
func productMeta(p *catalog.Product) map[string]string {
	return map[string]string{
		"product_origin":        p.Origin.String(),
		"product_manufacturing": p.Manufacturing.String(),
		"product_pile":          p.Pile.String(),
		"product_warp":          p.Warp.String(),
		"product_condition":     p.Condition.String(),
		"product_age":           p.Age.String(),
		"product_shape":         p.Shape.String(),
		"product_sqm":           p.SQM.String(),
		"product_length":        p.Length.String(),
		"product_width":         p.Width.String(),
		"product_design":        p.Design.String(),
		"product_color":         p.Color.String(),
		"product_colorsString":  p.ColorsString.String(),
		"product_knotDensity":   p.KnotDensity.String(),
		"product_description":   p.Description.String(),
		"product_points":        p.Points.String(),
		"product_backing":       p.Backing.String(),
		"product_kg":            p.KG.String(),
		"product_knotDensityCM": p.KnotDensityCM.String(),
		"product_colorCode":     p.ColorCode.String(),
	}
}

func (s *ReconcileService) writeMeta(ctx context.Context, product *model.Product, p *catalog.Product) error {
	meta, err := product.MetaMap()
	if err != nil {
		// 旧数据无法解析时整体覆盖
		meta = make(map[string]string)
	}
	for k, v := range productMeta(p) {
		meta[k] = v
	}

	raw, err := model.EncodeMeta(meta)
	if err != nil {
		return err
	}
	if err := s.productRepo.UpdateFields(ctx, product.ID, map[string]interface{}{"meta": raw}); err != nil {
		return err
	}
	product.Meta = raw
	return nil
}
