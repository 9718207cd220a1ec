package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog_sync_v1/internal/event"
	"catalog_sync_v1/pkg/catalog"
)

func TestReconcileService_CreatesProduct(t *testing.T) {
	f := newSyncFixture(t, fixtureOptions{})
	rec := f.remote.addRug(1, "R-100", "Persian Rug", 100)
	ctx := WithRun(t.Context(), "run-1", f.sink)

	res, err := f.reconciler.Reconcile(ctx, decodeRecord(t, rec))
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, res.Action)
	assert.Empty(t, res.Failures)

	product := f.product(t, "R-100")

	t.Run("基本字段", func(t *testing.T) {
		assert.Equal(t, "Persian Rug", product.Title)
		assert.Equal(t, "persian-rug-r-100", product.Slug)
		assert.Equal(t, "publish", product.Status)
		assert.Equal(t, res.ProductID, product.ID)
	})

	t.Run("价格与库存", func(t *testing.T) {
		require.True(t, product.RegularPrice.Valid)
		assert.True(t, product.RegularPrice.Decimal.Equal(decimal.RequireFromString("199.5")))
		assert.True(t, product.DisplayPrice.Decimal.Equal(decimal.RequireFromString("199.5")))
		assert.True(t, product.WholesalePrice.Decimal.Equal(decimal.NewFromInt(99)))
		assert.True(t, product.ManageStock)
		assert.Equal(t, 3, product.StockQuantity)
		assert.Equal(t, "2024-05-01 10:00:00", product.InventoryUpdatedAt)
	})

	t.Run("分类按名称创建", func(t *testing.T) {
		require.NotNil(t, product.CategoryID)
		category, err := f.categoryRepo.FindByName(t.Context(), "Kilim")
		require.NoError(t, err)
		require.NotNil(t, category)
		assert.Equal(t, *product.CategoryID, category.ID)
		assert.Equal(t, "Kilim Rugs", category.Description)
	})

	t.Run("属性", func(t *testing.T) {
		attrs, err := product.AttributeMap()
		require.NoError(t, err)
		assert.Equal(t, "200 x 300", attrs["pa_size"].Value)
		assert.Equal(t, "Red", attrs["pa_color"].Value)
		assert.Equal(t, "200", attrs["pa_length"].Value)
		assert.Equal(t, "300", attrs["pa_width"].Value)
	})

	t.Run("自定义字段", func(t *testing.T) {
		meta, err := product.MetaMap()
		require.NoError(t, err)
		assert.Equal(t, "Iran", meta["product_origin"])
		assert.Equal(t, "12.5", meta["product_kg"])
		assert.Equal(t, "6", meta["product_sqm"])
		assert.Equal(t, "Wool rug", meta["product_description"])
		assert.Contains(t, meta, "product_knotDensity")
		assert.Len(t, meta, 20)
	})

	t.Run("描述附带规格表", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(product.Description, "Hand knotted wool rug."))
		assert.Contains(t, product.Description, "<tr><td>Origin</td><td>Iran</td></tr>")
		assert.Contains(t, product.Description, "<tr><td>Category</td><td>Kilim</td></tr>")
		assert.NotContains(t, product.Description, "<td>Points</td>")
	})

	t.Run("发布创建事件", func(t *testing.T) {
		require.Len(t, f.events.Events, 1)
		assert.Equal(t, event.TypeProductCreated, f.events.Events[0].Type)
		assert.Equal(t, "R-100", f.events.Events[0].SKU)
		assert.Equal(t, "run-1", f.events.Events[0].RunID)
	})
}

func TestReconcileService_UpdatesProduct(t *testing.T) {
	tests := []struct {
		name         string
		reassign     bool
		wantCategory string
	}{
		{"默认不重新指定分类", false, "Kilim"},
		{"开启后重新指定分类", true, "Modern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSyncFixture(t, fixtureOptions{
				reconcile: ReconcileOptions{ReassignCategoryOnUpdate: tt.reassign},
			})
			rec := f.remote.addRug(1, "R-1", "Old Name", 1)
			ctx := WithRun(t.Context(), "run-1", f.sink)

			_, err := f.reconciler.Reconcile(ctx, decodeRecord(t, rec))
			require.NoError(t, err)
			created := f.product(t, "R-1")

			rec["name"] = "New Name"
			rec["categories"] = "cat-modern"
			f.remote.categories["cat-modern"] = map[string]interface{}{"name": "Modern", "displayName": "Modern Rugs"}

			res, err := f.reconciler.Reconcile(ctx, decodeRecord(t, rec))
			require.NoError(t, err)
			assert.Equal(t, ActionUpdated, res.Action)

			updated := f.product(t, "R-1")
			assert.Equal(t, created.ID, updated.ID)
			assert.Equal(t, "New Name", updated.Title)
			assert.Equal(t, created.Slug, updated.Slug, "slug 只在创建时生成")

			require.NotNil(t, updated.CategoryID)
			category, err := f.categoryRepo.FindByName(t.Context(), tt.wantCategory)
			require.NoError(t, err)
			require.NotNil(t, category)
			assert.Equal(t, category.ID, *updated.CategoryID)

			// 规格表始终使用最新分类，且只有一份
			assert.Contains(t, updated.Description, "<tr><td>Category</td><td>Modern</td></tr>")
			assert.Equal(t, 1, strings.Count(updated.Description, SpecTableStart))

			total, err := f.productRepo.Count(t.Context())
			require.NoError(t, err)
			assert.EqualValues(t, 1, total)
		})
	}
}

func TestReconcileService_PartialFailureIsolation(t *testing.T) {
	f := newSyncFixture(t, fixtureOptions{})
	recA := f.remote.addRug(1, "R-A", "Rug A", 1)
	recB := f.remote.addRug(1, "R-B", "Rug B", 1)
	f.remote.fail["product-price/R-A"] = true
	ctx := WithRun(t.Context(), "run-1", f.sink)

	resA, err := f.reconciler.Reconcile(ctx, decodeRecord(t, recA))
	require.NoError(t, err)
	assert.Equal(t, []string{AspectPrice}, resA.Failures)

	resB, err := f.reconciler.Reconcile(ctx, decodeRecord(t, recB))
	require.NoError(t, err)
	assert.Empty(t, resB.Failures)

	a := f.product(t, "R-A")
	assert.False(t, a.RegularPrice.Valid, "价格失败时不写入")
	assert.True(t, a.ManageStock)
	assert.Equal(t, 3, a.StockQuantity)
	assert.NotNil(t, a.CategoryID)
	attrs, err := a.AttributeMap()
	require.NoError(t, err)
	assert.Equal(t, "Red", attrs["pa_color"].Value)

	b := f.product(t, "R-B")
	assert.True(t, b.RegularPrice.Valid)

	assert.True(t, f.sink.contains("Failed to fetch price for SKU R-A"))
}

func TestReconcileService_IncompletePayloads(t *testing.T) {
	f := newSyncFixture(t, fixtureOptions{})
	rec := f.remote.addRug(1, "R-2", "Rug", 1)
	f.remote.prices["R-2"] = map[string]interface{}{"recommendedRetailPrice": 10}
	f.remote.inventory["R-2"] = map[string]interface{}{"inventory": 2}
	ctx := WithRun(t.Context(), "run-1", f.sink)

	res, err := f.reconciler.Reconcile(ctx, decodeRecord(t, rec))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{AspectPrice, AspectInventory}, res.Failures)

	product := f.product(t, "R-2")
	assert.False(t, product.RegularPrice.Valid)
	assert.False(t, product.ManageStock)
	assert.True(t, f.sink.contains("Price data incomplete for SKU R-2"))
	assert.True(t, f.sink.contains("Inventory data incomplete for SKU R-2"))

	t.Run("兼容 inventoryLastUpdated 字段", func(t *testing.T) {
		f.remote.inventory["R-2"] = map[string]interface{}{"inventory": "5.0", "inventoryLastUpdated": "1714557600"}

		_, err := f.reconciler.Reconcile(ctx, decodeRecord(t, rec))
		require.NoError(t, err)

		product := f.product(t, "R-2")
		assert.True(t, product.ManageStock)
		assert.Equal(t, 5, product.StockQuantity)
		assert.Equal(t, "1714557600", product.InventoryUpdatedAt)
	})
}

func TestReconcileService_CategoryFailures(t *testing.T) {
	f := newSyncFixture(t, fixtureOptions{})
	rec := f.remote.addRug(1, "R-3", "Rug", 1)
	rec["categories"] = "cat-missing"
	ctx := WithRun(t.Context(), "run-1", f.sink)

	res, err := f.reconciler.Reconcile(ctx, decodeRecord(t, rec))
	require.NoError(t, err)
	assert.Equal(t, []string{AspectCategory}, res.Failures)

	product := f.product(t, "R-3")
	assert.Nil(t, product.CategoryID)
	assert.NotContains(t, product.Description, "<td>Category</td>")
	assert.True(t, product.RegularPrice.Valid)
}

func TestReconcileService_CategoryCache(t *testing.T) {
	f := newSyncFixture(t, fixtureOptions{})
	recA := f.remote.addRug(1, "R-A", "Rug A", 1)
	recB := f.remote.addRug(1, "R-B", "Rug B", 1)
	ctx := WithRun(t.Context(), "run-1", f.sink)

	_, err := f.reconciler.Reconcile(ctx, decodeRecord(t, recA))
	require.NoError(t, err)
	_, err = f.reconciler.Reconcile(ctx, decodeRecord(t, recB))
	require.NoError(t, err)

	assert.Equal(t, 1, f.remote.hitCount("category"))

	categories, err := f.categoryRepo.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestReconcileService_RejectsMissingUID(t *testing.T) {
	f := newSyncFixture(t, fixtureOptions{})

	_, err := f.reconciler.Reconcile(t.Context(), catalog.Product{Name: "No UID"})
	assert.True(t, errors.Is(err, ErrIncompletePayload))
	assert.Equal(t, 0, f.remote.hitCount("product-price"))
}
