package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog_sync_v1/internal/model"
	"catalog_sync_v1/internal/repository"
)

func newTaxonomyForTest(t *testing.T) (*TaxonomyService, repository.AttributeRepository, repository.ProductRepository) {
	t.Helper()
	db := setupServiceTestDB(t)
	attrRepo := repository.NewAttributeRepository(db)
	productRepo := repository.NewProductRepository(db)
	return NewTaxonomyService(attrRepo, productRepo), attrRepo, productRepo
}

func TestTaxonomyService_EnsureAxis(t *testing.T) {
	svc, attrRepo, _ := newTaxonomyForTest(t)
	ctx := t.Context()

	axis, err := svc.EnsureAxis(ctx, "color")
	require.NoError(t, err)
	assert.Equal(t, "pa_color", axis.Slug)
	assert.Equal(t, "Color", axis.Label)

	again, err := svc.EnsureAxis(ctx, "color")
	require.NoError(t, err)
	assert.Equal(t, axis.ID, again.ID, "重复声明应返回同一分类轴")

	axes, err := attrRepo.ListAxes(ctx)
	require.NoError(t, err)
	assert.Len(t, axes, 1)

	_, err = svc.EnsureAxis(ctx, "  ")
	assert.Error(t, err)
}

func TestTaxonomyService_EnsureTerm(t *testing.T) {
	svc, attrRepo, _ := newTaxonomyForTest(t)
	ctx := t.Context()

	axis, err := svc.EnsureAxis(ctx, "size")
	require.NoError(t, err)

	term, err := svc.EnsureTerm(ctx, axis, "200 x 300")
	require.NoError(t, err)
	assert.Equal(t, "200-x-300", term.Slug)

	again, err := svc.EnsureTerm(ctx, axis, " 200 x 300 ")
	require.NoError(t, err)
	assert.Equal(t, term.ID, again.ID)

	total, err := attrRepo.CountTerms(ctx, axis.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestTaxonomyService_AssignAttribute(t *testing.T) {
	svc, attrRepo, productRepo := newTaxonomyForTest(t)
	ctx := t.Context()

	product := &model.Product{SKU: "R-1", Title: "Rug"}
	require.NoError(t, productRepo.Create(ctx, product))

	t.Run("不同分类轴合并", func(t *testing.T) {
		require.NoError(t, svc.AssignAttribute(ctx, product, AxisColor, "Red"))
		require.NoError(t, svc.AssignAttribute(ctx, product, AxisLength, "200"))

		stored, err := productRepo.GetByID(ctx, product.ID)
		require.NoError(t, err)
		attrs, err := stored.AttributeMap()
		require.NoError(t, err)

		require.Len(t, attrs, 2)
		assert.Equal(t, model.ProductAttribute{
			Name: "pa_color", Value: "Red", IsVisible: true, IsTaxonomy: true,
		}, attrs["pa_color"])
		assert.Equal(t, "200", attrs["pa_length"].Value)
	})

	t.Run("重复执行幂等", func(t *testing.T) {
		require.NoError(t, svc.AssignAttribute(ctx, product, AxisColor, "Red"))

		links, err := attrRepo.ListProductTerms(ctx, product.ID)
		require.NoError(t, err)
		assert.Len(t, links, 2)
	})

	t.Run("空值跳过", func(t *testing.T) {
		require.NoError(t, svc.AssignAttribute(ctx, product, AxisWidth, " "))

		axis, err := attrRepo.FindAxisBySlug(ctx, "pa_width")
		require.NoError(t, err)
		assert.Nil(t, axis, "空值不应声明分类轴")
	})

	t.Run("同轴新值覆盖属性块，旧关联保留", func(t *testing.T) {
		require.NoError(t, svc.AssignAttribute(ctx, product, AxisColor, "Blue"))

		stored, err := productRepo.GetByID(ctx, product.ID)
		require.NoError(t, err)
		attrs, err := stored.AttributeMap()
		require.NoError(t, err)
		assert.Equal(t, "Blue", attrs["pa_color"].Value)

		links, err := attrRepo.ListProductTerms(ctx, product.ID)
		require.NoError(t, err)
		assert.Len(t, links, 3)
	})
}

func TestSizeValue(t *testing.T) {
	tests := []struct {
		name   string
		length string
		width  string
		want   string
	}{
		{"正常", "200", "300", "200 x 300"},
		{"去空白", " 200 ", "300", "200 x 300"},
		{"长为空", "", "300", ""},
		{"宽为空", "200", " ", ""},
		{"零不是空值", "0", "300", "0 x 300"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SizeValue(tt.length, tt.width))
		})
	}
}
