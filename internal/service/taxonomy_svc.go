package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gosimple/slug"

	"catalog_sync_v1/internal/model"
	"catalog_sync_v1/internal/repository"
)

// 商品使用的分类轴
const (
	AxisSize   = "size"
	AxisColor  = "color"
	AxisLength = "length"
	AxisWidth  = "width"
)

// TaxonomyService 分类轴 / 取值注册表
type TaxonomyService struct {
	attrRepo    repository.AttributeRepository
	productRepo repository.ProductRepository
}

func NewTaxonomyService(attrRepo repository.AttributeRepository, productRepo repository.ProductRepository) *TaxonomyService {
	return &TaxonomyService{
		attrRepo:    attrRepo,
		productRepo: productRepo,
	}
}

// AxisSlug color -> pa_color
func AxisSlug(name string) string {
	return model.AttributeAxisPrefix + slug.Make(name)
}

// EnsureAxis 分类轴不存在时创建，已存在直接返回
func (s *TaxonomyService) EnsureAxis(ctx context.Context, name string) (*model.AttributeAxis, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("分类轴名称为空")
	}
	axisSlug := AxisSlug(name)

	axis, err := s.attrRepo.FindAxisBySlug(ctx, axisSlug)
	if err != nil {
		return nil, fmt.Errorf("查询分类轴 %s 失败: %w", axisSlug, err)
	}
	if axis != nil {
		return axis, nil
	}

	axis = &model.AttributeAxis{Slug: axisSlug, Label: upperFirst(name)}
	if err := s.attrRepo.CreateAxis(ctx, axis); err != nil {
		// 并发创建: 唯一索引冲突后重新读取
		existing, findErr := s.attrRepo.FindAxisBySlug(ctx, axisSlug)
		if findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("创建分类轴 %s 失败: %w", axisSlug, err)
	}
	return axis, nil
}

// EnsureTerm 取值不存在时创建
func (s *TaxonomyService) EnsureTerm(ctx context.Context, axis *model.AttributeAxis, value string) (*model.AttributeTerm, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("分类取值为空")
	}

	term, err := s.attrRepo.FindTerm(ctx, axis.ID, value)
	if err != nil {
		return nil, fmt.Errorf("查询取值 %s=%s 失败: %w", axis.Slug, value, err)
	}
	if term != nil {
		return term, nil
	}

	term = &model.AttributeTerm{AxisID: axis.ID, Value: value, Slug: slug.Make(value)}
	if err := s.attrRepo.CreateTerm(ctx, term); err != nil {
		existing, findErr := s.attrRepo.FindTerm(ctx, axis.ID, value)
		if findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("创建取值 %s=%s 失败: %w", axis.Slug, value, err)
	}
	return term, nil
}

// AssignAttribute 关联取值并写入商品属性块
// 空值直接跳过；旧的关联保留，属性块中同名轴被覆盖
func (s *TaxonomyService) AssignAttribute(ctx context.Context, product *model.Product, name, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	axis, err := s.EnsureAxis(ctx, name)
	if err != nil {
		return err
	}
	term, err := s.EnsureTerm(ctx, axis, value)
	if err != nil {
		return err
	}

	if err := s.attrRepo.AttachTerm(ctx, &model.ProductTerm{
		ProductID: product.ID,
		TermID:    term.ID,
		AxisID:    axis.ID,
	}); err != nil {
		return fmt.Errorf("关联取值 %s=%s 失败: %w", axis.Slug, value, err)
	}

	attrs, err := product.AttributeMap()
	if err != nil {
		return fmt.Errorf("解析属性块失败: %w", err)
	}
	attrs[axis.Slug] = model.ProductAttribute{
		Name:       axis.Slug,
		Value:      term.Value,
		IsVisible:  true,
		IsVariable: false,
		IsTaxonomy: true,
	}
	if err := product.SetAttributeMap(attrs); err != nil {
		return err
	}

	return s.productRepo.UpdateFields(ctx, product.ID, map[string]interface{}{
		"attributes": product.Attributes,
	})
}

// SizeValue 长 x 宽，任一为空时返回空
func SizeValue(length, width string) string {
	length, width = strings.TrimSpace(length), strings.TrimSpace(width)
	if length == "" || width == "" {
		return ""
	}
	return length + " x " + width
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
