package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"catalog_sync_v1/internal/model"
)

// ==================== 分类仓储 ====================

// CategoryRepository 商品分类仓储接口
type CategoryRepository interface {
	FindByName(ctx context.Context, name string) (*model.Category, error)
	Create(ctx context.Context, category *model.Category) error
	List(ctx context.Context) ([]model.Category, error)
}

type categoryRepo struct {
	db *gorm.DB
}

// NewCategoryRepository 创建分类仓储
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

// FindByName 名称精确匹配，不存在时返回 nil, nil
func (r *categoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) Create(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepo) List(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

// ==================== 分类轴仓储 ====================

// AttributeRepository 分类轴 / 取值 / 商品关联仓储接口
type AttributeRepository interface {
	// 分类轴
	FindAxisBySlug(ctx context.Context, slug string) (*model.AttributeAxis, error)
	CreateAxis(ctx context.Context, axis *model.AttributeAxis) error
	ListAxes(ctx context.Context) ([]model.AttributeAxis, error)

	// 取值
	FindTerm(ctx context.Context, axisID int64, value string) (*model.AttributeTerm, error)
	CreateTerm(ctx context.Context, term *model.AttributeTerm) error
	CountTerms(ctx context.Context, axisID int64) (int64, error)

	// 商品关联 (只追加)
	AttachTerm(ctx context.Context, link *model.ProductTerm) error
	ListProductTerms(ctx context.Context, productID int64) ([]model.ProductTerm, error)
}

type attributeRepo struct {
	db *gorm.DB
}

// NewAttributeRepository 创建分类轴仓储
func NewAttributeRepository(db *gorm.DB) AttributeRepository {
	return &attributeRepo{db: db}
}

func (r *attributeRepo) FindAxisBySlug(ctx context.Context, slug string) (*model.AttributeAxis, error) {
	var axis model.AttributeAxis
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&axis).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &axis, nil
}

func (r *attributeRepo) CreateAxis(ctx context.Context, axis *model.AttributeAxis) error {
	return r.db.WithContext(ctx).Create(axis).Error
}

func (r *attributeRepo) ListAxes(ctx context.Context) ([]model.AttributeAxis, error) {
	var axes []model.AttributeAxis
	err := r.db.WithContext(ctx).Order("slug ASC").Find(&axes).Error
	return axes, err
}

func (r *attributeRepo) FindTerm(ctx context.Context, axisID int64, value string) (*model.AttributeTerm, error) {
	var term model.AttributeTerm
	err := r.db.WithContext(ctx).
		Where("axis_id = ? AND value = ?", axisID, value).
		First(&term).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &term, nil
}

func (r *attributeRepo) CreateTerm(ctx context.Context, term *model.AttributeTerm) error {
	return r.db.WithContext(ctx).Create(term).Error
}

func (r *attributeRepo) CountTerms(ctx context.Context, axisID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.AttributeTerm{}).
		Where("axis_id = ?", axisID).
		Count(&total).Error
	return total, err
}

// AttachTerm 关联已存在时忽略
func (r *attributeRepo) AttachTerm(ctx context.Context, link *model.ProductTerm) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "term_id"}},
		DoNothing: true,
	}).Create(link).Error
}

func (r *attributeRepo) ListProductTerms(ctx context.Context, productID int64) ([]model.ProductTerm, error) {
	var links []model.ProductTerm
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&links).Error
	return links, err
}
