package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"catalog_sync_v1/internal/model"
)

// MediaRepository 媒体资源仓储接口
type MediaRepository interface {
	Create(ctx context.Context, asset *model.MediaAsset) error
	GetByID(ctx context.Context, id int64) (*model.MediaAsset, error)
	// FindByFileNames 按规范文件名或存储路径后缀查找，命中任一即返回
	FindByFileNames(ctx context.Context, names ...string) (*model.MediaAsset, error)
	Count(ctx context.Context) (int64, error)
}

type mediaRepo struct {
	db *gorm.DB
}

// NewMediaRepository 创建媒体仓储
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepo{db: db}
}

func (r *mediaRepo) Create(ctx context.Context, asset *model.MediaAsset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

func (r *mediaRepo) GetByID(ctx context.Context, id int64) (*model.MediaAsset, error) {
	var asset model.MediaAsset
	if err := r.db.WithContext(ctx).First(&asset, id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *mediaRepo) FindByFileNames(ctx context.Context, names ...string) (*model.MediaAsset, error) {
	if len(names) == 0 {
		return nil, nil
	}

	query := r.db.WithContext(ctx).Where("file_name IN ?", names)
	for _, name := range names {
		query = query.Or("file_path = ?", name).Or(`file_path LIKE ? ESCAPE '\'`, "%/"+escapeLike(name))
	}

	var asset model.MediaAsset
	err := query.Order("id ASC").First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// 文件名里的 _ 和 % 按字面量匹配
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *mediaRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.MediaAsset{}).Count(&total).Error
	return total, err
}
