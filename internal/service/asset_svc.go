package service

import (
	"context"
	"errors"
	"fmt"
	"path"

	"catalog_sync_v1/internal/model"
	"catalog_sync_v1/internal/observability"
	"catalog_sync_v1/internal/repository"
	"catalog_sync_v1/internal/runlog"
	"catalog_sync_v1/pkg/catalog"
	"catalog_sync_v1/pkg/utils"
)

// ErrProductNotSynced 第一轮对账未写入该商品
var ErrProductNotSynced = errors.New("product not synced")

// AssetResult 单个商品的图片导入结果
type AssetResult struct {
	SKU        string
	Skipped    bool // lastUpdated 未变化
	FeaturedID *int64
	GalleryIDs []int64
	Imported   int
	Reused     int
	Failed     int
}

// AssetService 商品图片导入
type AssetService struct {
	api         CatalogAPI
	productRepo repository.ProductRepository
	mediaRepo   repository.MediaRepository
	storage     *StorageService
	renditions  []utils.RenditionSpec
}

func NewAssetService(
	api CatalogAPI,
	productRepo repository.ProductRepository,
	mediaRepo repository.MediaRepository,
	storage *StorageService,
) *AssetService {
	return &AssetService{
		api:         api,
		productRepo: productRepo,
		mediaRepo:   mediaRepo,
		storage:     storage,
		renditions:  utils.DefaultRenditions,
	}
}

// ImportProductAssets 导入主图与图集
// 本地 last_updated 非空且远端版本未更新时不发起任何请求
func (s *AssetService) ImportProductAssets(ctx context.Context, p catalog.Product) (*AssetResult, error) {
	_, sink := runFromContext(ctx)
	sku := p.SKU()
	result := &AssetResult{SKU: sku}

	product, err := s.productRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("查询商品 %s 失败: %w", sku, err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotSynced, sku)
	}

	// 1. 版本门控
	if product.LastUpdated != "" && !p.LastUpdated.After(catalog.Version(product.LastUpdated)) {
		result.Skipped = true
		observability.AssetsTotal.WithLabelValues("skipped").Inc()
		runlog.Logf(sink, "Skipping image import for SKU %s (lastUpdated %s unchanged)", sku, product.LastUpdated)
		return result, nil
	}

	// 2. 图片清单，失败时不推进 last_updated
	assets, err := s.api.FetchAssets(ctx, sku)
	if err != nil {
		observability.AspectFailuresTotal.WithLabelValues(AspectAssets).Inc()
		runlog.Logf(sink, "Failed to fetch assets for SKU %s: %v", sku, err)
		return result, nil
	}

	// 3. 主图
	if !assets.Image.Empty() {
		imageURL := s.api.AbsoluteURL(assets.Image.String())
		id, reused, err := s.ImportImage(ctx, imageURL, product.ID, true)
		s.count(result, reused, err)
		if err != nil {
			runlog.Logf(sink, "Failed to import featured image %s for SKU %s: %v", imageURL, sku, err)
		} else {
			result.FeaturedID = &id
		}
	}

	// 4. 图集，非空时整体替换
	for _, item := range assets.ImageGallery {
		if item.Empty() {
			continue
		}
		imageURL := s.api.AbsoluteURL(item.String())
		id, reused, err := s.ImportImage(ctx, imageURL, product.ID, false)
		s.count(result, reused, err)
		if err != nil {
			runlog.Logf(sink, "Failed to import gallery image %s for SKU %s: %v", imageURL, sku, err)
			continue
		}
		result.GalleryIDs = append(result.GalleryIDs, id)
	}
	if len(result.GalleryIDs) > 0 {
		gallery, err := model.EncodeGallery(result.GalleryIDs)
		if err == nil {
			err = s.productRepo.UpdateFields(ctx, product.ID, map[string]interface{}{
				"gallery_media_ids": gallery,
			})
		}
		if err != nil {
			runlog.Logf(sink, "Failed to save gallery for SKU %s: %v", sku, err)
		}
	}

	// 5. 推进水位
	if err := s.productRepo.UpdateFields(ctx, product.ID, map[string]interface{}{
		"last_updated": p.LastUpdated.String(),
	}); err != nil {
		return result, fmt.Errorf("更新商品 %s last_updated 失败: %w", sku, err)
	}

	runlog.Logf(sink, "Imported images for SKU %s: %d new, %d reused, %d failed",
		sku, result.Imported, result.Reused, result.Failed)
	return result, nil
}

func (s *AssetService) count(result *AssetResult, reused bool, err error) {
	switch {
	case err != nil:
		result.Failed++
		observability.AssetsTotal.WithLabelValues("failed").Inc()
	case reused:
		result.Reused++
		observability.AssetsTotal.WithLabelValues("reused").Inc()
	default:
		result.Imported++
		observability.AssetsTotal.WithLabelValues("imported").Inc()
	}
}

// ImportImage 导入单张图片，返回媒体 ID 以及是否复用了已有资源
// 规范文件名或其 -scaled 变体已存在时直接复用，不再下载
func (s *AssetService) ImportImage(ctx context.Context, imageURL string, productID int64, featured bool) (int64, bool, error) {
	name, err := utils.DeriveImageFileName(imageURL, s.api.AssetHost())
	if err != nil {
		return 0, false, err
	}

	// 1. 去重
	existing, err := s.mediaRepo.FindByFileNames(ctx, name, utils.ScaledVariant(name))
	if err != nil {
		return 0, false, fmt.Errorf("查询媒体 %s 失败: %w", name, err)
	}
	if existing != nil {
		if featured {
			if err := s.setFeatured(ctx, productID, existing.ID); err != nil {
				return existing.ID, true, err
			}
		}
		return existing.ID, true, nil
	}

	// 2. 下载并写入存储
	data, _, err := s.api.Download(ctx, imageURL)
	if err != nil {
		return 0, false, err
	}
	mimeType := utils.DetectMimeType(name, data)

	obj, err := s.storage.Store(ctx, name, data, mimeType)
	if err != nil {
		return 0, false, fmt.Errorf("保存图片 %s 失败: %w", name, err)
	}

	asset := &model.MediaAsset{
		FileName:        name,
		FilePath:        obj.Key,
		URL:             obj.URL,
		SourceURL:       imageURL,
		MimeType:        mimeType,
		Size:            int64(len(data)),
		ParentProductID: productID,
	}

	// 3. 派生图，解码失败时仍登记原图
	keys, err := s.storeRenditions(ctx, asset, data)
	if err != nil {
		_, sink := runFromContext(ctx)
		runlog.Logf(sink, "Failed to generate renditions for %s: %v", name, err)
	}
	if len(keys) > 0 {
		if raw, err := model.EncodeRenditions(keys); err == nil {
			asset.Renditions = raw
		}
	}

	// 4. 登记媒体
	if err := s.mediaRepo.Create(ctx, asset); err != nil {
		_ = s.storage.Delete(ctx, obj.Key)
		for _, key := range keys {
			_ = s.storage.Delete(ctx, key)
		}
		return 0, false, fmt.Errorf("登记媒体 %s 失败: %w", name, err)
	}

	if featured {
		if err := s.setFeatured(ctx, productID, asset.ID); err != nil {
			return asset.ID, false, err
		}
	}
	return asset.ID, false, nil
}

// storeRenditions 生成并保存派生图，与原图同目录
func (s *AssetService) storeRenditions(ctx context.Context, asset *model.MediaAsset, data []byte) (map[string]string, error) {
	width, height, renditions, err := utils.GenerateRenditions(asset.FileName, data, s.renditions)
	asset.Width, asset.Height = width, height
	if err != nil && len(renditions) == 0 {
		return nil, err
	}

	dir := path.Dir(asset.FilePath)
	keys := make(map[string]string, len(renditions))
	for _, r := range renditions {
		obj, putErr := s.storage.StoreAt(ctx, path.Join(dir, r.FileName), r.Data, asset.MimeType)
		if putErr != nil {
			return keys, fmt.Errorf("保存派生图 %s 失败: %w", r.FileName, putErr)
		}
		keys[r.Name] = obj.Key
	}
	return keys, err
}

func (s *AssetService) setFeatured(ctx context.Context, productID, mediaID int64) error {
	if err := s.productRepo.UpdateFields(ctx, productID, map[string]interface{}{
		"featured_media_id": mediaID,
	}); err != nil {
		return fmt.Errorf("设置主图失败: %w", err)
	}
	return nil
}
