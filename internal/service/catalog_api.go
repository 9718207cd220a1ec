package service

import (
	"context"

	"catalog_sync_v1/pkg/catalog"
)

// CatalogAPI 远端目录访问，*catalog.Client 实现
type CatalogAPI interface {
	Ready() error
	FetchProducts(ctx context.Context, page, size int) ([]catalog.Product, error)
	FetchCategory(ctx context.Context, categoryUID string) (*catalog.Category, error)
	FetchAssets(ctx context.Context, productUID string) (*catalog.Assets, error)
	FetchPrice(ctx context.Context, productUID string) (*catalog.Price, error)
	FetchInventory(ctx context.Context, productUID string) (*catalog.Inventory, error)
	Download(ctx context.Context, rawURL string) ([]byte, string, error)
	AbsoluteURL(path string) string
	AssetHost() string
}

var _ CatalogAPI = (*catalog.Client)(nil)
