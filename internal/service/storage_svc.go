package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"catalog_sync_v1/pkg/utils"
)

// ==================== 接口定义 ====================

// StoredObject 存储结果
type StoredObject struct {
	Key string // 存储路径，如 catalog/2024/05/rug1.png
	URL string // 公开访问地址
}

// StorageProvider 存储提供者接口
type StorageProvider interface {
	// Put 按 key 写入文件
	Put(ctx context.Context, key string, data []byte, contentType string) (url string, err error)

	// Delete 删除文件
	Delete(ctx context.Context, key string) error
}

// ==================== 配置 ====================

type StorageConfig struct {
	Provider  string // "s3" | "cos" | "local"
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string // 自定义端点 (腾讯云COS) / 本地存储的公开 URL 前缀
	CDNDomain string // CDN域名 (可选)
	BasePath  string // 基础路径前缀；本地存储时为根目录
}

// ==================== 工厂方法 ====================

func NewStorageProvider(cfg StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Storage(cfg)
	case "cos":
		return NewCOSStorage(cfg)
	case "local":
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("不支持的存储提供者: %s", cfg.Provider)
	}
}

// ==================== StorageService ====================

// StorageService 媒体二进制存储，包装 StorageProvider
type StorageService struct {
	provider StorageProvider
	config   StorageConfig
	now      func() time.Time
}

// NewStorageService 创建存储服务
func NewStorageService(cfg StorageConfig) (*StorageService, error) {
	provider, err := NewStorageProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewStorageServiceWithProvider(provider, cfg), nil
}

// NewStorageServiceWithProvider 使用已有 Provider
func NewStorageServiceWithProvider(provider StorageProvider, cfg StorageConfig) *StorageService {
	return &StorageService{provider: provider, config: cfg, now: time.Now}
}

// Store 按 年/月/文件名 生成 key 并写入
func (s *StorageService) Store(ctx context.Context, fileName string, data []byte, contentType string) (*StoredObject, error) {
	key := s.generateKey(fileName)

	if contentType == "" {
		contentType = utils.DetectMimeType(fileName, data)
	}

	url, err := s.provider.Put(ctx, key, data, contentType)
	if err != nil {
		return nil, err
	}
	return &StoredObject{Key: key, URL: url}, nil
}

// StoreAt 写入指定 key (派生图与原图同目录)
func (s *StorageService) StoreAt(ctx context.Context, key string, data []byte, contentType string) (*StoredObject, error) {
	url, err := s.provider.Put(ctx, key, data, contentType)
	if err != nil {
		return nil, err
	}
	return &StoredObject{Key: key, URL: url}, nil
}

// Delete 删除文件
func (s *StorageService) Delete(ctx context.Context, key string) error {
	return s.provider.Delete(ctx, key)
}

// GetProvider 获取底层 Provider
func (s *StorageService) GetProvider() StorageProvider {
	return s.provider
}

// generateKey 同名文件落在同一路径，去重由媒体表负责
func (s *StorageService) generateKey(fileName string) string {
	datePath := s.now().Format("2006/01")
	if s.config.Provider == "local" || s.config.BasePath == "" {
		return path.Join("catalog", datePath, fileName)
	}
	return path.Join(strings.Trim(s.config.BasePath, "/"), datePath, fileName)
}

// ==================== S3 实现 ====================

type S3Storage struct {
	client    *s3.Client
	bucket    string
	region    string
	cdnDomain string
}

func NewS3Storage(cfg StorageConfig) (*S3Storage, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("加载AWS配置失败: %v", err)
	}

	return &S3Storage{
		client:    s3.NewFromConfig(awsCfg),
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		cdnDomain: cfg.CDNDomain,
	}, nil
}

func (s *S3Storage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传S3失败: %v", err)
	}

	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// ==================== 腾讯云COS 实现 ====================

type COSStorage struct {
	client    *s3.Client
	bucket    string
	region    string
	cdnDomain string
}

func NewCOSStorage(cfg StorageConfig) (*COSStorage, error) {
	// COS兼容S3协议
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://cos.%s.myqcloud.com", cfg.Region)
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("加载COS配置失败: %v", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &COSStorage{
		client:    client,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		cdnDomain: cfg.CDNDomain,
	}, nil
}

func (s *COSStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("上传COS失败: %v", err)
	}

	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key), nil
	}
	return fmt.Sprintf("https://%s.cos.%s.myqcloud.com/%s", s.bucket, s.region, key), nil
}

func (s *COSStorage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// ==================== 本地存储 ====================

type LocalStorage struct {
	basePath string
	baseURL  string
}

func NewLocalStorage(cfg StorageConfig) (*LocalStorage, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "./uploads"
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = "http://localhost:8080/uploads"
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("创建目录失败: %v", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("写入文件失败: %v", err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// resolve key 不允许跳出根目录
func (s *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("无效的存储路径: %s", key)
	}
	return filepath.Join(s.basePath, clean), nil
}
