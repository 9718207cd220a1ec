package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ==================== 环境常量 ====================

// 远端接口环境（与后台设置中的两套凭据对应）
const (
	EnvStaging = "staging"
	EnvLive    = "live"
)

// ==================== 配置结构 ====================

// Credentials 一对 Basic Auth 凭据
type Credentials struct {
	Username string
	Password string
}

// Complete 用户名与密码均非空
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// CatalogConfig 远端商品目录配置
type CatalogConfig struct {
	BaseURL     string
	AssetHost   string
	Lang        string
	Currency    string
	PageSize    int
	Timeout     time.Duration
	ProxyURL    string // 可选出站代理
	Environment string
	Staging     Credentials
	Live        Credentials
}

// ImportConfig 导入任务配置
type ImportConfig struct {
	Enabled          bool
	Cron             string
	Timeout          time.Duration
	FirstRunDelay    time.Duration
	ReassignCategory bool
	LockTTL          time.Duration
	LogRetention     time.Duration
	MaxFetchFailures int
}

// StorageConfig 媒体存储配置
type StorageConfig struct {
	Provider  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
	CDNDomain string
	BasePath  string
}

// Config 全局配置
type Config struct {
	// Database
	DatabaseDSN string

	// Server
	ServerPort string
	AdminToken string // 手动触发接口的管理员令牌，为空时接口关闭

	// 手动触发冷却
	ImportCooldown time.Duration
	ResetCooldown  time.Duration

	Catalog CatalogConfig
	Import  ImportConfig
	Storage StorageConfig

	// Redis (可选，跨进程运行锁)
	RedisAddr     string
	RedisPassword string

	// Kafka (可选，商品事件)
	KafkaBrokers []string
	KafkaTopic   string

	// 运行日志目录，为空时仅写数据库与标准输出
	RunLogDir string
}

// Load 加载配置 (.env 优先级低于真实环境变量)
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		DatabaseDSN: getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=catalog port=5432 sslmode=disable"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),

		ImportCooldown: getEnvAsDuration("SYNC_IMPORT_COOLDOWN", time.Minute),
		ResetCooldown:  getEnvAsDuration("SYNC_RESET_COOLDOWN", 10*time.Second),
		Catalog: CatalogConfig{
			BaseURL:     getEnv("CATALOG_BASE_URL", "https://rezasrugs.com/ws-api"),
			AssetHost:   getEnv("CATALOG_ASSET_HOST", "https://rezasrugs.com"),
			Lang:        getEnv("CATALOG_LANG", "en"),
			Currency:    getEnv("CATALOG_CURRENCY", "EUR"),
			PageSize:    getEnvAsInt("CATALOG_PAGE_SIZE", 50),
			Timeout:     getEnvAsDuration("CATALOG_TIMEOUT", 30*time.Second),
			ProxyURL:    getEnv("CATALOG_PROXY_URL", ""),
			Environment: strings.ToLower(getEnv("CATALOG_ENVIRONMENT", EnvStaging)),
			Staging: Credentials{
				Username: getEnv("CATALOG_STAGING_USERNAME", ""),
				Password: getEnv("CATALOG_STAGING_PASSWORD", ""),
			},
			Live: Credentials{
				Username: getEnv("CATALOG_LIVE_USERNAME", ""),
				Password: getEnv("CATALOG_LIVE_PASSWORD", ""),
			},
		},
		Import: ImportConfig{
			Enabled:          getEnvAsBool("IMPORT_ENABLED", true),
			Cron:             getEnv("IMPORT_CRON", "0 0 * * * *"),
			Timeout:          getEnvAsDuration("IMPORT_TIMEOUT", 20*time.Minute),
			FirstRunDelay:    getEnvAsDuration("IMPORT_FIRST_RUN_DELAY", 30*time.Second),
			ReassignCategory: getEnvAsBool("IMPORT_REASSIGN_CATEGORY", false),
			LockTTL:          getEnvAsDuration("IMPORT_LOCK_TTL", 25*time.Minute),
			LogRetention:     getEnvAsDuration("RUN_LOG_RETENTION", 30*24*time.Hour),
			MaxFetchFailures: getEnvAsInt("IMPORT_MAX_FETCH_FAILURES", 3),
		},
		Storage: StorageConfig{
			Provider:  getEnv("STORAGE_PROVIDER", "local"),
			Bucket:    getEnv("AWS_BUCKET", ""),
			Region:    getEnv("AWS_REGION", ""),
			AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:  getEnv("STORAGE_PUBLIC_URL", ""),
			CDNDomain: getEnv("AWS_CDN_DOMAIN", ""),
			BasePath:  getEnv("STORAGE_BASE_PATH", "./uploads"),
		},
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "catalog-product-events"),
		RunLogDir:     getEnv("RUN_LOG_DIR", "./logs"),
	}, nil
}

// ResolveCredentials 按环境选择凭据，每次运行只解析一次
func (c *CatalogConfig) ResolveCredentials() Credentials {
	if c.Environment == EnvLive {
		return c.Live
	}
	return c.Staging
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
