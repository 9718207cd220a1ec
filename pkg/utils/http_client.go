package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClientOptions 出站请求配置
type HTTPClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	ProxyURL  string // 可选出站代理
	Debug     bool
}

// NewHTTPClient 创建配置好代理、超时和调试模式的 Resty 客户端
// 它是全系统统一的网络请求入口
func NewHTTPClient(opts HTTPClientOptions) *resty.Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Catalog-Sync/1.0"
	}

	client := resty.New().
		SetDebug(opts.Debug).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent)

	if opts.ProxyURL != "" {
		client.SetProxy(opts.ProxyURL)
	}

	return client
}
