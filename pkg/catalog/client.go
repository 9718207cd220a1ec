package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"catalog_sync_v1/pkg/utils"
)

// ==================== 错误定义 ====================

// ErrMissingCredentials 用户名或密码缺失，请求不会发出
var ErrMissingCredentials = errors.New("catalog: missing api credentials")

// ErrDecode 响应体解析失败
var ErrDecode = errors.New("catalog: decode response failed")

// APIError 远端返回非 2xx
type APIError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	return fmt.Sprintf("catalog: %s returned HTTP %d: %s", e.Path, e.StatusCode, body)
}

// ==================== 配置 ====================

// Credentials Basic Auth 凭据
type Credentials struct {
	Username string
	Password string
}

// Config 客户端配置，构造时传入，运行期间不再读取全局状态
type Config struct {
	BaseURL     string // 例如 https://rezasrugs.com/ws-api
	AssetHost   string // 相对图片路径的前缀
	Lang        string
	Currency    string
	Credentials Credentials
	Timeout     time.Duration
	UserAgent   string
	ProxyURL    string
}

// ==================== 客户端 ====================

// Client 远端目录 API 客户端
type Client struct {
	http       *resty.Client
	cfg        Config
	authHeader string
}

// NewClient 创建客户端，Basic Auth 头只计算一次
func NewClient(cfg Config) *Client {
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.AssetHost = strings.TrimRight(cfg.AssetHost, "/")

	client := utils.NewHTTPClient(utils.HTTPClientOptions{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		ProxyURL:  cfg.ProxyURL,
	}).
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json")

	c := &Client{http: client, cfg: cfg}
	if cfg.Credentials.Username != "" && cfg.Credentials.Password != "" {
		token := base64.StdEncoding.EncodeToString([]byte(cfg.Credentials.Username + ":" + cfg.Credentials.Password))
		c.authHeader = "Basic " + token
	}
	return c
}

// Ready 凭据是否齐全
func (c *Client) Ready() error {
	if c.authHeader == "" {
		return ErrMissingCredentials
	}
	return nil
}

// AssetHost 图片域名
func (c *Client) AssetHost() string {
	return c.cfg.AssetHost
}

// ==================== 资源接口 ====================

// FetchProducts 拉取一页商品，空切片表示已到末页
func (c *Client) FetchProducts(ctx context.Context, page, size int) ([]Product, error) {
	var resp ProductsResp
	err := c.getJSON(ctx, "/products", map[string]string{
		"lang":            c.cfg.Lang,
		"currencyISOCode": c.cfg.Currency,
		"itemsPerPage":    strconv.Itoa(size),
		"pageNumber":      strconv.Itoa(page),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// FetchCategory 拉取分类详情
func (c *Client) FetchCategory(ctx context.Context, categoryUID string) (*Category, error) {
	var resp Category
	err := c.getJSON(ctx, "/category", map[string]string{
		"lang":        c.cfg.Lang,
		"categoryUid": categoryUID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchAssets 拉取商品图片清单
func (c *Client) FetchAssets(ctx context.Context, productUID string) (*Assets, error) {
	var resp Assets
	err := c.getJSON(ctx, "/product-asset/"+url.PathEscape(productUID), map[string]string{
		"hideHtml": "true",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchPrice 拉取商品价格
func (c *Client) FetchPrice(ctx context.Context, productUID string) (*Price, error) {
	var resp Price
	err := c.getJSON(ctx, "/product-price/"+url.PathEscape(productUID), map[string]string{
		"currencyISOCode": c.cfg.Currency,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchInventory 拉取商品库存
func (c *Client) FetchInventory(ctx context.Context, productUID string) (*Inventory, error) {
	var resp Inventory
	if err := c.getJSON(ctx, "/inventory/"+url.PathEscape(productUID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Download 下载图片二进制（公开资源，不带鉴权头）
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "*/*").
		Get(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("下载失败: %w", err)
	}
	if resp.IsError() {
		return nil, "", &APIError{Path: rawURL, StatusCode: resp.StatusCode(), Body: ""}
	}
	return resp.Body(), resp.Header().Get("Content-Type"), nil
}

// AbsoluteURL 相对路径补全为图片域名下的绝对地址
func (c *Client) AbsoluteURL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.cfg.AssetHost + path
}

// ==================== 内部方法 ====================

func (c *Client) getJSON(ctx context.Context, path string, query map[string]string, out interface{}) error {
	if err := c.Ready(); err != nil {
		return err
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", c.authHeader)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", path, err)
	}
	if resp.IsError() {
		return &APIError{Path: path, StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return nil
}
