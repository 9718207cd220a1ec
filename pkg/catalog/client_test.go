package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:     srv.URL + "/ws-api",
		AssetHost:   srv.URL,
		Credentials: Credentials{Username: "user", Password: "pass"},
	}), srv
}

func TestClient_FetchProducts(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "pass", pass)

		assert.Equal(t, "/ws-api/products", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "en", q.Get("lang"))
		assert.Equal(t, "EUR", q.Get("currencyISOCode"))
		assert.Equal(t, "50", q.Get("itemsPerPage"))
		assert.Equal(t, "3", q.Get("pageNumber"))

		_, _ = w.Write([]byte(`{"data":[
			{"productUId":"R-100","name":"Kazak","length":240,"width":"170","sqm":4.08,"color":null,"lastUpdated":1700000000}
		]}`))
	})

	products, err := client.FetchProducts(context.Background(), 3, 50)
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "R-100", p.SKU())
	assert.Equal(t, Text("Kazak"), p.Name)
	assert.Equal(t, Text("240"), p.Length)
	assert.Equal(t, Text("170"), p.Width)
	assert.Equal(t, Text("4.08"), p.SQM)
	assert.True(t, p.Color.Empty())
	assert.Equal(t, Version("1700000000"), p.LastUpdated)
}

func TestClient_FetchProducts_MixedUIDTypes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"productUId":12345,"name":"Numbered"},
			{"productUId":"  R-7 ","name":"Padded"}
		]}`))
	})

	products, err := client.FetchProducts(context.Background(), 1, 50)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "12345", products[0].SKU())
	assert.Equal(t, "R-7", products[1].SKU())
}

func TestClient_FetchProducts_EmptyPage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	products, err := client.FetchProducts(context.Background(), 9, 50)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestClient_MissingCredentials(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:     srv.URL,
		Credentials: Credentials{Username: "user"},
	})

	ctx := context.Background()
	_, err := client.FetchProducts(ctx, 1, 50)
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = client.FetchPrice(ctx, "R-1")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = client.FetchInventory(ctx, "R-1")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = client.FetchCategory(ctx, "C-1")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = client.FetchAssets(ctx, "R-1")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "缺少凭据时不应发出请求")
}

func TestClient_APIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := client.FetchPrice(context.Background(), "R-1")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "/product-price/R-1", apiErr.Path)
}

func TestClient_DecodeError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})

	_, err := client.FetchInventory(context.Background(), "R-1")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestClient_FetchPriceAndInventory(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ws-api/product-price/R-1":
			assert.Equal(t, "EUR", r.URL.Query().Get("currencyISOCode"))
			_, _ = w.Write([]byte(`{"recommendedRetailPrice":"1299.00","wholesalePrice":650.5}`))
		case "/ws-api/product-price/R-2":
			_, _ = w.Write([]byte(`{"recommendedRetailPrice":"10"}`))
		case "/ws-api/inventory/R-1":
			_, _ = w.Write([]byte(`{"inventory":3,"inventoryLastUpdatedTimestamp":"2024-05-01T10:00:00"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	price, err := client.FetchPrice(ctx, "R-1")
	require.NoError(t, err)
	assert.True(t, price.Complete())
	assert.Equal(t, "1299", price.RecommendedRetailPrice.String())
	assert.Equal(t, "650.5", price.WholesalePrice.String())

	partial, err := client.FetchPrice(ctx, "R-2")
	require.NoError(t, err)
	assert.False(t, partial.Complete())

	inv, err := client.FetchInventory(ctx, "R-1")
	require.NoError(t, err)
	assert.True(t, inv.Complete())
	assert.Equal(t, "3", inv.Inventory.String())
	assert.Equal(t, "2024-05-01T10:00:00", inv.Timestamp())
}

func TestClient_FetchAssetsAndCategory(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ws-api/product-asset/R-1":
			assert.Equal(t, "true", r.URL.Query().Get("hideHtml"))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"image":        "/img/rug1.png",
				"imageGallery": []string{"/img/rug1-b.png", "/img/rug1-c.png"},
			})
		case "/ws-api/category":
			assert.Equal(t, "C-9", r.URL.Query().Get("categoryUid"))
			_, _ = w.Write([]byte(`{"name":"Persian","displayName":"Persian Rugs"}`))
		}
	})
	ctx := context.Background()

	assets, err := client.FetchAssets(ctx, "R-1")
	require.NoError(t, err)
	assert.Equal(t, Text("/img/rug1.png"), assets.Image)
	assert.Len(t, assets.ImageGallery, 2)

	cat, err := client.FetchCategory(ctx, "C-9")
	require.NoError(t, err)
	assert.Equal(t, Text("Persian"), cat.Name)
	assert.Equal(t, Text("Persian Rugs"), cat.DisplayName)
}

func TestClient_DownloadWithoutAuth(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNGDATA"))
	})

	data, ct, err := client.Download(context.Background(), srv.URL+"/img/rug1.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), data)
	assert.Equal(t, "image/png", ct)
}

func TestClient_AbsoluteURL(t *testing.T) {
	client := NewClient(Config{AssetHost: "https://assets.example.com/"})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"相对路径", "/img/a.png", "https://assets.example.com/img/a.png"},
		{"无斜杠", "img/a.png", "https://assets.example.com/img/a.png"},
		{"绝对地址", "https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"空值", "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.AbsoluteURL(tt.in))
		})
	}
}

func TestVersion_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b Version
		want int
	}{
		{"数值比较", "100", "99", 1},
		{"数值相等", "100", "100.0", 0},
		{"字典序日期", "2024-05-02 10:00:00", "2024-05-01 23:00:00", 1},
		{"较小", "2024-01-01", "2024-02-01", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
		})
	}

	assert.True(t, Version("101").After("100"))
	assert.False(t, Version("100").After("100"))
}
