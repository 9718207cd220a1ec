package service

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"catalog_sync_v1/internal/event"
	"catalog_sync_v1/internal/lock"
	"catalog_sync_v1/internal/model"
	"catalog_sync_v1/internal/repository"
	"catalog_sync_v1/internal/runlog"
	"catalog_sync_v1/pkg/catalog"
)

// ==================== 测试数据库 ====================

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取连接池失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.Product{},
		&model.Category{},
		&model.AttributeAxis{},
		&model.AttributeTerm{},
		&model.ProductTerm{},
		&model.MediaAsset{},
		&model.SyncState{},
		&model.RunLog{},
	); err != nil {
		t.Fatalf("迁移表结构失败: %v", err)
	}
	return db
}

// ==================== 模拟远端目录 ====================

type fakeRemote struct {
	mu sync.Mutex

	pages      map[int][]map[string]interface{}
	pageStatus map[int]int
	prices     map[string]interface{}
	inventory  map[string]interface{}
	categories map[string]map[string]interface{}
	assets     map[string]map[string]interface{}
	images     map[string][]byte
	fail       map[string]bool // "product-price/R-1" -> 500

	hits      map[string]int       // 按路径第一段计数: products / product-price / img ...
	onRequest func(resource string) // 可选，收到请求时回调
	server    *httptest.Server
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()
	f := &fakeRemote{
		pages:      make(map[int][]map[string]interface{}),
		pageStatus: make(map[int]int),
		prices:     make(map[string]interface{}),
		inventory:  make(map[string]interface{}),
		categories: make(map[string]map[string]interface{}),
		assets:     make(map[string]map[string]interface{}),
		images:     make(map[string][]byte),
		fail:       make(map[string]bool),
		hits:       make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeRemote) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	trimmed := strings.TrimPrefix(r.URL.Path, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	resource := parts[0]
	f.hits[resource]++
	if f.onRequest != nil {
		f.onRequest(resource)
	}

	if f.fail[trimmed] {
		http.Error(w, "upstream error", http.StatusInternalServerError)
		return
	}

	id := ""
	if len(parts) == 2 {
		id = parts[1]
	}

	switch resource {
	case "products":
		page, _ := strconv.Atoi(r.URL.Query().Get("pageNumber"))
		if status, ok := f.pageStatus[page]; ok {
			http.Error(w, "page error", status)
			return
		}
		data := f.pages[page]
		if data == nil {
			data = []map[string]interface{}{}
		}
		writeJSON(w, map[string]interface{}{"data": data})
	case "category":
		writeJSONOr404(w, f.categories[r.URL.Query().Get("categoryUid")])
	case "product-asset":
		writeJSONOr404(w, f.assets[id])
	case "product-price":
		writeJSONOr404(w, f.prices[id])
	case "inventory":
		writeJSONOr404(w, f.inventory[id])
	case "img":
		data, ok := f.images[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONOr404(w http.ResponseWriter, v interface{}) {
	if v == nil {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		return
	}
	switch m := v.(type) {
	case map[string]interface{}:
		if m == nil {
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
			return
		}
	}
	writeJSON(w, v)
}

func (f *fakeRemote) hitCount(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[resource]
}

func (f *fakeRemote) resetHits() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = make(map[string]int)
}

// addRug 注册一个带完整价格/库存/分类/图片的商品
func (f *fakeRemote) addRug(page int, uid, name string, lastUpdated interface{}) map[string]interface{} {
	rec := rugRecord(uid, name, lastUpdated)
	f.pages[page] = append(f.pages[page], rec)
	f.prices[uid] = map[string]interface{}{"recommendedRetailPrice": 199.5, "wholesalePrice": 99}
	f.inventory[uid] = map[string]interface{}{"inventory": 3, "inventoryLastUpdatedTimestamp": "2024-05-01 10:00:00"}
	f.categories["cat-kilim"] = map[string]interface{}{"name": "Kilim", "displayName": "Kilim Rugs"}
	f.assets[uid] = map[string]interface{}{
		"image":        "/img/" + strings.ToLower(uid) + ".png",
		"imageGallery": []string{"/img/" + strings.ToLower(uid) + "-2.png"},
	}
	f.images[strings.ToLower(uid)+".png"] = testPNG(400, 300)
	f.images[strings.ToLower(uid)+"-2.png"] = testPNG(120, 80)
	return rec
}

func rugRecord(uid, name string, lastUpdated interface{}) map[string]interface{} {
	return map[string]interface{}{
		"productUId":    uid,
		"name":          name,
		"longdesctext":  "Hand knotted wool rug.",
		"description":   "Wool rug",
		"origin":        "Iran",
		"manufacturing": "Hand knotted",
		"pile":          "Wool",
		"warp":          "Cotton",
		"condition":     "Good",
		"age":           "Vintage",
		"shape":         "Rectangle",
		"sqm":           6,
		"length":        "200",
		"width":         "300",
		"design":        "Floral",
		"color":         "Red",
		"colorsString":  "Red, Blue",
		"knotDensity":   nil,
		"points":        "",
		"backing":       "Cotton",
		"kg":            12.5,
		"knotDensityCM": "",
		"colorCode":     "#aa0000",
		"categories":    "cat-kilim",
		"inventory":     3,
		"lastUpdated":   lastUpdated,
	}
}

func decodeRecord(t *testing.T, rec map[string]interface{}) catalog.Product {
	t.Helper()
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("序列化测试商品失败: %v", err)
	}
	var p catalog.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("解析测试商品失败: %v", err)
	}
	return p
}

func testPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// ==================== 完整装配 ====================

type syncFixture struct {
	db     *gorm.DB
	remote *fakeRemote
	client *catalog.Client
	events *event.Memory
	sink   *memorySink

	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	attrRepo     repository.AttributeRepository
	mediaRepo    repository.MediaRepository
	stateRepo    repository.SyncStateRepository
	runLogRepo   repository.RunLogRepository

	storage    *StorageService
	taxonomy   *TaxonomyService
	reconciler *ReconcileService
	assets     *AssetService
	importer   *ImportService
}

type fixtureOptions struct {
	reconcile ReconcileOptions
	pageSize  int
	noCreds   bool
}

func newSyncFixture(t *testing.T, opts fixtureOptions) *syncFixture {
	t.Helper()
	db := setupServiceTestDB(t)
	remote := newFakeRemote(t)

	creds := catalog.Credentials{Username: "user", Password: "secret"}
	if opts.noCreds {
		creds = catalog.Credentials{}
	}
	client := catalog.NewClient(catalog.Config{
		BaseURL:     remote.server.URL,
		AssetHost:   remote.server.URL,
		Credentials: creds,
		Timeout:     5 * time.Second,
	})

	storage, err := NewStorageService(StorageConfig{
		Provider: "local",
		BasePath: t.TempDir(),
		Endpoint: "http://media.local/uploads",
	})
	if err != nil {
		t.Fatalf("初始化存储失败: %v", err)
	}

	f := &syncFixture{
		db:           db,
		remote:       remote,
		client:       client,
		events:       &event.Memory{},
		sink:         &memorySink{},
		productRepo:  repository.NewProductRepository(db),
		categoryRepo: repository.NewCategoryRepository(db),
		attrRepo:     repository.NewAttributeRepository(db),
		mediaRepo:    repository.NewMediaRepository(db),
		stateRepo:    repository.NewSyncStateRepository(db),
		runLogRepo:   repository.NewRunLogRepository(db),
		storage:      storage,
	}
	f.taxonomy = NewTaxonomyService(f.attrRepo, f.productRepo)
	f.reconciler = NewReconcileService(client, f.productRepo, f.categoryRepo, f.taxonomy, f.events, opts.reconcile)
	f.assets = NewAssetService(client, f.productRepo, f.mediaRepo, storage)
	f.importer = NewImportService(client, f.reconciler, f.assets, f.stateRepo, f.runLogRepo,
		f.sink, lock.NewLocalLocker(), f.events, ImportOptions{PageSize: opts.pageSize})
	return f
}

func (f *syncFixture) product(t *testing.T, sku string) *model.Product {
	t.Helper()
	p, err := f.productRepo.FindBySKU(t.Context(), sku)
	if err != nil {
		t.Fatalf("FindBySKU(%s) error = %v", sku, err)
	}
	if p == nil {
		t.Fatalf("商品 %s 不存在", sku)
	}
	return p
}

// memorySink 记录运行日志
type memorySink struct {
	mu    sync.Mutex
	lines []string
}

func (s *memorySink) Log(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, msg)
}

func (s *memorySink) contains(sub string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

var _ runlog.Sink = (*memorySink)(nil)
