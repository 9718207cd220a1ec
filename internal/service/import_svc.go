package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"catalog_sync_v1/internal/event"
	"catalog_sync_v1/internal/lock"
	"catalog_sync_v1/internal/model"
	"catalog_sync_v1/internal/observability"
	"catalog_sync_v1/internal/repository"
	"catalog_sync_v1/internal/runlog"
	"catalog_sync_v1/pkg/catalog"
)

// ErrRunInProgress 其他进程正在同步
var ErrRunInProgress = errors.New("catalog import already running")

// ImportOptions 导入选项
type ImportOptions struct {
	PageSize int
	LockTTL  time.Duration
	// 同一页连续拉取失败多少次后回到第 1 页
	MaxFetchFailures int
}

// RunResult 单次运行结果
type RunResult struct {
	RunID      string    `json:"run_id"`
	Page       int       `json:"page"`
	NextPage   int       `json:"next_page"`
	ItemCount  int       `json:"item_count"`
	Outcome    string    `json:"outcome"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	Imported   int       `json:"assets_imported"`
	Reused     int       `json:"assets_reused"`
	Skipped    int       `json:"assets_skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ImportService 每次运行处理一页商品
type ImportService struct {
	api        CatalogAPI
	reconciler *ReconcileService
	assets     *AssetService
	stateRepo  repository.SyncStateRepository
	runLogRepo repository.RunLogRepository
	sink       runlog.Sink
	locker     lock.Locker
	publisher  event.Publisher
	opts       ImportOptions

	group    singleflight.Group
	newRunID func() string
	now      func() time.Time
}

func NewImportService(
	api CatalogAPI,
	reconciler *ReconcileService,
	assets *AssetService,
	stateRepo repository.SyncStateRepository,
	runLogRepo repository.RunLogRepository,
	sink runlog.Sink,
	locker lock.Locker,
	publisher event.Publisher,
	opts ImportOptions,
) *ImportService {
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 25 * time.Minute
	}
	if opts.MaxFetchFailures <= 0 {
		opts.MaxFetchFailures = 3
	}
	if sink == nil {
		sink = runlog.Std("[ImportService]")
	}
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if publisher == nil {
		publisher = event.Nop()
	}
	return &ImportService{
		api:        api,
		reconciler: reconciler,
		assets:     assets,
		stateRepo:  stateRepo,
		runLogRepo: runLogRepo,
		sink:       sink,
		locker:     locker,
		publisher:  publisher,
		opts:       opts,
		newRunID:   uuid.NewString,
		now:        time.Now,
	}
}

// RunPage 处理当前游标指向的一页
// 进程内并发调用共享同一次运行
func (s *ImportService) RunPage(ctx context.Context) (*RunResult, error) {
	v, err, _ := s.group.Do(model.SyncStateCatalogPage, func() (interface{}, error) {
		return s.runPage(ctx)
	})
	result, _ := v.(*RunResult)
	return result, err
}

func (s *ImportService) runPage(ctx context.Context) (*RunResult, error) {
	// 1. 凭据缺失时直接失败，不发起请求
	if err := s.api.Ready(); err != nil {
		runlog.Logf(s.sink, "Catalog import aborted: %v", err)
		return nil, err
	}

	// 2. 跨进程锁
	release, err := s.locker.Acquire(ctx, model.SyncStateCatalogPage, s.opts.LockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("获取运行锁失败: %w", err)
	}
	defer release()

	runID := s.newRunID()
	sink := runlog.Multi(runlog.ForRun(s.sink, runID), runlog.NewDBSink(s.runLogRepo, runID))
	ctx = WithRun(ctx, runID, sink)

	result := &RunResult{RunID: runID, StartedAt: s.now()}

	// 3. 读取游标
	state, err := s.stateRepo.Get(ctx, model.SyncStateCatalogPage)
	if err != nil {
		return nil, fmt.Errorf("读取游标失败: %w", err)
	}
	cursor := NewCursor(state.CurrentPage, state.FetchFailures)
	result.Page = cursor.Page
	runlog.Logf(sink, "Starting catalog import for page %d", cursor.Page)

	// 4. 拉取本页
	products, fetchErr := s.api.FetchProducts(ctx, cursor.Page, s.opts.PageSize)
	var apiErr *catalog.APIError
	if errors.As(fetchErr, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		// 越过最后一页时部分部署返回 404，按空页处理
		runlog.Logf(sink, "Page %d not found, treating as end of catalog", cursor.Page)
		products, fetchErr = nil, nil
	}
	if fetchErr != nil {
		runlog.Logf(sink, "Failed to fetch page %d: %v", cursor.Page, fetchErr)
	}
	result.ItemCount = len(products)

	// 5. 第一轮: 商品字段
	for _, p := range products {
		if ctx.Err() != nil {
			break
		}
		res, err := s.reconciler.Reconcile(ctx, p)
		if err != nil {
			result.Failed++
			observability.ProductsTotal.WithLabelValues("failed").Inc()
			runlog.Logf(sink, "Failed to sync product %s: %v", p.SKU(), err)
			continue
		}
		if res.Action == ActionCreated {
			result.Created++
		} else {
			result.Updated++
		}
	}

	// 6. 第二轮: 图片
	for _, p := range products {
		if ctx.Err() != nil {
			break
		}
		res, err := s.assets.ImportProductAssets(ctx, p)
		if err != nil {
			runlog.Logf(sink, "Failed to import images for product %s: %v", p.SKU(), err)
			continue
		}
		if res.Skipped {
			result.Skipped++
		}
		result.Imported += res.Imported
		result.Reused += res.Reused
	}

	// 7. 游标只写一次，超时后仍需落库
	next, outcome := cursor.Next(len(products), fetchErr, s.opts.MaxFetchFailures)
	interruptErr := ctx.Err()
	if interruptErr != nil {
		// 取消导致的拉取失败不计入连续失败次数
		next, outcome = cursor.Hold()
		runlog.Logf(sink, "Import of page %d interrupted (%v), page will be retried", cursor.Page, interruptErr)
	}
	switch outcome {
	case PageOutcomeEmpty:
		runlog.Logf(sink, "No more products, resetting to page 1")
	case PageOutcomeFetchReset:
		runlog.Logf(sink, "Page %d failed %d times in a row, resetting to page 1", cursor.Page, cursor.Failures+1)
	}
	result.NextPage = next.Page
	result.Outcome = outcome
	result.FinishedAt = s.now()

	lastError := ""
	switch {
	case fetchErr != nil:
		lastError = fetchErr.Error()
	case outcome == PageOutcomeInterrupted:
		lastError = interruptErr.Error()
	}
	state.CurrentPage = next.Page
	state.LastRunID = runID
	state.LastRunAt = &result.FinishedAt
	state.LastPage = cursor.Page
	state.LastItemCount = len(products)
	state.LastError = lastError
	state.FetchFailures = next.Failures

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.stateRepo.Save(saveCtx, state); err != nil {
		log.Printf("[ImportService] 保存游标失败: %v", err)
		return result, fmt.Errorf("保存游标失败: %w", err)
	}

	observability.PagesTotal.WithLabelValues(outcome).Inc()
	observability.CursorPage.Set(float64(next.Page))
	observability.RunDuration.Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())

	runlog.Logf(sink, "Completed page %d: %d products (%d created, %d updated, %d failed)",
		cursor.Page, len(products), result.Created, result.Updated, result.Failed)

	event.PublishQuietly(saveCtx, s.publisher, event.Event{
		Type:  event.TypePageCompleted,
		RunID: runID,
		Data: map[string]interface{}{
			"page":       cursor.Page,
			"next_page":  next.Page,
			"item_count": len(products),
		},
	})

	if fetchErr != nil {
		return result, fmt.Errorf("获取第 %d 页失败: %w", cursor.Page, fetchErr)
	}
	if outcome == PageOutcomeInterrupted {
		return result, fmt.Errorf("第 %d 页未处理完: %w", cursor.Page, interruptErr)
	}
	return result, nil
}

// Status 当前游标与最近一次运行
func (s *ImportService) Status(ctx context.Context) (*model.SyncState, error) {
	return s.stateRepo.Get(ctx, model.SyncStateCatalogPage)
}

// ResetCursor 游标回到第 1 页
func (s *ImportService) ResetCursor(ctx context.Context) error {
	if err := s.stateRepo.ResetPage(ctx, model.SyncStateCatalogPage); err != nil {
		return err
	}
	observability.CursorPage.Set(1)
	runlog.Logf(s.sink, "Cursor reset to page 1")
	return nil
}

// RecentLogs 最近的运行日志
func (s *ImportService) RecentLogs(ctx context.Context, runID string, limit int) ([]model.RunLog, error) {
	if runID != "" {
		return s.runLogRepo.ListByRun(ctx, runID)
	}
	return s.runLogRepo.ListRecent(ctx, limit)
}
