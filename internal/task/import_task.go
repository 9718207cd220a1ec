package task

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"catalog_sync_v1/internal/service"
)

// PageRunner 执行一页导入，*service.ImportService 实现
type PageRunner interface {
	RunPage(ctx context.Context) (*service.RunResult, error)
}

// ==================== ImportTask 目录导入任务 ====================

// ImportTask 定时导入远端目录，每次处理一页
type ImportTask struct {
	runner        PageRunner
	cron          *cron.Cron
	spec          string
	timeout       time.Duration
	firstRunDelay time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewImportTask 创建导入任务
func NewImportTask(runner PageRunner, spec string, timeout, firstRunDelay time.Duration) *ImportTask {
	if spec == "" {
		spec = "0 0 * * * *"
	}
	if timeout <= 0 {
		timeout = 20 * time.Minute
	}
	return &ImportTask{
		runner:        runner,
		cron:          cron.New(cron.WithSeconds()),
		spec:          spec,
		timeout:       timeout,
		firstRunDelay: firstRunDelay,
		stopCh:        make(chan struct{}),
	}
}

// Start 启动定时任务
func (t *ImportTask) Start() error {
	if _, err := t.cron.AddFunc(t.spec, t.runScheduled); err != nil {
		return fmt.Errorf("无效的导入任务表达式 %q: %w", t.spec, err)
	}

	// 首次执行（延迟启动，等待服务就绪）
	if t.firstRunDelay > 0 {
		go func() {
			select {
			case <-time.After(t.firstRunDelay):
				log.Println("[ImportTask] 执行首次目录导入...")
				t.runScheduled()
			case <-t.stopCh:
			}
		}()
	}

	t.cron.Start()
	log.Printf("[ImportTask] 已启动 (%s)", t.spec)
	return nil
}

// Stop 停止任务，等待执行中的导入结束
func (t *ImportTask) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[ImportTask] 已停止")
}

func (t *ImportTask) runScheduled() {
	result, err := t.RunNow(context.Background())
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		log.Println("[ImportTask] 上一次导入仍在进行，跳过")
	case err != nil:
		log.Printf("[ImportTask] 导入失败: %v", err)
	case result != nil:
		log.Printf("[ImportTask] 第 %d 页完成: %d 个商品, 下次从第 %d 页开始",
			result.Page, result.ItemCount, result.NextPage)
	}
}

// ==================== 手动触发 ====================

// RunNow 同步执行一页
// 调用方断开不会中断导入，整页受 timeout 约束
func (t *ImportTask) RunNow(ctx context.Context) (*service.RunResult, error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()
	return t.runner.RunPage(runCtx)
}
