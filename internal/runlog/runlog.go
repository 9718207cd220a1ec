package runlog

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.uber.org/zap"

	"catalog_sync_v1/internal/model"
	"catalog_sync_v1/internal/repository"
)

// ==================== 接口定义 ====================

// Sink 只追加的运行日志，时间戳由实现补充
type Sink interface {
	Log(msg string)
}

// RunScoped 可派生出单次运行专用的 Sink
type RunScoped interface {
	ForRun(runID string) Sink
}

// ForRun 为一次导入派生 Sink，不支持的实现原样返回
func ForRun(s Sink, runID string) Sink {
	if rs, ok := s.(RunScoped); ok {
		return rs.ForRun(runID)
	}
	return s
}

// Logf 格式化写入
func Logf(s Sink, format string, args ...interface{}) {
	if s == nil {
		return
	}
	s.Log(fmt.Sprintf(format, args...))
}

// ==================== Nop / Std ====================

type nopSink struct{}

func (nopSink) Log(string) {}

// Nop 丢弃所有日志
func Nop() Sink { return nopSink{} }

type stdSink struct {
	prefix string
}

func (s stdSink) Log(msg string) { log.Printf("%s %s", s.prefix, msg) }

// Std 写到标准 log，prefix 如 "[ImportService]"
func Std(prefix string) Sink { return stdSink{prefix: prefix} }

// ==================== Zap ====================

// ZapSink 结构化输出，附带运行 ID
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink 创建 zap 日志
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Log(msg string) {
	s.logger.Info(msg)
}

// With 附加字段
func (s *ZapSink) With(fields ...zap.Field) *ZapSink {
	return &ZapSink{logger: s.logger.With(fields...)}
}

func (s *ZapSink) ForRun(runID string) Sink {
	return s.With(zap.String("run_id", runID))
}

// ==================== 数据库 ====================

// DBSink 写入 run_logs 表，写库失败只打印到标准日志
type DBSink struct {
	repo    repository.RunLogRepository
	runID   string
	timeout time.Duration
}

// NewDBSink 创建数据库日志
func NewDBSink(repo repository.RunLogRepository, runID string) *DBSink {
	return &DBSink{repo: repo, runID: runID, timeout: 5 * time.Second}
}

func (s *DBSink) Log(msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	entry := &model.RunLog{
		RunID:   s.runID,
		Level:   model.RunLogLevelInfo,
		Message: msg,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		log.Printf("[RunLog] 写入运行日志失败: %v", err)
	}
}

// ==================== 组合 ====================

type multiSink struct {
	mu    sync.Mutex
	sinks []Sink
}

// Multi 依次写入多个 Sink，忽略 nil
func Multi(sinks ...Sink) Sink {
	var filtered []Sink
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &multiSink{sinks: filtered}
}

func (m *multiSink) ForRun(runID string) Sink {
	scoped := make([]Sink, 0, len(m.sinks))
	for _, s := range m.sinks {
		scoped = append(scoped, ForRun(s, runID))
	}
	return &multiSink{sinks: scoped}
}

func (m *multiSink) Log(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sinks {
		s.Log(msg)
	}
}
