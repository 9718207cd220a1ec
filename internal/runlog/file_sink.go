package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// 行格式 [2006-01-02 15:04:05] message
	lineTimeLayout = "2006-01-02 15:04:05"
	// 每日一个文件 log-19-10-2026.txt
	fileDateLayout = "02-01-2006"
)

// FileSink 按日切分的文本日志
type FileSink struct {
	logger *zap.Logger
	writer *dailyWriter
}

// NewFileSink 在 dir 下创建日志，目录不存在时自动创建
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}

	w := &dailyWriter{dir: dir, now: time.Now}
	encCfg := zapcore.EncoderConfig{
		TimeKey:          "time",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + t.Format(lineTimeLayout) + "]")
		},
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), zapcore.InfoLevel)

	return &FileSink{logger: zap.New(core), writer: w}, nil
}

func (s *FileSink) Log(msg string) {
	s.logger.Info(msg)
}

// Close 关闭当前文件
func (s *FileSink) Close() error {
	_ = s.logger.Sync()
	return s.writer.Close()
}

// CurrentPath 当天日志文件路径
func (s *FileSink) CurrentPath() string {
	return s.writer.pathFor(s.writer.now())
}

// ==================== 按日切换的 Writer ====================

type dailyWriter struct {
	mu   sync.Mutex
	dir  string
	now  func() time.Time
	day  string
	file *os.File
}

func (w *dailyWriter) pathFor(t time.Time) string {
	return filepath.Join(w.dir, "log-"+t.Format(fileDateLayout)+".txt")
}

func (w *dailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	day := now.Format(fileDateLayout)
	if w.file == nil || day != w.day {
		if w.file != nil {
			_ = w.file.Close()
		}
		f, err := os.OpenFile(w.pathFor(now), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, err
		}
		w.file = f
		w.day = day
	}
	return w.file.Write(p)
}

func (w *dailyWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

func (w *dailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
