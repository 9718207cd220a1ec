package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 手动同步冷却 ====================

// SyncAction 受冷却约束的手动操作
type SyncAction string

const (
	SyncActionImport SyncAction = "catalog" // 立即导入一页
	SyncActionReset  SyncAction = "reset"   // 游标回到第 1 页
)

// DefaultCooldowns 默认冷却时间
var DefaultCooldowns = map[SyncAction]time.Duration{
	SyncActionImport: time.Minute,
	SyncActionReset:  10 * time.Second,
}

// SyncThrottle 手动同步冷却，单进程内生效
//
// 处理失败 (状态码 >= 400) 的请求不占用冷却；
// 游标重置成功后立即放行下一次导入。
type SyncThrottle struct {
	mu        sync.Mutex
	cooldowns map[SyncAction]time.Duration
	last      map[SyncAction]time.Time
	now       func() time.Time
}

// NewSyncThrottle 创建冷却器，未配置或非正数的操作使用默认值
func NewSyncThrottle(cooldowns map[SyncAction]time.Duration) *SyncThrottle {
	merged := make(map[SyncAction]time.Duration, len(DefaultCooldowns))
	for action, d := range DefaultCooldowns {
		merged[action] = d
	}
	for action, d := range cooldowns {
		if d > 0 {
			merged[action] = d
		}
	}
	return &SyncThrottle{
		cooldowns: merged,
		last:      make(map[SyncAction]time.Time),
		now:       time.Now,
	}
}

// Cooldown 操作的冷却时间
func (t *SyncThrottle) Cooldown(action SyncAction) time.Duration {
	if d, ok := t.cooldowns[action]; ok {
		return d
	}
	return time.Minute
}

// Acquire 占用一次冷却窗口
// 冷却中返回 nil 与剩余时间；成功时返回的 release 用于撤销本次占用
func (t *SyncThrottle) Acquire(action SyncAction) (release func(), wait time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	prev, seen := t.last[action]
	if seen {
		if elapsed := now.Sub(prev); elapsed < t.Cooldown(action) {
			return nil, t.Cooldown(action) - elapsed
		}
	}
	t.last[action] = now

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		// 期间已被其他请求占用则不回滚
		if !t.last[action].Equal(now) {
			return
		}
		if seen {
			t.last[action] = prev
		} else {
			delete(t.last, action)
		}
	}, 0
}

// Clear 清除操作的冷却
func (t *SyncThrottle) Clear(action SyncAction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, action)
}

// Guard 冷却中间件，冷却中返回 429 与 Retry-After
func (t *SyncThrottle) Guard(action SyncAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		release, wait := t.Acquire(action)
		if release == nil {
			seconds := int(math.Ceil(wait.Seconds()))
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": retryMessage(seconds),
				"data": gin.H{
					"retry_after": seconds,
					"action":      action,
				},
			})
			return
		}

		c.Next()

		switch {
		case c.Writer.Status() >= http.StatusBadRequest:
			release()
		case action == SyncActionReset:
			t.Clear(SyncActionImport)
		}
	}
}

func retryMessage(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("同步冷却中，请 %d 秒后重试", seconds)
	}
	if seconds%60 == 0 {
		return fmt.Sprintf("同步冷却中，请 %d 分钟后重试", seconds/60)
	}
	return fmt.Sprintf("同步冷却中，请 %d 分 %d 秒后重试", seconds/60, seconds%60)
}
