package service

// 分页结果
const (
	PageOutcomeOK          = "ok"
	PageOutcomeEmpty       = "empty"
	PageOutcomeFetchError  = "fetch_error"
	PageOutcomeFetchReset  = "fetch_reset" // 同一页连续拉取失败达到上限，回到第 1 页
	PageOutcomeInterrupted = "interrupted" // 运行超时或被取消，本页未处理完
)

// CursorState 分页游标
// 非空页 -> 下一页；空页 -> 回到第 1 页；
// 拉取失败 -> 停留在当前页，连续失败达到上限后回到第 1 页；中断 -> 停留
type CursorState struct {
	Page     int
	Failures int // 当前页连续拉取失败次数
}

// NewCursor 页码小于 1 时从第 1 页开始
func NewCursor(page, failures int) CursorState {
	if page < 1 {
		page = 1
	}
	if failures < 0 {
		failures = 0
	}
	return CursorState{Page: page, Failures: failures}
}

// Next 根据本页结果计算下一次运行的游标
// maxFailures <= 0 表示拉取失败时一直停留
func (c CursorState) Next(itemCount int, fetchErr error, maxFailures int) (CursorState, string) {
	switch {
	case fetchErr != nil:
		failures := c.Failures + 1
		if maxFailures > 0 && failures >= maxFailures {
			return CursorState{Page: 1}, PageOutcomeFetchReset
		}
		return CursorState{Page: c.Page, Failures: failures}, PageOutcomeFetchError
	case itemCount == 0:
		return CursorState{Page: 1}, PageOutcomeEmpty
	default:
		return CursorState{Page: c.Page + 1}, PageOutcomeOK
	}
}

// Hold 本页中断，下次运行重新处理，不计入拉取失败
func (c CursorState) Hold() (CursorState, string) {
	return c, PageOutcomeInterrupted
}
