package domain

import "time"

// Resolution 的终态。
const (
	StateDone     = "done"     // 至少收集到一个去重链接
	StateFallback = "fallback" // 全部候选失败，退回第一个原始候选
	StateEmpty    = "empty"    // 搜索没有给出任何候选
	StateFailed   = "failed"   // 解析流程内部出现未预期的错误（已降级为空结果）
)

// 单个候选的处理阶段。
const (
	StageOK         = "ok"
	StageFetch      = "fetch"
	StageRegion     = "region"
	StageTimeout    = "timeout"
	StageSubstitute = "substitute"
	StageCanceled   = "canceled"
)

const (
	ErrCodeFetchFailed   = "fetch_failed"
	ErrCodeRegionMissing = "region_missing"
	ErrCodeTimeout       = "timeout"
	ErrCodeCanceled      = "canceled"
	ErrCodeSearchFailed  = "search_failed"
	ErrCodeInternal      = "internal"
	ErrCodeConfigInvalid = "config_invalid"
)

// Resolution 是一次查询解析的完整结果（对外稳定输出）。
//
// 约束：
// - Links 永不为 nil；"未找到" 用空 Links 表示
// - Meta 为 nil 仅当 Links 为空
type Resolution struct {
	ID    string `json:"id"`
	Query string `json:"query"`

	Links []string   `json:"links"`
	Meta  *MovieMeta `json:"meta"`

	State      string `json:"state"`
	Candidates int    `json:"candidates"`
	Engine     string `json:"engine,omitempty"`

	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`

	Attempts []CandidateAttempt `json:"attempts"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// CandidateAttempt 记录一个候选链接的处理结果（用于解释为何选中/跳过）。
type CandidateAttempt struct {
	URL       string `json:"url"`
	Stage     string `json:"stage"`
	Priority  *int   `json:"priority,omitempty"`
	Adopted   bool   `json:"adopted"`
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

// Found 报告是否有可展示的结果。
func (r Resolution) Found() bool { return len(r.Links) > 0 }

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) nil 切片规范化为空切片（JSON 输出 [] 而不是 null）
func (r *Resolution) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Links == nil {
		r.Links = []string{}
	}
	if r.Attempts == nil {
		r.Attempts = []CandidateAttempt{}
	}
}
