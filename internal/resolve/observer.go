package resolve

import (
	"time"

	"github.com/John-Robertt/moviefind/internal/domain"
)

// Observer 用于把"解析进度/候选结果"从核心流程中解耦出来。
//
// 约束：
// - resolve 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 同一次 Resolve 的事件按顺序在调用方 goroutine 上发出
type Observer interface {
	// OnStart 在 Resolve 开始时调用。
	OnStart(id, query string)
	// OnSearchDone 在搜索结束后调用；err 非 nil 表示搜索失败（已降级为无候选）。
	OnSearchDone(engine string, candidates int, err error, dur time.Duration)
	// OnCandidateDone 在每个候选处理完成时调用。
	OnCandidateDone(idx, total int, att domain.CandidateAttempt, dur time.Duration)
}

type nopObserver struct{}

func (nopObserver) OnStart(string, string) {}
func (nopObserver) OnSearchDone(string, int, error, time.Duration) {}
func (nopObserver) OnCandidateDone(int, int, domain.CandidateAttempt, time.Duration) {}
