package resolve

import (
	"github.com/John-Robertt/moviefind/internal/domain"
)

// 脚本化替代元数据（anime 候选超时时使用）。
const (
	substitutePriority = 2
	substituteNotice   = "А ловко ты это придумал, РКН заблокировал аниме в рф, об этом было предупреждение при команде /start.\n"
	substituteSpoiler  = "Ладно, так уж и быть я кое-что для тебя нашёл"
	substituteMarker   = "anime"
)

// aggregator 维护"当前最佳元数据 + 去重链接集合"。
//
// 约束：
// - max 初始为 PriorityFloor；只有严格大于 max 才会替换 best（同分保留先到者）
// - links 按首次加入的顺序保存
type aggregator struct {
	query    string
	maxLinks int

	max  int
	best *domain.MovieMeta

	links []string
	seen  map[string]struct{}
}

func newAggregator(query string, maxLinks int) *aggregator {
	return &aggregator{
		query:    query,
		maxLinks: maxLinks,
		max:      domain.PriorityFloor,
		seen:     make(map[string]struct{}, maxLinks),
	}
}

// offer 用一次成功抽取的元数据竞争 best；返回是否被采纳。
// 采纳时若标题缺失，用首字母大写的查询串补上（priority 不重算）。
func (a *aggregator) offer(m domain.MovieMeta) bool {
	if m.Priority <= a.max {
		return false
	}
	if m.Title == "" {
		m.Title = domain.Capitalize(a.query)
	}
	a.max = m.Priority
	a.best = &m
	return true
}

// offerSubstitute 用脚本化替代元数据竞争 best；返回是否被采纳。
func (a *aggregator) offerSubstitute() bool {
	if substitutePriority <= a.max {
		return false
	}
	m := substituteMeta(a.query)
	a.max = substitutePriority
	a.best = &m
	return true
}

func (a *aggregator) addLink(u string) {
	if _, ok := a.seen[u]; ok {
		return
	}
	a.seen[u] = struct{}{}
	a.links = append(a.links, u)
}

func (a *aggregator) full() bool { return len(a.links) >= a.maxLinks }

// finish 按终止规则给出 (links, meta, state)。
func (a *aggregator) finish(raw []string) ([]string, *domain.MovieMeta, string) {
	if len(a.links) > 0 {
		best := a.best
		if best == nil {
			best = placeholder(a.query)
		}
		return append([]string(nil), a.links...), best, domain.StateDone
	}
	if len(raw) > 0 {
		return []string{raw[0]}, placeholder(a.query), domain.StateFallback
	}
	return []string{}, nil, domain.StateEmpty
}

func substituteMeta(query string) domain.MovieMeta {
	return domain.MovieMeta{
		Title:       domain.Capitalize(query),
		Description: substituteNotice,
		Spoiler:     substituteSpoiler,
		Priority:    substitutePriority,
	}
}

func placeholder(query string) *domain.MovieMeta {
	return &domain.MovieMeta{Title: query, Priority: domain.PriorityFloor}
}
