package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/John-Robertt/moviefind/internal/domain"
	"github.com/John-Robertt/moviefind/internal/provider"
)

const (
	DefaultCandidateTimeout = time.Second
	DefaultMaxLinks         = 3
)

// Searcher 给出查询的候选链接（按搜索结果顺序，未去重）以及实际使用的引擎名。
// *search.Chain 满足该接口。
type Searcher interface {
	Search(ctx context.Context, query string, c *http.Client) (links []string, engine string, err error)
}

// Options 是 Resolver 的只读配置。
type Options struct {
	// CandidateTimeout 限制单个候选（抓取 + 抽取）的耗时；<=0 时使用默认值。
	CandidateTimeout time.Duration
	// MaxLinks 是去重链接数达到后提前结束的阈值；<=0 时使用默认值。
	MaxLinks int

	Logger   *zap.Logger
	Observer Observer

	// NewID / Now 仅用于测试注入。
	NewID func() string
	Now   func() time.Time
}

// Resolver 把一次查询解析为 (links, 最佳元数据)。
// 构造后字段只读，可被多个 goroutine 并发使用。
type Resolver struct {
	searcher Searcher
	source   provider.PageSource
	client   *http.Client

	timeout  time.Duration
	maxLinks int
	log      *zap.Logger
	obs      Observer
	newID    func() string
	now      func() time.Time
}

func New(s Searcher, src provider.PageSource, c *http.Client, opts Options) (*Resolver, error) {
	if s == nil {
		return nil, errors.New("searcher 不能为空")
	}
	if src == nil {
		return nil, errors.New("page source 不能为空")
	}
	r := &Resolver{
		searcher: s,
		source:   src,
		client:   c,
		timeout:  opts.CandidateTimeout,
		maxLinks: opts.MaxLinks,
		log:      opts.Logger,
		obs:      opts.Observer,
		newID:    opts.NewID,
		now:      opts.Now,
	}
	if r.client == nil {
		r.client = http.DefaultClient
	}
	if r.timeout <= 0 {
		r.timeout = DefaultCandidateTimeout
	}
	if r.maxLinks <= 0 {
		r.maxLinks = DefaultMaxLinks
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.obs == nil {
		r.obs = nopObserver{}
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// Resolve 执行一次查询解析。该函数从不返回错误：
// 候选级失败记录在 Attempts 中；任何未预期的 panic 都会被降级为空结果（State=failed）。
func (r *Resolver) Resolve(ctx context.Context, query string) (res domain.Resolution) {
	res = domain.Resolution{
		ID:        r.newID(),
		Query:     query,
		StartedAt: r.now(),
	}
	log := r.log.With(zap.String("resolution_id", res.ID))

	defer func() {
		if p := recover(); p != nil {
			log.Error("resolve panic", zap.String("query", query), zap.Any("panic", p), zap.Stack("stack"))
			res.Links = []string{}
			res.Meta = nil
			res.State = domain.StateFailed
			res.ErrorCode = domain.ErrCodeInternal
			res.ErrorMsg = fmt.Sprint(p)
		}
		res.FinishedAt = r.now()
		res.Finalize()
	}()

	r.obs.OnStart(res.ID, query)

	searchStarted := time.Now()
	raw, engine, err := r.searcher.Search(ctx, query, r.client)
	if err != nil {
		// 搜索失败等价于"没有候选"
		log.Warn("search failed", zap.String("query", query), zap.Error(err))
		res.ErrorCode = domain.ErrCodeSearchFailed
		res.ErrorMsg = err.Error()
		raw = nil
	}
	res.Engine = engine
	res.Candidates = len(raw)
	r.obs.OnSearchDone(engine, len(raw), err, time.Since(searchStarted))
	log.Debug("search done", zap.String("engine", engine), zap.Int("candidates", len(raw)))

	agg := newAggregator(query, r.maxLinks)
	res.Attempts = make([]domain.CandidateAttempt, 0, len(raw))

	for i, u := range raw {
		if ctx.Err() != nil {
			log.Debug("resolve canceled", zap.Int("processed", i))
			break
		}
		oneStarted := time.Now()
		att := r.candidate(ctx, log, agg, u)
		res.Attempts = append(res.Attempts, att)
		r.obs.OnCandidateDone(i+1, len(raw), att, time.Since(oneStarted))

		if att.Stage == domain.StageCanceled || agg.full() {
			break
		}
	}

	links, meta, state := agg.finish(raw)
	res.Links = links
	res.Meta = meta
	res.State = state

	log.Info("resolve done",
		zap.String("query", query),
		zap.String("state", state),
		zap.Int("links", len(links)),
		zap.Int("candidates", len(raw)),
	)
	return res
}

type fetchResult struct {
	meta     domain.MovieMeta
	err      error
	panicked any
}

// candidate 处理单个候选：有界抓取 -> 竞争 best -> 加入链接集合。
func (r *Resolver) candidate(ctx context.Context, log *zap.Logger, agg *aggregator, u string) domain.CandidateAttempt {
	att := domain.CandidateAttempt{URL: u}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// 在独立 goroutine 中执行，使超时同样约束解析阶段；超时后结果被丢弃。
	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fetchResult{panicked: p}
			}
		}()
		m, err := provider.FetchMeta(cctx, r.source, u, r.client)
		done <- fetchResult{meta: m, err: err}
	}()

	var fr fetchResult
	select {
	case fr = <-done:
	case <-cctx.Done():
		fr = fetchResult{err: cctx.Err()}
	}
	if fr.panicked != nil {
		panic(fr.panicked)
	}

	if fr.err == nil {
		att.Stage = domain.StageOK
		att.Priority = intPtr(fr.meta.Priority)
		att.Adopted = agg.offer(fr.meta)
		agg.addLink(u)
		log.Debug("candidate ok", zap.String("url", u), zap.Int("priority", fr.meta.Priority), zap.Bool("adopted", att.Adopted))
		return att
	}

	switch {
	case ctx.Err() != nil:
		att.Stage = domain.StageCanceled
		att.ErrorCode = domain.ErrCodeCanceled
		att.ErrorMsg = ctx.Err().Error()

	case errors.Is(fr.err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded):
		if strings.Contains(u, substituteMarker) {
			att.Stage = domain.StageSubstitute
			att.Priority = intPtr(substitutePriority)
			att.Adopted = agg.offerSubstitute()
			agg.addLink(u)
			log.Debug("candidate substituted", zap.String("url", u), zap.Bool("adopted", att.Adopted))
			return att
		}
		att.Stage = domain.StageTimeout
		att.ErrorCode = domain.ErrCodeTimeout
		att.ErrorMsg = fmt.Sprintf("超时（%s）", r.timeout)

	default:
		att.Stage, att.ErrorCode = classify(fr.err)
		att.ErrorMsg = fr.err.Error()
	}

	log.Debug("candidate skipped",
		zap.String("url", u),
		zap.String("stage", att.Stage),
		zap.String("error_code", att.ErrorCode),
		zap.Error(fr.err),
	)
	return att
}

// classify 把 provider 错误映射为 (stage, error_code)。
func classify(err error) (string, string) {
	var pe *provider.Error
	if errors.As(err, &pe) && pe.Stage == provider.StageRegion {
		return domain.StageRegion, domain.ErrCodeRegionMissing
	}
	return domain.StageFetch, domain.ErrCodeFetchFailed
}

func intPtr(v int) *int { return &v }
