package resolve

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/John-Robertt/moviefind/internal/domain"
	"github.com/John-Robertt/moviefind/internal/provider"
)

const (
	// priority 6，title=Матрица
	pageFull = "Матрица — это фильм.Название:МатрицаГод выхода:1999Страна:СШАРежиссер:X7.5Актеры:Y"
	// priority 3，无标题
	pageNoTitle = "это фильм.Страна:СШАРежиссер:X"
	// priority 3，title=A / B
	pageA = "Название:AГод выхода:2000Страна:XРежиссер:Y"
	pageB = "Название:BГод выхода:2000Страна:XРежиссер:Y"
	// priority -1
	pageEmpty = ""
)

type stubSearcher struct {
	links  []string
	engine string
	err    error
	panic  bool
}

func (s *stubSearcher) Search(ctx context.Context, query string, c *http.Client) ([]string, string, error) {
	if s.panic {
		panic("search exploded")
	}
	return s.links, s.engine, s.err
}

type page struct {
	text  string
	err   error
	block bool // 阻塞直到 ctx 结束
	panic bool
}

type stubSource struct {
	mu    sync.Mutex
	pages map[string]page
	calls []string
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context, pageURL string, c *http.Client) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, pageURL)
	p, ok := s.pages[pageURL]
	s.mu.Unlock()

	if !ok {
		return nil, &provider.HTTPStatusError{URL: pageURL, StatusCode: http.StatusNotFound}
	}
	if p.panic {
		panic("fetch exploded")
	}
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	return []byte(p.text), nil
}

func (s *stubSource) Region(html []byte) (string, error) { return string(html), nil }

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newResolver(t *testing.T, s Searcher, src provider.PageSource, opts Options) *Resolver {
	t.Helper()
	if opts.CandidateTimeout == 0 {
		opts.CandidateTimeout = 50 * time.Millisecond
	}
	r, err := New(s, src, nil, opts)
	require.NoError(t, err)
	return r
}

func TestResolve_EarlyExitAtMaxLinks(t *testing.T) {
	src := &stubSource{pages: map[string]page{
		"u1": {text: pageA}, "u2": {text: pageB}, "u3": {text: pageFull}, "u4": {text: pageFull}, "u5": {text: pageFull},
	}}
	s := &stubSearcher{links: []string{"u1", "u2", "u3", "u4", "u5"}, engine: "google"}

	res := newResolver(t, s, src, Options{}).Resolve(context.Background(), "матрица")

	assert.Equal(t, domain.StateDone, res.State)
	assert.Equal(t, []string{"u1", "u2", "u3"}, res.Links)
	assert.Equal(t, 3, src.callCount(), "达到 3 个链接后不应继续抓取")
	assert.Len(t, res.Attempts, 3)
	assert.Equal(t, 5, res.Candidates)
	assert.Equal(t, "google", res.Engine)
	require.NotNil(t, res.Meta)
	assert.Equal(t, "Матрица", res.Meta.Title)
	assert.Equal(t, 6, res.Meta.Priority)
}

func TestResolve_DedupKeepsInsertionOrder(t *testing.T) {
	src := &stubSource{pages: map[string]page{"b": {text: pageB}, "a": {text: pageA}}}
	s := &stubSearcher{links: []string{"b", "a", "b"}}

	res := newResolver(t, s, src, Options{}).Resolve(context.Background(), "q")

	assert.Equal(t, []string{"b", "a"}, res.Links)
	assert.Len(t, res.Attempts, 3)
}

func TestResolve_TieBreakKeepsFirst(t *testing.T) {
	src := &stubSource{pages: map[string]page{"a": {text: pageA}, "b": {text: pageB}}}
	s := &stubSearcher{links: []string{"a", "b"}}

	res := newResolver(t, s, src, Options{}).Resolve(context.Background(), "q")

	require.NotNil(t, res.Meta)
	assert.Equal(t, "A", res.Meta.Title)
	assert.True(t, res.Attempts[0].Adopted)
	assert.False(t, res.Attempts[1].Adopted)
}

func TestResolve_AdoptedMetaGetsQueryTitle(t *testing.T) {
	src := &stubSource{pages: map[string]page{"u": {text: pageNoTitle}}}
	s := &stubSearcher{links: []string{"u"}}

	res := newResolver(t, s, src, Options{}).Resolve(context.Background(), "кРЕПКИЙ орешек")

	require.NotNil(t, res.Meta)
	assert.Equal(t, "Крепкий орешек", res.Meta.Title)
	assert.Equal(t, 3, res.Meta.Priority, "补标题不应重算 priority")
}

func TestResolve_AnimeSubstituteBeatsLowerPriority(t *testing.T) {
	anime := "https://lordfilm.example/anime/1.html"
	src := &stubSource{pages: map[string]page{"u1": {text: pageEmpty}, anime: {block: true}}}
	s := &stubSearcher{links: []string{"u1", anime}}

	res := newResolver(t, s, src, Options{}).Resolve(context.Background(), "наруто")

	assert.Equal(t, []string{"u1", anime}, res.Links)
	require.NotNil(t, res.Meta)
	assert.Equal(t, "Наруто", res.Meta.Title)
	assert.Equal(t, 2, res.Meta.Priority)
	assert.Equal(t, substituteNotice, res.Meta.Description)
	assert.Equal(t, substituteSpoiler, res.Meta.Spoiler)
	assert.Equal(t, domain.StageSubstitute, res.Attempts[1].Stage)
	assert.True(t, res.Attempts[1].Adopted)
}

func TestResolve_AnimeSubstituteNeverBeatsHigherPriority(t *testing.T) {
	anime := "https://lordfilm.example/anime/1.html"
	src := &stubSource{pages: map[string]page{"u1": {text: pageA}, anime: {block: true}}}
	s := &stubSearcher{links: []string{"u1", anime}}

	res := newResolver(t, s, src, Options{}).Resolve(context.Background(), "наруто")

	assert.Equal(t, []string{"u1", anime}, res.Links)
	require.NotNil(t, res.Meta)
	assert.Equal(t, "A", res.Meta.Title)
	assert.False(t, res.Attempts[1].Adopted)
}

func TestResolve_LaterHigherPriorityReplacesSubstitute(t *testing.T) {
	anime := "https://lordfilm.example/anime/1.html"
	src := &stubSource{pages: map[string]page{anime: {block: true}, "u2": {text: pageFull}}}
	s := &stubSearcher{links: []string{anime, "u2"}}

	res := newResolver(t, s, src, Options{}).Resolve(context.Background(), "матрица")

	require.NotNil(t, res.Meta)
	assert.Equal(t, 6, res.Meta.Priority)
	assert.Empty(t, res.Meta.Spoiler)
}

func TestResolve_AllFailFallsBackToFirstRawCandidate(t *testing.T) {
	src := &stubSource{pages: map[string]page{
		"u1": {block: true},
		"u2": {err: errors.New("connection reset")},
	}}
	s := &stubSearcher{links: []string{"u1", "u2", "u3"}}

	res := newResolver(t, s, src, Options{}).Resolve(context.Background(), "матрица")

	assert.Equal(t, domain.StateFallback, res.State)
	assert.Equal(t, []string{"u1"}, res.Links)
	require.NotNil(t, res.Meta)
	assert.Equal(t, domain.MovieMeta{Title: "матрица", Priority: domain.PriorityFloor}, *res.Meta)

	require.Len(t, res.Attempts, 3)
	assert.Equal(t, domain.StageTimeout, res.Attempts[0].Stage)
	assert.Equal(t, domain.ErrCodeTimeout, res.Attempts[0].ErrorCode)
	assert.Equal(t, domain.ErrCodeFetchFailed, res.Attempts[1].ErrorCode)
	assert.Equal(t, domain.ErrCodeFetchFailed, res.Attempts[2].ErrorCode)
}

type regionMissingSource struct{ stubSource }

func (s *regionMissingSource) Region([]byte) (string, error) {
	return "", &provider.RegionMissingError{}
}

func TestResolve_RegionMissingIsSkipped(t *testing.T) {
	src := &regionMissingSource{stubSource{pages: map[string]page{"u1": {text: "x"}}}}
	s := &stubSearcher{links: []string{"u1"}}

	res := newResolver(t, s, src, Options{}).Resolve(context.Background(), "q")

	require.Len(t, res.Attempts, 1)
	assert.Equal(t, domain.StageRegion, res.Attempts[0].Stage)
	assert.Equal(t, domain.ErrCodeRegionMissing, res.Attempts[0].ErrorCode)
	assert.Equal(t, domain.StateFallback, res.State)
}

func TestResolve_EmptySearch(t *testing.T) {
	src := &stubSource{}
	res := newResolver(t, &stubSearcher{engine: "google"}, src, Options{}).Resolve(context.Background(), "q")

	assert.Equal(t, domain.StateEmpty, res.State)
	assert.Equal(t, []string{}, res.Links)
	assert.Nil(t, res.Meta)
	assert.Equal(t, 0, src.callCount())
}

func TestResolve_SearchErrorIsLoggedAndTreatedAsEmpty(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := &stubSearcher{err: errors.New("HTTP 429")}

	res := newResolver(t, s, &stubSource{}, Options{Logger: zap.New(core), NewID: func() string { return "rid-1" }}).
		Resolve(context.Background(), "q")

	assert.Equal(t, domain.StateEmpty, res.State)
	assert.Equal(t, domain.ErrCodeSearchFailed, res.ErrorCode)
	assert.Equal(t, "rid-1", res.ID)

	warn := logs.FilterMessage("search failed").All()
	require.Len(t, warn, 1)
	assert.Equal(t, zapcore.WarnLevel, warn[0].Level)
	assert.Equal(t, "rid-1", warn[0].ContextMap()["resolution_id"])
}

func TestResolve_PanicIsRecovered(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	src := &stubSource{pages: map[string]page{"u1": {text: pageFull}, "u2": {panic: true}}}
	s := &stubSearcher{links: []string{"u1", "u2"}}

	res := newResolver(t, s, src, Options{Logger: zap.New(core)}).Resolve(context.Background(), "q")

	assert.Equal(t, domain.StateFailed, res.State)
	assert.Equal(t, []string{}, res.Links)
	assert.Nil(t, res.Meta)
	assert.Equal(t, domain.ErrCodeInternal, res.ErrorCode)
	assert.Equal(t, 1, logs.FilterMessage("resolve panic").Len())
}

func TestResolve_SearchPanicIsRecovered(t *testing.T) {
	res := newResolver(t, &stubSearcher{panic: true}, &stubSource{}, Options{}).Resolve(context.Background(), "q")
	assert.Equal(t, domain.StateFailed, res.State)
	assert.Equal(t, []string{}, res.Links)
}

func TestResolve_ParentCancelStopsIteration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &stubSource{pages: map[string]page{"u1": {text: pageFull}}}
	res := newResolver(t, &stubSearcher{links: []string{"u1", "u2"}}, src, Options{}).Resolve(ctx, "q")

	assert.Equal(t, 0, src.callCount())
	assert.Equal(t, domain.StateFallback, res.State)
	assert.Equal(t, []string{"u1"}, res.Links)
}

type recordingObserver struct {
	started    bool
	searchN    int
	candidates []domain.CandidateAttempt
}

func (o *recordingObserver) OnStart(id, query string) { o.started = true }
func (o *recordingObserver) OnSearchDone(engine string, n int, err error, d time.Duration) {
	o.searchN = n
}
func (o *recordingObserver) OnCandidateDone(idx, total int, att domain.CandidateAttempt, d time.Duration) {
	o.candidates = append(o.candidates, att)
}

func TestResolve_ObserverEvents(t *testing.T) {
	obs := &recordingObserver{}
	src := &stubSource{pages: map[string]page{"u1": {text: pageA}}}
	s := &stubSearcher{links: []string{"u1", "u2"}}

	_ = newResolver(t, s, src, Options{Observer: obs}).Resolve(context.Background(), "q")

	assert.True(t, obs.started)
	assert.Equal(t, 2, obs.searchN)
	require.Len(t, obs.candidates, 2)
	assert.Equal(t, domain.StageOK, obs.candidates[0].Stage)
	assert.Equal(t, domain.StageFetch, obs.candidates[1].Stage)
}

func TestResolve_FinalizedTimes(t *testing.T) {
	msk := time.FixedZone("MSK", 3*3600)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, msk)

	res := newResolver(t, &stubSearcher{}, &stubSource{}, Options{Now: func() time.Time { return now }}).
		Resolve(context.Background(), "q")

	assert.Equal(t, time.UTC, res.StartedAt.Location())
	assert.True(t, res.StartedAt.Equal(now))
	assert.NotNil(t, res.Attempts)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, &stubSource{}, nil, Options{})
	assert.Error(t, err)
	_, err = New(&stubSearcher{}, nil, nil, Options{})
	assert.Error(t, err)
}
