package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/John-Robertt/moviefind/internal/domain"
	"github.com/John-Robertt/moviefind/internal/extract"
)

// 阶段名（与 domain.Stage* 对齐）。
const (
	StageFetch  = domain.StageFetch
	StageRegion = domain.StageRegion
)

// FetchMeta 抓取候选页面、隔离描述区域并抽取元数据。
//
// 失败时返回 *Error，Stage 为 "fetch" 或 "region"。
// ctx 取消/超时的错误保持可被 errors.Is 识别。
func FetchMeta(ctx context.Context, src PageSource, pageURL string, c *http.Client) (domain.MovieMeta, error) {
	if src == nil {
		return domain.MovieMeta{}, errors.New("page source 不能为空")
	}
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return domain.MovieMeta{}, errors.New("pageURL 不能为空")
	}
	name := strings.ToLower(strings.TrimSpace(src.Name()))

	html, err := src.Fetch(ctx, pageURL, c)
	if err != nil {
		return domain.MovieMeta{}, &Error{Source: name, Stage: StageFetch, Err: err}
	}

	text, err := src.Region(html)
	if err != nil {
		var rm *RegionMissingError
		if errors.As(err, &rm) && rm.URL == "" {
			rm.URL = pageURL
		}
		return domain.MovieMeta{}, &Error{Source: name, Stage: StageRegion, Err: err}
	}
	return extract.Extract(text), nil
}

// Error 是页面抓取阶段的可追溯错误。
// 上层据此把失败归类为 fetch_failed / region_missing，并写入 attempt。
type Error struct {
	Source string // source name（小写）
	Stage  string // "fetch" 或 "region"
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("source=%s stage=%s: %v", e.Source, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
