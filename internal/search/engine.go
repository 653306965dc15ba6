package search

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// 默认查询参数。
const (
	DefaultSuffix     = " смотреть онлайн lordfilm"
	DefaultSiteMarker = "lordfilm"
)

// ErrNoResults 表示结果页里没有结果容器（常见于被拦截或页面结构变化）。
var ErrNoResults = errors.New("search results container not found")

// Engine 是一个网页搜索引擎。
//
// 约束：
// - Search 返回的链接保持文档顺序，不去重
// - 非 2xx 返回 *provider.HTTPStatusError；缺少结果容器返回 ErrNoResults
type Engine interface {
	Name() string
	Search(ctx context.Context, query string, c *http.Client) ([]string, error)
}

// Options 是所有引擎共享的查询选项。
type Options struct {
	Suffix     string // 追加到查询串末尾
	SiteMarker string // 链接必须包含的子串
}

// WithDefaults 用默认值补全空字段。
func (o Options) WithDefaults() Options {
	if o.Suffix == "" {
		o.Suffix = DefaultSuffix
	}
	if strings.TrimSpace(o.SiteMarker) == "" {
		o.SiteMarker = DefaultSiteMarker
	}
	return o
}

// CollectLinks 收集容器内所有 <a href>，经 rewrite（可为 nil）处理后，
// 保留以 http 开头且包含 marker 的链接。
func CollectLinks(container *goquery.Selection, marker string, rewrite func(href string) string) []string {
	out := make([]string, 0, 16)
	container.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if rewrite != nil {
			href = rewrite(href)
		}
		if !strings.HasPrefix(href, "http") || !strings.Contains(href, marker) {
			return
		}
		out = append(out, href)
	})
	return out
}
