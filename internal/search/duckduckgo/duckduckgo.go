package duckduckgo

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/moviefind/internal/provider"
	"github.com/John-Robertt/moviefind/internal/search"
)

const (
	Name = "duckduckgo"
	// DefaultURL 是 DuckDuckGo 的无 JS 结果页入口。
	DefaultURL = "https://html.duckduckgo.com/html/"
)

// Engine 抓取 DuckDuckGo HTML 结果页，从 #links 中收集链接。
// 结果链接是 /l/?uddg=<目标> 形式的跳转链接，收集前先还原目标地址。
type Engine struct {
	BaseURL string
	Opts    search.Options
}

func New(baseURL string, opts search.Options) Engine {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultURL
	}
	return Engine{BaseURL: baseURL, Opts: opts.WithDefaults()}
}

func (Engine) Name() string { return Name }

func (e Engine) Search(ctx context.Context, query string, c *http.Client) ([]string, error) {
	opts := e.Opts.WithDefaults()
	u := e.BaseURL + "?" + url.Values{"q": {query + opts.Suffix}}.Encode()

	b, err := provider.FetchURL(ctx, c, u, "")
	if err != nil {
		return nil, err
	}
	return Parse(b, opts.SiteMarker)
}

// Parse 从结果页 HTML 中提取候选链接（纯函数）。
func Parse(b []byte, marker string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	container := doc.Find("#links").First()
	if container.Length() == 0 {
		return nil, search.ErrNoResults
	}
	return search.CollectLinks(container, marker, unwrapRedirect), nil
}

// unwrapRedirect 把 //duckduckgo.com/l/?uddg=... 还原为目标 URL；其它 href 原样返回。
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if !strings.Contains(href, "uddg=") {
		return href
	}
	raw := href
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
