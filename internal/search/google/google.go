package google

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
	// Name 是注册表中的引擎名。
	Name = "google"
	// DefaultURL 是 Google 网页搜索入口。
	DefaultURL = "https://www.google.com/search"
)

// Engine 抓取 Google 结果页，并从 #search 容器中收集链接。
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

	// 触发风控时 Google 会跳到 /sorry/ 验证码页
	b, err := provider.FetchURL(ctx, c, u, "/sorry/")
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
	container := doc.Find("#search").First()
	if container.Length() == 0 {
		return nil, search.ErrNoResults
	}
	return search.CollectLinks(container, marker, nil), nil
}
