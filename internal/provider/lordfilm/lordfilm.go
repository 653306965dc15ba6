package lordfilm

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	providerx "github.com/John-Robertt/moviefind/internal/provider"
)

// Name 是注册表中的来源名。
const Name = "lordfilm"

// 描述区域选择器，按顺序尝试。
const (
	selDescription = "div#video-description"
	selFallback    = "div.fleft.fx-1.fx-row"
)

// Source 实现 lordfilm 系镜像站详情页的抓取与描述区域隔离。
//
// 约束：
// - Fetch 不做缓存/重试（由上层统一控制）
// - Region 是纯函数
type Source struct{}

func (Source) Name() string { return Name }

func (Source) Fetch(ctx context.Context, pageURL string, c *http.Client) ([]byte, error) {
	if strings.TrimSpace(pageURL) == "" {
		return nil, errors.New("pageURL 不能为空")
	}
	return providerx.FetchURL(ctx, c, pageURL, "")
}

// Region 返回描述区域的纯文本：每个文本节点各自 trim 后直接拼接（不加分隔符）。
// 后续的标记抽取依赖这种"紧贴"的拼接形式（例如 "Страна:США"）。
func (Source) Region(b []byte) (string, error) {
	if len(b) == 0 {
		return "", errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return "", err
	}

	for _, sel := range []string{selDescription, selFallback} {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		return strippedText(s), nil
	}
	return "", &providerx.RegionMissingError{Selectors: []string{selDescription, selFallback}}
}

func strippedText(s *goquery.Selection) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(strings.TrimSpace(n.Data))
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return sb.String()
}
