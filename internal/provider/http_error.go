package provider

import (
	"fmt"
	"strings"
)

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// BlockedError 表示请求被引导到了"验证/拦截"页面（例如搜索引擎的 /sorry/ 验证码页）。
// 不尝试绕过，直接视为失败。
type BlockedError struct {
	URL    string
	Reason string
}

func (e *BlockedError) Error() string {
	if e == nil {
		return "blocked"
	}
	if strings.TrimSpace(e.Reason) == "" {
		return "blocked"
	}
	return "blocked: " + strings.TrimSpace(e.Reason)
}

// RegionMissingError 表示页面里没有任何已知的描述区域（即"没有这部电影"）。
type RegionMissingError struct {
	URL       string
	Selectors []string
}

func (e *RegionMissingError) Error() string {
	if e == nil || len(e.Selectors) == 0 {
		return "no such movie: description region not found"
	}
	return "no such movie: none of " + strings.Join(e.Selectors, ", ") + " found"
}
