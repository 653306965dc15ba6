package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTimeout = 20 * time.Second
)

// DefaultHeaders 是每个出站请求都会带上的浏览器请求头。
// 调用方显式设置的同名请求头优先。
var DefaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "ru-RU,ru;q=0.9,en;q=0.8",
}

// Options 描述出站 HTTP client 的网络策略。
type Options struct {
	ProxyURL string
	// Timeout 是单次请求（含读 body）的总超时；<=0 时使用默认值。
	Timeout time.Duration
	// RetryMax 表示最大重试次数（不含首次尝试），默认 0。
	RetryMax int
	// Headers 覆盖/追加到 DefaultHeaders 之上；值为空表示删除该请求头。
	Headers map[string]string
	Logger  *zap.Logger
}

// Transport 把"固定请求头 + 代理 + 每请求新连接 + 有界重试"固化为统一策略。
type Transport struct {
	Base *http.Transport

	Headers map[string]string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int

	Logger *zap.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对"可重放"的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := req.Clone(req.Context())
		for k, v := range t.Headers {
			if r.Header.Get(k) == "" {
				r.Header.Set(k, v)
			}
		}
		// 每个请求独占连接
		r.Close = true

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
		if t.Logger != nil && attempt < max {
			t.Logger.Debug("http retry",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		}
	}
	return nil, lastErr
}

// New 构造用于搜索与页面抓取的 HTTP client。
//
// 规则：
// - 始终禁用 keep-alive（每请求新连接）
// - proxyURL 非空：所有请求走代理
// - 固定浏览器请求头 + 有界重试 + 总超时
func New(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 必须包含 scheme 与 host")
		}
		base.Proxy = http.ProxyURL(u)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Transport: &Transport{
			Base:     base,
			Headers:  MergeHeaders(DefaultHeaders, opts.Headers),
			RetryMax: opts.RetryMax,
			Logger:   opts.Logger,
		},
		Timeout: timeout,
	}, nil
}

// MergeHeaders 返回 base 与 override 合并后的新 map（override 优先；空值删除）。
func MergeHeaders(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[http.CanonicalHeaderKey(k)] = v
	}
	for k, v := range override {
		k = http.CanonicalHeaderKey(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if strings.TrimSpace(v) == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
