package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
)

// FetchURL 发起一次 GET 并返回完整 body。
//
// 约束：
// - body 在所有路径上都会被关闭
// - 非 2xx 返回 *HTTPStatusError
// - 最终落在 blockPath（非空时）上视为 *BlockedError
func FetchURL(ctx context.Context, c *http.Client, u string, blockPath string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if blockPath != "" && resp.Request != nil && resp.Request.URL != nil {
		if strings.Contains(resp.Request.URL.Path, blockPath) {
			return nil, &BlockedError{URL: resp.Request.URL.String(), Reason: strings.Trim(blockPath, "/")}
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 丢弃 body，仅保留状态码
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: strings.TrimSpace(resp.Header.Get("Location"))}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("empty response body")
	}
	return b, nil
}
