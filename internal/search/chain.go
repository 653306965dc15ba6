package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Chain 按顺序尝试多个引擎：第一个没有报错的引擎的结果即为答案
// （成功返回空列表也算有效答案，不再回退）。
type Chain struct {
	engines []Engine
}

// NewChain 按 primary + fallbacks 的顺序（去重、忽略空名）从注册表中组装引擎链。
func NewChain(reg Registry, primary string, fallbacks []string) (*Chain, error) {
	order := buildOrder(primary, fallbacks)
	if len(order) == 0 {
		return nil, errors.New("没有配置任何搜索引擎")
	}
	engines := make([]Engine, 0, len(order))
	for _, name := range order {
		e, ok := reg.Get(name)
		if !ok {
			return nil, fmt.Errorf("未知搜索引擎：%q", name)
		}
		engines = append(engines, e)
	}
	return &Chain{engines: engines}, nil
}

// Names 返回链上的引擎名（按尝试顺序）。
func (c *Chain) Names() []string {
	out := make([]string, 0, len(c.engines))
	for _, e := range c.engines {
		out = append(out, e.Name())
	}
	return out
}

// Search 返回候选链接与给出结果的引擎名。全部引擎失败时返回最后一个错误。
func (c *Chain) Search(ctx context.Context, query string, hc *http.Client) ([]string, string, error) {
	if c == nil || len(c.engines) == 0 {
		return nil, "", errors.New("search chain 为空")
	}
	var lastErr error
	for _, e := range c.engines {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		links, err := e.Search(ctx, query, hc)
		if err != nil {
			lastErr = fmt.Errorf("engine=%s: %w", e.Name(), err)
			continue
		}
		return links, e.Name(), nil
	}
	return nil, "", lastErr
}

func buildOrder(primary string, fallbacks []string) []string {
	order := make([]string, 0, len(fallbacks)+1)
	order = append(order, primary)
	order = append(order, fallbacks...)

	seen := make(map[string]bool, len(order))
	out := make([]string, 0, len(order))
	for _, item := range order {
		name := strings.ToLower(strings.TrimSpace(item))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
