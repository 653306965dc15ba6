package provider

import (
	"fmt"
	"strings"
)

// Registry 是页面来源的只读注册表（按 name 索引）。
type Registry struct {
	byName map[string]PageSource
}

func NewRegistry(sources ...PageSource) (Registry, error) {
	byName := make(map[string]PageSource, len(sources))
	for _, s := range sources {
		if s == nil {
			return Registry{}, fmt.Errorf("page source 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(s.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("source.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 source：%q", name)
		}
		byName[name] = s
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (PageSource, bool) {
	if r.byName == nil {
		return nil, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	s, ok := r.byName[name]
	return s, ok
}

// Names 返回已注册的 source 名（无序）。
func (r Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	return out
}
