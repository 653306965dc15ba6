package provider

import (
	"context"
	"net/http"
)

// PageSource 把"站点变化"限制在 provider 包内部；核心流程只依赖统一接口与稳定的 MovieMeta。
//
// 约束：
// - Fetch 不做缓存、不做重试（重试由 httpx 统一实现，默认关闭）
// - Region 必须是纯函数：相同输入 => 相同输出
// - Region 找不到描述区域时返回 *RegionMissingError
type PageSource interface {
	Name() string
	Fetch(ctx context.Context, pageURL string, c *http.Client) (html []byte, err error)
	Region(html []byte) (text string, err error)
}
