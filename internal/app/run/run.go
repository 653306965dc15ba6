package run

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/John-Robertt/moviefind/internal/config"
	"github.com/John-Robertt/moviefind/internal/domain"
	"github.com/John-Robertt/moviefind/internal/infra/httpx"
	"github.com/John-Robertt/moviefind/internal/provider"
	"github.com/John-Robertt/moviefind/internal/provider/lordfilm"
	"github.com/John-Robertt/moviefind/internal/resolve"
	"github.com/John-Robertt/moviefind/internal/search"
	"github.com/John-Robertt/moviefind/internal/search/duckduckgo"
	"github.com/John-Robertt/moviefind/internal/search/google"
)

// Build 按最终配置装配 Resolver（HTTP client、搜索引擎链、页面来源）。
func Build(eff config.EffectiveConfig, log *zap.Logger, obs resolve.Observer) (*resolve.Resolver, error) {
	if log == nil {
		log = zap.NewNop()
	}

	client, err := httpx.New(httpx.Options{
		ProxyURL: eff.ProxyURL,
		Timeout:  eff.RequestTimeout,
		RetryMax: eff.RetryMax,
		Headers:  eff.Headers,
		Logger:   log.Named("http"),
	})
	if err != nil {
		return nil, fmt.Errorf("proxy.url 无效：%w", err)
	}

	opts := search.Options{Suffix: eff.Suffix, SiteMarker: eff.SiteMarker}
	engines, err := search.NewRegistry(
		google.New(eff.GoogleURL, opts),
		duckduckgo.New(eff.DDGURL, opts),
	)
	if err != nil {
		return nil, err
	}
	chain, err := search.NewChain(engines, eff.Engine, eff.Fallbacks)
	if err != nil {
		return nil, err
	}

	sources, err := provider.NewRegistry(lordfilm.Source{})
	if err != nil {
		return nil, err
	}
	src, ok := sources.Get(eff.Source)
	if !ok {
		return nil, fmt.Errorf("未知 source：%q", eff.Source)
	}

	log.Debug("resolver ready",
		zap.Strings("engines", chain.Names()),
		zap.String("source", src.Name()),
		zap.Duration("candidate_timeout", eff.CandidateTimeout),
		zap.Int("max_links", eff.MaxLinks),
		zap.Bool("proxy", eff.ProxyURL != ""),
	)

	return resolve.New(chain, src, client, resolve.Options{
		CandidateTimeout: eff.CandidateTimeout,
		MaxLinks:         eff.MaxLinks,
		Logger:           log,
		Observer:         obs,
	})
}

// Execute 装配并执行一次查询，返回对外稳定的 Resolution。
// 装配失败同样降级为 Resolution（State=failed，error_code=config_invalid），不返回 error。
func Execute(ctx context.Context, eff config.EffectiveConfig, query string, log *zap.Logger, obs resolve.Observer) domain.Resolution {
	r, err := Build(eff, log, obs)
	if err != nil {
		if log != nil {
			log.Error("build resolver failed", zap.Error(err))
		}
		return syntheticFailed(query, domain.ErrCodeConfigInvalid, err.Error())
	}
	return r.Resolve(ctx, query)
}

func syntheticFailed(query, code, msg string) domain.Resolution {
	now := time.Now()
	res := domain.Resolution{
		ID:         uuid.NewString(),
		Query:      query,
		State:      domain.StateFailed,
		ErrorCode:  code,
		ErrorMsg:   msg,
		StartedAt:  now,
		FinishedAt: now,
	}
	res.Finalize()
	return res
}
