// Package crew turns loaded actor definitions into actors bound to live
// capabilities, using the process configuration to decide which variant of
// each tool to build.
package crew

import (
	"context"
	"fmt"

	"adcrew/internal"
	"adcrew/internal/capability"
	"adcrew/internal/config"
	apperrors "adcrew/internal/errors"
	"adcrew/internal/executor"
	"adcrew/internal/generator"
	"adcrew/internal/util"
)

// Toolbox owns the capability registry and any cache connection behind it.
type Toolbox struct {
	Registry *capability.Registry
	redis    *capability.RedisCache
}

// NewToolbox registers web_search and meta_ads_library. Web search is the
// Serper backend unless cfg.Search.Mock is set; with caching enabled its
// results are memoised in Redis when an address is configured and in memory
// otherwise.
func NewToolbox(ctx context.Context, cfg *config.Config) (*Toolbox, error) {
	tb := &Toolbox{Registry: capability.NewRegistry()}

	var search capability.Capability
	if cfg.Search.Mock {
		search = capability.NewMockedLibrarySearch(capability.WebSearchName, "web search",
			"Searches the internet for the given query and returns the top results")
	} else {
		ws, err := capability.NewWebSearch(capability.WebSearchConfig{
			APIKey:     cfg.Search.APIKey,
			BaseURL:    cfg.Search.BaseURL,
			Timeout:    cfg.Search.Timeout,
			NumResults: cfg.Search.NumResults,
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "")
		}
		search = ws
	}

	if cfg.Cache.Enabled {
		var cache capability.Cache
		if cfg.Cache.RedisAddr != "" {
			rc, err := capability.NewRedisCache(ctx, capability.RedisCacheConfig{
				Address:  cfg.Cache.RedisAddr,
				Password: cfg.Cache.RedisPassword,
				DB:       cfg.Cache.RedisDB,
				TTL:      cfg.Cache.TTL,
			})
			if err != nil {
				return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "")
			}
			util.Info("tool cache: redis %s", cfg.Cache.RedisAddr)
			tb.redis = rc
			cache = rc
		} else {
			util.Info("tool cache: memory")
			cache = capability.NewMemoryCache()
		}
		search = capability.NewCached(search, cache)
	}

	for _, c := range []capability.Capability{search, capability.MetaAdsLibrary()} {
		if err := tb.Registry.Register(c); err != nil {
			tb.Close()
			return nil, err
		}
	}
	return tb, nil
}

func (tb *Toolbox) Close() error {
	if tb.redis != nil {
		return tb.redis.Close()
	}
	return nil
}

// Bind resolves every actor's tool names against the registry.
func Bind(actors []internal.Actor, reg *capability.Registry) ([]internal.Actor, error) {
	bound := make([]internal.Actor, 0, len(actors))
	for _, a := range actors {
		caps, err := reg.Resolve(a.Tools)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDefinition, err, fmt.Sprintf("actor %q", a.Name))
		}
		bound = append(bound, a.WithCapabilities(caps...))
	}
	return bound, nil
}

// NewExecutor builds the agent executor with the configured tool retry knobs.
func NewExecutor(cfg *config.Config, gen generator.Generator) *executor.AgentExecutor {
	return &executor.AgentExecutor{
		Generator: gen,
		Retries:   cfg.Pipeline.ToolRetries,
		Backoff:   cfg.Pipeline.RetryBackoff,
	}
}
