// Package provider turns catalogue model ids into fantasy language models.
package provider

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"charm.land/fantasy"
	"charm.land/fantasy/providers/anthropic"
	"charm.land/fantasy/providers/openai"
	"github.com/charmbracelet/catwalk/pkg/catwalk"

	"github.com/guilhermegouw/voxchat/internal/config"
	"github.com/guilhermegouw/voxchat/internal/debug"
)

// Builder creates fantasy providers from configuration and caches them per
// provider id.
type Builder struct {
	cfg   *config.Config
	cache map[string]fantasy.Provider
	mu    sync.Mutex
}

// NewBuilder creates a new provider Builder.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{
		cfg:   cfg,
		cache: make(map[string]fantasy.Provider),
	}
}

// LanguageModel returns the language model bound to a catalogue model id
// such as "claude" or "chatgpt".
func (b *Builder) LanguageModel(ctx context.Context, modelID string) (fantasy.LanguageModel, error) {
	binding, providerCfg, err := b.config().Binding(modelID)
	if err != nil {
		return nil, err
	}

	provider, err := b.getOrBuildProvider(providerCfg)
	if err != nil {
		return nil, err
	}

	lm, err := provider.LanguageModel(ctx, binding.Model)
	if err != nil {
		return nil, fmt.Errorf("getting language model %q: %w", binding.Model, err)
	}
	debug.Event("provider", "ModelReady", modelID+" -> "+providerCfg.ID+"/"+binding.Model)
	return lm, nil
}

// MaxOutputTokens returns the default output limit catwalk lists for the
// model a catalogue id is bound to, or zero when it is unknown.
func (b *Builder) MaxOutputTokens(modelID string) int64 {
	m, ok := b.config().ModelInfo(modelID)
	if !ok {
		return 0
	}
	return m.DefaultMaxTokens
}

// Forget drops a cached provider so the next call rebuilds it.
func (b *Builder) Forget(providerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cache, providerID)
}

// Reload switches to cfg and forgets every cached provider that cfg removed
// or whose key, endpoint, type or headers changed.
func (b *Builder) Reload(cfg *config.Config) []string {
	b.mu.Lock()
	old := b.cfg
	b.cfg = cfg
	var stale []string
	for id := range b.cache {
		if !sameConnection(old.Providers[id], cfg.Providers[id]) {
			stale = append(stale, id)
		}
	}
	b.mu.Unlock()

	for _, id := range stale {
		b.Forget(id)
		debug.Event("provider", "Forget", id)
	}
	return stale
}

func (b *Builder) config() *config.Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

func sameConnection(a, b *config.ProviderConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Type == b.Type && a.APIKey == b.APIKey && a.BaseURL == b.BaseURL &&
		maps.Equal(a.ExtraHeaders, b.ExtraHeaders)
}

// getOrBuildProvider returns a cached provider or builds a new one.
func (b *Builder) getOrBuildProvider(providerCfg *config.ProviderConfig) (fantasy.Provider, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.cache[providerCfg.ID]; ok {
		return p, nil
	}

	p, err := b.buildProvider(providerCfg)
	if err != nil {
		return nil, err
	}

	b.cache[providerCfg.ID] = p
	return p, nil
}

// buildProvider creates a fantasy provider from configuration.
func (b *Builder) buildProvider(providerCfg *config.ProviderConfig) (fantasy.Provider, error) {
	headers := maps.Clone(providerCfg.ExtraHeaders)

	apiKey, err := b.cfg.Resolve(providerCfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("provider %q api key: %w", providerCfg.ID, err)
	}
	baseURL, err := b.cfg.Resolve(providerCfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("provider %q base url: %w", providerCfg.ID, err)
	}

	switch providerCfg.Type {
	case catwalk.TypeOpenAI, catwalk.TypeOpenAICompat:
		return buildOpenAIProvider(baseURL, apiKey, headers)
	case catwalk.TypeAnthropic:
		return buildAnthropicProvider(baseURL, apiKey, headers)
	default:
		return nil, fmt.Errorf("unsupported provider type: %q", providerCfg.Type)
	}
}

// buildOpenAIProvider creates an OpenAI fantasy provider. OpenAI-compatible
// endpoints differ only in base URL.
func buildOpenAIProvider(baseURL, apiKey string, headers map[string]string) (fantasy.Provider, error) {
	var opts []openai.Option

	if apiKey != "" {
		opts = append(opts, openai.WithAPIKey(apiKey))
	}
	if len(headers) > 0 {
		opts = append(opts, openai.WithHeaders(headers))
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	return openai.New(opts...)
}

// buildAnthropicProvider creates an Anthropic fantasy provider.
func buildAnthropicProvider(baseURL, apiKey string, headers map[string]string) (fantasy.Provider, error) {
	var opts []anthropic.Option

	if apiKey != "" {
		opts = append(opts, anthropic.WithAPIKey(apiKey))
	}
	if len(headers) > 0 {
		opts = append(opts, anthropic.WithHeaders(headers))
	}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}

	return anthropic.New(opts...)
}
