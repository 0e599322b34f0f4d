package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/catwalk/pkg/catwalk"
)

// Defaults.
const (
	DefaultModel       = "claude"
	DefaultLang        = "en-US"
	DefaultServerAddr  = "127.0.0.1:7777"
	DefaultUndoWindow  = 10 * time.Second
	defaultSynthesizer = "espeak"
)

// CatalogueProviders names the provider each catalogue model binds to
// unless the config says otherwise.
func CatalogueProviders() map[string]string {
	return map[string]string{
		"claude":     "anthropic",
		"chatgpt":    "openai",
		"gemini":     "gemini",
		"perplexity": "perplexity",
		"mistral":    "mistral",
		"llama":      "groq",
	}
}

// isBuildableType reports whether a provider of type t can be talked to.
func isBuildableType(t catwalk.Type) bool {
	switch t {
	case catwalk.TypeAnthropic, catwalk.TypeOpenAI, catwalk.TypeOpenAICompat:
		return true
	default:
		return false
	}
}

// Defaults returns a config holding only the defaults.
func Defaults() *Config {
	cfg := NewConfig()
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Options == nil {
		cfg.Options = &Options{}
	}
	if cfg.Options.DataDir == "" {
		cfg.Options.DataDir = filepath.Join(xdg.DataHome, appName)
	}
	if cfg.Options.DefaultModel == "" {
		cfg.Options.DefaultModel = DefaultModel
	}

	if cfg.knownProviders == nil {
		cfg.knownProviders = LoadKnownProviders(cfg.DataDir())
	}
	seedProviders(cfg)
	seedModels(cfg)

	if cfg.Voice == nil {
		cfg.Voice = &VoiceOptions{}
	}
	if cfg.Voice.Lang == "" {
		cfg.Voice.Lang = DefaultLang
	}
	if len(cfg.Voice.Synthesizer) == 0 {
		cfg.Voice.Synthesizer = []string{defaultSynthesizer}
	}

	if cfg.Server == nil {
		cfg.Server = &ServerOptions{}
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
}

// seedProviders adds every provider the catalogue needs and fills in
// metadata for configured providers catwalk knows about. Catwalk entries
// win over templates; a provider catwalk lists with a type we cannot build
// falls back to its template.
func seedProviders(cfg *Config) {
	known := make(map[string]*catwalk.Provider, len(cfg.knownProviders))
	for i := range cfg.knownProviders {
		known[string(cfg.knownProviders[i].ID)] = &cfg.knownProviders[i]
	}
	templates := ProviderTemplates()

	for _, id := range CatalogueProviders() {
		if _, ok := cfg.Providers[id]; ok {
			continue
		}
		if kp, ok := known[id]; ok && isBuildableType(kp.Type) {
			cfg.Providers[id] = fromKnown(kp)
			continue
		}
		if tpl, ok := templates[id]; ok {
			cfg.Providers[id] = tpl.ProviderConfig()
		}
	}

	for id, p := range cfg.Providers {
		if p == nil {
			continue
		}
		if p.ID == "" {
			p.ID = id
		}
		if kp, ok := known[id]; ok {
			mergeKnown(p, kp)
		}
		if p.Type == "" {
			p.Type = catwalk.TypeOpenAICompat
		}
	}
}

// seedModels binds catalogue models the config leaves unbound to their
// provider's default model.
func seedModels(cfg *Config) {
	for modelID, providerID := range CatalogueProviders() {
		if _, ok := cfg.Models[modelID]; ok {
			continue
		}
		p, ok := cfg.Providers[providerID]
		if !ok || p == nil || p.DefaultModel == "" {
			continue
		}
		cfg.Models[modelID] = ModelBinding{Provider: providerID, Model: p.DefaultModel}
	}
}

func fromKnown(kp *catwalk.Provider) *ProviderConfig {
	p := &ProviderConfig{}
	mergeKnown(p, kp)
	return p
}

// mergeKnown fills empty fields of p from catwalk metadata and appends the
// models p does not list yet.
func mergeKnown(p *ProviderConfig, kp *catwalk.Provider) {
	if p.ID == "" {
		p.ID = string(kp.ID)
	}
	if p.Name == "" {
		p.Name = kp.Name
	}
	if p.Type == "" {
		p.Type = kp.Type
	}
	if p.APIKey == "" {
		p.APIKey = kp.APIKey
	}
	if p.BaseURL == "" {
		p.BaseURL = knownEndpoint(kp)
	}
	if p.DefaultModel == "" {
		p.DefaultModel = kp.DefaultLargeModelID
	}
	if len(kp.DefaultHeaders) > 0 {
		if p.ExtraHeaders == nil {
			p.ExtraHeaders = make(map[string]string, len(kp.DefaultHeaders))
		}
		for k, v := range kp.DefaultHeaders {
			if _, ok := p.ExtraHeaders[k]; !ok {
				p.ExtraHeaders[k] = v
			}
		}
	}

	listed := make(map[string]bool, len(p.Models))
	for i := range p.Models {
		listed[p.Models[i].ID] = true
	}
	for i := range kp.Models {
		if !listed[kp.Models[i].ID] {
			p.Models = append(p.Models, kp.Models[i])
		}
	}
}

// knownEndpoint resolves catwalk's endpoint, which may be an environment
// reference, falling back to the public endpoint for the provider type.
func knownEndpoint(kp *catwalk.Provider) string {
	if kp.APIEndpoint != "" {
		if resolved, err := NewResolver().Resolve(kp.APIEndpoint); err == nil {
			return resolved
		}
	}
	return defaultAPIEndpoint(kp.Type)
}

func defaultAPIEndpoint(t catwalk.Type) string {
	switch t {
	case catwalk.TypeAnthropic:
		return "https://api.anthropic.com"
	case catwalk.TypeOpenAI:
		return "https://api.openai.com/v1"
	default:
		return ""
	}
}
