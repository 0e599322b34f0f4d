package config

import (
	"maps"

	"github.com/charmbracelet/catwalk/pkg/catwalk"
)

// ProviderTemplate describes a provider catwalk does not carry, or carries
// with a type only reachable through an OpenAI-compatible endpoint.
type ProviderTemplate struct {
	Name                string
	ID                  string
	Type                catwalk.Type
	APIEndpoint         string
	APIKey              string
	DefaultHeaders      map[string]string
	DefaultLargeModelID string
	DefaultModels       []catwalk.Model
}

// ProviderConfig turns the template into a provider entry.
func (t ProviderTemplate) ProviderConfig() *ProviderConfig {
	return &ProviderConfig{
		ID:           t.ID,
		Name:         t.Name,
		Type:         t.Type,
		BaseURL:      t.APIEndpoint,
		APIKey:       t.APIKey,
		DefaultModel: t.DefaultLargeModelID,
		ExtraHeaders: maps.Clone(t.DefaultHeaders),
		Models:       append([]catwalk.Model(nil), t.DefaultModels...),
	}
}

// ProviderTemplates returns the templates keyed by provider id.
func ProviderTemplates() map[string]ProviderTemplate {
	return map[string]ProviderTemplate{
		"gemini": {
			Name:                "Google Gemini",
			ID:                  "gemini",
			Type:                catwalk.TypeOpenAICompat,
			APIEndpoint:         "https://generativelanguage.googleapis.com/v1beta/openai/",
			APIKey:              "$GEMINI_API_KEY",
			DefaultLargeModelID: "gemini-2.5-flash",
			DefaultModels: []catwalk.Model{
				{
					ID:               "gemini-2.5-flash",
					Name:             "Gemini 2.5 Flash",
					ContextWindow:    1048576,
					DefaultMaxTokens: 8192,
				},
				{
					ID:               "gemini-2.5-pro",
					Name:             "Gemini 2.5 Pro",
					ContextWindow:    1048576,
					DefaultMaxTokens: 16384,
				},
			},
		},
		"perplexity": {
			Name:                "Perplexity",
			ID:                  "perplexity",
			Type:                catwalk.TypeOpenAICompat,
			APIEndpoint:         "https://api.perplexity.ai",
			APIKey:              "$PERPLEXITY_API_KEY",
			DefaultLargeModelID: "sonar",
			DefaultModels: []catwalk.Model{
				{
					ID:               "sonar",
					Name:             "Sonar",
					ContextWindow:    127072,
					DefaultMaxTokens: 4096,
				},
				{
					ID:               "sonar-pro",
					Name:             "Sonar Pro",
					ContextWindow:    200000,
					DefaultMaxTokens: 8192,
				},
			},
		},
		"mistral": {
			Name:                "Mistral",
			ID:                  "mistral",
			Type:                catwalk.TypeOpenAICompat,
			APIEndpoint:         "https://api.mistral.ai/v1",
			APIKey:              "$MISTRAL_API_KEY",
			DefaultLargeModelID: "mistral-small-latest",
			DefaultModels: []catwalk.Model{
				{
					ID:               "mistral-small-latest",
					Name:             "Mistral Small",
					ContextWindow:    128000,
					DefaultMaxTokens: 4096,
				},
				{
					ID:               "mistral-large-latest",
					Name:             "Mistral Large",
					ContextWindow:    128000,
					DefaultMaxTokens: 8192,
				},
			},
		},
	}
}
