package config

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/charmbracelet/catwalk/pkg/catwalk"
)

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationWarning represents a validation warning (non-fatal).
type ValidationWarning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (vw ValidationWarning) String() string {
	return fmt.Sprintf("%s: %s", vw.Field, vw.Message)
}

// ValidationResult holds the result of validating a configuration.
type ValidationResult struct {
	IsValid  bool                `json:"is_valid"`
	Errors   []ValidationError   `json:"errors,omitempty"`
	Warnings []ValidationWarning `json:"warnings,omitempty"`
}

func (r *ValidationResult) fail(field, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	r.IsValid = false
}

func (r *ValidationResult) warn(field, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks provider definitions, model bindings and options.
// Unset API key variables are warnings: the affected models fail only
// when selected.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{IsValid: true}
	resolver := NewResolver()

	for _, id := range sortedKeys(cfg.Providers) {
		p := cfg.Providers[id]
		field := "providers." + id
		if p == nil {
			result.fail(field, "provider definition is empty")
			continue
		}
		if !isValidProviderType(p.Type) {
			result.fail(field+".type", "unsupported provider type %q, must be one of: anthropic, openai, openai-compat", p.Type)
		}
		if p.Type == catwalk.TypeOpenAICompat && p.BaseURL == "" {
			result.fail(field+".base_url", "base URL is required for openai-compat providers")
		}
		if p.BaseURL != "" {
			if base, err := resolver.Resolve(p.BaseURL); err == nil {
				if err := validateURL(base); err != nil {
					result.fail(field+".base_url", "%v", err)
				}
			}
		}
		if p.APIKey == "" {
			result.warn(field+".api_key", "no API key configured")
		} else if _, err := resolver.Resolve(p.APIKey); err != nil {
			result.warn(field+".api_key", "%v", err)
		}
	}

	for _, id := range sortedKeys(cfg.Models) {
		b := cfg.Models[id]
		field := "models." + id
		if b.Model == "" {
			result.fail(field+".model", "model name is required")
		}
		if _, ok := cfg.Providers[b.Provider]; !ok {
			result.fail(field+".provider", "provider %q not configured", b.Provider)
		}
	}

	if cfg.Options != nil {
		if dm := cfg.Options.DefaultModel; dm != "" {
			if _, ok := cfg.Models[dm]; !ok {
				result.fail("options.default_model", "model %q not configured", dm)
			}
		}
		if cfg.Options.UndoWindowSeconds < 0 {
			result.fail("options.undo_window_seconds", "must not be negative")
		}
	}

	if cfg.Voice != nil && cfg.Voice.Rate < 0 {
		result.fail("voice.rate", "must not be negative")
	}

	return result
}

func isValidProviderType(t catwalk.Type) bool {
	return isBuildableType(t)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
