// Package config provides configuration management for voxchat.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/catwalk/pkg/catwalk"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const appName = "voxchat"

// ProviderConfig holds provider authentication and settings.
//
//nolint:govet // Field order is intentional for JSON readability.
type ProviderConfig struct {
	ExtraHeaders map[string]string `json:"extra_headers,omitempty"`
	ID           string            `json:"id,omitempty"`
	Name         string            `json:"name,omitempty"`
	Type         catwalk.Type      `json:"type,omitempty"`
	BaseURL      string            `json:"base_url,omitempty"`
	APIKey       string            `json:"api_key,omitempty"`
	DefaultModel string            `json:"default_model,omitempty"`
	Disable      bool              `json:"disable,omitempty"`
	Models       []catwalk.Model   `json:"models,omitempty"`
}

// ModelBinding maps a catalogue model id (e.g. "claude") to a concrete
// provider model.
type ModelBinding struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Config is the top-level configuration structure.
type Config struct {
	Providers map[string]*ProviderConfig `json:"providers"`
	Models    map[string]ModelBinding    `json:"models"`
	Options   *Options                   `json:"options,omitempty"`
	Voice     *VoiceOptions              `json:"voice,omitempty"`
	Server    *ServerOptions             `json:"server,omitempty"`

	knownProviders []catwalk.Provider
}

// Options holds optional configuration settings.
//
//nolint:govet // Field order is intentional for JSON readability.
type Options struct {
	DataDir           string `json:"data_directory,omitempty"`
	DefaultModel      string `json:"default_model,omitempty"`
	UndoWindowSeconds int    `json:"undo_window_seconds,omitempty"`
	Debug             bool   `json:"debug,omitempty"`
}

// VoiceOptions configure recognition and speech.
type VoiceOptions struct {
	Lang        string   `json:"lang,omitempty"`
	Synthesizer []string `json:"synthesizer,omitempty"`
	Rate        float64  `json:"rate,omitempty"`
	AutoRead    bool     `json:"auto_read,omitempty"`
}

// ServerOptions configure the RPC endpoint.
type ServerOptions struct {
	Addr      string `json:"addr,omitempty"`
	Token     string `json:"token,omitempty"`
	PublicURL string `json:"public_url,omitempty"`
}

// NewConfig creates a new Config with initialized maps.
func NewConfig() *Config {
	return &Config{
		Providers: make(map[string]*ProviderConfig),
		Models:    make(map[string]ModelBinding),
		Options:   &Options{},
		Voice:     &VoiceOptions{},
		Server:    &ServerOptions{},
	}
}

// UndoWindow returns how long a deleted session can be restored.
func (c *Config) UndoWindow() time.Duration {
	if c.Options == nil || c.Options.UndoWindowSeconds <= 0 {
		return DefaultUndoWindow
	}
	return time.Duration(c.Options.UndoWindowSeconds) * time.Second
}

// Binding returns the provider binding for a catalogue model id.
func (c *Config) Binding(modelID string) (ModelBinding, *ProviderConfig, error) {
	b, ok := c.Models[modelID]
	if !ok {
		return ModelBinding{}, nil, fmt.Errorf("model %q is not configured", modelID)
	}
	p, ok := c.Providers[b.Provider]
	if !ok {
		return ModelBinding{}, nil, fmt.Errorf("model %q: provider %q not configured", modelID, b.Provider)
	}
	if p.Disable {
		return ModelBinding{}, nil, fmt.Errorf("model %q: provider %q is disabled", modelID, b.Provider)
	}
	return b, p, nil
}

// GetModel returns the metadata of a provider's model, or nil when the
// provider does not list it.
func (c *Config) GetModel(providerID, modelID string) *catwalk.Model {
	p, ok := c.Providers[providerID]
	if !ok {
		return nil
	}
	for i := range p.Models {
		if p.Models[i].ID == modelID {
			return &p.Models[i]
		}
	}
	return nil
}

// ModelInfo returns the metadata of the model a catalogue id is bound to.
func (c *Config) ModelInfo(modelID string) (*catwalk.Model, bool) {
	b, ok := c.Models[modelID]
	if !ok {
		return nil, false
	}
	m := c.GetModel(b.Provider, b.Model)
	return m, m != nil
}

// KnownProviders returns the provider metadata defaults were seeded from.
func (c *Config) KnownProviders() []catwalk.Provider {
	return c.knownProviders
}

// SetKnownProviders replaces the provider metadata used by defaults.
func (c *Config) SetKnownProviders(providers []catwalk.Provider) {
	c.knownProviders = providers
}

// SetField updates a single field of the JSON file at path with sjson.
func SetField(path, key string, value any) error {
	//nolint:gosec // G304: path is a config location, not user input.
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("reading config file: %w", err)
		}
		data = []byte("{}")
	}

	newData, err := sjson.Set(string(data), key, value)
	if err != nil {
		return fmt.Errorf("setting config field %q: %w", key, err)
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	//nolint:gosec // 0o600 is intentionally restrictive for security.
	if err := os.WriteFile(path, []byte(newData), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// GetField reads a single raw field of the JSON file at path with gjson.
// A missing file or key reports false.
func GetField(path, key string) (gjson.Result, bool, error) {
	//nolint:gosec // G304: path is a config location, not user input.
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return gjson.Result{}, false, nil
		}
		return gjson.Result{}, false, fmt.Errorf("reading config file: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, false, fmt.Errorf("config file %s is not valid JSON", path)
	}
	res := gjson.GetBytes(data, key)
	return res, res.Exists(), nil
}
