package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const configFileName = "voxchat.json"

// Load finds and loads configuration from standard locations. The global
// file is merged with the nearest project file (project takes precedence),
// then defaults are applied and the result validated.
func Load() (*Config, error) {
	cfg := NewConfig()
	if err := loadFile(GlobalConfigPath(), cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading global config: %w", err)
	}

	if projectPath := findProjectConfig(); projectPath != "" {
		projectCfg := NewConfig()
		if err := loadFile(projectPath, projectCfg); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
		mergeConfig(cfg, projectCfg)
	}

	return finish(cfg)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := loadFile(path, cfg); err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	if res := Validate(cfg); !res.IsValid {
		errs := make([]error, len(res.Errors))
		for i := range res.Errors {
			errs[i] = res.Errors[i]
		}
		return nil, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	//nolint:gosec // G304: Path is from trusted config locations, not user input.
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}
	if cfg.Models == nil {
		cfg.Models = make(map[string]ModelBinding)
	}
	return nil
}

func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		path := filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}

		hiddenPath := filepath.Join(dir, "."+configFileName)
		if _, err := os.Stat(hiddenPath); err == nil {
			return hiddenPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func mergeConfig(dst, src *Config) {
	for id, b := range src.Models {
		dst.Models[id] = b
	}
	for id, p := range src.Providers {
		dst.Providers[id] = p
	}

	if src.Options != nil {
		if dst.Options == nil {
			dst.Options = &Options{}
		}
		if src.Options.DataDir != "" {
			dst.Options.DataDir = src.Options.DataDir
		}
		if src.Options.DefaultModel != "" {
			dst.Options.DefaultModel = src.Options.DefaultModel
		}
		if src.Options.UndoWindowSeconds != 0 {
			dst.Options.UndoWindowSeconds = src.Options.UndoWindowSeconds
		}
		if src.Options.Debug {
			dst.Options.Debug = true
		}
	}

	if src.Voice != nil {
		if dst.Voice == nil {
			dst.Voice = &VoiceOptions{}
		}
		if src.Voice.Lang != "" {
			dst.Voice.Lang = src.Voice.Lang
		}
		if len(src.Voice.Synthesizer) > 0 {
			dst.Voice.Synthesizer = src.Voice.Synthesizer
		}
		if src.Voice.Rate != 0 {
			dst.Voice.Rate = src.Voice.Rate
		}
		if src.Voice.AutoRead {
			dst.Voice.AutoRead = true
		}
	}

	if src.Server != nil {
		if dst.Server == nil {
			dst.Server = &ServerOptions{}
		}
		if src.Server.Addr != "" {
			dst.Server.Addr = src.Server.Addr
		}
		if src.Server.Token != "" {
			dst.Server.Token = src.Server.Token
		}
		if src.Server.PublicURL != "" {
			dst.Server.PublicURL = src.Server.PublicURL
		}
	}
}

// GlobalConfigPath returns the path to the global configuration file.
func GlobalConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, configFileName)
}

// DataDir returns the data directory path from configuration.
func (c *Config) DataDir() string {
	if c.Options != nil && c.Options.DataDir != "" {
		return c.Options.DataDir
	}
	return filepath.Join(xdg.DataHome, appName)
}

// Resolve resolves environment variables in a configuration value.
func (c *Config) Resolve(value string) (string, error) {
	return NewResolver().Resolve(value)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return nil
}
