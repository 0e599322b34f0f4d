package config

import (
	"os"
)

// IsFirstRun reports whether no global config file exists yet.
func IsFirstRun() bool {
	_, err := os.Stat(GlobalConfigPath())
	return os.IsNotExist(err)
}

// NeedsSetup reports whether the default model cannot be used because its
// provider has no resolvable API key.
func NeedsSetup(cfg *Config) bool {
	model := DefaultModel
	if cfg.Options != nil && cfg.Options.DefaultModel != "" {
		model = cfg.Options.DefaultModel
	}
	_, p, err := cfg.Binding(model)
	if err != nil {
		return true
	}
	if p.APIKey == "" {
		return true
	}
	_, err = cfg.Resolve(p.APIKey)
	return err != nil
}
