package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
)

// SaveToFile writes the configuration to a specific file path. API keys are
// written as configured, so environment references stay references.
func SaveToFile(cfg *Config, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil { //nolint:gosec // Restrictive permissions for security.
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Starter returns a copy of cfg fit for a new config file: bindings,
// options and provider connection settings, without catwalk model lists.
func (c *Config) Starter() *Config {
	out := NewConfig()
	for id, p := range c.Providers {
		if p == nil {
			continue
		}
		cp := *p
		cp.Models = nil
		out.Providers[id] = &cp
	}
	maps.Copy(out.Models, c.Models)
	if c.Options != nil {
		opts := *c.Options
		opts.DataDir = ""
		out.Options = &opts
	}
	if c.Voice != nil {
		voice := *c.Voice
		out.Voice = &voice
	}
	if c.Server != nil {
		server := *c.Server
		out.Server = &server
	}
	return out
}
