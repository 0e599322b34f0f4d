package config

import (
	"testing"
)

// Note: IsFirstRun() uses xdg.ConfigHome which is cached at init time, so
// only NeedsSetup is exercised here.

func TestNeedsSetup(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		apiKey string
		model  string
		want   bool
	}{
		{name: "key from env", env: "sk-test", apiKey: "$VOXCHAT_TEST_KEY", want: false},
		{name: "env unset", env: "", apiKey: "$VOXCHAT_TEST_KEY", want: true},
		{name: "literal key", apiKey: "sk-literal", want: false},
		{name: "no key", apiKey: "", want: true},
		{name: "unknown default model", apiKey: "sk-literal", model: "nope", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VOXCHAT_TEST_KEY", tt.env)
			cfg := newTestConfig(t)
			cfg.Providers["anthropic"].APIKey = tt.apiKey
			if tt.model != "" {
				cfg.Options.DefaultModel = tt.model
			}
			if got := NeedsSetup(cfg); got != tt.want {
				t.Errorf("NeedsSetup() = %v, want %v", got, tt.want)
			}
		})
	}
}
