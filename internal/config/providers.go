package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/catwalk/pkg/catwalk"
	"github.com/charmbracelet/catwalk/pkg/embedded"

	"github.com/guilhermegouw/voxchat/internal/debug"
)

// DefaultCatwalkURL serves the current provider list.
const DefaultCatwalkURL = "https://catwalk.charm.sh"

const providersCacheFile = "providers.json"

// ProvidersCachePath is where fetched provider metadata is kept.
func ProvidersCachePath(dataDir string) string {
	return filepath.Join(dataDir, providersCacheFile)
}

// LoadKnownProviders returns the cached provider list from dataDir, or the
// list embedded in catwalk when nothing usable is cached. Loading never
// touches the network.
func LoadKnownProviders(dataDir string) []catwalk.Provider {
	providers, err := loadProvidersCache(ProvidersCachePath(dataDir))
	if err == nil && len(providers) > 0 {
		return providers
	}
	if err != nil && !os.IsNotExist(err) {
		debug.Warn("config", "ignoring provider cache", "err", err)
	}
	return embedded.GetAll()
}

// UpdateProviders fetches the provider list from a catwalk server and
// caches it in dataDir for later loads.
func UpdateProviders(dataDir, url string) ([]catwalk.Provider, error) {
	if url == "" {
		url = DefaultCatwalkURL
	}
	providers, err := catwalk.NewWithURL(url).GetProviders()
	if err != nil {
		return nil, fmt.Errorf("fetching providers from %s: %w", url, err)
	}
	if err := saveProvidersCache(ProvidersCachePath(dataDir), providers); err != nil {
		return nil, err
	}
	return providers, nil
}

func loadProvidersCache(path string) ([]catwalk.Provider, error) {
	//nolint:gosec // G304: path is inside the data directory.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var providers []catwalk.Provider
	if err := json.Unmarshal(data, &providers); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return providers, nil
}

func saveProvidersCache(path string, providers []catwalk.Provider) error {
	data, err := json.MarshalIndent(providers, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling providers: %w", err)
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	//nolint:gosec // 0o600 is intentionally restrictive.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing provider cache: %w", err)
	}
	return nil
}
