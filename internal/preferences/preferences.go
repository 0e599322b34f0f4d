// Package preferences stores user-level settings next to session data.
package preferences

import (
	"strconv"
	"sync"

	"github.com/guilhermegouw/voxchat/internal/debug"
	"github.com/guilhermegouw/voxchat/internal/storage"
)

// Storage keys.
const (
	ModelKey = "selected-model"
	TTSKey   = "tts-enabled"
)

// DefaultModel is used until the user picks one.
const DefaultModel = "claude"

// Preferences reads and writes settings through a storage.Storage. Values
// are cached after the first successful write so a broken store still
// reflects the user's choices for the rest of the process.
type Preferences struct {
	storage storage.Storage
	model   *string
	tts     *bool
	mu      sync.Mutex
}

// New returns preferences backed by st.
func New(st storage.Storage) *Preferences {
	return &Preferences{storage: st}
}

// Model returns the selected model id, or DefaultModel.
func (p *Preferences) Model() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.model != nil {
		return *p.model
	}
	v, ok, err := p.storage.Get(ModelKey)
	if err != nil {
		debug.Error("preferences", err, "reading model")
	}
	if !ok || v == "" {
		return DefaultModel
	}
	p.model = &v
	return v
}

// SetModel records the selected model id.
func (p *Preferences) SetModel(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.model = &id
	if err := p.storage.Set(ModelKey, id); err != nil {
		debug.Error("preferences", err, "writing model")
	}
}

// TTSEnabled reports whether replies may be spoken. Defaults to true; an
// unreadable stored value also yields true.
func (p *Preferences) TTSEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tts != nil {
		return *p.tts
	}
	v, ok, err := p.storage.Get(TTSKey)
	if err != nil {
		debug.Error("preferences", err, "reading tts flag")
	}
	if !ok {
		return true
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		debug.Warn("preferences", "ignoring malformed tts flag", "value", v)
		return true
	}
	p.tts = &enabled
	return enabled
}

// SetTTSEnabled records the text-to-speech flag.
func (p *Preferences) SetTTSEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tts = &enabled
	if err := p.storage.Set(TTSKey, strconv.FormatBool(enabled)); err != nil {
		debug.Error("preferences", err, "writing tts flag")
	}
}

// Reset forgets every preference.
func (p *Preferences) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.model = nil
	p.tts = nil
	for _, key := range []string{ModelKey, TTSKey} {
		if err := p.storage.Remove(key); err != nil {
			debug.Error("preferences", err, "removing "+key)
		}
	}
}
