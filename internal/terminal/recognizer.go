package terminal

import (
	"context"
	"strings"
	"sync"

	"github.com/guilhermegouw/voxchat/internal/voice"
)

// LineRecognizer is a voice.Recognizer for typed input: every line fed to
// it while a handle is open becomes one final transcript.
type LineRecognizer struct {
	mu     sync.Mutex
	active *lineHandle
}

var _ voice.Recognizer = (*LineRecognizer)(nil)

// NewLineRecognizer creates an idle recognizer.
func NewLineRecognizer() *LineRecognizer {
	return &LineRecognizer{}
}

type lineHandle struct {
	rec      *LineRecognizer
	onResult func(voice.Result)
}

// Open implements voice.Recognizer.
func (r *LineRecognizer) Open(_ context.Context, _ voice.Options, onResult func(voice.Result)) (voice.Handle, error) {
	h := &lineHandle{rec: r, onResult: onResult}
	r.mu.Lock()
	r.active = h
	r.mu.Unlock()
	return h, nil
}

// Listening reports whether a handle is open.
func (r *LineRecognizer) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Feed delivers line as a final transcript. It reports false when no
// handle is open or the line is blank.
func (r *LineRecognizer) Feed(line string) bool {
	line = strings.TrimSpace(line)
	r.mu.Lock()
	h := r.active
	r.mu.Unlock()
	if h == nil || line == "" {
		return false
	}
	h.onResult(voice.Result{Transcript: line, Final: true})
	return true
}

// Fail delivers err to the open handle and closes it.
func (r *LineRecognizer) Fail(err error) {
	r.mu.Lock()
	h := r.active
	r.active = nil
	r.mu.Unlock()
	if h != nil {
		h.onResult(voice.Result{Err: err})
	}
}

func (h *lineHandle) Stop() error {
	h.rec.mu.Lock()
	if h.rec.active == h {
		h.rec.active = nil
	}
	h.rec.mu.Unlock()
	return nil
}
