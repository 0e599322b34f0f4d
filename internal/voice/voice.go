// Package voice runs the listening loop that turns recognized speech into
// dispatched commands, and speaks text through a synthesizer.
package voice

import (
	"context"
	"errors"
)

// ErrRecognizerUnavailable is returned by Start when no recognizer is
// configured.
var ErrRecognizerUnavailable = errors.New("speech recognition is not available")

// Result is one recognition update. Transcript holds the whole utterance so
// far; Final marks the end of an utterance. A non-nil Err reports that the
// recognizer failed and will deliver nothing more.
type Result struct {
	Transcript string
	Final      bool
	Err        error
}

// Options configures a recognizer handle.
type Options struct {
	Continuous bool
	Interim    bool
	Lang       string
}

// Handle is an active recognizer. Stop must be safe to call from inside
// the result callback.
type Handle interface {
	Stop() error
}

// Recognizer opens recognition handles. onResult may be called from any
// goroutine but never concurrently for one handle.
type Recognizer interface {
	Open(ctx context.Context, opts Options, onResult func(Result)) (Handle, error)
}

// SpeakOptions tune an utterance. Zero values mean the synthesizer default.
type SpeakOptions struct {
	Lang   string
	Voice  string
	Rate   float64
	Pitch  float64
	Volume float64
}

// Synthesizer speaks text and returns when playback ends. It must return
// promptly once ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, text string, opts SpeakOptions) error
}

// State is a snapshot of a Session.
type State struct {
	Listening      bool   `json:"listening"`
	LastTranscript string `json:"lastTranscript"`
}

// Outcome is how an utterance ended.
type Outcome int

// Utterance outcomes.
const (
	OutcomeCompleted Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
