package voice

import (
	"context"
	"fmt"
	"sync"

	"github.com/guilhermegouw/voxchat/internal/command"
	"github.com/guilhermegouw/voxchat/internal/debug"
	"github.com/guilhermegouw/voxchat/internal/events"
	"github.com/guilhermegouw/voxchat/internal/pubsub"
)

// DefaultLang is the recognition language used when none is configured.
const DefaultLang = "en-US"

// Fallback receives intents the registered actions left unhandled, such as
// sidebar toggles and session navigation. It reports whether it acted.
type Fallback func(intent command.Intent) bool

// Option configures a Session.
type Option func(*Session)

// WithBroker publishes state changes, transcripts and speech events.
func WithBroker(b *pubsub.Broker[events.VoiceEvent]) Option {
	return func(s *Session) { s.broker = b }
}

// WithFallback sets the handler for intents the actions do not cover.
func WithFallback(f Fallback) Option {
	return func(s *Session) { s.fallback = f }
}

// WithLang sets the recognition and speech language.
func WithLang(lang string) Option {
	return func(s *Session) {
		s.lang = lang
		s.speakOpts.Lang = lang
	}
}

// WithSpeakOptions sets the options passed to the synthesizer.
func WithSpeakOptions(opts SpeakOptions) Option {
	return func(s *Session) { s.speakOpts = opts }
}

// Session owns one recognizer handle at a time and routes final
// transcripts through command parsing and dispatch.
type Session struct {
	recognizer Recognizer
	synth      Synthesizer
	broker     *pubsub.Broker[events.VoiceEvent]
	fallback   Fallback
	lang       string
	speakOpts  SpeakOptions

	mu             sync.Mutex
	handle         Handle
	listening      bool
	starting       bool
	startErr       error
	gen            uint64
	lastTranscript string
	actions        command.Actions

	speechMu     sync.Mutex
	cancelSpeech context.CancelFunc
	speechSeq    uint64
}

// New creates an idle session. Either capability may be nil, in which case
// the matching operation reports it as unavailable.
func New(recognizer Recognizer, synth Synthesizer, opts ...Option) *Session {
	s := &Session{
		recognizer: recognizer,
		synth:      synth,
		lang:       DefaultLang,
		speakOpts:  SpeakOptions{Lang: DefaultLang},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins continuous listening. Calling Start while already listening
// logs a warning and does nothing. A failure to open the recognizer leaves
// the session idle and is returned.
func (s *Session) Start(ctx context.Context) error {
	if s.recognizer == nil {
		s.publish(events.NewNoticeEvent(ErrRecognizerUnavailable.Error(), false))
		return ErrRecognizerUnavailable
	}

	s.mu.Lock()
	if s.listening || s.starting {
		s.mu.Unlock()
		debug.Warn("voice", "start called while already listening")
		return nil
	}
	s.starting = true
	s.startErr = nil
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	h, err := s.recognizer.Open(ctx, Options{Continuous: true, Interim: true, Lang: s.lang},
		func(r Result) { s.onResult(gen, r) })

	s.mu.Lock()
	if s.gen != gen {
		// Stopped, or the recognizer failed, while opening.
		failed := s.startErr
		s.startErr = nil
		s.mu.Unlock()
		if err == nil {
			s.release(h)
		}
		if failed != nil {
			return fmt.Errorf("starting recognizer: %w", failed)
		}
		return nil
	}
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		debug.Error("voice", err, "starting recognizer")
		s.publish(events.NewNoticeEvent("Could not start listening: "+err.Error(), false))
		return fmt.Errorf("starting recognizer: %w", err)
	}
	s.handle = h
	s.listening = true
	s.mu.Unlock()

	debug.Event("voice", "Started", "")
	s.publish(events.NewListeningEvent(true))
	return nil
}

// Stop ends listening. The session is idle afterwards even if releasing the
// recognizer fails.
func (s *Session) Stop() {
	s.mu.Lock()
	h := s.handle
	wasActive := s.listening || s.starting
	s.handle = nil
	s.listening = false
	s.starting = false
	s.gen++
	s.mu.Unlock()

	s.release(h)
	if wasActive {
		debug.Event("voice", "Stopped", "")
		s.publish(events.NewListeningEvent(false))
	}
}

func (s *Session) release(h Handle) {
	if h == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			debug.Error("voice", fmt.Errorf("%v", r), "stopping recognizer panicked")
		}
	}()
	if err := h.Stop(); err != nil {
		debug.Warn("voice", "failed to stop recognizer", "err", err)
	}
}

// Close stops listening and cancels speech.
func (s *Session) Close() {
	s.Stop()
	s.CancelSpeech()
}

// State returns the current listening state and transcript.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Listening: s.listening, LastTranscript: s.lastTranscript}
}

// RegisterActions replaces the action set used for dispatch.
func (s *Session) RegisterActions(a command.Actions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = a
}

// UnregisterActions clears the action set. Final transcripts are still
// parsed but only the fallback can act on them.
func (s *Session) UnregisterActions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = nil
}

func (s *Session) onResult(gen uint64, r Result) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}

	if r.Err != nil {
		if s.starting {
			s.startErr = r.Err
		}
		h := s.handle
		s.handle = nil
		s.listening = false
		s.starting = false
		s.gen++
		s.mu.Unlock()

		debug.Error("voice", r.Err, "recognizer")
		s.release(h)
		s.publish(events.NewListeningEvent(false))
		s.publish(events.NewNoticeEvent("Speech recognition stopped: "+r.Err.Error(), false))
		return
	}

	s.lastTranscript = r.Transcript
	listening := s.listening
	actions := s.actions
	s.mu.Unlock()

	s.publish(events.NewTranscriptEvent(r.Transcript, r.Final, listening))
	if r.Final {
		s.handleFinal(r.Transcript, actions)
	}
}

// handleFinal runs one finished utterance through parse and dispatch.
// Nothing here may take the listening loop down.
func (s *Session) handleFinal(text string, actions command.Actions) {
	defer func() {
		if r := recover(); r != nil {
			debug.Error("voice", fmt.Errorf("%v", r), "handling transcript panicked")
		}
	}()

	intent, ok := command.Parse(text)
	if !ok {
		return
	}
	debug.Event("voice", "Command", string(intent.Kind))

	handled := false
	switch intent.Kind {
	case command.KindStopListening:
		s.Stop()
		handled = true
	case command.KindStartListening:
		handled = true
	default:
		res := command.DispatchIntent(intent, text, actions)
		handled = res.Handled
		if !handled && s.fallback != nil {
			handled = s.runFallback(intent)
		}
	}

	s.publish(events.NewCommandEvent(string(intent.Kind), intent.Args, handled))
}

func (s *Session) runFallback(intent command.Intent) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			debug.Error("voice", fmt.Errorf("%v", r), "fallback for "+string(intent.Kind)+" panicked")
			handled = false
		}
	}()
	return s.fallback(intent)
}
