package rpc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/guilhermegouw/voxchat/internal/debug"
	"github.com/guilhermegouw/voxchat/internal/voice"
)

// notifyTimeout bounds notifications sent outside a request context.
const notifyTimeout = 5 * time.Second

var (
	// ErrNoRecognition is returned for results that match no open recognition.
	ErrNoRecognition = errors.New("no active recognition")
	// ErrUnknownUtterance is returned for speech_ended with an unknown id.
	ErrUnknownUtterance = errors.New("unknown utterance")
)

// Notifier sends one-way messages to the client.
type Notifier interface {
	Notify(ctx context.Context, method string, params any) error
}

// connNotifier adapts jsonrpc2.Conn to Notifier.
type connNotifier struct {
	conn *jsonrpc2.Conn
}

func (n connNotifier) Notify(ctx context.Context, method string, params any) error {
	return n.conn.Notify(ctx, method, params)
}

// RemoteRecognizer is a voice.Recognizer whose audio is captured by the
// client. Open asks the client to listen; results arrive through Deliver.
type RemoteRecognizer struct {
	notifier Notifier
	mu       sync.Mutex
	active   *remoteHandle
}

var _ voice.Recognizer = (*RemoteRecognizer)(nil)

// NewRemoteRecognizer creates a recognizer that talks to n.
func NewRemoteRecognizer(n Notifier) *RemoteRecognizer {
	return &RemoteRecognizer{notifier: n}
}

type remoteHandle struct {
	rec      *RemoteRecognizer
	id       string
	onResult func(voice.Result)
	// delivering serializes callbacks for one handle.
	delivering sync.Mutex
}

// Open implements voice.Recognizer. A new recognition replaces the previous
// one.
func (r *RemoteRecognizer) Open(ctx context.Context, opts voice.Options, onResult func(voice.Result)) (voice.Handle, error) {
	h := &remoteHandle{rec: r, id: uuid.New().String(), onResult: onResult}

	r.mu.Lock()
	r.active = h
	r.mu.Unlock()

	err := r.notifier.Notify(ctx, NotifyVoiceListen, ListenParams{
		ID:         h.id,
		Lang:       opts.Lang,
		Continuous: opts.Continuous,
		Interim:    opts.Interim,
	})
	if err != nil {
		r.clear(h)
		return nil, err
	}
	return h, nil
}

// Deliver routes a client result to the open recognition. An empty id
// matches whatever is open.
func (r *RemoteRecognizer) Deliver(p VoiceResultParams) error {
	r.mu.Lock()
	h := r.active
	r.mu.Unlock()
	if h == nil || (p.ID != "" && p.ID != h.id) {
		return ErrNoRecognition
	}

	res := voice.Result{Transcript: p.Transcript, Final: p.Final}
	if p.Error != "" {
		res.Err = errors.New(p.Error)
		r.clear(h)
	}

	h.delivering.Lock()
	defer h.delivering.Unlock()
	h.onResult(res)
	return nil
}

func (r *RemoteRecognizer) clear(h *remoteHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != h {
		return false
	}
	r.active = nil
	return true
}

// Stop implements voice.Handle.
func (h *remoteHandle) Stop() error {
	if !h.rec.clear(h) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	return h.rec.notifier.Notify(ctx, NotifyVoiceUnlisten, SpeechIDParams{ID: h.id})
}

// RemoteSynthesizer is a voice.Synthesizer played by the client. Speak
// blocks until the client reports voice.speech_ended.
type RemoteSynthesizer struct {
	notifier Notifier
	mu       sync.Mutex
	waiting  map[string]chan error
}

var _ voice.Synthesizer = (*RemoteSynthesizer)(nil)

// NewRemoteSynthesizer creates a synthesizer that talks to n.
func NewRemoteSynthesizer(n Notifier) *RemoteSynthesizer {
	return &RemoteSynthesizer{notifier: n, waiting: make(map[string]chan error)}
}

// Speak implements voice.Synthesizer. Cancelling ctx tells the client to
// stop playback.
func (s *RemoteSynthesizer) Speak(ctx context.Context, text string, opts voice.SpeakOptions) error {
	id := uuid.New().String()
	done := make(chan error, 1)

	s.mu.Lock()
	s.waiting[id] = done
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.waiting, id)
		s.mu.Unlock()
	}()

	err := s.notifier.Notify(ctx, NotifyVoiceSpeak, SpeakParams{
		ID:     id,
		Text:   text,
		Lang:   opts.Lang,
		Voice:  opts.Voice,
		Rate:   opts.Rate,
		Pitch:  opts.Pitch,
		Volume: opts.Volume,
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(cctx, NotifyCancelSpeech, SpeechIDParams{ID: id}); err != nil {
			debug.Warn("rpc", "failed to cancel speech", "id", id, "err", err)
		}
		return ctx.Err()
	}
}

// Finish completes the utterance id.
func (s *RemoteSynthesizer) Finish(p SpeechEndedParams) error {
	s.mu.Lock()
	done, ok := s.waiting[p.ID]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownUtterance
	}

	var err error
	if p.Error != "" {
		err = errors.New(p.Error)
	}
	select {
	case done <- err:
	default:
	}
	return nil
}
