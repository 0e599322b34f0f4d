package rpc

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/guilhermegouw/voxchat/internal/debug"
	"github.com/guilhermegouw/voxchat/internal/events"
	"github.com/guilhermegouw/voxchat/internal/lifecycle"
	"github.com/guilhermegouw/voxchat/internal/pubsub"
	"github.com/guilhermegouw/voxchat/internal/voice"
)

// Path is where the WebSocket endpoint is mounted.
const Path = "/rpc"

// Option configures a Server.
type Option func(*Server)

// WithVersion is reported to clients on auth.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithSessionBroker forwards session events to every client.
func WithSessionBroker(b *pubsub.Broker[events.SessionEvent]) Option {
	return func(s *Server) { s.sessions = b }
}

// WithBrokers reports the registry's broker metrics on /healthz.
func WithBrokers(r *pubsub.Registry) Option {
	return func(s *Server) { s.brokers = r }
}

// WithVoice sets the recognition language and speech options used for
// remote voice sessions.
func WithVoice(lang string, opts voice.SpeakOptions) Option {
	return func(s *Server) {
		s.lang = lang
		s.speakOpts = opts
	}
}

// WithInsecureOrigins accepts WebSocket upgrades from any origin.
func WithInsecureOrigins() Option {
	return func(s *Server) { s.insecure = true }
}

// Server handles JSON-RPC 2.0 over WebSocket. Each authenticated
// connection gets its own voice session; the most recent one is also the
// controller's speaker.
type Server struct { //nolint:govet // fieldalignment: preserving logical field order
	token     string
	version   string
	ctrl      *lifecycle.Controller
	sessions  *pubsub.Broker[events.SessionEvent]
	brokers   *pubsub.Registry
	lang      string
	speakOpts voice.SpeakOptions
	insecure  bool

	mu      sync.Mutex
	speaker *voice.Session
	conns   int
}

var _ lifecycle.Speaker = (*Server)(nil)

// NewServer creates a server and registers it as ctrl's speaker.
func NewServer(token string, ctrl *lifecycle.Controller, opts ...Option) *Server {
	s := &Server{
		token:     token,
		version:   "dev",
		ctrl:      ctrl,
		lang:      voice.DefaultLang,
		speakOpts: voice.SpeakOptions{Lang: voice.DefaultLang},
	}
	for _, opt := range opts {
		opt(s)
	}
	ctrl.SetSpeaker(s)
	return s
}

// Handler returns a mux serving the RPC endpoint and a health check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, s)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Health()); err != nil {
			debug.Error("rpc", err, "writing health")
		}
	})
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: s.insecure,
	})
	if err != nil {
		debug.Error("rpc", err, "accepting websocket")
		return
	}
	s.HandleStream(r.Context(), newWebSocketStream(conn), uuid.New().String())
}

// HandleStream serves one connection until it closes.
func (s *Server) HandleStream(ctx context.Context, stream jsonrpc2.ObjectStream, connID string) {
	defer func() {
		if r := recover(); r != nil {
			debug.Error("rpc", fmt.Errorf("%v", r), "connection "+connID+" crashed")
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h := &connHandler{srv: s, id: connID, ctx: ctx}
	debug.Event("rpc", "Connected", connID)
	s.track(1)

	rpcConn := jsonrpc2.NewConn(ctx, stream, h)
	<-rpcConn.DisconnectNotify()

	cancel()
	h.cleanup()
	s.track(-1)
	debug.Event("rpc", "Disconnected", connID)
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

// Health reports open connections, whether the active client is speaking
// and the registered brokers' counters.
func (s *Server) Health() Health {
	h := Health{Version: s.version, Connections: s.Connections()}
	s.mu.Lock()
	vs := s.speaker
	s.mu.Unlock()
	if vs != nil {
		h.Speaking = vs.Speaking()
	}
	if s.brokers != nil {
		for _, name := range s.brokers.List() {
			if b, ok := s.brokers.Get(name); ok {
				h.Brokers = append(h.Brokers, b.Metrics())
			}
		}
	}
	return h
}

func (s *Server) track(delta int) {
	s.mu.Lock()
	s.conns += delta
	s.mu.Unlock()
}

// Speak implements lifecycle.Speaker through the most recently
// authenticated client.
func (s *Server) Speak(ctx context.Context, text string) voice.Outcome {
	s.mu.Lock()
	vs := s.speaker
	s.mu.Unlock()
	if vs == nil {
		debug.Warn("rpc", "no client connected to speak")
		return voice.OutcomeFailed
	}
	return vs.Speak(ctx, text)
}

func (s *Server) setSpeaker(vs *voice.Session) {
	s.mu.Lock()
	s.speaker = vs
	s.mu.Unlock()
}

func (s *Server) dropSpeaker(vs *voice.Session) {
	s.mu.Lock()
	if s.speaker == vs {
		s.speaker = nil
	}
	s.mu.Unlock()
}

// connHandler is the jsonrpc2.Handler of one connection. Requests are
// handled in arrival order so recognition results keep their order; only
// chat.submit runs in the background.
type connHandler struct { //nolint:govet // fieldalignment: preserving logical field order
	srv *Server
	id  string
	ctx context.Context

	authenticated atomic.Bool
	mu            sync.Mutex
	rec           *RemoteRecognizer
	synth         *RemoteSynthesizer
	voice         *voice.Session
	voiceEvents   *pubsub.Broker[events.VoiceEvent]
}

func (h *connHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	defer func() {
		if r := recover(); r != nil {
			debug.Error("rpc", fmt.Errorf("%v", r), "handler panic in "+req.Method)
			h.replyError(ctx, conn, req, jsonrpc2.CodeInternalError, "internal error")
		}
	}()

	debug.Log("rpc: %s request %s", h.id, req.Method)

	if !h.authenticated.Load() {
		if req.Method != MethodAuth {
			h.replyError(ctx, conn, req, jsonrpc2.CodeInvalidRequest, "first request must be auth")
			conn.Close()
			return
		}
		h.handleAuth(ctx, conn, req)
		return
	}

	if req.Method == MethodChatSubmit {
		go h.reply(h.ctx, conn, req, h.handleChatSubmit)
		return
	}

	handler, ok := h.methods()[req.Method]
	if !ok {
		h.replyError(ctx, conn, req, jsonrpc2.CodeMethodNotFound, "method not found: "+req.Method)
		return
	}
	h.reply(ctx, conn, req, handler)
}

type methodFunc func(ctx context.Context, req *jsonrpc2.Request) (any, error)

func (h *connHandler) methods() map[string]methodFunc {
	return map[string]methodFunc{
		MethodSessionList:      h.handleSessionList,
		MethodSessionNew:       h.handleSessionNew,
		MethodSessionSelect:    h.handleSessionSelect,
		MethodSessionDelete:    h.handleSessionDelete,
		MethodSessionUndo:      h.handleSessionUndo,
		MethodSessionRename:    h.handleSessionRename,
		MethodSessionAutoRead:  h.handleSessionAutoRead,
		MethodSessionHistory:   h.handleSessionHistory,
		MethodSessionReset:     h.handleSessionReset,
		MethodModelList:        h.handleModelList,
		MethodModelSelect:      h.handleModelSelect,
		MethodVoiceStart:       h.handleVoiceStart,
		MethodVoiceStop:        h.handleVoiceStop,
		MethodVoiceResult:      h.handleVoiceResult,
		MethodVoiceSpeechEnded: h.handleSpeechEnded,
	}
}

func (h *connHandler) handleAuth(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params AuthParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "invalid params")
		conn.Close()
		return
	}

	if subtle.ConstantTimeCompare([]byte(params.Token), []byte(h.srv.token)) != 1 {
		debug.Warn("rpc", "invalid auth token", "conn", h.id)
		h.replyError(ctx, conn, req, jsonrpc2.CodeInvalidRequest, "invalid token")
		conn.Close()
		return
	}

	h.attach(conn)
	h.authenticated.Store(true)
	debug.Event("rpc", "Authenticated", h.id)

	cur, _ := h.srv.ctrl.CurrentID()
	result := AuthResult{Version: h.srv.version, Model: h.srv.ctrl.Model(), CurrentID: cur}
	if req.Notif {
		return
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		debug.Error("rpc", err, "sending auth response")
	}
}

// attach builds the connection's voice session and starts forwarding
// events to the client.
func (h *connHandler) attach(conn *jsonrpc2.Conn) {
	n := connNotifier{conn: conn}
	h.mu.Lock()
	h.rec = NewRemoteRecognizer(n)
	h.synth = NewRemoteSynthesizer(n)
	h.voiceEvents = pubsub.NewBroker[events.VoiceEvent]("voice-" + h.id)
	h.voice = voice.New(h.rec, h.synth,
		voice.WithBroker(h.voiceEvents),
		voice.WithFallback(h.srv.ctrl.Fallback),
		voice.WithLang(h.srv.lang),
		voice.WithSpeakOptions(h.srv.speakOpts),
	)
	h.voice.RegisterActions(h.srv.ctrl.Actions())
	voiceCh := h.voiceEvents.Subscribe(h.ctx)
	h.mu.Unlock()

	h.srv.setSpeaker(h.voice)

	go forward(h.ctx, n, NotifyVoiceState, voiceCh)
	if h.srv.sessions != nil {
		go forward(h.ctx, n, NotifySessionChanged, h.srv.sessions.Subscribe(h.ctx))
	}
}

func forward[T any](ctx context.Context, n Notifier, method string, ch <-chan pubsub.Event[T]) {
	for ev := range ch {
		if err := n.Notify(ctx, method, ev.Payload); err != nil {
			debug.Warn("rpc", "notification failed", "method", method, "err", err)
			return
		}
	}
}

func (h *connHandler) cleanup() {
	h.mu.Lock()
	vs := h.voice
	b := h.voiceEvents
	h.mu.Unlock()

	if vs != nil {
		vs.UnregisterActions()
		vs.Close()
		h.srv.dropSpeaker(vs)
	}
	if b != nil {
		b.Shutdown()
	}
}

func (h *connHandler) reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, fn methodFunc) {
	result, err := fn(ctx, req)
	if err != nil {
		var rpcErr *jsonrpc2.Error
		if !errors.As(err, &rpcErr) {
			rpcErr = &jsonrpc2.Error{Code: errorCode(err), Message: err.Error()}
		}
		debug.Warn("rpc", "request failed", "method", req.Method, "err", err)
		h.replyError(ctx, conn, req, rpcErr.Code, rpcErr.Message)
		return
	}
	if req.Notif {
		return
	}
	if result == nil {
		result = struct{}{}
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		debug.Error("rpc", err, "sending "+req.Method+" response")
	}
}

func (h *connHandler) replyError(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, code int64, message string) {
	if req.Notif {
		return
	}
	err := &jsonrpc2.Error{Code: code, Message: message}
	if replyErr := conn.ReplyWithError(ctx, req.ID, err); replyErr != nil {
		debug.Error("rpc", replyErr, "sending error response")
	}
}

func unmarshalParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return errors.New("params required")
	}
	return json.Unmarshal(*req.Params, v)
}

func invalidParams(msg string) error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: msg}
}
