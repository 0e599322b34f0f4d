package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/guilhermegouw/voxchat/internal/events"
	"github.com/guilhermegouw/voxchat/internal/lifecycle"
	"github.com/guilhermegouw/voxchat/internal/preferences"
	"github.com/guilhermegouw/voxchat/internal/pubsub"
	"github.com/guilhermegouw/voxchat/internal/session"
	"github.com/guilhermegouw/voxchat/internal/storage"
	"github.com/guilhermegouw/voxchat/internal/summarize"
	"github.com/guilhermegouw/voxchat/internal/voice"
)

const testToken = "secret"

type echoSummarizer struct {
	mu  sync.Mutex
	err error
}

func (e *echoSummarizer) Summarize(_ context.Context, req summarize.Request) (session.HistoryEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return session.HistoryEntry{}, e.err
	}
	return session.HistoryEntry{
		OriginalQuery: req.Content,
		Summary:       "re: " + req.Content,
		ModelUsed:     req.ModelID,
	}, nil
}

func (e *echoSummarizer) fail(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

// notificationCollector is the client-side handler; it only keeps
// notifications.
type notificationCollector struct {
	notes chan *jsonrpc2.Request
}

func (n *notificationCollector) Handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		n.notes <- req
	}
}

type testServer struct {
	srv    *Server
	ctrl   *lifecycle.Controller
	summ   *echoSummarizer
	url    string
	broker *pubsub.Broker[events.SessionEvent]
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	n := 0
	mem := storage.NewMemory()
	store := session.NewStore(mem, session.WithIDGenerator(func() string {
		n++
		return "s" + string(rune('0'+n))
	}))
	broker := pubsub.NewBroker[events.SessionEvent]("sessions")
	summ := &echoSummarizer{}
	ctrl := lifecycle.New(store,
		lifecycle.WithSummarizer(summ),
		lifecycle.WithPreferences(preferences.New(mem)),
		lifecycle.WithBroker(broker))
	registry := pubsub.NewRegistry()
	registry.Register("session", broker)
	srv := NewServer(testToken, ctrl, WithVersion("test"), WithSessionBroker(broker), WithBrokers(registry))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctrl.Close()
		broker.Shutdown()
	})
	return &testServer{
		srv:    srv,
		ctrl:   ctrl,
		summ:   summ,
		url:    "ws" + strings.TrimPrefix(ts.URL, "http") + Path,
		broker: broker,
	}
}

type client struct {
	conn  *jsonrpc2.Conn
	notes chan *jsonrpc2.Request
}

func dial(t *testing.T, url string) *client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	collector := &notificationCollector{notes: make(chan *jsonrpc2.Request, 256)}
	conn := jsonrpc2.NewConn(context.Background(), newWebSocketStream(ws), collector)
	t.Cleanup(func() { conn.Close() })
	return &client{conn: conn, notes: collector.notes}
}

func (c *client) call(t *testing.T, method string, params, result any) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.conn.Call(ctx, method, params, result)
}

func (c *client) mustCall(t *testing.T, method string, params, result any) {
	t.Helper()
	if err := c.call(t, method, params, result); err != nil {
		t.Fatalf("%s failed: %v", method, err)
	}
}

// waitFor skips notifications until one with method arrives.
func (c *client) waitFor(t *testing.T, method string) *jsonrpc2.Request {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case req := <-c.notes:
			if req.Method == method {
				return req
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", method)
			return nil
		}
	}
}

func decode[T any](t *testing.T, req *jsonrpc2.Request) T {
	t.Helper()
	var v T
	if req.Params == nil {
		t.Fatalf("%s has no params", req.Method)
	}
	if err := json.Unmarshal(*req.Params, &v); err != nil {
		t.Fatalf("decoding %s: %v", req.Method, err)
	}
	return v
}

func authed(t *testing.T, ts *testServer) *client {
	t.Helper()
	c := dial(t, ts.url)
	var res AuthResult
	c.mustCall(t, MethodAuth, AuthParams{Token: testToken}, &res)
	if res.Version != "test" {
		t.Fatalf("version = %q", res.Version)
	}
	return c
}

func rpcCode(err error) int64 {
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Code
	}
	return 0
}

func TestServer_Auth(t *testing.T) {
	ts := newTestServer(t)

	t.Run("first request must be auth", func(t *testing.T) {
		c := dial(t, ts.url)
		err := c.call(t, MethodSessionList, nil, nil)
		if rpcCode(err) != jsonrpc2.CodeInvalidRequest {
			t.Fatalf("error = %v", err)
		}
		select {
		case <-c.conn.DisconnectNotify():
		case <-time.After(5 * time.Second):
			t.Fatal("connection not closed")
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		c := dial(t, ts.url)
		err := c.call(t, MethodAuth, AuthParams{Token: "nope"}, nil)
		if rpcCode(err) != jsonrpc2.CodeInvalidRequest {
			t.Fatalf("error = %v", err)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		c := authed(t, ts)
		var res SessionListResult
		c.mustCall(t, MethodSessionList, nil, &res)
		if res.Sessions == nil {
			t.Error("sessions encoded as null")
		}
	})

	t.Run("unknown method", func(t *testing.T) {
		c := authed(t, ts)
		if err := c.call(t, "session.explode", nil, nil); rpcCode(err) != jsonrpc2.CodeMethodNotFound {
			t.Errorf("error = %v", err)
		}
	})
}

func TestServer_Sessions(t *testing.T) {
	ts := newTestServer(t)
	c := authed(t, ts)

	var first, second session.ChatSession
	c.mustCall(t, MethodSessionNew, nil, &first)
	c.mustCall(t, MethodSessionNew, nil, &second)

	changed := decode[events.SessionEvent](t, c.waitFor(t, NotifySessionChanged))
	if changed.SessionID != first.ID {
		t.Errorf("first session.changed for %q, want %q", changed.SessionID, first.ID)
	}

	var renamed session.ChatSession
	c.mustCall(t, MethodSessionRename, SessionRenameParams{ID: first.ID, Title: "Groceries"}, &renamed)
	if renamed.Title != "Groceries" {
		t.Errorf("title = %q", renamed.Title)
	}
	if err := c.call(t, MethodSessionRename, SessionRenameParams{ID: first.ID, Title: "  "}, nil); rpcCode(err) != jsonrpc2.CodeInvalidParams {
		t.Errorf("empty title error = %v", err)
	}

	var hist HistoryResult
	c.mustCall(t, MethodSessionSelect, SessionIDParams{ID: first.ID}, &hist)
	if hist.ID != first.ID || hist.History == nil {
		t.Errorf("select result = %+v", hist)
	}
	if err := c.call(t, MethodSessionSelect, SessionIDParams{ID: "ghost"}, nil); rpcCode(err) != jsonrpc2.CodeInvalidParams {
		t.Errorf("select unknown error = %v", err)
	}
	if err := c.call(t, MethodSessionSelect, map[string]string{}, nil); rpcCode(err) != jsonrpc2.CodeInvalidParams {
		t.Errorf("select without id error = %v", err)
	}

	var list SessionListResult
	c.mustCall(t, MethodSessionDelete, SessionIDParams{ID: first.ID}, &list)
	if len(list.Sessions) != 1 || list.CurrentID != second.ID {
		t.Errorf("after delete = %+v", list)
	}

	var restored session.ChatSession
	c.mustCall(t, MethodSessionUndo, nil, &restored)
	if restored.ID != first.ID {
		t.Errorf("restored %q, want %q", restored.ID, first.ID)
	}
	if err := c.call(t, MethodSessionUndo, nil, nil); rpcCode(err) != jsonrpc2.CodeInvalidParams {
		t.Errorf("second undo error = %v", err)
	}

	var auto session.ChatSession
	c.mustCall(t, MethodSessionAutoRead, SessionAutoReadParams{ID: first.ID, Enabled: true}, &auto)
	if !auto.AutoRead {
		t.Error("auto read not enabled")
	}

	c.mustCall(t, MethodSessionReset, nil, nil)
	c.mustCall(t, MethodSessionList, nil, &list)
	if len(list.Sessions) != 0 {
		t.Errorf("sessions after reset = %d", len(list.Sessions))
	}
}

func TestServer_ChatSubmit(t *testing.T) {
	ts := newTestServer(t)
	c := authed(t, ts)

	var res ChatSubmitResult
	c.mustCall(t, MethodChatSubmit, ChatSubmitParams{Content: "what is go"}, &res)
	if res.SessionID == "" || res.Entry.Summary != "re: what is go" {
		t.Errorf("result = %+v", res)
	}

	var hist HistoryResult
	c.mustCall(t, MethodSessionHistory, nil, &hist)
	if len(hist.History) != 1 || hist.ID != res.SessionID {
		t.Errorf("history = %+v", hist)
	}

	t.Run("backend failure is data", func(t *testing.T) {
		ts.summ.fail(&summarize.BackendError{Err: errors.New("503")})
		var failed ChatSubmitResult
		c.mustCall(t, MethodChatSubmit, ChatSubmitParams{Content: "again"}, &failed)
		if failed.Entry.Error == "" || failed.Entry.Summary != lifecycle.FailedResponseMessage {
			t.Errorf("entry = %+v", failed.Entry)
		}
	})

	t.Run("empty content", func(t *testing.T) {
		err := c.call(t, MethodChatSubmit, ChatSubmitParams{Content: "   "}, nil)
		if rpcCode(err) != jsonrpc2.CodeInvalidParams {
			t.Errorf("error = %v", err)
		}
	})
}

func TestServer_Models(t *testing.T) {
	ts := newTestServer(t)
	c := authed(t, ts)

	var models []summarize.Model
	c.mustCall(t, MethodModelList, nil, &models)
	if len(models) != len(summarize.Models) {
		t.Errorf("got %d models, want %d", len(models), len(summarize.Models))
	}

	var picked summarize.Model
	c.mustCall(t, MethodModelSelect, ModelSelectParams{Model: "chat gpt"}, &picked)
	if ts.ctrl.Model() != picked.ID {
		t.Errorf("model = %q, want %q", ts.ctrl.Model(), picked.ID)
	}
	if err := c.call(t, MethodModelSelect, ModelSelectParams{Model: "hal 9000"}, nil); rpcCode(err) != jsonrpc2.CodeInvalidParams {
		t.Errorf("unknown model error = %v", err)
	}
}

func TestServer_VoiceCommands(t *testing.T) {
	ts := newTestServer(t)
	c := authed(t, ts)

	var state voice.State
	c.mustCall(t, MethodVoiceStart, nil, &state)
	if !state.Listening {
		t.Fatal("not listening after voice.start")
	}
	listen := decode[ListenParams](t, c.waitFor(t, NotifyVoiceListen))
	if !listen.Continuous || listen.Lang != voice.DefaultLang {
		t.Errorf("listen params = %+v", listen)
	}

	c.mustCall(t, MethodVoiceResult, VoiceResultParams{ID: listen.ID, Transcript: "new"}, nil)
	c.mustCall(t, MethodVoiceResult, VoiceResultParams{ID: listen.ID, Transcript: "new chat", Final: true}, nil)
	if got := len(ts.ctrl.Sessions()); got != 1 {
		t.Fatalf("sessions after \"new chat\" = %d, want 1", got)
	}

	if err := c.call(t, MethodVoiceResult, VoiceResultParams{ID: "other", Transcript: "x"}, nil); rpcCode(err) != jsonrpc2.CodeInvalidParams {
		t.Errorf("stale result error = %v", err)
	}

	c.mustCall(t, MethodVoiceResult, VoiceResultParams{ID: listen.ID, Transcript: "stop listening", Final: true}, nil)
	unlisten := decode[SpeechIDParams](t, c.waitFor(t, NotifyVoiceUnlisten))
	if unlisten.ID != listen.ID {
		t.Errorf("unlisten id = %q, want %q", unlisten.ID, listen.ID)
	}

	c.mustCall(t, MethodVoiceStop, nil, &state)
	if state.Listening {
		t.Error("still listening after voice.stop")
	}
}

func TestServer_Speak(t *testing.T) {
	ts := newTestServer(t)

	if got := ts.srv.Speak(context.Background(), "nobody home"); got != voice.OutcomeFailed {
		t.Errorf("Speak without client = %v", got)
	}

	c := authed(t, ts)
	done := make(chan voice.Outcome, 1)
	go func() { done <- ts.srv.Speak(context.Background(), "hello there") }()

	speak := decode[SpeakParams](t, c.waitFor(t, NotifyVoiceSpeak))
	if speak.Text != "hello there" {
		t.Errorf("text = %q", speak.Text)
	}
	c.mustCall(t, MethodVoiceSpeechEnded, SpeechEndedParams{ID: speak.ID}, nil)

	select {
	case got := <-done:
		if got != voice.OutcomeCompleted {
			t.Errorf("outcome = %v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Speak did not return")
	}
}

func TestServer_Healthz(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.srv.Handler())
	defer srv.Close()

	get := func() Health {
		t.Helper()
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var h Health
		if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
			t.Fatalf("decoding health: %v", err)
		}
		return h
	}

	h := get()
	if h.Version != "test" || h.Connections != 0 || h.Speaking {
		t.Errorf("health = %+v", h)
	}
	if len(h.Brokers) != 1 || h.Brokers[0].Name != "sessions" {
		t.Errorf("Brokers = %+v", h.Brokers)
	}

	c := dial(t, ts.url)
	c.mustCall(t, MethodAuth, AuthParams{Token: testToken}, nil)
	deadline := time.Now().Add(time.Second)
	for ts.srv.Connections() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if h := get(); h.Connections != 1 {
		t.Errorf("Connections = %d, want 1", h.Connections)
	}
}
