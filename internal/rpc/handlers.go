package rpc

import (
	"context"
	"errors"
	"strings"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/tidwall/gjson"

	"github.com/guilhermegouw/voxchat/internal/lifecycle"
	"github.com/guilhermegouw/voxchat/internal/session"
	"github.com/guilhermegouw/voxchat/internal/summarize"
	"github.com/guilhermegouw/voxchat/internal/voice"
)

// errorCode maps domain errors to JSON-RPC codes. Caller mistakes are
// invalid params; everything else is internal.
func errorCode(err error) int64 {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrEmptyTitle),
		errors.Is(err, lifecycle.ErrNothingToUndo),
		errors.Is(err, lifecycle.ErrEmptySubmission),
		errors.Is(err, lifecycle.ErrUnknownModel),
		errors.Is(err, ErrNoRecognition),
		errors.Is(err, ErrUnknownUtterance):
		return jsonrpc2.CodeInvalidParams
	default:
		return jsonrpc2.CodeInternalError
	}
}

// idParam reads the "id" field without a params struct. A missing id is
// returned as "".
func idParam(req *jsonrpc2.Request) string {
	if req.Params == nil {
		return ""
	}
	return gjson.GetBytes(*req.Params, "id").String()
}

func (h *connHandler) handleSessionList(context.Context, *jsonrpc2.Request) (any, error) {
	cur, _ := h.srv.ctrl.CurrentID()
	sessions := h.srv.ctrl.Sessions()
	if sessions == nil {
		sessions = []session.ChatSession{}
	}
	return SessionListResult{Sessions: sessions, CurrentID: cur}, nil
}

func (h *connHandler) handleSessionNew(context.Context, *jsonrpc2.Request) (any, error) {
	return h.srv.ctrl.NewChat(), nil
}

func (h *connHandler) handleSessionSelect(_ context.Context, req *jsonrpc2.Request) (any, error) {
	id := idParam(req)
	if id == "" {
		return nil, invalidParams("id is required")
	}
	if _, ok := h.srv.ctrl.Session(id); !ok {
		return nil, session.ErrNotFound
	}
	h.srv.ctrl.SelectSession(id)
	return HistoryResult{ID: id, History: nonNil(h.srv.ctrl.SessionHistory(id))}, nil
}

func (h *connHandler) handleSessionDelete(_ context.Context, req *jsonrpc2.Request) (any, error) {
	id := idParam(req)
	if id == "" {
		return nil, invalidParams("id is required")
	}
	h.srv.ctrl.DeleteSession(id)
	cur, _ := h.srv.ctrl.CurrentID()
	return SessionListResult{Sessions: h.srv.ctrl.Sessions(), CurrentID: cur}, nil
}

func (h *connHandler) handleSessionUndo(context.Context, *jsonrpc2.Request) (any, error) {
	return h.srv.ctrl.UndoDelete()
}

func (h *connHandler) handleSessionRename(_ context.Context, req *jsonrpc2.Request) (any, error) {
	var params SessionRenameParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, invalidParams("invalid params")
	}
	return h.srv.ctrl.RenameSession(params.ID, params.Title)
}

func (h *connHandler) handleSessionAutoRead(_ context.Context, req *jsonrpc2.Request) (any, error) {
	var params SessionAutoReadParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, invalidParams("invalid params")
	}
	return h.srv.ctrl.SetAutoRead(params.ID, params.Enabled)
}

func (h *connHandler) handleSessionHistory(_ context.Context, req *jsonrpc2.Request) (any, error) {
	id := idParam(req)
	if id == "" {
		id, _ = h.srv.ctrl.CurrentID()
	}
	if _, ok := h.srv.ctrl.Session(id); !ok {
		return nil, session.ErrNotFound
	}
	return HistoryResult{ID: id, History: nonNil(h.srv.ctrl.SessionHistory(id))}, nil
}

func (h *connHandler) handleSessionReset(context.Context, *jsonrpc2.Request) (any, error) {
	h.srv.ctrl.Reset()
	return nil, nil
}

func (h *connHandler) handleChatSubmit(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params ChatSubmitParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, invalidParams("invalid params")
	}
	typ := params.Type
	if typ == "" {
		typ = summarize.DetectInputType(params.Content)
	}

	entry, err := h.srv.ctrl.Submit(ctx, params.Content, typ)
	var be *summarize.BackendError
	if err != nil && !errors.As(err, &be) {
		return nil, err
	}
	// Backend failures are recorded as an error entry and reported as data.
	id, _ := h.srv.ctrl.CurrentID()
	return ChatSubmitResult{SessionID: id, Entry: entry}, nil
}

func (h *connHandler) handleModelList(context.Context, *jsonrpc2.Request) (any, error) {
	return summarize.Models, nil
}

func (h *connHandler) handleModelSelect(_ context.Context, req *jsonrpc2.Request) (any, error) {
	var params ModelSelectParams
	if err := unmarshalParams(req, &params); err != nil || strings.TrimSpace(params.Model) == "" {
		return nil, invalidParams("model is required")
	}
	return h.srv.ctrl.ChangeModel(params.Model)
}

func (h *connHandler) voiceSession() *voice.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.voice
}

func (h *connHandler) handleVoiceStart(ctx context.Context, _ *jsonrpc2.Request) (any, error) {
	vs := h.voiceSession()
	if err := vs.Start(ctx); err != nil {
		return nil, err
	}
	return vs.State(), nil
}

func (h *connHandler) handleVoiceStop(context.Context, *jsonrpc2.Request) (any, error) {
	vs := h.voiceSession()
	vs.Stop()
	return vs.State(), nil
}

func (h *connHandler) handleVoiceResult(_ context.Context, req *jsonrpc2.Request) (any, error) {
	var params VoiceResultParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, invalidParams("invalid params")
	}
	h.mu.Lock()
	rec := h.rec
	h.mu.Unlock()
	if err := rec.Deliver(params); err != nil {
		return nil, err
	}
	return nil, nil
}

func (h *connHandler) handleSpeechEnded(_ context.Context, req *jsonrpc2.Request) (any, error) {
	var params SpeechEndedParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, invalidParams("invalid params")
	}
	h.mu.Lock()
	synth := h.synth
	h.mu.Unlock()
	return nil, synth.Finish(params)
}

func nonNil(h []session.HistoryEntry) []session.HistoryEntry {
	if h == nil {
		return []session.HistoryEntry{}
	}
	return h
}
