// Package rpc serves the session controller and a remote voice session over
// JSON-RPC 2.0 on a WebSocket. The browser on the other end captures speech
// and plays synthesized audio.
package rpc

import (
	"github.com/guilhermegouw/voxchat/internal/pubsub"
	"github.com/guilhermegouw/voxchat/internal/session"
	"github.com/guilhermegouw/voxchat/internal/summarize"
)

// Client to server methods.
const (
	MethodAuth             = "auth"
	MethodSessionList      = "session.list"
	MethodSessionNew       = "session.new"
	MethodSessionSelect    = "session.select"
	MethodSessionDelete    = "session.delete"
	MethodSessionUndo      = "session.undo"
	MethodSessionRename    = "session.rename"
	MethodSessionAutoRead  = "session.auto_read"
	MethodSessionHistory   = "session.history"
	MethodSessionReset     = "session.reset"
	MethodChatSubmit       = "chat.submit"
	MethodModelList        = "model.list"
	MethodModelSelect      = "model.select"
	MethodVoiceStart       = "voice.start"
	MethodVoiceStop        = "voice.stop"
	MethodVoiceResult      = "voice.result"
	MethodVoiceSpeechEnded = "voice.speech_ended"
)

// Server to client notifications.
const (
	NotifySessionChanged = "session.changed"
	NotifyVoiceState     = "voice.state"
	NotifyVoiceListen    = "voice.listen"
	NotifyVoiceUnlisten  = "voice.unlisten"
	NotifyVoiceSpeak     = "voice.speak"
	NotifyCancelSpeech   = "voice.cancel_speech"
)

// AuthParams is the first request on every connection.
type AuthParams struct {
	Token string `json:"token"`
}

// AuthResult answers a successful auth.
type AuthResult struct {
	Version   string `json:"version"`
	Model     string `json:"model"`
	CurrentID string `json:"currentId,omitempty"`
}

// SessionListResult lists sessions most recently updated first.
type SessionListResult struct {
	Sessions  []session.ChatSession `json:"sessions"`
	CurrentID string                `json:"currentId,omitempty"`
}

// SessionIDParams addresses one session.
type SessionIDParams struct {
	ID string `json:"id"`
}

// SessionRenameParams renames a session.
type SessionRenameParams struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SessionAutoReadParams toggles reading replies aloud.
type SessionAutoReadParams struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

// HistoryResult is a session's entries.
type HistoryResult struct {
	ID      string                 `json:"id"`
	History []session.HistoryEntry `json:"history"`
}

// ChatSubmitParams sends content to the model. Type is detected when empty.
type ChatSubmitParams struct {
	Content string              `json:"content"`
	Type    summarize.InputType `json:"type,omitempty"`
}

// ChatSubmitResult is the recorded entry. Failed submissions still return
// the error entry.
type ChatSubmitResult struct {
	SessionID string               `json:"sessionId"`
	Entry     session.HistoryEntry `json:"entry"`
}

// ModelSelectParams picks a model by id or name.
type ModelSelectParams struct {
	Model string `json:"model"`
}

// VoiceResultParams carries one recognition update from the browser.
type VoiceResultParams struct {
	ID         string `json:"id"`
	Transcript string `json:"transcript"`
	Final      bool   `json:"final"`
	Error      string `json:"error,omitempty"`
}

// SpeechEndedParams reports the end of an utterance started by voice.speak.
type SpeechEndedParams struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// ListenParams asks the browser to start recognition.
type ListenParams struct {
	ID         string `json:"id"`
	Lang       string `json:"lang"`
	Continuous bool   `json:"continuous"`
	Interim    bool   `json:"interim"`
}

// SpeakParams asks the browser to speak text.
type SpeakParams struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Lang   string  `json:"lang,omitempty"`
	Voice  string  `json:"voice,omitempty"`
	Rate   float64 `json:"rate,omitempty"`
	Pitch  float64 `json:"pitch,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

// SpeechIDParams names an utterance or recognition to stop.
type SpeechIDParams struct {
	ID string `json:"id"`
}

// Health is the body of GET /healthz.
type Health struct {
	Version     string                 `json:"version"`
	Connections int                    `json:"connections"`
	Speaking    bool                   `json:"speaking"`
	Brokers     []pubsub.BrokerMetrics `json:"brokers,omitempty"`
}
