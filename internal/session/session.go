// Package session persists chat sessions and their histories through a
// storage.Storage.
package session

import (
	"errors"
	"time"
	"unicode/utf8"
)

// DefaultTitle is the placeholder title of a session nobody has named yet.
const DefaultTitle = "New Chat"

// titleMaxLen is the rune length after which derived titles are truncated.
const titleMaxLen = 30

// Storage keys.
const (
	SessionsKey      = "ai-chat-sessions"
	CurrentKey       = "ai-current-session"
	HistoryKeyPrefix = "ai-session-history-"
)

var (
	// ErrNotFound is returned when a session id is unknown.
	ErrNotFound = errors.New("session not found")
	// ErrEmptyTitle is returned when a rename trims to nothing.
	ErrEmptyTitle = errors.New("session title cannot be empty")
)

// ChatSession is a named, timestamped conversation.
type ChatSession struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	CreatedAt  time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" yaml:"updatedAt"`
	AutoRead   bool      `json:"autoRead,omitempty" yaml:"autoRead,omitempty"`
	FirstQuery string    `json:"firstQuery,omitempty" yaml:"firstQuery,omitempty"`
}

// Source is a reference attached to a response.
type Source struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	BriefSummary string `json:"briefSummary" yaml:"briefSummary"`
	URL          string `json:"url,omitempty" yaml:"url,omitempty"`
}

// HistoryEntry is one request/response exchange.
type HistoryEntry struct {
	OriginalQuery    string   `json:"originalQuery,omitempty" yaml:"originalQuery,omitempty"`
	Summary          string   `json:"summary" yaml:"summary"`
	Sources          []Source `json:"sources" yaml:"sources"`
	RelatedQuestions []string `json:"relatedQuestions,omitempty" yaml:"relatedQuestions,omitempty"`
	Error            string   `json:"error,omitempty" yaml:"error,omitempty"`
	Loading          bool     `json:"loading,omitempty" yaml:"loading,omitempty"`
	ModelUsed        string   `json:"modelUsed,omitempty" yaml:"modelUsed,omitempty"`
}

// EntryState classifies a history entry.
type EntryState int

// Entry states.
const (
	StateAnswered EntryState = iota
	StateLoading
	StateFailed
)

// State reports whether the entry is loading, failed or answered.
func (e HistoryEntry) State() EntryState {
	switch {
	case e.Loading:
		return StateLoading
	case e.Error != "":
		return StateFailed
	default:
		return StateAnswered
	}
}

// SpokenText is what a reader should hear for this entry.
func (e HistoryEntry) SpokenText() string {
	if e.State() == StateFailed {
		return e.Error
	}
	return e.Summary
}

// Fields is a partial update. Nil fields are left unchanged.
type Fields struct {
	Title    *string
	AutoRead *bool
}

func truncateTitle(text string) string {
	if utf8.RuneCountInString(text) <= titleMaxLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:titleMaxLen]) + "..."
}

// HistoryKey returns the storage key holding a session's history.
func HistoryKey(id string) string {
	return HistoryKeyPrefix + id
}
