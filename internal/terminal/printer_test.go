package terminal

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/guilhermegouw/voxchat/internal/events"
	"github.com/guilhermegouw/voxchat/internal/session"
	"github.com/guilhermegouw/voxchat/internal/summarize"
)

func contains(s, sub string) bool { return strings.Contains(s, sub) }

func newTestPrinter() (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewPrinter(&buf), &buf
}

func TestPrinter_Sessions(t *testing.T) {
	p, buf := newTestPrinter()
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	p.Sessions([]session.ChatSession{
		{ID: "a", Title: "Groceries", UpdatedAt: now, AutoRead: true},
		{ID: "b", Title: "Weather", UpdatedAt: now},
	}, "b")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !contains(lines[0], "Groceries") || !contains(lines[0], "auto-read") || strings.HasPrefix(lines[0], "*") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "*") || !contains(lines[1], "Weather") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestPrinter_SessionsEmpty(t *testing.T) {
	p, buf := newTestPrinter()
	p.Sessions(nil, "")
	if !contains(buf.String(), "No chats yet.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrinter_Entry(t *testing.T) {
	t.Run("answered", func(t *testing.T) {
		p, buf := newTestPrinter()
		p.Entry(session.HistoryEntry{
			OriginalQuery:    "what is go",
			Summary:          "Go is a **language**.",
			Sources:          []session.Source{{Title: "Go", URL: "https://go.dev", BriefSummary: "home page"}},
			RelatedQuestions: []string{"Who made Go?"},
			ModelUsed:        "claude",
		})
		out := buf.String()
		for _, want := range []string{"> what is go", "language", "Go <https://go.dev>", "home page", "Who made Go?", "answered by " + summarize.ModelName("claude")} {
			if !contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("failed", func(t *testing.T) {
		p, buf := newTestPrinter()
		p.Entry(session.HistoryEntry{OriginalQuery: "q", Summary: "Failed to generate response.", Error: "quota exceeded"})
		if !contains(buf.String(), "quota exceeded") {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("loading", func(t *testing.T) {
		p, buf := newTestPrinter()
		p.Entry(session.HistoryEntry{OriginalQuery: "q", Loading: true})
		if !contains(buf.String(), "Thinking...") {
			t.Errorf("output = %q", buf.String())
		}
	})
}

func TestPrinter_Events(t *testing.T) {
	tests := []struct {
		name  string
		print func(p *Printer)
		want  string
	}{
		{"deleted", func(p *Printer) { p.SessionEvent(events.NewSessionDeletedEvent("a", "Groceries")) }, "deleted Groceries (/undo to restore)"},
		{"created", func(p *Printer) { p.SessionEvent(events.NewSessionCreatedEvent("a", "New Chat")) }, "new chat: New Chat"},
		{"model", func(p *Printer) { p.SessionEvent(events.NewModelChangedEvent("claude")) }, "model: " + summarize.ModelName("claude")},
		{"listening", func(p *Printer) { p.VoiceEvent(events.NewListeningEvent(true)) }, "listening for commands"},
		{"unhandled", func(p *Printer) { p.VoiceEvent(events.NewCommandEvent("delete_chat", nil, false)) }, "could not run delete chat"},
		{"notice", func(p *Printer) { p.VoiceEvent(events.NewNoticeEvent("mic busy", false)) }, "mic busy"},
		{"error", func(p *Printer) { p.Error(errors.New("boom")) }, "error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, buf := newTestPrinter()
			tt.print(p)
			if !contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestPrinter_QuietEvents(t *testing.T) {
	p, buf := newTestPrinter()
	p.VoiceEvent(events.NewTranscriptEvent("new ch", false, true))
	p.VoiceEvent(events.NewCommandEvent("new_chat", nil, true))
	p.SessionEvent(events.NewSidebarEvent(true))
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}
}
