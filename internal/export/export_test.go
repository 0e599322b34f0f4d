package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/guilhermegouw/voxchat/internal/session"
)

func testTranscript() Transcript {
	created := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	return Transcript{
		Session: session.ChatSession{ID: "s1", Title: "Dogs & Cats", CreatedAt: created, UpdatedAt: created},
		History: []session.HistoryEntry{
			{
				OriginalQuery: "tell me about dogs",
				Summary:       "Dogs are **loyal** mammals.",
				Sources: []session.Source{
					{ID: "1", Title: "Wikipedia", BriefSummary: "Encyclopedia entry", URL: "https://en.wikipedia.org/wiki/Dog"},
					{ID: "2", Title: "Field notes", BriefSummary: "No link"},
				},
				RelatedQuestions: []string{"How long do dogs live?"},
				ModelUsed:        "claude",
			},
			{
				OriginalQuery: "and cats?",
				Sources:       []session.Source{},
				Error:         "Failed to generate response. Please try again.",
			},
		},
	}
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"text", "txt", false},
		{"txt", "txt", false},
		{"md", "md", false},
		{"Markdown", "md", false},
		{"json", "json", false},
		{"yaml", "yaml", false},
		{"yml", "yaml", false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exp, err := NewExporter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewExporter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && exp.Extension() != tt.wantExt {
				t.Errorf("Extension() = %q, want %q", exp.Extension(), tt.wantExt)
			}
		})
	}
}

func TestTextExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextExporter{}).Export(testTranscript(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Dogs & Cats\n\n",
		"## Message 1\nQuery: tell me about dogs\n\nDogs are **loyal** mammals.\n\n",
		"Sources:\n- Wikipedia: Encyclopedia entry\n  URL: https://en.wikipedia.org/wiki/Dog\n- Field notes: No link\n\n---\n\n",
		"## Message 2\nQuery: and cats?\n\nFailed to generate response. Please try again.\n\n---\n\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestExporters_EmptyHistory(t *testing.T) {
	empty := Transcript{Session: session.ChatSession{ID: "s1", Title: "Empty"}}
	for _, exp := range []Exporter{&TextExporter{}, &MarkdownExporter{}} {
		if err := exp.Export(empty, &bytes.Buffer{}); !errors.Is(err, ErrEmptyHistory) {
			t.Errorf("%T.Export() error = %v, want ErrEmptyHistory", exp, err)
		}
	}
}

func TestMarkdownExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(testTranscript(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Dogs & Cats\n\n",
		"**Messages:** 2\n\n",
		"### tell me about dogs\n\n",
		"*Answered by Claude*",
		"- [Wikipedia](https://en.wikipedia.org/wiki/Dog): Encyclopedia entry\n",
		"- Field notes: No link\n",
		"- How long do dogs live?\n",
		"> Failed to generate response. Please try again.\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestStructuredExporters(t *testing.T) {
	tr := testTranscript()

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (&JSONExporter{}).Export(tr, &buf); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		var got Transcript
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got.Session.ID != "s1" || len(got.History) != 2 || got.History[0].Sources[0].URL == "" {
			t.Errorf("decoded = %+v", got)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (&YAMLExporter{}).Export(tr, &buf); err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "originalQuery: tell me about dogs") {
			t.Errorf("output missing query field:\n%s", out)
		}
		var got Transcript
		if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid YAML: %v", err)
		}
		if got.Session.Title != "Dogs & Cats" || !got.Session.CreatedAt.Equal(tr.Session.CreatedAt) {
			t.Errorf("decoded session = %+v", got.Session)
		}
		if got.History[1].Error == "" {
			t.Error("error entry lost")
		}
	})
}

func TestFileName(t *testing.T) {
	day := time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC)
	if got := FileName("Dogs & Cats!", day, "txt"); got != "dogs___cats_-2025-03-14.txt" {
		t.Errorf("FileName() = %q", got)
	}
}
