// Package summarize defines the summarization capability and a
// language-model backed implementation of it.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/guilhermegouw/voxchat/internal/session"
)

// InputType says how Content should be read.
type InputType string

// Input types.
const (
	InputText InputType = "text"
	InputURL  InputType = "url"
)

// ErrEmptyResponse is wrapped in a BackendError when the model returned no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Request is one summarization call.
type Request struct {
	Content   string
	InputType InputType
	History   []session.HistoryEntry
	ModelID   string
}

// Summarizer answers a request with a history entry.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (session.HistoryEntry, error)
}

// BackendError reports a failed call to the model backend.
type BackendError struct {
	Model string
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("summarizing with %s: %v", e.Model, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// DetectInputType treats a lone http(s) URL as InputURL and anything else
// as text.
func DetectInputType(content string) InputType {
	content = strings.TrimSpace(content)
	if strings.ContainsAny(content, " \t\n") {
		return InputText
	}
	u, err := url.Parse(content)
	if err != nil || u.Host == "" {
		return InputText
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return InputURL
	}
	return InputText
}
