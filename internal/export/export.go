// Package export writes a session's transcript in several formats.
package export

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/guilhermegouw/voxchat/internal/session"
)

// ErrEmptyHistory is returned when there is nothing to export.
var ErrEmptyHistory = errors.New("session has no messages to export")

// Transcript is a session together with its history.
type Transcript struct {
	Session session.ChatSession    `json:"session" yaml:"session"`
	History []session.HistoryEntry `json:"history" yaml:"history"`
}

// Exporter defines the interface for all export formats.
type Exporter interface {
	Export(t Transcript, w io.Writer) error
	Extension() string
}

// Formats lists the accepted format names.
var Formats = []string{"text", "md", "json", "yaml"}

// NewExporter creates a new exporter based on format.
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "text", "txt":
		return &TextExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

var unsafeName = regexp.MustCompile(`(?i)[^a-z0-9]`)

// FileName builds "<title>-<yyyy-mm-dd>.<ext>" with every character of the
// title outside [a-z0-9] replaced by an underscore.
func FileName(title string, day time.Time, ext string) string {
	base := strings.ToLower(unsafeName.ReplaceAllString(title, "_"))
	return fmt.Sprintf("%s-%s.%s", base, day.Format(time.DateOnly), ext)
}
