package export

import (
	"bufio"
	"fmt"
	"io"
)

// TextExporter writes the plain transcript users download from the chat.
type TextExporter struct{}

// Export writes t as text.
func (e *TextExporter) Export(t Transcript, w io.Writer) error {
	if len(t.History) == 0 {
		return ErrEmptyHistory
	}

	bw := bufio.NewWriter(w)
	_, _ = fmt.Fprintf(bw, "# %s\n\n", t.Session.Title)

	for i, item := range t.History {
		_, _ = fmt.Fprintf(bw, "## Message %d\n", i+1)
		if item.OriginalQuery != "" {
			_, _ = fmt.Fprintf(bw, "Query: %s\n\n", item.OriginalQuery)
		}
		_, _ = fmt.Fprintf(bw, "%s\n\n", item.SpokenText())

		if len(item.Sources) > 0 {
			_, _ = fmt.Fprintf(bw, "Sources:\n")
			for _, src := range item.Sources {
				_, _ = fmt.Fprintf(bw, "- %s: %s\n", src.Title, src.BriefSummary)
				if src.URL != "" {
					_, _ = fmt.Fprintf(bw, "  URL: %s\n", src.URL)
				}
			}
			_, _ = fmt.Fprintf(bw, "\n")
		}
		_, _ = fmt.Fprintf(bw, "---\n\n")
	}

	return bw.Flush()
}

// Extension returns the file extension for this format.
func (e *TextExporter) Extension() string {
	return "txt"
}
