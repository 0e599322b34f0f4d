package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/guilhermegouw/voxchat/internal/session"
	"github.com/guilhermegouw/voxchat/internal/summarize"
)

// MarkdownExporter exports sessions in Markdown format.
type MarkdownExporter struct{}

// Export exports a session to Markdown format.
func (e *MarkdownExporter) Export(t Transcript, w io.Writer) error {
	if len(t.History) == 0 {
		return ErrEmptyHistory
	}

	bw := bufio.NewWriter(w)
	_, _ = fmt.Fprintf(bw, "# %s\n\n", t.Session.Title)
	_, _ = fmt.Fprintf(bw, "**Created:** %s  \n", t.Session.CreatedAt.Format(time.RFC1123))
	_, _ = fmt.Fprintf(bw, "**Messages:** %d\n\n", len(t.History))

	for i, item := range t.History {
		_, _ = fmt.Fprintf(bw, "---\n\n")
		if item.OriginalQuery != "" {
			_, _ = fmt.Fprintf(bw, "### %s\n\n", escapeMarkdown(item.OriginalQuery))
		} else {
			_, _ = fmt.Fprintf(bw, "### Message %d\n\n", i+1)
		}

		if item.State() == session.StateFailed {
			_, _ = fmt.Fprintf(bw, "> %s\n\n", item.Error)
		} else {
			_, _ = fmt.Fprintf(bw, "%s\n\n", item.Summary)
		}
		if item.ModelUsed != "" {
			_, _ = fmt.Fprintf(bw, "*Answered by %s*\n\n", summarize.ModelName(item.ModelUsed))
		}

		if len(item.Sources) > 0 {
			_, _ = fmt.Fprintf(bw, "**Sources**\n\n")
			for _, src := range item.Sources {
				title := escapeMarkdown(src.Title)
				if src.URL != "" {
					title = fmt.Sprintf("[%s](%s)", title, src.URL)
				}
				_, _ = fmt.Fprintf(bw, "- %s: %s\n", title, src.BriefSummary)
			}
			_, _ = fmt.Fprintf(bw, "\n")
		}

		if len(item.RelatedQuestions) > 0 {
			_, _ = fmt.Fprintf(bw, "**Related questions**\n\n")
			for _, q := range item.RelatedQuestions {
				_, _ = fmt.Fprintf(bw, "- %s\n", escapeMarkdown(q))
			}
			_, _ = fmt.Fprintf(bw, "\n")
		}
	}

	return bw.Flush()
}

// escapeMarkdown escapes emphasis markers in single-line text.
func escapeMarkdown(text string) string {
	r := strings.NewReplacer("**", `\*\*`, "__", `\_\_`, "[", `\[`, "]", `\]`)
	return r.Replace(text)
}

// Extension returns the file extension for this format.
func (e *MarkdownExporter) Extension() string {
	return "md"
}
