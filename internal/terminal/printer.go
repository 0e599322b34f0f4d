package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"charm.land/lipgloss/v2"
	"github.com/muesli/termenv"

	"github.com/guilhermegouw/voxchat/internal/debug"
	"github.com/guilhermegouw/voxchat/internal/events"
	"github.com/guilhermegouw/voxchat/internal/session"
	"github.com/guilhermegouw/voxchat/internal/summarize"
)

// DefaultWidth is the wrap width for rendered summaries.
const DefaultWidth = 80

// Printer writes sessions, responses and events to a terminal.
type Printer struct {
	out     io.Writer
	output  *termenv.Output
	styles  Styles
	md      *MarkdownRenderer
	width   int
	profile termenv.Profile

	mu sync.Mutex
}

// NewPrinter creates a printer for w. Colors and hyperlinks are used only
// when w is a terminal that supports them.
func NewPrinter(w io.Writer) *Printer {
	output := termenv.NewOutput(w)
	profile := output.EnvColorProfile()
	theme := DefaultTheme()
	return &Printer{
		out:     w,
		output:  output,
		styles:  NewStyles(theme),
		md:      NewMarkdownRenderer(theme, profile),
		width:   DefaultWidth,
		profile: profile,
	}
}

func (p *Printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = lipgloss.Fprintln(p.out, s)
}

// Notice prints an informational line.
func (p *Printer) Notice(format string, args ...any) {
	p.println(p.styles.Notice.Render(fmt.Sprintf(format, args...)))
}

// Error prints err.
func (p *Printer) Error(err error) {
	p.println(p.styles.Error.Render("error: " + err.Error()))
}

// Sessions prints one row per session, marking the current one.
func (p *Printer) Sessions(list []session.ChatSession, currentID string) {
	if len(list) == 0 {
		p.println(p.styles.Muted.Render("No chats yet."))
		return
	}
	for i, s := range list {
		marker, style := "  ", p.styles.Row
		if s.ID == currentID {
			marker, style = "* ", p.styles.Current
		}
		line := fmt.Sprintf("%s%2d. %s", marker, i+1, style.Render(s.Title))
		meta := s.UpdatedAt.Local().Format("2006-01-02 15:04") + "  " + s.ID
		if s.AutoRead {
			meta += "  auto-read"
		}
		p.println(line + "  " + p.styles.Muted.Render(meta))
	}
}

// Sidebar shows the chat list when opened; there is no panel to hide, so
// closing only acknowledges.
func (p *Printer) Sidebar(open bool, list []session.ChatSession, currentID string) {
	if !open {
		p.println(p.styles.Muted.Render("chats hidden"))
		return
	}
	p.println(p.styles.Title.Render("Chats"))
	p.Sessions(list, currentID)
}

// Entry prints one response: the question, the summary as markdown, then
// sources and related questions.
func (p *Printer) Entry(e session.HistoryEntry) {
	if e.OriginalQuery != "" {
		p.println(p.styles.Question.Render("> " + e.OriginalQuery))
	}
	switch e.State() {
	case session.StateLoading:
		p.println(p.styles.Muted.Render("Thinking..."))
		return
	case session.StateFailed:
		p.println(p.styles.Error.Render(e.Summary))
		p.println(p.styles.Muted.Render(e.Error))
		return
	}

	out, err := p.md.Render(e.Summary, p.width)
	if err != nil {
		debug.Warn("terminal", "markdown render failed", "err", err)
	}
	p.println(strings.TrimRight(out, "\n"))

	if len(e.Sources) > 0 {
		p.println(p.styles.Title.Render("Sources"))
		for _, src := range e.Sources {
			p.println("  - " + p.link(src.Title, src.URL) + p.styles.Muted.Render(": "+src.BriefSummary))
		}
	}
	if len(e.RelatedQuestions) > 0 {
		p.println(p.styles.Title.Render("Related questions"))
		for _, q := range e.RelatedQuestions {
			p.println(p.styles.Muted.Render("  - " + q))
		}
	}
	if e.ModelUsed != "" {
		p.println(p.styles.Muted.Render("answered by " + summarize.ModelName(e.ModelUsed)))
	}
}

func (p *Printer) link(title, url string) string {
	if url == "" {
		return title
	}
	if p.profile == termenv.Ascii {
		return title + " <" + url + ">"
	}
	return p.output.Hyperlink(url, title)
}

// History prints every entry of a session.
func (p *Printer) History(h []session.HistoryEntry) {
	if len(h) == 0 {
		p.println(p.styles.Muted.Render("Nothing asked yet."))
		return
	}
	for i, e := range h {
		if i > 0 {
			p.println("")
		}
		p.Entry(e)
	}
}

// Models prints the model catalogue, marking the selected one.
func (p *Printer) Models(models []summarize.Model, selected string) {
	for _, m := range models {
		marker, style := "  ", p.styles.Row
		if m.ID == selected {
			marker, style = "* ", p.styles.Current
		}
		p.println(marker + style.Render(m.Name) + "  " + p.styles.Muted.Render(m.Description))
	}
}

// VoiceEvent prints listening changes, final transcripts and notices.
// Interim transcripts are not printed.
func (p *Printer) VoiceEvent(e events.VoiceEvent) {
	switch e.Type {
	case events.VoiceEventStarted:
		p.println(p.styles.Listen.Render("listening for commands"))
	case events.VoiceEventStopped:
		p.println(p.styles.Muted.Render("stopped listening"))
	case events.VoiceEventCommand:
		if !e.Handled {
			p.println(p.styles.Muted.Render("could not run " + strings.ReplaceAll(e.Intent, "_", " ")))
		}
	case events.VoiceEventNotice:
		p.println(p.styles.Notice.Render(e.Message))
	}
}

// SessionEvent prints a one-line summary of a session change.
func (p *Printer) SessionEvent(e events.SessionEvent) {
	switch e.Type {
	case events.SessionEventCreated:
		p.println(p.styles.Success.Render("new chat: " + e.Title))
	case events.SessionEventSwitched:
		p.println(p.styles.Muted.Render("switched to " + e.Title))
	case events.SessionEventDeleted:
		p.println(p.styles.Notice.Render("deleted " + e.Title + " (/undo to restore)"))
	case events.SessionEventRestored:
		p.println(p.styles.Success.Render("restored " + e.Title))
	case events.SessionEventRenamed:
		p.println(p.styles.Muted.Render("renamed to " + e.Title))
	case events.SessionEventCleared:
		p.println(p.styles.Notice.Render("all chats cleared"))
	case events.SessionEventModelChanged:
		p.println(p.styles.Muted.Render("model: " + summarize.ModelName(e.Model)))
	}
}

// Prompt prints the input prompt without a newline.
func (p *Printer) Prompt(listening bool) {
	label := "ask"
	if listening {
		label = "say"
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = lipgloss.Fprint(p.out, p.styles.Prompt.Render(label+"> "))
}
