package terminal

import (
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/muesli/termenv"
)

// MarkdownRenderer renders summaries for the terminal. The glamour renderer
// is rebuilt only when the width changes.
type MarkdownRenderer struct {
	theme   Theme
	profile termenv.Profile

	mu          sync.Mutex
	renderer    *glamour.TermRenderer
	cachedWidth int
}

// NewMarkdownRenderer creates a renderer for the given color profile.
func NewMarkdownRenderer(theme Theme, profile termenv.Profile) *MarkdownRenderer {
	return &MarkdownRenderer{theme: theme, profile: profile}
}

// Render returns content styled for the terminal. On failure the plain
// content is returned with the error.
func (m *MarkdownRenderer) Render(content string, width int) (string, error) {
	if content == "" {
		return "", nil
	}
	r, err := m.getRenderer(width)
	if err != nil {
		return content, err
	}
	out, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return out, nil
}

func (m *MarkdownRenderer) getRenderer(width int) (*glamour.TermRenderer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renderer != nil && m.cachedWidth == width {
		return m.renderer, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(m.buildStyle()),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(m.profile),
	)
	if err != nil {
		return nil, err
	}
	m.renderer = r
	m.cachedWidth = width
	return r, nil
}

func (m *MarkdownRenderer) buildStyle() ansi.StyleConfig {
	t := m.theme
	if m.profile == termenv.Ascii {
		return glamourstyles.ASCIIStyleConfig
	}
	style := glamourstyles.DarkStyleConfig

	primary := colorToHex(t.Primary)
	secondary := colorToHex(t.Secondary)
	accent := colorToHex(t.Accent)
	muted := colorToHex(t.FgMuted)

	style.H1.Color = stringPtr(accent)
	style.H1.Prefix = ""
	style.H1.Suffix = ""
	style.H2.Color = stringPtr(primary)
	style.H2.Prefix = ""
	style.H3.Color = stringPtr(secondary)
	style.H3.Prefix = ""

	style.Link.Color = stringPtr(primary)
	style.Link.Underline = boolPtr(true)
	style.LinkText.Color = stringPtr(primary)

	style.Item.BlockPrefix = "  "
	style.BlockQuote.Color = stringPtr(colorToHex(t.Error))
	style.Emph.Color = stringPtr(muted)
	style.Emph.Italic = boolPtr(true)
	return style
}

func stringPtr(s string) *string { return &s }
func boolPtr(b bool) *bool       { return &b }
