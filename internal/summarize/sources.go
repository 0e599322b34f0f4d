package summarize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/guilhermegouw/voxchat/internal/session"
)

// URLSource is the source attached to a URL request whose reply cited none.
func URLSource(link string) session.Source {
	return session.Source{
		ID:    "1",
		Title: "Provided URL",
		BriefSummary: "A detailed summary of the key information extracted from this website. " +
			"Contains main facts, figures, and conclusions presented in the content.",
		URL: link,
	}
}

var spaceRe = regexp.MustCompile(`\s+`)

// SuggestedSources returns reference links for a text query: always a
// Wikipedia search, plus topic sites picked by keyword.
func SuggestedSources(query string) []session.Source {
	q := url.QueryEscape(query)
	lower := strings.ToLower(query)

	sources := []session.Source{{
		ID:           "1",
		Title:        "Wikipedia",
		BriefSummary: `Comprehensive reference on "` + query + `"`,
		URL:          "https://en.wikipedia.org/wiki/" + url.PathEscape(spaceRe.ReplaceAllString(query, "_")),
	}}

	if containsAny(lower, "history", "when") {
		sources = append(sources, session.Source{
			ID:           "2",
			Title:        "History.com",
			BriefSummary: `Historical context and timeline for "` + query + `"`,
			URL:          "https://www.history.com/search?q=" + q,
		})
	}
	if containsAny(lower, "science", "how", "why") {
		sources = append(sources, session.Source{
			ID:           "3",
			Title:        "Scientific American",
			BriefSummary: `Scientific explanation of "` + query + `"`,
			URL:          "https://www.scientificamerican.com/search/?q=" + q,
		})
	}
	if containsAny(lower, "news", "current", "today") {
		sources = append(sources, session.Source{
			ID:           "4",
			Title:        "Reuters",
			BriefSummary: `Latest news about "` + query + `"`,
			URL:          "https://www.reuters.com/search/news?blob=" + q,
		})
	}
	return sources
}

// Domain returns the host of link without a leading "www.", or link itself
// when it does not parse.
func Domain(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return link
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
