// Package command turns utterances into intents and intents into calls on
// an Actions capability set.
package command

import (
	"regexp"
	"strings"
)

// Kind names an intent.
type Kind string

// Intent kinds.
const (
	KindNewChat         Kind = "new_chat"
	KindNextSession     Kind = "next_session"
	KindPreviousSession Kind = "previous_session"
	KindOpenSidebar     Kind = "open_sidebar"
	KindCloseSidebar    Kind = "close_sidebar"
	KindRead            Kind = "read"
	KindDeleteChat      Kind = "delete_chat"
	KindSummarize       Kind = "summarize"
	KindStopListening   Kind = "stop_listening"
	KindStartListening  Kind = "start_listening"
	KindChangeModel     Kind = "change_model"
	KindSubmitText      Kind = "submit_text"
)

// Intent is the structured reading of one utterance.
type Intent struct {
	Kind Kind     `json:"intent"`
	Args []string `json:"args,omitempty"`
}

var (
	numberRe    = regexp.MustCompile(`^[0-9]+$`)
	summarizeRe = regexp.MustCompile(`^summari[sz]e\s*`)
)

const changeModelPrefix = "change model to"

// Parse maps an utterance to an intent. Rules are tried in order and the
// first match wins; anything unmatched is submitted as text. Only empty or
// whitespace-only input reports false.
func Parse(text string) (Intent, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Intent{}, false
	}

	switch {
	case strings.HasPrefix(t, "new chat"), strings.HasPrefix(t, "start new chat"), t == "new conversation":
		return Intent{Kind: KindNewChat}, true

	case strings.Contains(t, "next session"), strings.Contains(t, "next chat"), t == "next":
		return Intent{Kind: KindNextSession}, true

	case strings.Contains(t, "previous session"), strings.Contains(t, "previous chat"),
		t == "previous", t == "back":
		return Intent{Kind: KindPreviousSession}, true

	case hasAnyPrefix(t, "open sidebar", "show sidebar"):
		return Intent{Kind: KindOpenSidebar}, true

	case hasAnyPrefix(t, "close sidebar", "hide sidebar"):
		return Intent{Kind: KindCloseSidebar}, true

	case hasAnyPrefix(t, "read", "speak"):
		return Intent{Kind: KindRead, Args: strings.Fields(t)[1:]}, true

	case hasAnyPrefix(t, "delete", "remove"):
		words := strings.Fields(t)
		for _, w := range words {
			if numberRe.MatchString(w) {
				return Intent{Kind: KindDeleteChat, Args: []string{w}}, true
			}
		}
		return Intent{Kind: KindDeleteChat, Args: words[1:]}, true

	case summarizeRe.MatchString(t):
		return Intent{Kind: KindSummarize, Args: []string{summarizeRe.ReplaceAllString(t, "")}}, true

	case t == "stop listening", t == "stop":
		return Intent{Kind: KindStopListening}, true

	case t == "start listening", t == "listen":
		return Intent{Kind: KindStartListening}, true

	case strings.HasPrefix(t, changeModelPrefix):
		return Intent{Kind: KindChangeModel, Args: []string{strings.TrimSpace(strings.TrimPrefix(t, changeModelPrefix))}}, true
	}

	return Intent{Kind: KindSubmitText, Args: []string{text}}, true
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
