package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/guilhermegouw/voxchat/internal/debug"
)

// Actions is the capability set a dispatched intent can call.
type Actions interface {
	CreateChat() error
	SubmitText(text string) error
	SpeakCurrentSummary() error
	DeleteSession(id string) error
	SelectSession(id string) error
}

// CurrentSessioner is optionally implemented by Actions that can report the
// current session. Without it, "delete" commands cannot target the current
// session.
type CurrentSessioner interface {
	CurrentSessionID() (string, bool)
}

// Result reports whether an intent was acted on. Err carries an action
// failure, including a recovered panic.
type Result struct {
	Intent  Intent
	Handled bool
	Err     error
}

// Dispatch parses text and acts on it. It returns nil when text holds no
// intent. It never panics.
func Dispatch(text string, actions Actions) *Result {
	intent, ok := Parse(text)
	if !ok {
		return nil
	}
	res := DispatchIntent(intent, text, actions)
	return &res
}

// DispatchIntent acts on an already parsed intent. Listening control and
// navigation intents are left unhandled for the caller.
func DispatchIntent(intent Intent, text string, actions Actions) (res Result) {
	res.Intent = intent
	if actions == nil {
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("action for %s panicked: %v", intent.Kind, r)
			debug.Error("command", res.Err, "dispatching "+string(intent.Kind))
		}
	}()

	switch intent.Kind {
	case KindNewChat:
		res.Handled = true
		res.Err = actions.CreateChat()

	case KindSubmitText:
		body := strings.Join(intent.Args, " ")
		if body == "" {
			body = text
		}
		res.Handled = true
		res.Err = actions.SubmitText(body)

	case KindRead:
		res.Handled = true
		res.Err = actions.SpeakCurrentSummary()

	case KindDeleteChat:
		res.Handled = true
		res.Err = actions.DeleteSession(deleteTarget(intent.Args, actions))

	default:
		// start/stop listening belong to the voice layer; the rest to the UI.
		return res
	}

	if res.Err != nil {
		debug.Error("command", res.Err, "dispatching "+string(intent.Kind))
	}
	return res
}

// deleteTarget picks the session a delete command refers to. A spoken
// number cannot be mapped to a session here, so it targets the current
// session when one can be asked for.
func deleteTarget(args []string, actions Actions) string {
	cs, hasCurrent := actions.(CurrentSessioner)
	current := func() string {
		if !hasCurrent {
			return ""
		}
		id, _ := cs.CurrentSessionID()
		return id
	}

	if len(args) == 0 {
		return current()
	}
	if _, err := strconv.Atoi(args[0]); err == nil && hasCurrent {
		return current()
	}
	return args[0]
}
