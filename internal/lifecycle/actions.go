package lifecycle

import (
	"github.com/guilhermegouw/voxchat/internal/command"
	"github.com/guilhermegouw/voxchat/internal/debug"
	"github.com/guilhermegouw/voxchat/internal/events"
	"github.com/guilhermegouw/voxchat/internal/pubsub"
	"github.com/guilhermegouw/voxchat/internal/summarize"
)

// actions binds the dispatcher's capability set to a Controller. Submission
// and speech run in the background so a recognizer callback never waits on
// the model or the synthesizer.
type actions struct {
	c *Controller
}

var (
	_ command.Actions          = actions{}
	_ command.CurrentSessioner = actions{}
)

// Actions returns the capability set voice commands dispatch to.
func (c *Controller) Actions() command.Actions {
	return actions{c: c}
}

func (a actions) CreateChat() error {
	a.c.NewChat()
	return nil
}

func (a actions) SubmitText(text string) error {
	a.c.submitAsync(text)
	return nil
}

func (a actions) SpeakCurrentSummary() error {
	latest, ok := a.c.Latest()
	if !ok {
		debug.Log("lifecycle: nothing to read")
		return nil
	}
	a.c.speakAsync(latest.SpokenText())
	return nil
}

func (a actions) DeleteSession(id string) error {
	a.c.DeleteSession(id)
	return nil
}

func (a actions) SelectSession(id string) error {
	a.c.SelectSession(id)
	return nil
}

func (a actions) CurrentSessionID() (string, bool) {
	return a.c.CurrentID()
}

func (c *Controller) submitAsync(text string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.Submit(c.ctx, text, summarize.DetectInputType(text)); err != nil {
			debug.Warn("lifecycle", "voice submission failed", "err", err)
		}
	}()
}

// Fallback handles the intents the action set does not cover: session
// navigation, the sidebar, model changes and summarize requests.
func (c *Controller) Fallback(intent command.Intent) bool {
	switch intent.Kind {
	case command.KindNextSession:
		_, ok := c.NextSession()
		return ok
	case command.KindPreviousSession:
		_, ok := c.PreviousSession()
		return ok
	case command.KindOpenSidebar:
		c.publish(pubsub.EventUpdated, events.NewSidebarEvent(true))
		return true
	case command.KindCloseSidebar:
		c.publish(pubsub.EventUpdated, events.NewSidebarEvent(false))
		return true
	case command.KindChangeModel:
		if len(intent.Args) == 0 {
			return false
		}
		if _, err := c.ChangeModel(intent.Args[0]); err != nil {
			debug.Warn("lifecycle", "changing model", "err", err)
			return false
		}
		return true
	case command.KindSummarize:
		if len(intent.Args) == 0 || intent.Args[0] == "" {
			return false
		}
		c.submitAsync(intent.Args[0])
		return true
	default:
		return false
	}
}
