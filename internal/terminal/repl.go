package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/guilhermegouw/voxchat/internal/command"
	"github.com/guilhermegouw/voxchat/internal/events"
	"github.com/guilhermegouw/voxchat/internal/lifecycle"
	"github.com/guilhermegouw/voxchat/internal/pubsub"
	"github.com/guilhermegouw/voxchat/internal/session"
	"github.com/guilhermegouw/voxchat/internal/summarize"
	"github.com/guilhermegouw/voxchat/internal/voice"
)

var errQuit = errors.New("quit")

const helpText = `Type a question or a URL to summarize it.
While listening, each line is treated as a spoken command
("new chat", "read", "delete chat", "summarize <text>", "stop listening").

  /listen          start listening for commands
  /stop            stop listening
  /new             start a new chat
  /list            list chats
  /open <n>        switch to chat n
  /delete [n]      delete chat n, or the current chat
  /undo            restore the last deleted chat
  /rename <title>  rename the current chat
  /history         show the current chat
  /read            read the latest answer aloud
  /hush            stop speaking
  /autoread on|off read new answers aloud in this chat
  /copy            copy the latest answer
  /model [name]    list models or switch
  /quit            exit`

// REPL reads lines from a terminal. Lines are questions while idle and
// spoken commands while listening.
type REPL struct {
	ctrl    *lifecycle.Controller
	voice   *voice.Session
	rec     *LineRecognizer
	hub     *pubsub.Hub
	printer *Printer
	in      io.Reader
}

// NewREPL wires a REPL. vs must have been created with rec as its
// recognizer and hub.Voice as its broker.
func NewREPL(ctrl *lifecycle.Controller, vs *voice.Session, rec *LineRecognizer, hub *pubsub.Hub, in io.Reader, p *Printer) *REPL {
	return &REPL{ctrl: ctrl, voice: vs, rec: rec, hub: hub, printer: p, in: in}
}

// Run processes input until EOF, /quit or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	sessionEvents := r.hub.Session.Subscribe(ctx)
	voiceEvents := r.hub.Voice.Subscribe(ctx)
	g.Go(func() error {
		r.printEvents(ctx, sessionEvents, voiceEvents)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		lines, readErr := readLines(ctx, r.in)
		err := r.loop(ctx, lines, readErr)
		if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err := g.Wait()
	r.voice.Close()
	r.ctrl.Wait()
	return err
}

// maxLineBytes bounds one input line; pasted pages can be large.
const maxLineBytes = 16 << 20

// readLines stops sending once ctx is done. A read blocked on the
// terminal is abandoned. A read error is sent on the second channel before
// lines is closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			errs <- fmt.Errorf("reading input: %w", err)
		}
	}()
	return lines, errs
}

func (r *REPL) loop(ctx context.Context, lines <-chan string, readErr <-chan error) error {
	r.printer.Prompt(r.rec.Listening())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					r.printer.Error(err)
					return err
				default:
					return nil
				}
			}
			if err := r.handleLine(ctx, line); err != nil {
				return err
			}
			r.printer.Prompt(r.rec.Listening())
		}
	}
}

func (r *REPL) handleLine(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case strings.HasPrefix(line, "/"):
		return r.slash(ctx, line)
	case r.rec.Listening():
		r.rec.Feed(line)
		return nil
	}

	if intent, ok := command.Parse(line); ok && intent.Kind == command.KindStartListening {
		r.startListening(ctx)
		return nil
	}
	_, err := r.ctrl.Submit(ctx, line, summarize.DetectInputType(line))
	var be *summarize.BackendError
	if err != nil && !errors.As(err, &be) {
		r.printer.Error(err)
	}
	return nil
}

func (r *REPL) startListening(ctx context.Context) {
	if err := r.voice.Start(ctx); err != nil {
		r.printer.Error(err)
	}
}

func (r *REPL) slash(ctx context.Context, line string) error {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		r.printer.println(r.printer.styles.Muted.Render(helpText))
	case "listen":
		r.startListening(ctx)
	case "stop":
		r.voice.Stop()
	case "new":
		r.ctrl.NewChat()
	case "list", "ls":
		cur, _ := r.ctrl.CurrentID()
		r.printer.Sessions(r.ctrl.Sessions(), cur)
	case "open":
		s, err := r.sessionAt(arg)
		if err != nil {
			r.printer.Error(err)
			return nil
		}
		r.ctrl.SelectSession(s.ID)
		r.printer.History(r.ctrl.History())
	case "delete", "rm":
		id, ok := r.ctrl.CurrentID()
		if arg != "" {
			s, err := r.sessionAt(arg)
			if err != nil {
				r.printer.Error(err)
				return nil
			}
			id, ok = s.ID, true
		}
		if ok {
			r.ctrl.DeleteSession(id)
		}
	case "undo":
		if _, err := r.ctrl.UndoDelete(); err != nil {
			r.printer.Error(err)
		}
	case "rename":
		id, ok := r.ctrl.CurrentID()
		if !ok {
			r.printer.Error(lifecycle.ErrNoActiveSession)
			return nil
		}
		if _, err := r.ctrl.RenameSession(id, arg); err != nil {
			r.printer.Error(err)
		}
	case "history":
		r.printer.History(r.ctrl.History())
	case "read":
		_ = r.ctrl.Actions().SpeakCurrentSummary()
	case "hush":
		r.voice.CancelSpeech()
	case "autoread":
		r.autoRead(arg)
	case "copy":
		r.copyLatest()
	case "model":
		if arg == "" {
			r.printer.Models(summarize.Models, r.ctrl.Model())
			return nil
		}
		if _, err := r.ctrl.ChangeModel(arg); err != nil {
			r.printer.Error(err)
		}
	default:
		r.printer.Notice("unknown command /%s, try /help", name)
	}
	return nil
}

func (r *REPL) sessionAt(arg string) (session.ChatSession, error) {
	n, err := strconv.Atoi(arg)
	list := r.ctrl.Sessions()
	if err != nil || n < 1 || n > len(list) {
		return session.ChatSession{}, fmt.Errorf("no chat number %q", arg)
	}
	return list[n-1], nil
}

func (r *REPL) autoRead(arg string) {
	id, ok := r.ctrl.CurrentID()
	if !ok {
		r.printer.Error(lifecycle.ErrNoActiveSession)
		return
	}
	var on bool
	switch arg {
	case "on":
		on = true
	case "off":
	default:
		r.printer.Notice("usage: /autoread on|off")
		return
	}
	if _, err := r.ctrl.SetAutoRead(id, on); err != nil {
		r.printer.Error(err)
	}
}

func (r *REPL) copyLatest() {
	latest, ok := r.ctrl.Latest()
	if !ok {
		r.printer.Notice("nothing to copy")
		return
	}
	if err := Copy(latest.SpokenText()); err != nil {
		r.printer.Error(err)
		return
	}
	r.printer.Notice("copied")
}

func (r *REPL) printEvents(ctx context.Context, sessions <-chan pubsub.Event[events.SessionEvent], voices <-chan pubsub.Event[events.VoiceEvent]) {
	for sessions != nil || voices != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sessions:
			if !ok {
				sessions = nil
				continue
			}
			r.printSessionEvent(ev.Payload)
		case ev, ok := <-voices:
			if !ok {
				voices = nil
				continue
			}
			r.printer.VoiceEvent(ev.Payload)
		}
	}
}

func (r *REPL) printSessionEvent(e events.SessionEvent) {
	switch e.Type {
	case events.SessionEventSidebar:
		cur, _ := r.ctrl.CurrentID()
		r.printer.Sidebar(e.SidebarOpen, r.ctrl.Sessions(), cur)
		return
	case events.SessionEventResponseAdded:
	default:
		r.printer.SessionEvent(e)
		return
	}
	if cur, _ := r.ctrl.CurrentID(); cur != e.SessionID {
		return
	}
	h := r.ctrl.SessionHistory(e.SessionID)
	if len(h) > 0 {
		r.printer.Entry(h[len(h)-1])
	}
}
