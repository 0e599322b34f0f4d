// Package lifecycle is the single mutation path for chat sessions. Manual
// actions, voice commands and RPC calls all go through a Controller.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/guilhermegouw/voxchat/internal/debug"
	"github.com/guilhermegouw/voxchat/internal/events"
	"github.com/guilhermegouw/voxchat/internal/preferences"
	"github.com/guilhermegouw/voxchat/internal/pubsub"
	"github.com/guilhermegouw/voxchat/internal/session"
	"github.com/guilhermegouw/voxchat/internal/summarize"
	"github.com/guilhermegouw/voxchat/internal/voice"
)

// DefaultUndoWindow is how long a deleted session can be restored.
const DefaultUndoWindow = 10 * time.Second

// FailedResponseMessage is recorded when the backend could not answer.
const FailedResponseMessage = "Failed to generate response. Please try again."

var (
	// ErrNoActiveSession is returned when a response is recorded with no
	// current session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrNothingToUndo is returned when no deletion can be restored.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrEmptySubmission is returned for blank content.
	ErrEmptySubmission = errors.New("please enter a question or URL to analyze")
	// ErrUnknownModel is returned by ChangeModel for names outside the catalogue.
	ErrUnknownModel = errors.New("unknown model")
	// ErrNoSummarizer is returned by Submit when no backend is configured.
	ErrNoSummarizer = errors.New("no summarizer configured")
	// ErrSessionGone is returned when an answer arrives after its session
	// was deleted.
	ErrSessionGone = errors.New("chat was deleted before the answer arrived")
)

// Speaker reads text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) voice.Outcome
}

// pendingDelete is the single undo slot.
type pendingDelete struct {
	session     session.ChatSession
	history     []session.HistoryEntry
	pos         int
	wasCurrent  bool
	replacement string
	expires     time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithSummarizer sets the backend used by Submit.
func WithSummarizer(s summarize.Summarizer) Option {
	return func(c *Controller) { c.summarizer = s }
}

// WithPreferences sets the model and TTS preferences.
func WithPreferences(p *preferences.Preferences) Option {
	return func(c *Controller) { c.prefs = p }
}

// WithBroker publishes every mutation.
func WithBroker(b *pubsub.Broker[events.SessionEvent]) Option {
	return func(c *Controller) { c.broker = b }
}

// WithSpeaker sets who reads replies and summaries aloud.
func WithSpeaker(s Speaker) Option {
	return func(c *Controller) { c.speaker = s }
}

// WithUndoWindow overrides DefaultUndoWindow.
func WithUndoWindow(d time.Duration) Option {
	return func(c *Controller) { c.undoWindow = d }
}

// WithClock overrides time.Now for undo expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithAutoReadDefault sets AutoRead on sessions created by NewChat.
func WithAutoReadDefault(on bool) Option {
	return func(c *Controller) { c.autoReadDefault = on }
}

// Controller coordinates the session store, the summarizer and the speaker.
// It is safe for concurrent use.
type Controller struct { //nolint:govet // fieldalignment: preserving logical field order
	store           *session.Store
	summarizer      summarize.Summarizer
	prefs           *preferences.Preferences
	broker          *pubsub.Broker[events.SessionEvent]
	speaker         Speaker
	undoWindow      time.Duration
	now             func() time.Time
	autoReadDefault bool

	mu      sync.Mutex // also guards speaker
	latest  *session.HistoryEntry
	pending *pendingDelete

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a controller over store. The latest result starts as the
// last entry of the current session, if any.
func New(store *session.Store, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		store:      store,
		undoWindow: DefaultUndoWindow,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if id, ok := store.CurrentID(); ok {
		c.latest = lastEntry(store.History(id))
	}
	return c
}

// Close cancels background work started by Actions and waits for it.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

// Wait blocks until background submissions and speech have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// NewChat creates a session, makes it current and clears the latest result.
func (c *Controller) NewChat() session.ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newChatLocked()
}

func (c *Controller) newChatLocked() session.ChatSession {
	sess := c.store.Create("")
	if c.autoReadDefault {
		on := true
		if updated, err := c.store.Update(sess.ID, session.Fields{AutoRead: &on}); err == nil {
			sess = updated
		}
	}
	c.latest = nil
	debug.Event("lifecycle", "NewChat", sess.ID)
	c.publish(pubsub.EventCreated, events.NewSessionCreatedEvent(sess.ID, sess.Title))
	return sess
}

// SelectSession makes id current and loads its history. Unknown ids are
// ignored.
func (c *Controller) SelectSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectLocked(id)
}

func (c *Controller) selectLocked(id string) bool {
	if !c.store.SetCurrentID(id) {
		debug.Warn("lifecycle", "selecting unknown session", "id", id)
		return false
	}
	c.latest = lastEntry(c.store.History(id))
	sess, _ := c.store.Get(id)
	c.publish(pubsub.EventUpdated, events.NewSessionSwitchedEvent(id, sess.Title))
	return true
}

// DeleteSession removes a session and keeps it in the undo slot. When the
// current session is deleted the most recently updated remaining session
// becomes current, or a fresh one is created if none remain. Unknown ids
// are ignored.
func (c *Controller) DeleteSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.store.Get(id)
	if !ok {
		debug.Warn("lifecycle", "deleting unknown session", "id", id)
		return
	}
	pos := slices.IndexFunc(c.store.List(), func(s session.ChatSession) bool { return s.ID == id })
	history := c.store.History(id)
	cur, _ := c.store.CurrentID()

	c.store.Delete(id)
	p := &pendingDelete{
		session:    sess,
		history:    history,
		pos:        pos,
		wasCurrent: cur == id,
		expires:    c.now().Add(c.undoWindow),
	}
	c.pending = p
	debug.Event("lifecycle", "Deleted", id)
	c.publish(pubsub.EventDeleted, events.NewSessionDeletedEvent(id, sess.Title))

	if _, ok := c.store.CurrentID(); ok {
		return
	}
	remaining := c.store.List()
	if len(remaining) == 0 {
		p.replacement = c.newChatLocked().ID
		return
	}
	session.SortByUpdated(remaining)
	c.selectLocked(remaining[0].ID)
}

// UndoDelete restores the last deleted session with its history while the
// undo window is open. A session created only to replace the deleted one is
// discarded if it is still empty.
func (c *Controller) UndoDelete() (session.ChatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pending
	c.pending = nil
	if p == nil || c.now().After(p.expires) {
		return session.ChatSession{}, ErrNothingToUndo
	}

	if p.replacement != "" && len(c.store.History(p.replacement)) == 0 {
		c.store.Delete(p.replacement)
		c.publish(pubsub.EventDeleted, events.NewSessionDeletedEvent(p.replacement, session.DefaultTitle))
	}
	c.store.Restore(p.session, p.history, p.pos)
	debug.Event("lifecycle", "Restored", p.session.ID)
	c.publish(pubsub.EventCreated, events.NewSessionRestoredEvent(p.session.ID, p.session.Title))

	if _, ok := c.store.CurrentID(); p.wasCurrent || !ok {
		c.selectLocked(p.session.ID)
	}
	return p.session, nil
}

// RenameSession sets a trimmed title.
func (c *Controller) RenameSession(id, title string) (session.ChatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.store.Rename(id, title)
	if err != nil {
		return session.ChatSession{}, err
	}
	c.publish(pubsub.EventUpdated, events.NewSessionRenamedEvent(sess.ID, sess.Title))
	return sess, nil
}

// SetAutoRead toggles reading replies aloud for a session.
func (c *Controller) SetAutoRead(id string, on bool) (session.ChatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.store.Update(id, session.Fields{AutoRead: &on})
	if err != nil {
		return session.ChatSession{}, err
	}
	c.publish(pubsub.EventUpdated, events.NewSessionUpdatedEvent(sess.ID, sess.Title))
	return sess, nil
}

// RecordResponse appends entry to the current session's history.
func (c *Controller) RecordResponse(entry session.HistoryEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.store.CurrentID()
	if !ok {
		return ErrNoActiveSession
	}
	if !c.appendLocked(id, entry) {
		return ErrSessionGone
	}
	return nil
}

// appendLocked reports false when id is no longer in the store. An answer
// for a session awaiting undo is kept with it.
func (c *Controller) appendLocked(id string, entry session.HistoryEntry) bool {
	if _, ok := c.store.Get(id); !ok {
		if c.pending != nil && c.pending.session.ID == id {
			c.pending.history = append(c.pending.history, entry)
		}
		return false
	}
	h := append(c.store.History(id), entry)
	c.store.SaveHistory(id, h)
	if cur, _ := c.store.CurrentID(); cur == id {
		e := entry
		c.latest = &e
	}
	c.publish(pubsub.EventUpdated,
		events.NewResponseAddedEvent(id, entry.OriginalQuery, entry.Summary, entry.State() == session.StateFailed))
	return true
}

// Reset wipes every session, history and preference.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.DeleteAll()
	if c.prefs != nil {
		c.prefs.Reset()
	}
	c.latest = nil
	c.pending = nil
	debug.Event("lifecycle", "Reset", "")
	c.publish(pubsub.EventDeleted, events.NewSessionClearedEvent())
}

// DeleteAllSessions removes every session but keeps preferences. No session
// is current afterwards.
func (c *Controller) DeleteAllSessions() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.DeleteAll()
	c.latest = nil
	c.pending = nil
	c.publish(pubsub.EventDeleted, events.NewSessionClearedEvent())
}

// Submit sends content to the summarizer with the current session's
// answered history and records the result. A backend failure is recorded
// as an error entry and returned as a *summarize.BackendError alongside
// that entry. Concurrent submissions append in completion order. If the
// session is deleted before the answer arrives, ErrSessionGone is returned;
// the answer is kept with the deleted session so undo restores it.
func (c *Controller) Submit(ctx context.Context, content string, typ summarize.InputType) (session.HistoryEntry, error) {
	entries, err := c.submit(ctx, content, typ, c.answer)
	if len(entries) == 0 {
		return session.HistoryEntry{}, err
	}
	return entries[0], err
}

// SubmitWithActionItems answers content like Submit, then asks the same
// model for action items based on that answer. Both entries are recorded;
// a failed second step is recorded as an error entry.
func (c *Controller) SubmitWithActionItems(ctx context.Context, content string, typ summarize.InputType) ([]session.HistoryEntry, error) {
	return c.submit(ctx, content, typ, c.answerWithActionItems)
}

// ActionItemsQuery labels the entry holding action items for content.
func ActionItemsQuery(content string) string {
	return "Action items: " + content
}

type answerFunc func(ctx context.Context, req summarize.Request) ([]session.HistoryEntry, error)

func (c *Controller) submit(ctx context.Context, content string, typ summarize.InputType, answer answerFunc) ([]session.HistoryEntry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptySubmission
	}

	c.mu.Lock()
	id, ok := c.store.CurrentID()
	if !ok {
		id = c.newChatLocked().ID
	}
	req := summarize.Request{
		Content:   content,
		InputType: typ,
		History:   answered(c.store.History(id)),
		ModelID:   c.modelLocked(),
	}
	c.latest = &session.HistoryEntry{OriginalQuery: content, Loading: true, Sources: []session.Source{}}
	c.mu.Unlock()

	entries, err := answer(ctx, req)
	if err != nil {
		debug.Error("lifecycle", err, "submitting to "+req.ModelID)
	}
	for i := range entries {
		entries[i].Loading = false
	}
	entries[0].OriginalQuery = content

	c.mu.Lock()
	recorded := true
	for _, e := range entries {
		if !c.appendLocked(id, e) {
			recorded = false
		}
	}
	sess, _ := c.store.Get(id)
	c.mu.Unlock()

	if !recorded {
		debug.Warn("lifecycle", "answer arrived after its session was deleted", "id", id)
		if err == nil {
			err = ErrSessionGone
		}
		return entries, err
	}
	if err == nil && sess.AutoRead && c.ttsEnabled() {
		c.speakAsync(spokenText(entries))
	}
	return entries, err
}

// answer always returns one entry: the answer, or an error entry.
func (c *Controller) answer(ctx context.Context, req summarize.Request) ([]session.HistoryEntry, error) {
	entry, err := c.summarize(ctx, req)
	if err != nil {
		return []session.HistoryEntry{failedEntry(req.Content, req.ModelID)}, err
	}
	return []session.HistoryEntry{entry}, nil
}

func (c *Controller) answerWithActionItems(ctx context.Context, req summarize.Request) ([]session.HistoryEntry, error) {
	if c.summarizer == nil {
		return []session.HistoryEntry{failedEntry(req.Content, req.ModelID)}, ErrNoSummarizer
	}
	itemsQuery := ActionItemsQuery(req.Content)
	res, err := summarize.TwoStep(ctx, c.summarizer, req)
	switch {
	case err == nil:
		items := res.ActionItems
		items.OriginalQuery = itemsQuery
		return []session.HistoryEntry{res.Summary, items}, nil
	case res.Summary.Summary != "":
		return []session.HistoryEntry{res.Summary, failedEntry(itemsQuery, req.ModelID)}, asBackendError(err, req.ModelID)
	default:
		return []session.HistoryEntry{failedEntry(req.Content, req.ModelID)}, asBackendError(err, req.ModelID)
	}
}

func failedEntry(query, model string) session.HistoryEntry {
	return session.HistoryEntry{
		OriginalQuery: query,
		Sources:       []session.Source{},
		Error:         FailedResponseMessage,
		ModelUsed:     model,
	}
}

func spokenText(entries []session.HistoryEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if t := e.SpokenText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (c *Controller) summarize(ctx context.Context, req summarize.Request) (session.HistoryEntry, error) {
	if c.summarizer == nil {
		return session.HistoryEntry{}, ErrNoSummarizer
	}
	entry, err := c.summarizer.Summarize(ctx, req)
	if err != nil {
		return session.HistoryEntry{}, asBackendError(err, req.ModelID)
	}
	return entry, nil
}

func asBackendError(err error, model string) error {
	var be *summarize.BackendError
	if errors.As(err, &be) {
		return err
	}
	return &summarize.BackendError{Model: model, Err: err}
}

// NextSession selects the session after the current one, ordered most
// recently updated first, wrapping around.
func (c *Controller) NextSession() (session.ChatSession, bool) {
	return c.cycle(1)
}

// PreviousSession selects the session before the current one.
func (c *Controller) PreviousSession() (session.ChatSession, bool) {
	return c.cycle(-1)
}

func (c *Controller) cycle(step int) (session.ChatSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sessions := c.store.List()
	if len(sessions) == 0 {
		return session.ChatSession{}, false
	}
	session.SortByUpdated(sessions)
	cur, _ := c.store.CurrentID()
	i := slices.IndexFunc(sessions, func(s session.ChatSession) bool { return s.ID == cur })
	next := 0
	if i >= 0 {
		n := len(sessions)
		next = ((i+step)%n + n) % n
	}
	c.selectLocked(sessions[next].ID)
	return sessions[next], true
}

// ChangeModel selects a catalogue model by id or display name.
func (c *Controller) ChangeModel(name string) (summarize.Model, error) {
	m, ok := summarize.LookupModel(name)
	if !ok {
		return summarize.Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	if c.prefs != nil {
		c.prefs.SetModel(m.ID)
	}
	debug.Event("lifecycle", "ModelChanged", m.ID)
	c.publish(pubsub.EventUpdated, events.NewModelChangedEvent(m.ID))
	return m, nil
}

// Model returns the selected catalogue model id.
func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelLocked()
}

func (c *Controller) modelLocked() string {
	if c.prefs == nil {
		return summarize.DefaultModelID
	}
	return c.prefs.Model()
}

// Sessions returns every session, most recently updated first.
func (c *Controller) Sessions() []session.ChatSession {
	sessions := c.store.List()
	session.SortByUpdated(sessions)
	return sessions
}

// Search returns sessions whose title matches every word of keyword.
func (c *Controller) Search(keyword string) []session.ChatSession {
	found := c.store.Search(keyword)
	session.SortByUpdated(found)
	return found
}

// Session returns one session.
func (c *Controller) Session(id string) (session.ChatSession, bool) {
	return c.store.Get(id)
}

// History returns the current session's entries.
func (c *Controller) History() []session.HistoryEntry {
	id, ok := c.store.CurrentID()
	if !ok {
		return nil
	}
	return c.store.History(id)
}

// SessionHistory returns the entries of any session.
func (c *Controller) SessionHistory(id string) []session.HistoryEntry {
	return c.store.History(id)
}

// Latest returns the most recent result shown to the user, which may be a
// loading placeholder while a submission is in flight.
func (c *Controller) Latest() (session.HistoryEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return session.HistoryEntry{}, false
	}
	return *c.latest, true
}

// CurrentID returns the current session id.
func (c *Controller) CurrentID() (string, bool) {
	return c.store.CurrentID()
}

// SpeakLatest reads the latest result aloud and blocks until done.
func (c *Controller) SpeakLatest(ctx context.Context) voice.Outcome {
	latest, ok := c.Latest()
	sp := c.currentSpeaker()
	if !ok || sp == nil {
		return voice.OutcomeCompleted
	}
	return sp.Speak(ctx, latest.SpokenText())
}

// SetSpeaker replaces the speaker, e.g. when a remote client connects.
func (c *Controller) SetSpeaker(s Speaker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaker = s
}

func (c *Controller) currentSpeaker() Speaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaker
}

func (c *Controller) speakAsync(text string) {
	sp := c.currentSpeaker()
	if sp == nil || text == "" {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		sp.Speak(c.ctx, text)
	}()
}

func (c *Controller) ttsEnabled() bool {
	return c.prefs == nil || c.prefs.TTSEnabled()
}

func (c *Controller) publish(typ pubsub.EventType, e events.SessionEvent) {
	if c.broker != nil {
		c.broker.Publish(typ, e)
	}
}

func lastEntry(h []session.HistoryEntry) *session.HistoryEntry {
	if len(h) == 0 {
		return nil
	}
	e := h[len(h)-1]
	return &e
}

// answered drops failed and loading entries so they are not sent back to
// the model as context.
func answered(h []session.HistoryEntry) []session.HistoryEntry {
	return slices.DeleteFunc(h, func(e session.HistoryEntry) bool {
		return e.State() != session.StateAnswered
	})
}
