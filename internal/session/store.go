package session

import (
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guilhermegouw/voxchat/internal/debug"
	"github.com/guilhermegouw/voxchat/internal/storage"
)

// Store keeps the session index, per-session histories and the current
// session pointer.
//
// Writes are best effort. A storage failure is logged and the in-memory
// state stays authoritative for the rest of the process.
type Store struct {
	storage   storage.Storage
	now       func() time.Time
	newID     func() string
	sessions  []ChatSession
	histories map[string][]HistoryEntry
	current   string
	mu        sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore loads the index and current pointer from st.
func NewStore(st storage.Storage, opts ...Option) *Store {
	s := &Store{
		storage:   st,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		histories: make(map[string][]HistoryEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if stale := s.load(); stale {
		debug.Warn("session", "current session is not in the index")
		s.ClearCurrentID()
	}
	return s
}

// load reports whether the stored current pointer names a missing session.
func (s *Store) load() (stale bool) {
	raw, ok, err := s.storage.Get(SessionsKey)
	if err != nil {
		debug.Error("session", err, "loading session index")
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.sessions); err != nil {
			debug.Error("session", err, "decoding session index")
			s.sessions = nil
		}
	}

	cur, ok, err := s.storage.Get(CurrentKey)
	if err != nil {
		debug.Error("session", err, "loading current session")
	}
	if !ok || cur == "" {
		return false
	}
	if s.indexOf(cur) < 0 {
		return true
	}
	s.current = cur
	return false
}

// List returns sessions in stored order, newest insert first.
func (s *Store) List() []ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.sessions)
}

// Get returns the session with id.
func (s *Store) Get(id string) (ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return ChatSession{}, false
	}
	return s.sessions[i], true
}

// Create inserts a new session at the head of the index and makes it
// current. A non-empty firstQuery becomes the (truncated) title.
func (s *Store) Create(firstQuery string) ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := ChatSession{
		ID:         s.newID(),
		Title:      DefaultTitle,
		CreatedAt:  now,
		UpdatedAt:  now,
		FirstQuery: firstQuery,
	}
	if q := strings.TrimSpace(firstQuery); q != "" {
		sess.Title = truncateTitle(q)
	}

	s.sessions = append([]ChatSession{sess}, s.sessions...)
	s.histories[sess.ID] = nil
	s.current = sess.ID
	s.persistIndex()
	s.persistCurrent()
	return sess
}

// Delete removes a session and its history. The current pointer is cleared
// when it referenced the deleted session; choosing a replacement is up to
// the caller. Unknown ids are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.sessions = slices.Delete(s.sessions, i, i+1)
	delete(s.histories, id)
	s.persistIndex()
	s.remove(HistoryKey(id))

	if s.current == id {
		s.current = ""
		s.persistCurrent()
	}
}

// DeleteAll removes every session and history and clears the current pointer.
func (s *Store) DeleteAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]struct{}, len(s.sessions))
	for _, sess := range s.sessions {
		ids[sess.ID] = struct{}{}
	}
	// Histories orphaned by an earlier failed write are swept too.
	if lister, ok := s.storage.(storage.Lister); ok {
		keys, err := lister.Keys(HistoryKeyPrefix)
		if err != nil {
			debug.Error("session", err, "listing history keys")
		}
		for _, k := range keys {
			ids[strings.TrimPrefix(k, HistoryKeyPrefix)] = struct{}{}
		}
	}
	keys := make([]string, 0, len(ids)+2)
	for id := range ids {
		keys = append(keys, HistoryKey(id))
	}
	keys = append(keys, SessionsKey, CurrentKey)
	if sweeper, ok := s.storage.(storage.Sweeper); ok {
		if err := sweeper.RemoveAll(keys); err != nil {
			debug.Error("session", err, "sweeping session keys")
		}
	} else {
		for _, k := range keys {
			s.remove(k)
		}
	}

	s.sessions = nil
	s.histories = make(map[string][]HistoryEntry)
	s.current = ""
}

// Restore re-inserts a previously deleted session and its history at pos in
// the index. pos is clamped to the index bounds.
func (s *Store) Restore(sess ChatSession, history []HistoryEntry, pos int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(sess.ID) >= 0 {
		return
	}
	pos = max(0, min(pos, len(s.sessions)))
	s.sessions = slices.Insert(s.sessions, pos, sess)
	s.histories[sess.ID] = slices.Clone(history)
	s.persistIndex()
	s.persistHistory(sess.ID)
}

// Rename sets a trimmed title.
func (s *Store) Rename(id, title string) (ChatSession, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return ChatSession{}, ErrEmptyTitle
	}
	return s.Update(id, Fields{Title: &title})
}

// Update applies a partial update and refreshes UpdatedAt.
func (s *Store) Update(id string, f Fields) (ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ChatSession{}, ErrNotFound
	}
	sess := &s.sessions[i]
	if f.Title != nil {
		sess.Title = *f.Title
	}
	if f.AutoRead != nil {
		sess.AutoRead = *f.AutoRead
	}
	s.touch(sess)
	s.persistIndex()
	return *sess, nil
}

// History returns the entries of a session, or nil for an unknown id.
func (s *Store) History(id string) []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.histories[id]; ok {
		return slices.Clone(h)
	}
	if s.indexOf(id) < 0 {
		return nil
	}

	raw, ok, err := s.storage.Get(HistoryKey(id))
	if err != nil {
		debug.Error("session", err, "loading history "+id)
	}
	var h []HistoryEntry
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &h); err != nil {
			debug.Error("session", err, "decoding history "+id)
			h = nil
		}
	}
	s.histories[id] = h
	return slices.Clone(h)
}

// SaveHistory replaces a session's entries and refreshes UpdatedAt. While
// the title is still the placeholder it is derived from the first summary.
// Unknown ids are ignored.
func (s *Store) SaveHistory(id string, entries []HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		debug.Warn("session", "saving history for unknown session", "id", id)
		return
	}
	s.histories[id] = slices.Clone(entries)
	s.persistHistory(id)

	sess := &s.sessions[i]
	if sess.Title == DefaultTitle && len(entries) > 0 {
		if t := titleFromEntry(entries[0]); t != "" {
			sess.Title = truncateTitle(t)
		}
	}
	s.touch(sess)
	s.persistIndex()
}

// titleFromEntry prefers the summary and falls back to the query for
// entries that failed.
func titleFromEntry(e HistoryEntry) string {
	if t := strings.TrimSpace(e.Summary); t != "" {
		return t
	}
	return strings.TrimSpace(e.OriginalQuery)
}

// CurrentID returns the current session id.
func (s *Store) CurrentID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != ""
}

// SetCurrentID points the current session at id. Unknown ids are rejected.
func (s *Store) SetCurrentID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return false
	}
	s.current = id
	s.persistCurrent()
	return true
}

// ClearCurrentID unsets the current session.
func (s *Store) ClearCurrentID() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
	s.persistCurrent()
}

// Search returns sessions whose title contains every word of keyword,
// ignoring case. An empty keyword matches everything.
func (s *Store) Search(keyword string) []ChatSession {
	words := strings.Fields(strings.ToLower(keyword))

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ChatSession
	for _, sess := range s.sessions {
		title := strings.ToLower(sess.Title)
		matched := true
		for _, w := range words {
			if !strings.Contains(title, w) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, sess)
		}
	}
	return out
}

// SortByUpdated orders sessions most recently updated first. Ties keep
// stored order.
func SortByUpdated(sessions []ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}

// touch refreshes UpdatedAt without letting it fall behind CreatedAt.
func (s *Store) touch(sess *ChatSession) {
	now := s.now()
	if now.Before(sess.CreatedAt) {
		now = sess.CreatedAt
	}
	sess.UpdatedAt = now
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.sessions, func(c ChatSession) bool { return c.ID == id })
}

func (s *Store) persistIndex() {
	data, err := json.Marshal(s.sessions)
	if err != nil {
		debug.Error("session", err, "encoding session index")
		return
	}
	if err := s.storage.Set(SessionsKey, string(data)); err != nil {
		debug.Error("session", err, "writing session index")
	}
}

func (s *Store) persistHistory(id string) {
	h := s.histories[id]
	if h == nil {
		h = []HistoryEntry{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		debug.Error("session", err, "encoding history "+id)
		return
	}
	if err := s.storage.Set(HistoryKey(id), string(data)); err != nil {
		debug.Error("session", err, "writing history "+id)
	}
}

func (s *Store) persistCurrent() {
	if s.current == "" {
		s.remove(CurrentKey)
		return
	}
	if err := s.storage.Set(CurrentKey, s.current); err != nil {
		debug.Error("session", err, "writing current session")
	}
}

func (s *Store) remove(key string) {
	if err := s.storage.Remove(key); err != nil {
		debug.Error("session", err, "removing "+key)
	}
}
