package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/guilhermegouw/voxchat/internal/db"
	"github.com/guilhermegouw/voxchat/internal/storage"
)

// failingStorage rejects every write and read.
type failingStorage struct{}

var errBroken = errors.New("storage broken")

func (failingStorage) Get(string) (string, bool, error) { return "", false, errBroken }
func (failingStorage) Set(string, string) error         { return errBroken }
func (failingStorage) Remove(string) error              { return errBroken }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore(t *testing.T, st storage.Storage) *Store {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	n := 0
	return NewStore(st,
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("s%d", n)
		}),
	)
}

func TestStore_Create(t *testing.T) {
	t.Run("inserts at head and becomes current", func(t *testing.T) {
		s := newTestStore(t, storage.NewMemory())

		first := s.Create("")
		second := s.Create("")

		list := s.List()
		if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
			t.Fatalf("List() = %+v, want [%s %s]", list, second.ID, first.ID)
		}
		if cur, ok := s.CurrentID(); !ok || cur != second.ID {
			t.Errorf("CurrentID() = %q, %v, want %q", cur, ok, second.ID)
		}
		if first.Title != DefaultTitle {
			t.Errorf("Title = %q, want %q", first.Title, DefaultTitle)
		}
		if first.UpdatedAt.Before(first.CreatedAt) {
			t.Error("UpdatedAt precedes CreatedAt")
		}
	})

	t.Run("title from first query is truncated", func(t *testing.T) {
		s := newTestStore(t, storage.NewMemory())
		sess := s.Create("What is the tallest mountain in the solar system?")
		want := "What is the tallest mountain i..."
		if sess.Title != want {
			t.Errorf("Title = %q, want %q", sess.Title, want)
		}
		if sess.FirstQuery == "" {
			t.Error("FirstQuery should be kept")
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		s := NewStore(storage.NewMemory())
		seen := make(map[string]bool)
		for range 20 {
			id := s.Create("").ID
			if seen[id] {
				t.Fatalf("duplicate id %s", id)
			}
			seen[id] = true
		}
	})
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	mem := storage.NewMemory()
	s := newTestStore(t, mem)
	sess := s.Create("")
	entries := []HistoryEntry{{OriginalQuery: "hi", Summary: "hello", Sources: []Source{}}}
	s.SaveHistory(sess.ID, entries)

	reloaded := NewStore(mem)
	if got := reloaded.List(); len(got) != 1 || got[0].ID != sess.ID {
		t.Fatalf("List() after reload = %+v", got)
	}
	if cur, _ := reloaded.CurrentID(); cur != sess.ID {
		t.Errorf("CurrentID() after reload = %q, want %q", cur, sess.ID)
	}
	h := reloaded.History(sess.ID)
	if len(h) != 1 || h[0].Summary != "hello" {
		t.Errorf("History() after reload = %+v", h)
	}
	if got, _ := reloaded.Get(sess.ID); got.Title != "hello" {
		t.Errorf("Title after reload = %q, want inferred %q", got.Title, "hello")
	}
}

func TestStore_CorruptIndexTreatedAsEmpty(t *testing.T) {
	mem := storage.NewMemory()
	_ = mem.Set(SessionsKey, "{not json")
	_ = mem.Set(CurrentKey, "ghost")

	s := NewStore(mem)
	if got := s.List(); len(got) != 0 {
		t.Errorf("List() = %+v, want empty", got)
	}
	if _, ok := s.CurrentID(); ok {
		t.Error("current pointer to unknown session should be ignored")
	}
}

func TestStore_Delete(t *testing.T) {
	t.Run("removes session and history, clears current", func(t *testing.T) {
		mem := storage.NewMemory()
		s := newTestStore(t, mem)
		sess := s.Create("")
		s.SaveHistory(sess.ID, []HistoryEntry{{Summary: "x"}})

		s.Delete(sess.ID)

		if _, ok := s.Get(sess.ID); ok {
			t.Error("session still present")
		}
		if h := s.History(sess.ID); len(h) != 0 {
			t.Errorf("History() = %+v, want empty", h)
		}
		if _, ok := s.CurrentID(); ok {
			t.Error("current pointer should be cleared")
		}
		if _, ok, _ := mem.Get(HistoryKey(sess.ID)); ok {
			t.Error("history key should be removed from storage")
		}
	})

	t.Run("non-current delete keeps pointer", func(t *testing.T) {
		s := newTestStore(t, storage.NewMemory())
		old := s.Create("")
		cur := s.Create("")
		s.Delete(old.ID)
		if id, _ := s.CurrentID(); id != cur.ID {
			t.Errorf("CurrentID() = %q, want %q", id, cur.ID)
		}
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		s := newTestStore(t, storage.NewMemory())
		s.Create("")
		s.Delete("nope")
		if len(s.List()) != 1 {
			t.Error("unknown delete changed the index")
		}
	})
}

func TestStore_DeleteAll(t *testing.T) {
	backends := map[string]func(t *testing.T) sweepingStorage{
		"memory": func(*testing.T) sweepingStorage { return storage.NewMemory() },
		"sqlite": func(t *testing.T) sweepingStorage {
			database, err := db.Open(filepath.Join(t.TempDir(), db.FileName))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			t.Cleanup(func() { _ = database.Close() }) //nolint:errcheck // test
			return storage.NewSQLite(database)
		},
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			st := open(t)
			s := newTestStore(t, st)
			a := s.Create("")
			s.SaveHistory(a.ID, []HistoryEntry{{Summary: "a"}})
			s.Create("")
			_ = st.Set(HistoryKey("orphan"), "[]") //nolint:errcheck // checked below

			s.DeleteAll()

			if len(s.List()) != 0 {
				t.Error("sessions remain")
			}
			if _, ok := s.CurrentID(); ok {
				t.Error("current pointer remains")
			}
			if keys, _ := st.Keys(""); len(keys) != 0 {
				t.Errorf("storage keys remain: %v", keys)
			}
		})
	}
}

type sweepingStorage interface {
	storage.Storage
	storage.Lister
	storage.Sweeper
}

func TestStore_Rename(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	sess := s.Create("")

	tests := []struct {
		name    string
		title   string
		want    string
		wantErr error
	}{
		{"padded", "  Foo  ", "Foo", nil},
		{"plain", "Foo", "Foo", nil},
		{"blank", "   ", "Foo", ErrEmptyTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Rename(sess.ID, tt.title)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Rename() error = %v, want %v", err, tt.wantErr)
			}
			got, _ := s.Get(sess.ID)
			if got.Title != tt.want {
				t.Errorf("Title = %q, want %q", got.Title, tt.want)
			}
		})
	}

	t.Run("unknown id", func(t *testing.T) {
		if _, err := s.Rename("nope", "x"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Rename() error = %v, want ErrNotFound", err)
		}
	})
}

func TestStore_UpdateRefreshesUpdatedAt(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	sess := s.Create("")

	on := true
	got, err := s.Update(sess.ID, Fields{AutoRead: &on})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !got.AutoRead {
		t.Error("AutoRead not applied")
	}
	if !got.UpdatedAt.After(sess.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want after %v", got.UpdatedAt, sess.UpdatedAt)
	}
	if got.Title != DefaultTitle {
		t.Errorf("nil Title field changed title to %q", got.Title)
	}
}

func TestStore_SaveHistory(t *testing.T) {
	t.Run("infers title only while placeholder", func(t *testing.T) {
		s := newTestStore(t, storage.NewMemory())
		sess := s.Create("")

		s.SaveHistory(sess.ID, []HistoryEntry{{Summary: "Dogs are loyal companions that have lived with humans"}})
		got, _ := s.Get(sess.ID)
		if got.Title != "Dogs are loyal companions that..." {
			t.Errorf("Title = %q", got.Title)
		}

		s.SaveHistory(sess.ID, []HistoryEntry{{Summary: "Cats"}})
		got, _ = s.Get(sess.ID)
		if !strings.HasPrefix(got.Title, "Dogs") {
			t.Errorf("title re-inferred to %q", got.Title)
		}
	})

	t.Run("failed entry falls back to query", func(t *testing.T) {
		s := newTestStore(t, storage.NewMemory())
		sess := s.Create("")
		s.SaveHistory(sess.ID, []HistoryEntry{{OriginalQuery: "weather", Error: "boom"}})
		if got, _ := s.Get(sess.ID); got.Title != "weather" {
			t.Errorf("Title = %q, want %q", got.Title, "weather")
		}
	})

	t.Run("stores a copy", func(t *testing.T) {
		s := newTestStore(t, storage.NewMemory())
		sess := s.Create("")
		entries := []HistoryEntry{{Summary: "a"}}
		s.SaveHistory(sess.ID, entries)
		entries[0].Summary = "mutated"
		if h := s.History(sess.ID); h[0].Summary != "a" {
			t.Errorf("History() aliased caller slice: %+v", h)
		}
	})

	t.Run("writes JSON array", func(t *testing.T) {
		mem := storage.NewMemory()
		s := newTestStore(t, mem)
		sess := s.Create("")
		s.SaveHistory(sess.ID, []HistoryEntry{{OriginalQuery: "q", Summary: "a", RelatedQuestions: []string{"why?"}}})

		raw, ok, _ := mem.Get(HistoryKey(sess.ID))
		if !ok {
			t.Fatal("history key missing")
		}
		var decoded []map[string]any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			t.Fatalf("stored history is not JSON: %v", err)
		}
		if decoded[0]["originalQuery"] != "q" {
			t.Errorf("stored entry = %v", decoded[0])
		}
	})
}

func TestStore_Restore(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	a := s.Create("")
	b := s.Create("")
	c := s.Create("")
	hist := []HistoryEntry{{Summary: "kept"}}
	s.SaveHistory(b.ID, hist)
	b, _ = s.Get(b.ID)

	s.Delete(b.ID)
	s.Restore(b, hist, 1)

	list := s.List()
	if len(list) != 3 || list[0].ID != c.ID || list[1].ID != b.ID || list[2].ID != a.ID {
		t.Fatalf("List() = %+v", list)
	}
	if h := s.History(b.ID); len(h) != 1 || h[0].Summary != "kept" {
		t.Errorf("History() = %+v", h)
	}

	s.Restore(b, nil, 0)
	if len(s.List()) != 3 {
		t.Error("restoring an existing session duplicated it")
	}
}

func TestStore_SetCurrentID(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	a := s.Create("")
	s.Create("")

	if !s.SetCurrentID(a.ID) {
		t.Fatal("SetCurrentID() = false for known id")
	}
	if s.SetCurrentID("nope") {
		t.Error("SetCurrentID() = true for unknown id")
	}
	if id, _ := s.CurrentID(); id != a.ID {
		t.Errorf("CurrentID() = %q, want %q", id, a.ID)
	}

	s.ClearCurrentID()
	if _, ok := s.CurrentID(); ok {
		t.Error("ClearCurrentID() left a pointer")
	}
}

func TestNewStore_DropsStaleCurrent(t *testing.T) {
	mem := storage.NewMemory()
	first := newTestStore(t, mem)
	first.Create("")
	_ = mem.Set(CurrentKey, "gone") //nolint:errcheck // memory never fails

	s := newTestStore(t, mem)
	if _, ok := s.CurrentID(); ok {
		t.Error("stale current pointer kept")
	}
	if v, _, _ := mem.Get(CurrentKey); v != "" {
		t.Errorf("stored current = %q, want cleared", v)
	}
}

func TestStore_Search(t *testing.T) {
	s := newTestStore(t, storage.NewMemory())
	for _, title := range []string{"Authentication Bug Fix", "Dog breeds", "Bug bounty"} {
		sess := s.Create("")
		if _, err := s.Rename(sess.ID, title); err != nil {
			t.Fatalf("Rename() error = %v", err)
		}
	}

	tests := []struct {
		keyword string
		want    int
	}{
		{"bug", 2},
		{"bug auth", 1},
		{"DOG", 1},
		{"cat", 0},
		{"", 3},
	}
	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			if got := s.Search(tt.keyword); len(got) != tt.want {
				t.Errorf("Search(%q) = %d results, want %d", tt.keyword, len(got), tt.want)
			}
		})
	}
}

func TestSortByUpdated(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sessions := []ChatSession{
		{ID: "old", UpdatedAt: base},
		{ID: "new", UpdatedAt: base.Add(2 * time.Hour)},
		{ID: "mid", UpdatedAt: base.Add(time.Hour)},
	}
	SortByUpdated(sessions)
	if sessions[0].ID != "new" || sessions[1].ID != "mid" || sessions[2].ID != "old" {
		t.Errorf("SortByUpdated() = %v", sessions)
	}
}

func TestStore_DegradedDurability(t *testing.T) {
	s := newTestStore(t, failingStorage{})

	sess := s.Create("")
	if _, ok := s.Get(sess.ID); !ok {
		t.Fatal("session should exist in memory when storage fails")
	}
	entry := HistoryEntry{OriginalQuery: "hi", Summary: "hello"}
	s.SaveHistory(sess.ID, []HistoryEntry{entry})
	if h := s.History(sess.ID); len(h) != 1 || h[0].Summary != "hello" {
		t.Errorf("History() = %+v", h)
	}
	if _, err := s.Rename(sess.ID, "Greeting"); err != nil {
		t.Errorf("Rename() error = %v, want nil despite storage failure", err)
	}
	s.Delete(sess.ID)
	if len(s.List()) != 0 {
		t.Error("Delete() did not apply in memory")
	}
}

func TestHistoryEntry_State(t *testing.T) {
	tests := []struct {
		name  string
		entry HistoryEntry
		want  EntryState
		spoke string
	}{
		{"answered", HistoryEntry{Summary: "hi"}, StateAnswered, "hi"},
		{"loading", HistoryEntry{Loading: true}, StateLoading, ""},
		{"failed", HistoryEntry{Error: "oops"}, StateFailed, "oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
			if got := tt.entry.SpokenText(); got != tt.spoke {
				t.Errorf("SpokenText() = %q, want %q", got, tt.spoke)
			}
		})
	}
}
