package command

import (
	"errors"
	"testing"
)

type call struct {
	name string
	arg  string
}

type recordingActions struct {
	calls []call
	err   error
}

func (r *recordingActions) CreateChat() error {
	r.calls = append(r.calls, call{name: "create"})
	return r.err
}

func (r *recordingActions) SubmitText(text string) error {
	r.calls = append(r.calls, call{"submit", text})
	return r.err
}

func (r *recordingActions) SpeakCurrentSummary() error {
	r.calls = append(r.calls, call{name: "speak"})
	return r.err
}

func (r *recordingActions) DeleteSession(id string) error {
	r.calls = append(r.calls, call{"delete", id})
	return r.err
}

func (r *recordingActions) SelectSession(id string) error {
	r.calls = append(r.calls, call{"select", id})
	return r.err
}

type currentActions struct {
	recordingActions
	current string
}

func (c *currentActions) CurrentSessionID() (string, bool) {
	return c.current, c.current != ""
}

type panickingActions struct{}

func (panickingActions) CreateChat() error                { panic("create") }
func (panickingActions) SubmitText(string) error          { panic("submit") }
func (panickingActions) SpeakCurrentSummary() error       { panic("speak") }
func (panickingActions) DeleteSession(string) error       { panic("delete") }
func (panickingActions) SelectSession(string) error       { panic("select") }
func (panickingActions) CurrentSessionID() (string, bool) { panic("current") }

func TestDispatch(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		handled bool
		want    []call
	}{
		{"new chat", "new chat", true, []call{{name: "create"}}},
		{"submit", "what is rust", true, []call{{"submit", "what is rust"}}},
		{"read ignores args", "read the second answer", true, []call{{name: "speak"}}},
		{"numeric delete without current getter", "delete chat 2", true, []call{{"delete", "2"}}},
		{"literal delete", "delete abc-123", true, []call{{"delete", "abc-123"}}},
		{"bare delete without current getter", "delete", true, []call{{"delete", ""}}},
		{"stop listening", "stop listening", false, nil},
		{"start listening", "listen", false, nil},
		{"sidebar", "open sidebar", false, nil},
		{"next", "next", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &recordingActions{}
			res := Dispatch(tt.text, a)
			if res == nil {
				t.Fatal("Dispatch() = nil")
			}
			if res.Handled != tt.handled {
				t.Errorf("Handled = %v, want %v", res.Handled, tt.handled)
			}
			if len(a.calls) != len(tt.want) {
				t.Fatalf("calls = %+v, want %+v", a.calls, tt.want)
			}
			for i := range tt.want {
				if a.calls[i] != tt.want[i] {
					t.Errorf("call[%d] = %+v, want %+v", i, a.calls[i], tt.want[i])
				}
			}
		})
	}
}

func TestDispatch_DeleteUsesCurrentSession(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"numeric deletes current", "delete chat 2", "current-id"},
		{"bare deletes current", "remove", "current-id"},
		{"literal id passes through", "delete other-id", "other-id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &currentActions{current: "current-id"}
			Dispatch(tt.text, a)
			if len(a.calls) != 1 || a.calls[0].arg != tt.want {
				t.Errorf("calls = %+v, want delete %q", a.calls, tt.want)
			}
		})
	}
}

func TestDispatch_Empty(t *testing.T) {
	a := &recordingActions{}
	if res := Dispatch("   ", a); res != nil {
		t.Errorf("Dispatch() = %+v, want nil", res)
	}
	if len(a.calls) != 0 {
		t.Errorf("unexpected calls %+v", a.calls)
	}
}

func TestDispatch_NeverPanics(t *testing.T) {
	for _, text := range []string{"new chat", "hello", "read", "delete 3", "delete", "stop"} {
		t.Run(text, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Dispatch(%q) panicked: %v", text, r)
				}
			}()
			res := Dispatch(text, panickingActions{})
			if res == nil {
				t.Fatal("Dispatch() = nil")
			}
			if res.Intent.Kind != KindStopListening && res.Err == nil {
				t.Error("recovered panic should be reported in Err")
			}
		})
	}
}

func TestDispatch_ActionError(t *testing.T) {
	boom := errors.New("boom")
	res := Dispatch("new chat", &recordingActions{err: boom})
	if !res.Handled || !errors.Is(res.Err, boom) {
		t.Errorf("Dispatch() = %+v, want handled with boom", res)
	}
}

func TestDispatch_NilActions(t *testing.T) {
	res := Dispatch("new chat", nil)
	if res == nil || res.Handled {
		t.Errorf("Dispatch(nil actions) = %+v", res)
	}
}

func TestDispatchIntent_SubmitFallsBackToText(t *testing.T) {
	a := &recordingActions{}
	DispatchIntent(Intent{Kind: KindSubmitText}, "raw words", a)
	if len(a.calls) != 1 || a.calls[0].arg != "raw words" {
		t.Errorf("calls = %+v", a.calls)
	}
}
