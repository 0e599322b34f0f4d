package debug

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledIsNoop(t *testing.T) {
	Disable()

	Log("nothing %d", 1)
	Event("store", "write", "ignored")
	Error("store", errors.New("boom"), "ignored")

	if IsEnabled() {
		t.Error("IsEnabled() = true after Disable()")
	}
}

func TestEnableWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "debug.log")
	if err := Enable(path); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	t.Cleanup(Disable)

	Error("session", errors.New("disk full"), "saving history")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	out := string(data)
	for _, want := range []string{"debug session started", "saving history", "disk full"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
	if LogPath() != path {
		t.Errorf("LogPath() = %q, want %q", LogPath(), path)
	}
}

func TestEnableWriter(t *testing.T) {
	var buf bytes.Buffer
	EnableWriter(&buf)
	t.Cleanup(Disable)

	Warn("voice", "already listening", "transcript", "hello")

	if !strings.Contains(buf.String(), "already listening") {
		t.Errorf("output = %q, want warning text", buf.String())
	}
}
