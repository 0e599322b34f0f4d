package terminal

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/guilhermegouw/voxchat/internal/voice"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecSynthesizer_Speak(t *testing.T) {
	requireShell(t)
	out := filepath.Join(t.TempDir(), "spoken.txt")
	// $0 is the output path, $1 the text.
	synth := NewExecSynthesizer([]string{"sh", "-c", `printf '%s' "$1" > "$0"`, out})

	if err := synth.Speak(context.Background(), "hello world", voice.SpeakOptions{}); err != nil {
		t.Fatalf("Speak() error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello world" {
		t.Errorf("spoken = %q", data)
	}
}

func TestExecSynthesizer_Errors(t *testing.T) {
	requireShell(t)

	t.Run("no command", func(t *testing.T) {
		err := NewExecSynthesizer(nil).Speak(context.Background(), "x", voice.SpeakOptions{})
		if !errors.Is(err, ErrNoSynthesizer) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("command fails", func(t *testing.T) {
		synth := NewExecSynthesizer([]string{"sh", "-c", "echo no audio device >&2; exit 3"})
		err := synth.Speak(context.Background(), "x", voice.SpeakOptions{})
		if err == nil {
			t.Fatal("Speak() error = nil")
		}
		if got := err.Error(); !contains(got, "no audio device") {
			t.Errorf("error = %q, want stderr included", got)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		synth := NewExecSynthesizer([]string{"sh", "-c", "sleep 10"})
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := synth.Speak(ctx, "x", voice.SpeakOptions{})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("error = %v", err)
		}
		if time.Since(start) > 5*time.Second {
			t.Error("Speak() did not return promptly")
		}
	})
}

func TestExecSynthesizer_VoiceArgs(t *testing.T) {
	tests := []struct {
		name    string
		command []string
		opts    voice.SpeakOptions
		want    []string
	}{
		{"espeak lang", []string{"espeak"}, voice.SpeakOptions{Lang: "pt-BR"}, []string{"-v", "pt-br"}},
		{"espeak voice wins", []string{"/usr/bin/espeak-ng"}, voice.SpeakOptions{Lang: "en-US", Voice: "en+f3"}, []string{"-v", "en+f3"}},
		{"espeak rate and volume", []string{"espeak"}, voice.SpeakOptions{Rate: 2, Volume: 0.5}, []string{"-s", "350", "-a", "50"}},
		{"other command", []string{"say", "-v", "Luciana"}, voice.SpeakOptions{Lang: "pt-BR", Rate: 2}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewExecSynthesizer(tt.command).voiceArgs(tt.opts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("voiceArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecSynthesizer_Available(t *testing.T) {
	if NewExecSynthesizer(nil).Available() {
		t.Error("empty command reported available")
	}
	if NewExecSynthesizer([]string{"voxchat-no-such-binary"}).Available() {
		t.Error("missing binary reported available")
	}
}
