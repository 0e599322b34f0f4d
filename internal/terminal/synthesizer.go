package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/guilhermegouw/voxchat/internal/voice"
)

// ErrNoSynthesizer is returned when no speech command is configured.
var ErrNoSynthesizer = errors.New("no speech command configured")

// ExecSynthesizer speaks by running an external command such as espeak or
// say with the text as its last argument.
type ExecSynthesizer struct {
	command []string
}

var _ voice.Synthesizer = (*ExecSynthesizer)(nil)

// NewExecSynthesizer returns a synthesizer running command.
func NewExecSynthesizer(command []string) *ExecSynthesizer {
	return &ExecSynthesizer{command: command}
}

// Available reports whether the command can be found.
func (s *ExecSynthesizer) Available() bool {
	if len(s.command) == 0 {
		return false
	}
	_, err := exec.LookPath(s.command[0])
	return err == nil
}

// Speak runs the command and waits for it. Cancelling ctx kills the
// process and returns ctx.Err().
func (s *ExecSynthesizer) Speak(ctx context.Context, text string, opts voice.SpeakOptions) error {
	if len(s.command) == 0 {
		return ErrNoSynthesizer
	}
	args := append(append([]string{}, s.command[1:]...), s.voiceArgs(opts)...)
	args = append(args, text)

	cmd := exec.CommandContext(ctx, s.command[0], args...) //nolint:gosec // G204: the command comes from user config
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("running %s: %w: %s", s.command[0], err, msg)
		}
		return fmt.Errorf("running %s: %w", s.command[0], err)
	}
	return nil
}

// voiceArgs maps speak options onto espeak flags. Other commands get
// none.
func (s *ExecSynthesizer) voiceArgs(opts voice.SpeakOptions) []string {
	name := s.command[0]
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if name != "espeak" && name != "espeak-ng" {
		return nil
	}
	var args []string
	if opts.Voice != "" {
		args = append(args, "-v", opts.Voice)
	} else if opts.Lang != "" {
		args = append(args, "-v", strings.ToLower(opts.Lang))
	}
	if opts.Rate > 0 {
		// espeak's default is 175 words per minute.
		args = append(args, "-s", strconv.Itoa(int(opts.Rate*175)))
	}
	if opts.Volume > 0 {
		args = append(args, "-a", strconv.Itoa(int(opts.Volume*100)))
	}
	return args
}
