package voice

import (
	"context"
	"strings"
	"unicode"

	"github.com/guilhermegouw/voxchat/internal/debug"
	"github.com/guilhermegouw/voxchat/internal/events"
	"github.com/guilhermegouw/voxchat/internal/pubsub"
)

// MaxChunkLen bounds the text handed to the synthesizer in one call.
const MaxChunkLen = 250

// Speak cancels any utterance in progress and speaks text, blocking until
// playback ends. Long text is spoken in sentence-aligned chunks. Speak
// never fails: synthesizer errors are logged and reported as
// OutcomeFailed.
func (s *Session) Speak(ctx context.Context, text string) Outcome {
	if strings.TrimSpace(text) == "" {
		return OutcomeCompleted
	}
	if s.synth == nil {
		debug.Warn("voice", "speech synthesis not available")
		return OutcomeFailed
	}

	speakCtx, cancel := context.WithCancel(ctx)
	s.speechMu.Lock()
	if s.cancelSpeech != nil {
		s.cancelSpeech()
	}
	s.speechSeq++
	seq := s.speechSeq
	s.cancelSpeech = cancel
	s.speechMu.Unlock()

	defer func() {
		s.speechMu.Lock()
		if s.speechSeq == seq {
			s.cancelSpeech = nil
		}
		s.speechMu.Unlock()
		cancel()
	}()

	s.publish(events.NewSpeakingEvent(text))
	outcome := s.speakChunks(speakCtx, text)
	s.publish(events.NewSpeechEndedEvent(text, outcome == OutcomeCancelled))
	return outcome
}

func (s *Session) speakChunks(ctx context.Context, text string) Outcome {
	for _, chunk := range Chunk(text) {
		if ctx.Err() != nil {
			return OutcomeCancelled
		}
		if err := s.synth.Speak(ctx, chunk, s.speakOpts); err != nil {
			if ctx.Err() != nil {
				return OutcomeCancelled
			}
			debug.Error("voice", err, "speaking")
			return OutcomeFailed
		}
	}
	if ctx.Err() != nil {
		return OutcomeCancelled
	}
	return OutcomeCompleted
}

// CancelSpeech stops the utterance in progress, if any.
func (s *Session) CancelSpeech() {
	s.speechMu.Lock()
	defer s.speechMu.Unlock()
	if s.cancelSpeech != nil {
		s.cancelSpeech()
		s.cancelSpeech = nil
	}
}

// Speaking reports whether an utterance is in progress.
func (s *Session) Speaking() bool {
	s.speechMu.Lock()
	defer s.speechMu.Unlock()
	return s.cancelSpeech != nil
}

// Chunk splits text into pieces of at most MaxChunkLen bytes, breaking
// only between sentences. A single sentence longer than the limit is kept
// whole.
func Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= MaxChunkLen {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, sentence := range splitSentences(text) {
		if cur.Len()+len(sentence) <= MaxChunkLen {
			cur.WriteString(sentence)
			cur.WriteByte(' ')
			continue
		}
		if c := strings.TrimSpace(cur.String()); c != "" {
			chunks = append(chunks, c)
		}
		cur.Reset()
		cur.WriteString(sentence)
		cur.WriteByte(' ')
	}
	if c := strings.TrimSpace(cur.String()); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

// splitSentences breaks text at whitespace that follows '.', '?' or '!'.
func splitSentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) || i == 0 {
			continue
		}
		switch runes[i-1] {
		case '.', '?', '!':
		default:
			continue
		}
		out = append(out, string(runes[start:i]))
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		start = i
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func (s *Session) publish(e events.VoiceEvent) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(pubsub.EventUpdated, e)
}
