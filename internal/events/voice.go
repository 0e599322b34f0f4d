package events

import "time"

// VoiceEventType identifies a voice session change.
type VoiceEventType string

// Voice event types.
const (
	VoiceEventStarted     VoiceEventType = "started"
	VoiceEventStopped     VoiceEventType = "stopped"
	VoiceEventTranscript  VoiceEventType = "transcript"
	VoiceEventCommand     VoiceEventType = "command"
	VoiceEventNotice      VoiceEventType = "notice"
	VoiceEventSpeaking    VoiceEventType = "speaking"
	VoiceEventSpeechEnded VoiceEventType = "speech_ended"
)

// VoiceEvent describes listening-state changes, transcripts and speech.
type VoiceEvent struct {
	Type      VoiceEventType `json:"type"`
	Timestamp time.Time      `json:"timestamp"`

	Listening  bool     `json:"listening"`
	Transcript string   `json:"transcript,omitempty"` // Transcript
	Final      bool     `json:"final,omitempty"`      // Transcript
	Intent     string   `json:"intent,omitempty"`     // Command
	Args       []string `json:"args,omitempty"`       // Command
	Handled    bool     `json:"handled,omitempty"`    // Command
	Message    string   `json:"message,omitempty"`    // Notice
	Text       string   `json:"text,omitempty"`       // Speaking, SpeechEnded
	Cancelled  bool     `json:"cancelled,omitempty"`  // SpeechEnded
}

// NewListeningEvent reports a transition into or out of listening.
func NewListeningEvent(listening bool) VoiceEvent {
	typ := VoiceEventStopped
	if listening {
		typ = VoiceEventStarted
	}
	return VoiceEvent{Type: typ, Listening: listening, Timestamp: time.Now()}
}

// NewTranscriptEvent carries an interim or final transcript.
func NewTranscriptEvent(transcript string, final, listening bool) VoiceEvent {
	return VoiceEvent{
		Type:       VoiceEventTranscript,
		Transcript: transcript,
		Final:      final,
		Listening:  listening,
		Timestamp:  time.Now(),
	}
}

// NewCommandEvent reports a parsed intent and whether anything acted on it.
func NewCommandEvent(intent string, args []string, handled bool) VoiceEvent {
	return VoiceEvent{
		Type:      VoiceEventCommand,
		Intent:    intent,
		Args:      args,
		Handled:   handled,
		Listening: true,
		Timestamp: time.Now(),
	}
}

// NewNoticeEvent carries a user-facing message such as "microphone unavailable".
func NewNoticeEvent(message string, listening bool) VoiceEvent {
	return VoiceEvent{Type: VoiceEventNotice, Message: message, Listening: listening, Timestamp: time.Now()}
}

// NewSpeakingEvent reports that an utterance started.
func NewSpeakingEvent(text string) VoiceEvent {
	return VoiceEvent{Type: VoiceEventSpeaking, Text: text, Timestamp: time.Now()}
}

// NewSpeechEndedEvent reports that an utterance finished or was cancelled.
func NewSpeechEndedEvent(text string, cancelled bool) VoiceEvent {
	return VoiceEvent{Type: VoiceEventSpeechEnded, Text: text, Cancelled: cancelled, Timestamp: time.Now()}
}
