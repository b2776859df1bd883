package types

import "fmt"

// VideoEngine selects which provider renders a clip's video.
type VideoEngine string

const (
	VideoEngineGemini   VideoEngine = "gemini"
	VideoEngineCerebras VideoEngine = "cerebras"
)

// SpeechEngine selects which provider renders a clip's voiceover.
type SpeechEngine string

const (
	SpeechEngineGemini     SpeechEngine = "gemini"
	SpeechEngineElevenLabs SpeechEngine = "elevenlabs"
)

// EngineSelection pairs the independently selectable video and speech
// providers for one generation run.
type EngineSelection struct {
	Video  VideoEngine  `json:"engine"`
	Speech SpeechEngine `json:"voiceoverEngine"`
}

// ParseVideoEngine validates a wire value against the closed engine set.
// Unrecognized values are rejected rather than falling through to a default.
func ParseVideoEngine(s string) (VideoEngine, error) {
	switch VideoEngine(s) {
	case VideoEngineGemini, VideoEngineCerebras:
		return VideoEngine(s), nil
	}
	return "", &ValidationError{Detail: fmt.Sprintf("unknown video engine %q", s)}
}

// ParseSpeechEngine validates a wire value against the closed engine set.
func ParseSpeechEngine(s string) (SpeechEngine, error) {
	switch SpeechEngine(s) {
	case SpeechEngineGemini, SpeechEngineElevenLabs:
		return SpeechEngine(s), nil
	}
	return "", &ValidationError{Detail: fmt.Sprintf("unknown voiceover engine %q", s)}
}
