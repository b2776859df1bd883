package types

import "strings"

// VideoConfig selects the output geometry for one generated clip.
type VideoConfig struct {
	AspectRatio string `json:"aspectRatio"` // "16:9" | "9:16"
	Resolution  string `json:"resolution"`  // "720p" | "1080p"
}

// ImageFile is an optional reference image attached as generation conditioning.
type ImageFile struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
}

// VoiceoverConfig holds the narration script for a clip. An empty script means
// the clip has no voiceover.
type VoiceoverConfig struct {
	Script string `json:"script"`
	Voice  string `json:"voice"`
}

// Clip is one storyboard entry. Order in the storyboard defines playback
// order. The ID is assigned once at creation and is the reconciliation key
// when generation results are written back.
type Clip struct {
	ID              string          `json:"id"`
	Prompt          string          `json:"prompt"`
	Image           *ImageFile      `json:"image,omitempty"`
	VideoConfig     VideoConfig     `json:"videoConfig"`
	VoiceoverConfig VoiceoverConfig `json:"voiceoverConfig"`

	// Transient generation state, never persisted beyond the session.
	IsGenerating bool `json:"isGenerating,omitempty"`

	// GeneratedVideoPath points at the produced video bytes on disk.
	GeneratedVideoPath string `json:"generatedVideoPath,omitempty"`
	// GeneratedAudio is raw linear PCM, 24 kHz, 16-bit, mono. Present only
	// when the voiceover script was non-empty and generation succeeded.
	GeneratedAudio []byte `json:"-"`
}

// HasVoiceover reports whether the clip requests speech generation.
func (c *Clip) HasVoiceover() bool {
	return strings.TrimSpace(c.VoiceoverConfig.Script) != ""
}

// Ready reports whether the clip can take part in a merge.
func (c *Clip) Ready() bool {
	return c.GeneratedVideoPath != ""
}

// ClipMedia is the result of generating one clip.
type ClipMedia struct {
	VideoPath string // mandatory on success
	AudioPCM  []byte // nil when the clip has no voiceover
}

// CustomVoice is a cloned voice registered with the speech provider.
type CustomVoice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SessionStatus is the top-level storyboard workflow state.
type SessionStatus string

const (
	StatusEditing    SessionStatus = "editing"
	StatusGenerating SessionStatus = "generating"
	StatusMerging    SessionStatus = "merging"
	StatusDone       SessionStatus = "done"
)
