// Package session owns the in-memory storyboard: the ordered clip list and
// the workflow status machine layered on top of it. All mutation goes through
// the status gate — user edits only while editing, orchestrator writes only
// while generating, merge reads only while merging.
package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"ideagen-pipeline/types"
)

// Session is one storyboard workspace. It is safe for concurrent use by
// HTTP handlers; the status gate additionally ensures only one operation
// (edit, generate, merge) is active at a time.
type Session struct {
	mu             sync.Mutex
	clips          []types.Clip
	status         types.SessionStatus
	lastError      string
	finalVideoPath string
}

// New creates an empty session in the editing state.
func New() *Session {
	return &Session{status: types.StatusEditing}
}

// Seed pre-populates the clip list. Clips without an ID get one assigned.
// Only valid while editing.
func (s *Session) Seed(clips []types.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != types.StatusEditing {
		return &types.ValidationError{Detail: "storyboard can only be seeded while editing"}
	}
	for i := range clips {
		if clips[i].ID == "" {
			clips[i].ID = uuid.NewString()
		}
	}
	s.clips = clips
	return nil
}

// Status returns the current workflow state.
func (s *Session) Status() types.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastError returns the message from the most recent failed run, if any.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// FinalVideoPath returns the merged artifact path once the session is done.
func (s *Session) FinalVideoPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalVideoPath
}

// Clips returns a copy of the storyboard in order.
func (s *Session) Clips() []types.Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyClips()
}

func (s *Session) copyClips() []types.Clip {
	out := make([]types.Clip, len(s.clips))
	copy(out, s.clips)
	return out
}

// AddClip appends a clip, assigning it a fresh ID. Editing-state only.
func (s *Session) AddClip(c types.Clip) (types.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != types.StatusEditing {
		return types.Clip{}, &types.ValidationError{Detail: "clips can only be added while editing"}
	}
	c.ID = uuid.NewString()
	c.IsGenerating = false
	c.GeneratedVideoPath = ""
	c.GeneratedAudio = nil
	s.clips = append(s.clips, c)
	return c, nil
}

// UpdateClip replaces the editable fields of the clip with the given ID,
// leaving previously generated media in place. Editing-state only.
func (s *Session) UpdateClip(c types.Clip) (types.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != types.StatusEditing {
		return types.Clip{}, &types.ValidationError{Detail: "clips can only be edited while editing"}
	}
	for i := range s.clips {
		if s.clips[i].ID == c.ID {
			s.clips[i].Prompt = c.Prompt
			s.clips[i].Image = c.Image
			s.clips[i].VideoConfig = c.VideoConfig
			s.clips[i].VoiceoverConfig = c.VoiceoverConfig
			return s.clips[i], nil
		}
	}
	return types.Clip{}, &types.ValidationError{Detail: fmt.Sprintf("no clip with id %q", c.ID)}
}

// RemoveClip deletes the clip with the given ID. Editing-state only.
func (s *Session) RemoveClip(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != types.StatusEditing {
		return &types.ValidationError{Detail: "clips can only be removed while editing"}
	}
	for i := range s.clips {
		if s.clips[i].ID == id {
			s.clips = append(s.clips[:i], s.clips[i+1:]...)
			return nil
		}
	}
	return &types.ValidationError{Detail: fmt.Sprintf("no clip with id %q", id)}
}

// BeginGeneration checks the run preconditions and flips the session to
// generating. Every clip must have a non-empty prompt; an empty storyboard
// cannot start a run.
func (s *Session) BeginGeneration() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != types.StatusEditing {
		return &types.ValidationError{Detail: fmt.Sprintf("cannot start generation while %s", s.status)}
	}
	if len(s.clips) == 0 {
		return &types.ValidationError{Detail: "storyboard has no clips"}
	}
	for i := range s.clips {
		if s.clips[i].Prompt == "" {
			return &types.ValidationError{Detail: fmt.Sprintf("clip %d has an empty prompt", i+1)}
		}
	}
	s.status = types.StatusGenerating
	s.lastError = ""
	return nil
}

// EndGeneration returns the session to editing. Any in-flight markers are
// cleared so an aborted run never leaves a stuck spinner.
func (s *Session) EndGeneration(errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clips {
		s.clips[i].IsGenerating = false
	}
	s.status = types.StatusEditing
	s.lastError = errMsg
}

// SetInFlight marks the clip with the given ID as generating.
func (s *Session) SetInFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clips {
		if s.clips[i].ID == id {
			s.clips[i].IsGenerating = true
			return true
		}
	}
	return false
}

// ApplyResult writes generated media back onto the clip with the given ID.
// Matching is by ID, never by index.
func (s *Session) ApplyResult(id string, media *types.ClipMedia) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clips {
		if s.clips[i].ID == id {
			s.clips[i].GeneratedVideoPath = media.VideoPath
			s.clips[i].GeneratedAudio = media.AudioPCM
			s.clips[i].IsGenerating = false
			return true
		}
	}
	return false
}

// BeginMerge flips the session to merging and returns the ready subset — the
// clips with generated video, in storyboard order. Clips without video are
// excluded silently.
func (s *Session) BeginMerge() ([]types.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != types.StatusEditing {
		return nil, &types.ValidationError{Detail: fmt.Sprintf("cannot start merge while %s", s.status)}
	}
	s.status = types.StatusMerging
	s.lastError = ""

	var ready []types.Clip
	for _, c := range s.clips {
		if c.Ready() {
			ready = append(ready, c)
		}
	}
	return ready, nil
}

// FinishMerge records the merge outcome: success moves to done with the
// artifact path, failure returns to editing with the error message.
func (s *Session) FinishMerge(artifactPath string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if errMsg != "" {
		s.status = types.StatusEditing
		s.lastError = errMsg
		return
	}
	s.finalVideoPath = artifactPath
	s.status = types.StatusDone
}

// Reset tears the session down: all clips cleared, back to editing.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips = nil
	s.status = types.StatusEditing
	s.lastError = ""
	s.finalVideoPath = ""
}
