// Package orchestrator drives one sequential generation run over the
// storyboard: one clip at a time, in order, aborting the remaining queue on
// the first failure.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ideagen-pipeline/session"
	"ideagen-pipeline/types"
)

// MediaGenerator is the slice of the gateway the orchestrator needs.
type MediaGenerator interface {
	GenerateClipMedia(ctx context.Context, clip *types.Clip, sel types.EngineSelection) (*types.ClipMedia, error)
}

// ProgressFunc receives one notification per clip before its generation
// starts. Index is 1-based.
type ProgressFunc func(index, total int, message string)

// Orchestrator runs generate-all passes against a session.
type Orchestrator struct {
	gen MediaGenerator
}

// New creates an Orchestrator backed by the given generator.
func New(gen MediaGenerator) *Orchestrator {
	return &Orchestrator{gen: gen}
}

// GenerateAll generates media for every clip in the session, strictly in
// storyboard order and never concurrently across clips — clip i+1 does not
// start until clip i has resolved. Results are written back by clip ID. On
// any failure the remaining queue is abandoned, every in-flight flag is
// cleared, and the session returns to editing with a user-facing message.
func (o *Orchestrator) GenerateAll(ctx context.Context, s *session.Session, sel types.EngineSelection, progress ProgressFunc) error {
	return o.GenerateSubset(ctx, s, nil, sel, progress)
}

// GenerateSubset is GenerateAll restricted to the given clip IDs, still in
// storyboard order. Clips outside the subset are not touched — a caller
// re-running after an abort can exclude the clips that already succeeded.
// A nil or empty subset means every clip.
func (o *Orchestrator) GenerateSubset(ctx context.Context, s *session.Session, ids []string, sel types.EngineSelection, progress ProgressFunc) error {
	if progress == nil {
		progress = func(int, int, string) {}
	}

	if err := s.BeginGeneration(); err != nil {
		return err
	}

	clips := s.Clips()
	if len(ids) > 0 {
		wanted := make(map[string]bool, len(ids))
		for _, id := range ids {
			wanted[id] = true
		}
		var selected []types.Clip
		for _, c := range clips {
			if wanted[c.ID] {
				selected = append(selected, c)
			}
		}
		clips = selected
	}
	total := len(clips)

	for i := range clips {
		clip := clips[i]
		progress(i+1, total, fmt.Sprintf("Generating clip %d of %d using %s...", i+1, total, sel.Video))
		log.Printf("[orchestrator] Clip %d/%d: generating via %s", i+1, total, sel.Video)

		s.SetInFlight(clip.ID)

		media, err := o.gen.GenerateClipMedia(ctx, &clip, sel)
		if err != nil {
			msg := runErrorMessage(i, err)
			log.Printf("[orchestrator] ❌ %s", msg)
			s.EndGeneration(msg)
			return err
		}

		s.ApplyResult(clip.ID, media)
		log.Printf("[orchestrator] Clip %d/%d: done (voiceover: %v)", i+1, total, len(media.AudioPCM) > 0)
	}

	s.EndGeneration("")
	log.Printf("[orchestrator] ✅ All %d clips generated", total)
	return nil
}

// runErrorMessage builds the single user-facing message for an aborted run.
// Credential failures get a distinct message so the caller can prompt for
// re-authentication; everything else names the clip that failed.
func runErrorMessage(index int, err error) string {
	var credErr *types.CredentialError
	if errors.As(err, &credErr) {
		return fmt.Sprintf("API key not found or invalid for %s. Please select your API key again.", credErr.Provider)
	}
	return fmt.Sprintf("Error generating clip %d: %v", index+1, err)
}
