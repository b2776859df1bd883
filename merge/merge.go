// Package merge concatenates the generated clips of a storyboard into one
// playable MP4 by driving an external ffmpeg binary through a synchronized
// concatenation plan.
package merge

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"ideagen-pipeline/config"
	"ideagen-pipeline/types"
	"ideagen-pipeline/wav"
)

// ProgressFunc receives human-readable status messages during a merge.
type ProgressFunc func(message string)

// Merger merges the ready subset of a storyboard into one output file.
// Merge calls are serialized: the engine handle is shared and a merge holds
// staged files on disk from staging through execution.
type Merger struct {
	cfg       *config.Config
	engine    *Engine
	mu        sync.Mutex
	stageRoot string
	outDir    string
}

// New creates a Merger with its own lazily-acquired ffmpeg engine.
func New(cfg *config.Config) *Merger {
	return &Merger{
		cfg:       cfg,
		engine:    NewEngine(cfg.Merge.FFmpegBinary),
		stageRoot: filepath.Join(cfg.Paths.Work, "merge"),
		outDir:    cfg.Paths.Artifacts,
	}
}

// MergeReadyClips concatenates the given clips — the subset with generated
// video, in storyboard order — into a single MP4 and returns its path.
// Either the whole merge succeeds or no artifact is produced.
func (m *Merger) MergeReadyClips(ctx context.Context, clips []types.Clip, progress ProgressFunc) (string, error) {
	if progress == nil {
		progress = func(string) {}
	}
	if len(clips) == 0 {
		return "", &types.MergeError{Detail: "nothing to merge"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	progress("Loading video engine (ffmpeg)...")
	if _, err := m.engine.Acquire(); err != nil {
		return "", err
	}

	stageDir := filepath.Join(m.stageRoot, uuid.NewString())
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return "", &types.MergeError{Detail: "create staging dir", Err: err}
	}
	defer os.RemoveAll(stageDir)

	progress("Fetching generated clips...")
	args, hasAudio, err := m.stageInputs(clips, stageDir, progress)
	if err != nil {
		return "", err
	}

	progress("Assembling video timeline...")
	n := len(clips)
	args = append(args, "-filter_complex", BuildFilterGraph(n, hasAudio))
	args = append(args, MapArgs(hasAudio)...)
	args = append(args,
		"-c:v", m.cfg.Merge.VideoCodec, // re-encode for broad compatibility
		"-preset", m.cfg.Merge.Preset,
		"-crf", strconv.Itoa(m.cfg.Merge.CRF),
	)
	if hasAudio {
		// End encoding when the shorter of the concatenated streams ends, so
		// a trailing silent pad never freezes the last frame.
		args = append(args, "-c:a", m.cfg.Merge.AudioCodec, "-shortest")
	}

	if err := os.MkdirAll(m.outDir, 0755); err != nil {
		return "", &types.MergeError{Detail: "create artifacts dir", Err: err}
	}
	outPath := filepath.Join(m.outDir, "final_"+uuid.NewString()+".mp4")
	args = append(args, "-y", "-movflags", "+faststart", outPath)

	progress("Finalizing video... This may take a while.")
	log.Printf("[merge] Concatenating %d clip(s), audio=%v", n, hasAudio)
	if err := m.engine.Run(ctx, args); err != nil {
		os.Remove(outPath)
		return "", err
	}

	progress("Finishing up...")
	log.Printf("[merge] ✅ Final video ready: %s", outPath)
	return outPath, nil
}

// stageInputs builds the ffmpeg input argument list: one video input per
// clip, then — if any clip has a voiceover — one audio input per clip in the
// same order, wrapping raw PCM into WAV or substituting a silent pad. The
// index alignment between the two halves is what keeps clip i's audio glued
// to clip i's video.
func (m *Merger) stageInputs(clips []types.Clip, stageDir string, progress ProgressFunc) ([]string, bool, error) {
	hasAudio := false
	for _, c := range clips {
		if len(c.GeneratedAudio) > 0 {
			hasAudio = true
			break
		}
	}

	var args []string
	for i, c := range clips {
		if c.GeneratedVideoPath == "" {
			return nil, false, &types.MergeError{Detail: fmt.Sprintf("clip %d has no generated video", i+1)}
		}
		if _, err := os.Stat(c.GeneratedVideoPath); err != nil {
			return nil, false, &types.MergeError{Detail: fmt.Sprintf("clip %d video missing", i+1), Err: err}
		}
		args = append(args, "-i", c.GeneratedVideoPath)
	}

	if !hasAudio {
		return args, false, nil
	}

	for i, c := range clips {
		if len(c.GeneratedAudio) > 0 {
			progress(fmt.Sprintf("Loading audio data for clip %d...", i+1))
			audioPath := filepath.Join(stageDir, fmt.Sprintf("audio%03d.wav", i))
			if err := os.WriteFile(audioPath, wav.Encode(c.GeneratedAudio), 0644); err != nil {
				return nil, false, &types.MergeError{Detail: fmt.Sprintf("stage audio for clip %d", i+1), Err: err}
			}
			args = append(args, "-i", audioPath)
		} else {
			args = append(args, "-f", "lavfi", "-i", silentSource)
		}
	}
	return args, true, nil
}
