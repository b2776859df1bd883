// Package gateway is the boundary between the storyboard pipeline and the
// remote generation providers. It hides which provider answered and
// normalizes provider failures into the small error taxonomy in types.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ideagen-pipeline/config"
	"ideagen-pipeline/types"
)

// Gateway generates one clip's media at a time. It never mutates session
// state; results are handed back to the caller to reconcile.
type Gateway struct {
	cfg          *config.Config
	videoClient  *http.Client
	speechClient *http.Client
	clipDir      string
}

// New creates a Gateway that stores generated video files under the
// configured work directory.
func New(cfg *config.Config) *Gateway {
	return &Gateway{
		cfg:          cfg,
		videoClient:  &http.Client{Timeout: time.Duration(cfg.Video.HTTPTimeoutSec) * time.Second},
		speechClient: &http.Client{Timeout: time.Duration(cfg.Speech.HTTPTimeoutSec) * time.Second},
		clipDir:      filepath.Join(cfg.Paths.Work, "clips"),
	}
}

type videoResult struct {
	path string
	err  error
}

type audioResult struct {
	pcm []byte
	err error
}

// GenerateClipMedia requests video generation unconditionally and speech
// generation only when the clip has a voiceover script. The two requests are
// independent and run concurrently; the call returns only once both have
// resolved. A usable video payload is mandatory on success.
func (g *Gateway) GenerateClipMedia(ctx context.Context, clip *types.Clip, sel types.EngineSelection) (*types.ClipMedia, error) {
	if clip.Prompt == "" {
		return nil, &types.ValidationError{Detail: "clip prompt is empty"}
	}
	if err := os.MkdirAll(g.clipDir, 0755); err != nil {
		return nil, fmt.Errorf("create clip dir: %w", err)
	}

	videoCh := make(chan videoResult, 1)
	audioCh := make(chan audioResult, 1)

	go func() {
		path, err := g.generateVideo(ctx, clip, sel.Video)
		videoCh <- videoResult{path: path, err: err}
	}()

	if clip.HasVoiceover() {
		go func() {
			pcm, err := g.generateSpeech(ctx, clip.VoiceoverConfig, sel.Speech)
			audioCh <- audioResult{pcm: pcm, err: err}
		}()
	} else {
		audioCh <- audioResult{}
	}

	video := <-videoCh
	audio := <-audioCh

	// A credential failure on either leg should win over a generic one so the
	// caller prompts for re-authentication instead of showing a vague error.
	var credErr *types.CredentialError
	if errors.As(video.err, &credErr) {
		return nil, video.err
	}
	if errors.As(audio.err, &credErr) {
		discardVideo(video)
		return nil, audio.err
	}
	if video.err != nil {
		return nil, video.err
	}
	if audio.err != nil {
		discardVideo(video)
		return nil, audio.err
	}

	return &types.ClipMedia{VideoPath: video.path, AudioPCM: audio.pcm}, nil
}

// discardVideo removes a downloaded video whose clip failed on the audio leg,
// so an aborted clip leaves nothing behind in the work directory.
func discardVideo(video videoResult) {
	if video.err == nil && video.path != "" {
		os.Remove(video.path)
	}
}

func (g *Gateway) generateVideo(ctx context.Context, clip *types.Clip, engine types.VideoEngine) (string, error) {
	switch engine {
	case types.VideoEngineGemini:
		return g.generateGeminiVideo(ctx, clip)
	case types.VideoEngineCerebras:
		return g.generateCerebrasVideo(ctx, clip)
	}
	return "", &types.ValidationError{Detail: fmt.Sprintf("unknown video engine %q", engine)}
}

func (g *Gateway) generateSpeech(ctx context.Context, vc types.VoiceoverConfig, engine types.SpeechEngine) ([]byte, error) {
	switch engine {
	case types.SpeechEngineGemini:
		return g.generateGeminiSpeech(ctx, vc)
	case types.SpeechEngineElevenLabs:
		return g.generateElevenLabsSpeech(ctx, vc)
	}
	return nil, &types.ValidationError{Detail: fmt.Sprintf("unknown voiceover engine %q", engine)}
}

// geminiAPIKey returns the configured Gemini credential, accepting either of
// the two env names the provider documents.
func geminiAPIKey() (string, error) {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	if key == "" {
		return "", &types.CredentialError{Provider: "gemini", Detail: "GEMINI_API_KEY or GOOGLE_API_KEY is not set"}
	}
	return key, nil
}
