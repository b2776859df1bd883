package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ideagen-pipeline/types"
)

// Veo video generation is a long-running operation: start it, then poll the
// returned operation name until it reports done, then download the video.

type geminiVideoRequest struct {
	Instances  []geminiVideoInstance `json:"instances"`
	Parameters geminiVideoParameters `json:"parameters"`
}

type geminiVideoInstance struct {
	Prompt string           `json:"prompt"`
	Image  *geminiImageData `json:"image,omitempty"`
}

type geminiImageData struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type geminiVideoParameters struct {
	AspectRatio string `json:"aspectRatio"`
	Resolution  string `json:"resolution"`
	SampleCount int    `json:"sampleCount"`
}

type geminiOperation struct {
	Name     string        `json:"name"`
	Done     bool          `json:"done"`
	Error    *geminiStatus `json:"error"`
	Response *struct {
		GeneratedVideos []struct {
			Video struct {
				URI string `json:"uri"`
			} `json:"video"`
		} `json:"generatedVideos"`
	} `json:"response"`
}

type geminiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type geminiErrorBody struct {
	Error *geminiStatus `json:"error"`
}

func (g *Gateway) generateGeminiVideo(ctx context.Context, clip *types.Clip) (string, error) {
	key, err := geminiAPIKey()
	if err != nil {
		return "", err
	}

	reqBody := geminiVideoRequest{
		Instances: []geminiVideoInstance{{Prompt: clip.Prompt}},
		Parameters: geminiVideoParameters{
			AspectRatio: clip.VideoConfig.AspectRatio,
			Resolution:  clip.VideoConfig.Resolution,
			SampleCount: 1,
		},
	}
	if clip.Image != nil {
		reqBody.Instances[0].Image = &geminiImageData{
			BytesBase64Encoded: clip.Image.Base64,
			MimeType:           clip.Image.MimeType,
		}
	}

	startURL := fmt.Sprintf("%s/models/%s:predictLongRunning?key=%s",
		g.cfg.Video.GeminiBaseURL, g.cfg.Video.GeminiModel, key)
	var op geminiOperation
	if err := g.postGeminiJSON(ctx, g.videoClient, startURL, reqBody, &op); err != nil {
		return "", err
	}
	if op.Name == "" {
		return "", &types.GenerationError{Provider: "gemini", Detail: "video operation was not created"}
	}

	op, err = g.pollGeminiOperation(ctx, op.Name, key)
	if err != nil {
		return "", err
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video.URI == "" {
		return "", &types.GenerationError{Provider: "gemini", Detail: "video generation succeeded, but no download link was found"}
	}

	return g.downloadGeminiVideo(ctx, op.Response.GeneratedVideos[0].Video.URI, key)
}

// pollGeminiOperation polls at the configured interval until the operation is
// done or the attempt cap is hit. The cap keeps a wedged provider operation
// from suspending the run forever.
func (g *Gateway) pollGeminiOperation(ctx context.Context, name, key string) (geminiOperation, error) {
	interval := time.Duration(g.cfg.Video.PollIntervalSec) * time.Second
	opURL := fmt.Sprintf("%s/%s?key=%s", g.cfg.Video.GeminiBaseURL, name, key)

	for attempt := 1; attempt <= g.cfg.Video.PollMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return geminiOperation{}, &types.GenerationError{Provider: "gemini", Detail: "video generation canceled", Err: ctx.Err()}
		case <-time.After(interval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
		if err != nil {
			return geminiOperation{}, err
		}
		resp, err := g.videoClient.Do(req)
		if err != nil {
			return geminiOperation{}, &types.GenerationError{Provider: "gemini", Detail: "poll video operation", Err: err}
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return geminiOperation{}, &types.GenerationError{Provider: "gemini", Detail: "read poll response", Err: err}
		}
		if resp.StatusCode != http.StatusOK {
			return geminiOperation{}, classifyGemini(resp.StatusCode, body)
		}

		var op geminiOperation
		if err := json.Unmarshal(body, &op); err != nil {
			return geminiOperation{}, &types.GenerationError{Provider: "gemini", Detail: "parse poll response", Err: err}
		}
		if op.Error != nil {
			return geminiOperation{}, classifyGeminiStatus(op.Error)
		}
		if op.Done {
			return op, nil
		}
		log.Printf("[gateway] Veo operation still running (attempt %d/%d)", attempt, g.cfg.Video.PollMaxAttempts)
	}

	return geminiOperation{}, &types.GenerationError{
		Provider: "gemini",
		Detail:   fmt.Sprintf("video generation did not finish within %d poll attempts", g.cfg.Video.PollMaxAttempts),
	}
}

func (g *Gateway) downloadGeminiVideo(ctx context.Context, uri, key string) (string, error) {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri+sep+"key="+key, nil)
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: time.Duration(g.cfg.Video.DownloadTimeoutSec) * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", &types.GenerationError{Provider: "gemini", Detail: "download video", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &types.GenerationError{Provider: "gemini", Detail: fmt.Sprintf("failed to download video: %s", resp.Status)}
	}

	outPath := filepath.Join(g.clipDir, uuid.NewString()+".mp4")
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create video file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(outPath)
		return "", &types.GenerationError{Provider: "gemini", Detail: "write video file", Err: err}
	}
	return outPath, nil
}

// Gemini TTS returns raw 24 kHz 16-bit mono PCM as base64 inline data.

type geminiTTSRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities"`
	SpeechConfig       geminiSpeechConfig `json:"speechConfig"`
}

type geminiSpeechConfig struct {
	VoiceConfig geminiVoiceConfig `json:"voiceConfig"`
}

type geminiVoiceConfig struct {
	PrebuiltVoiceConfig geminiPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type geminiPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type geminiTTSResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gateway) generateGeminiSpeech(ctx context.Context, vc types.VoiceoverConfig) ([]byte, error) {
	key, err := geminiAPIKey()
	if err != nil {
		return nil, err
	}

	reqBody := geminiTTSRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: vc.Script}}}},
		GenerationConfig: geminiGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: geminiSpeechConfig{
				VoiceConfig: geminiVoiceConfig{
					PrebuiltVoiceConfig: geminiPrebuiltVoice{VoiceName: vc.Voice},
				},
			},
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.cfg.Speech.GeminiBaseURL, g.cfg.Speech.GeminiTTSModel, key)
	var ttsResp geminiTTSResponse
	if err := g.postGeminiJSON(ctx, g.speechClient, url, reqBody, &ttsResp); err != nil {
		return nil, err
	}

	if len(ttsResp.Candidates) == 0 || len(ttsResp.Candidates[0].Content.Parts) == 0 ||
		ttsResp.Candidates[0].Content.Parts[0].InlineData == nil {
		return nil, &types.GenerationError{Provider: "gemini", Detail: "audio generation failed, no audio data received"}
	}

	pcm, err := base64.StdEncoding.DecodeString(ttsResp.Candidates[0].Content.Parts[0].InlineData.Data)
	if err != nil {
		return nil, &types.GenerationError{Provider: "gemini", Detail: "decode audio payload", Err: err}
	}
	return pcm, nil
}

func (g *Gateway) postGeminiJSON(ctx context.Context, client *http.Client, url string, in, out any) error {
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &types.GenerationError{Provider: "gemini", Detail: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &types.GenerationError{Provider: "gemini", Detail: "read response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return classifyGemini(resp.StatusCode, respBytes)
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return &types.GenerationError{Provider: "gemini", Detail: "parse response", Err: err}
	}
	return nil
}

// classifyGemini turns a non-200 Gemini response into one of the error
// taxonomy kinds. Credential problems are detected from the HTTP status and
// from the provider's own status/message fields; the message substrings
// mirror the provider's current wording and are inherently brittle to it.
func classifyGemini(statusCode int, body []byte) error {
	var eb geminiErrorBody
	_ = json.Unmarshal(body, &eb)

	detail := strings.TrimSpace(string(body))
	status := ""
	if eb.Error != nil {
		detail = eb.Error.Message
		status = eb.Error.Status
	}

	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden ||
		status == "UNAUTHENTICATED" || status == "PERMISSION_DENIED" {
		return &types.CredentialError{Provider: "gemini", Detail: detail}
	}
	return classifyGeminiStatus(&geminiStatus{Code: statusCode, Message: detail, Status: status})
}

func classifyGeminiStatus(st *geminiStatus) error {
	msg := st.Message
	if strings.Contains(msg, "API key not valid") ||
		strings.Contains(msg, "API_KEY_INVALID") ||
		strings.Contains(msg, "Requested entity was not found") {
		return &types.CredentialError{Provider: "gemini", Detail: msg}
	}
	if msg == "" {
		msg = fmt.Sprintf("provider error (status %d)", st.Code)
	}
	return &types.GenerationError{Provider: "gemini", Detail: msg}
}
