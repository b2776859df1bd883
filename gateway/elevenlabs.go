package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"ideagen-pipeline/types"
)

type elevenLabsTTSRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// generateElevenLabsSpeech synthesizes the voiceover as raw PCM. The
// output_format pin matters: the merge stage expects 24 kHz 16-bit mono PCM
// no matter which speech provider produced it.
func (g *Gateway) generateElevenLabsSpeech(ctx context.Context, vc types.VoiceoverConfig) ([]byte, error) {
	apiKey := os.Getenv("ELEVENLABS_API_KEY")
	if apiKey == "" {
		return nil, &types.CredentialError{Provider: "elevenlabs", Detail: "ELEVENLABS_API_KEY is not set"}
	}

	reqBody := elevenLabsTTSRequest{
		Text:    vc.Script,
		ModelID: g.cfg.Speech.ElevenLabsModel,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=pcm_24000", g.cfg.Speech.ElevenLabsBaseURL, vc.Voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.speechClient.Do(req)
	if err != nil {
		return nil, &types.GenerationError{Provider: "elevenlabs", Detail: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.GenerationError{Provider: "elevenlabs", Detail: "read response", Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &types.CredentialError{Provider: "elevenlabs", Detail: elevenLabsDetail(respBytes, resp.Status)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &types.GenerationError{Provider: "elevenlabs", Detail: elevenLabsDetail(respBytes, resp.Status)}
	}
	if len(respBytes) == 0 {
		return nil, &types.GenerationError{Provider: "elevenlabs", Detail: "response contained no audio data"}
	}
	return respBytes, nil
}

// VoiceSample is one uploaded audio sample used for cloning.
type VoiceSample struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
}

type elevenLabsAddVoiceResponse struct {
	VoiceID string `json:"voice_id"`
}

// CloneVoice registers a custom voice with ElevenLabs from one or more audio
// samples and returns its provider-assigned ID.
func (g *Gateway) CloneVoice(ctx context.Context, name string, samples []VoiceSample) (*types.CustomVoice, error) {
	if name == "" {
		return nil, &types.ValidationError{Detail: "voice name is empty"}
	}
	if len(samples) == 0 {
		return nil, &types.ValidationError{Detail: "at least one audio sample is required"}
	}
	apiKey := os.Getenv("ELEVENLABS_API_KEY")
	if apiKey == "" {
		return nil, &types.CredentialError{Provider: "elevenlabs", Detail: "ELEVENLABS_API_KEY is not set"}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("name", name); err != nil {
		return nil, err
	}
	for i, sample := range samples {
		data, err := base64.StdEncoding.DecodeString(sample.Base64)
		if err != nil {
			return nil, &types.ValidationError{Detail: fmt.Sprintf("sample %d is not valid base64", i+1)}
		}
		part, err := writer.CreateFormFile("files", fmt.Sprintf("sample_%d%s", i+1, extensionFor(sample.MimeType)))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Speech.ElevenLabsBaseURL+"/voices/add", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.speechClient.Do(req)
	if err != nil {
		return nil, &types.GenerationError{Provider: "elevenlabs", Detail: "clone voice request failed", Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.GenerationError{Provider: "elevenlabs", Detail: "read response", Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &types.CredentialError{Provider: "elevenlabs", Detail: elevenLabsDetail(respBytes, resp.Status)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &types.GenerationError{Provider: "elevenlabs", Detail: elevenLabsDetail(respBytes, resp.Status)}
	}

	var addResp elevenLabsAddVoiceResponse
	if err := json.Unmarshal(respBytes, &addResp); err != nil {
		return nil, &types.GenerationError{Provider: "elevenlabs", Detail: "parse response", Err: err}
	}
	if addResp.VoiceID == "" {
		return nil, &types.GenerationError{Provider: "elevenlabs", Detail: "response contained no voice id"}
	}
	return &types.CustomVoice{ID: addResp.VoiceID, Name: name}, nil
}

func elevenLabsDetail(body []byte, fallback string) string {
	var eb struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(body, &eb); err == nil && eb.Detail.Message != "" {
		return eb.Detail.Message
	}
	return fallback
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	}
	return ".bin"
}
