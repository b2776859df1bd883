package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"ideagen-pipeline/types"
)

type cerebrasVideoRequest struct {
	Prompt      string           `json:"prompt"`
	AspectRatio string           `json:"aspect_ratio"`
	Resolution  string           `json:"resolution"`
	Image       *geminiImageData `json:"image,omitempty"`
}

type cerebrasVideoResponse struct {
	VideoBase64 string `json:"videoBase64"`
	Message     string `json:"message"`
}

// generateCerebrasVideo calls the Cerebras video endpoint. Unlike Veo this is
// a single synchronous request returning the video inline as base64.
func (g *Gateway) generateCerebrasVideo(ctx context.Context, clip *types.Clip) (string, error) {
	apiKey := os.Getenv("CEREBRAS_API_KEY")
	if apiKey == "" {
		return "", &types.CredentialError{Provider: "cerebras", Detail: "CEREBRAS_API_KEY is not set"}
	}

	reqBody := cerebrasVideoRequest{
		Prompt:      clip.Prompt,
		AspectRatio: clip.VideoConfig.AspectRatio,
		Resolution:  clip.VideoConfig.Resolution,
	}
	if clip.Image != nil {
		reqBody.Image = &geminiImageData{
			BytesBase64Encoded: clip.Image.Base64,
			MimeType:           clip.Image.MimeType,
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.Video.CerebrasBaseURL+"/video/generations", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.videoClient.Do(req)
	if err != nil {
		return "", &types.GenerationError{Provider: "cerebras", Detail: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &types.GenerationError{Provider: "cerebras", Detail: "read response", Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &types.CredentialError{Provider: "cerebras", Detail: errorMessage(respBytes, resp.Status)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &types.GenerationError{Provider: "cerebras", Detail: errorMessage(respBytes, resp.Status)}
	}

	var videoResp cerebrasVideoResponse
	if err := json.Unmarshal(respBytes, &videoResp); err != nil {
		return "", &types.GenerationError{Provider: "cerebras", Detail: "parse response", Err: err}
	}
	if videoResp.VideoBase64 == "" {
		return "", &types.GenerationError{Provider: "cerebras", Detail: "response contained no video data"}
	}

	video, err := base64.StdEncoding.DecodeString(videoResp.VideoBase64)
	if err != nil {
		return "", &types.GenerationError{Provider: "cerebras", Detail: "decode video payload", Err: err}
	}

	outPath := filepath.Join(g.clipDir, uuid.NewString()+".mp4")
	if err := os.WriteFile(outPath, video, 0644); err != nil {
		return "", fmt.Errorf("write video file: %w", err)
	}
	return outPath, nil
}

// errorMessage pulls a {"message": ...} body apart, falling back to the HTTP
// status line.
func errorMessage(body []byte, fallback string) string {
	var eb struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
		return eb.Message
	}
	return fallback
}
