// Package handlers exposes the storyboard pipeline over HTTP: clip CRUD,
// single-clip generation, the sequential generate-all run with streamed
// progress, merge, publish, and session lifecycle.
package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"ideagen-pipeline/config"
	"ideagen-pipeline/gateway"
	"ideagen-pipeline/merge"
	"ideagen-pipeline/orchestrator"
	"ideagen-pipeline/publish"
	"ideagen-pipeline/session"
	"ideagen-pipeline/types"
)

type Handler struct {
	cfg       *config.Config
	session   *session.Session
	gateway   *gateway.Gateway
	orch      *orchestrator.Orchestrator
	merger    *merge.Merger
	publisher *publish.Uploader
}

func New(cfg *config.Config, s *session.Session, gw *gateway.Gateway, orch *orchestrator.Orchestrator, m *merge.Merger, pub *publish.Uploader) *Handler {
	return &Handler{cfg: cfg, session: s, gateway: gw, orch: orch, merger: m, publisher: pub}
}

// Routes registers every endpoint on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.Root)
	mux.HandleFunc("/api/session", h.Session)
	mux.HandleFunc("/api/clips", h.Clips)
	mux.HandleFunc("/api/generate-clip", h.GenerateClip)
	mux.HandleFunc("/api/clone-voice", h.CloneVoice)
	mux.HandleFunc("/api/generate-all", h.GenerateAll)
	mux.HandleFunc("/api/merge", h.Merge)
	mux.HandleFunc("/api/publish", h.Publish)
	mux.HandleFunc("/api/reset", h.Reset)
	mux.Handle("/artifacts/", http.StripPrefix("/artifacts/",
		http.FileServer(http.Dir(h.cfg.Paths.Artifacts))))
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, "Ideagen backend is running! 🚀")
}

type sessionResponse struct {
	Status        types.SessionStatus `json:"status"`
	LastError     string              `json:"lastError,omitempty"`
	FinalVideoURL string              `json:"finalVideoUrl,omitempty"`
	Clips         []types.Clip        `json:"clips"`
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.sessionSnapshot())
}

func (h *Handler) sessionSnapshot() sessionResponse {
	resp := sessionResponse{
		Status:    h.session.Status(),
		LastError: h.session.LastError(),
		Clips:     h.session.Clips(),
	}
	if resp.Clips == nil {
		resp.Clips = []types.Clip{}
	}
	if p := h.session.FinalVideoPath(); p != "" {
		resp.FinalVideoURL = artifactURL(p)
	}
	return resp
}

// Clips is the storyboard CRUD surface: GET lists, POST appends, PUT edits,
// DELETE removes by the id query parameter.
func (h *Handler) Clips(w http.ResponseWriter, r *http.Request) {
	log.Printf("[http] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
	switch r.Method {
	case http.MethodGet:
		clips := h.session.Clips()
		if clips == nil {
			clips = []types.Clip{}
		}
		writeJSON(w, clips)

	case http.MethodPost:
		var clip types.Clip
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxBodyBytes)).Decode(&clip); err != nil {
			writeError(w, &types.ValidationError{Detail: "invalid clip payload"})
			return
		}
		added, err := h.session.AddClip(clip)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, added)

	case http.MethodPut:
		var clip types.Clip
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxBodyBytes)).Decode(&clip); err != nil {
			writeError(w, &types.ValidationError{Detail: "invalid clip payload"})
			return
		}
		updated, err := h.session.UpdateClip(clip)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, updated)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, &types.ValidationError{Detail: "missing clip id"})
			return
		}
		if err := h.session.RemoveClip(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]string{"removed": id})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type generateClipRequest struct {
	Prompt          string                `json:"prompt"`
	Image           *types.ImageFile      `json:"image"`
	VideoConfig     types.VideoConfig     `json:"videoConfig"`
	VoiceoverConfig types.VoiceoverConfig `json:"voiceoverConfig"`
	Engine          string                `json:"engine"`
	VoiceoverEngine string                `json:"voiceoverEngine"`
}

type generateClipResponse struct {
	VideoBase64 string  `json:"videoBase64"`
	AudioBase64 *string `json:"audioBase64"`
}

// GenerateClip generates media for one clip without touching session state.
// Video and audio come back base64-encoded in the JSON body, mirroring what
// the browser front end expects.
func (h *Handler) GenerateClip(w http.ResponseWriter, r *http.Request) {
	log.Printf("[http] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req generateClipRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxBodyBytes)).Decode(&req); err != nil {
		writeError(w, &types.ValidationError{Detail: "invalid request payload"})
		return
	}
	if req.Prompt == "" || req.VideoConfig.AspectRatio == "" || req.VideoConfig.Resolution == "" {
		writeError(w, &types.ValidationError{Detail: "Missing required clip data."})
		return
	}
	sel, err := parseSelection(req.Engine, req.VoiceoverEngine)
	if err != nil {
		writeError(w, err)
		return
	}

	clip := types.Clip{
		Prompt:          req.Prompt,
		Image:           req.Image,
		VideoConfig:     req.VideoConfig,
		VoiceoverConfig: req.VoiceoverConfig,
	}

	media, err := h.gateway.GenerateClipMedia(r.Context(), &clip, sel)
	if err != nil {
		log.Printf("[http] ❌ generate-clip failed: %v", err)
		writeError(w, err)
		return
	}

	videoBytes, err := os.ReadFile(media.VideoPath)
	if err != nil {
		writeError(w, &types.GenerationError{Provider: string(sel.Video), Detail: "read generated video", Err: err})
		return
	}

	resp := generateClipResponse{VideoBase64: base64.StdEncoding.EncodeToString(videoBytes)}
	if len(media.AudioPCM) > 0 {
		encoded := base64.StdEncoding.EncodeToString(media.AudioPCM)
		resp.AudioBase64 = &encoded
	}
	writeJSON(w, resp)
}

type cloneVoiceRequest struct {
	Name  string                `json:"name"`
	Files []gateway.VoiceSample `json:"files"`
}

func (h *Handler) CloneVoice(w http.ResponseWriter, r *http.Request) {
	log.Printf("[http] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cloneVoiceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxBodyBytes)).Decode(&req); err != nil {
		writeError(w, &types.ValidationError{Detail: "invalid request payload"})
		return
	}

	voice, err := h.gateway.CloneVoice(r.Context(), req.Name, req.Files)
	if err != nil {
		log.Printf("[http] ❌ clone-voice failed: %v", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(voice)
}

type generateAllRequest struct {
	Engine          string   `json:"engine"`
	VoiceoverEngine string   `json:"voiceoverEngine"`
	ClipIDs         []string `json:"clipIds,omitempty"` // empty means every clip
}

// GenerateAll runs the sequential generation pass over the whole storyboard,
// streaming per-clip progress as server-sent events. The final event carries
// either the completed session snapshot or the run's error message.
func (h *Handler) GenerateAll(w http.ResponseWriter, r *http.Request) {
	log.Printf("[http] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req generateAllRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, &types.ValidationError{Detail: "invalid request payload"})
		return
	}
	sel, err := parseSelection(req.Engine, req.VoiceoverEngine)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	sendEvent := func(payload any) {
		data, _ := json.Marshal(payload)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	progress := func(index, total int, message string) {
		sendEvent(map[string]any{"current": index, "total": total, "status": message})
	}

	runErr := h.orch.GenerateSubset(r.Context(), h.session, req.ClipIDs, sel, progress)
	if runErr != nil {
		// Precondition failures abort before the run starts, so the session
		// never recorded a message for them — and whatever it holds belongs
		// to an earlier run. Report the error itself in that case.
		msg := h.session.LastError()
		var valErr *types.ValidationError
		if errors.As(runErr, &valErr) || msg == "" {
			msg = runErr.Error()
		}
		sendEvent(map[string]any{"done": true, "error": msg})
		return
	}
	sendEvent(map[string]any{"done": true, "session": h.sessionSnapshot()})
}

type mergeResponse struct {
	FinalVideoURL string `json:"finalVideoUrl"`
}

// Merge concatenates all generated clips into the final artifact.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	log.Printf("[http] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ready, err := h.session.BeginMerge()
	if err != nil {
		writeError(w, err)
		return
	}

	outPath, err := h.merger.MergeReadyClips(r.Context(), ready, func(message string) {
		log.Printf("[merge] %s", message)
	})
	if err != nil {
		h.session.FinishMerge("", fmt.Sprintf("Failed to merge videos: %v", err))
		log.Printf("[http] ❌ merge failed: %v", err)
		writeError(w, err)
		return
	}

	h.session.FinishMerge(outPath, "")
	writeJSON(w, mergeResponse{FinalVideoURL: artifactURL(outPath)})
}

type publishRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type publishResponse struct {
	VideoID  string `json:"videoId"`
	VideoURL string `json:"videoUrl"`
}

// Publish uploads the merged artifact to YouTube. Only valid once the
// session is done and uploading is enabled in config.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	log.Printf("[http] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.cfg.Upload.Enabled {
		writeError(w, &types.ValidationError{Detail: "uploading is disabled in config"})
		return
	}
	if h.session.Status() != types.StatusDone {
		writeError(w, &types.ValidationError{Detail: "no finished video to publish"})
		return
	}

	var req publishRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, &types.ValidationError{Detail: "invalid request payload"})
		return
	}
	if req.Title == "" {
		writeError(w, &types.ValidationError{Detail: "title is required"})
		return
	}

	videoID, videoURL, err := h.publisher.Upload(r.Context(), h.session.FinalVideoPath(), publish.Metadata{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		log.Printf("[http] ❌ publish failed: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, publishResponse{VideoID: videoID, VideoURL: videoURL})
}

// Reset clears the storyboard and returns the session to editing.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	log.Printf("[http] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.session.Reset()
	writeJSON(w, h.sessionSnapshot())
}

func parseSelection(engine, voiceoverEngine string) (types.EngineSelection, error) {
	video, err := types.ParseVideoEngine(engine)
	if err != nil {
		return types.EngineSelection{}, err
	}
	speech, err := types.ParseSpeechEngine(voiceoverEngine)
	if err != nil {
		return types.EngineSelection{}, err
	}
	return types.EngineSelection{Video: video, Speech: speech}, nil
}

func artifactURL(path string) string {
	return "/artifacts/" + filepath.Base(path)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[http] write response: %v", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Credential errors
// get 401 so a client can distinguish "pick your key again" from a failed
// generation.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var validationErr *types.ValidationError
	var credErr *types.CredentialError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &credErr):
		status = http.StatusUnauthorized
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
}
