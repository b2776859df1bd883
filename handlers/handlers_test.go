package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ideagen-pipeline/config"
	"ideagen-pipeline/gateway"
	"ideagen-pipeline/merge"
	"ideagen-pipeline/orchestrator"
	"ideagen-pipeline/session"
	"ideagen-pipeline/types"
)

// cerebrasVideoStub answers the synchronous Cerebras video endpoint with a
// fixed inline payload, so handler tests can drive real generation without
// touching any provider.
func cerebrasVideoStub(t *testing.T, videoBytes []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video/generations" {
			t.Errorf("Unexpected provider path %q", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"videoBase64": base64.StdEncoding.EncodeToString(videoBytes),
		})
	}))
}

func newTestHandler(t *testing.T, providerURL string) (*Handler, *session.Session, *http.ServeMux) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.MaxBodyBytes = 1 << 20
	cfg.Paths.Work = t.TempDir()
	cfg.Paths.Artifacts = t.TempDir()
	cfg.Video.CerebrasBaseURL = providerURL
	cfg.Video.GeminiBaseURL = providerURL
	cfg.Video.HTTPTimeoutSec = 5
	cfg.Speech.GeminiBaseURL = providerURL
	cfg.Speech.ElevenLabsBaseURL = providerURL
	cfg.Speech.HTTPTimeoutSec = 5
	cfg.Merge.FFmpegBinary = "no-such-ffmpeg-binary"

	s := session.New()
	gw := gateway.New(cfg)
	h := New(cfg, s, gw, orchestrator.New(gw), merge.New(cfg), nil)
	mux := http.NewServeMux()
	h.Routes(mux)
	return h, s, mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestRootAndSessionSnapshot(t *testing.T) {
	_, _, mux := newTestHandler(t, "http://unused.invalid")

	rec := doJSON(t, mux, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "running") {
		t.Errorf("Root probe failed: %d %q", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/session", nil)
	var snap sessionResponse
	decodeBody(t, rec, &snap)
	if snap.Status != types.StatusEditing {
		t.Errorf("Fresh session must be editing, got %q", snap.Status)
	}
	if snap.Clips == nil || len(snap.Clips) != 0 {
		t.Errorf("Fresh session must report an empty clip array, got %v", snap.Clips)
	}
}

func TestClipsCRUD(t *testing.T) {
	_, _, mux := newTestHandler(t, "http://unused.invalid")

	rec := doJSON(t, mux, http.MethodPost, "/api/clips", types.Clip{Prompt: "a harbor at night"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Add clip failed: %d %s", rec.Code, rec.Body.String())
	}
	var added types.Clip
	decodeBody(t, rec, &added)
	if added.ID == "" {
		t.Fatal("Added clip must get an ID")
	}

	added.Prompt = "a harbor at dawn"
	rec = doJSON(t, mux, http.MethodPut, "/api/clips", added)
	if rec.Code != http.StatusOK {
		t.Fatalf("Update clip failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/clips", nil)
	var clips []types.Clip
	decodeBody(t, rec, &clips)
	if len(clips) != 1 || clips[0].Prompt != "a harbor at dawn" {
		t.Errorf("Clip list wrong after update: %+v", clips)
	}

	rec = doJSON(t, mux, http.MethodDelete, "/api/clips", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Delete without id must 400, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodDelete, "/api/clips?id="+added.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Delete clip failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/clips", nil)
	clips = nil
	decodeBody(t, rec, &clips)
	if len(clips) != 0 {
		t.Errorf("Clip list must be empty after delete: %+v", clips)
	}
}

func TestGenerateClipValidation(t *testing.T) {
	_, _, mux := newTestHandler(t, "http://unused.invalid")

	rec := doJSON(t, mux, http.MethodPost, "/api/generate-clip", map[string]any{
		"prompt": "", "engine": "gemini", "voiceoverEngine": "gemini",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Missing fields must 400, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["message"] != "Missing required clip data." {
		t.Errorf("Wrong validation message: %q", body["message"])
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/generate-clip", map[string]any{
		"prompt":          "x",
		"videoConfig":     types.VideoConfig{AspectRatio: "16:9", Resolution: "720p"},
		"engine":          "sora",
		"voiceoverEngine": "gemini",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Unknown engine must 400, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/generate-clip", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET must 405, got %d", rec.Code)
	}
}

func TestGenerateClipReturnsInlineMedia(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "cb-key")
	videoBytes := []byte("tiny mp4")
	srv := cerebrasVideoStub(t, videoBytes)
	defer srv.Close()
	_, _, mux := newTestHandler(t, srv.URL)

	rec := doJSON(t, mux, http.MethodPost, "/api/generate-clip", map[string]any{
		"prompt":          "a red balloon",
		"videoConfig":     types.VideoConfig{AspectRatio: "16:9", Resolution: "720p"},
		"engine":          "cerebras",
		"voiceoverEngine": "gemini",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate-clip failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp generateClipResponse
	decodeBody(t, rec, &resp)
	decoded, err := base64.StdEncoding.DecodeString(resp.VideoBase64)
	if err != nil || string(decoded) != string(videoBytes) {
		t.Errorf("Video payload mismatch: %q (%v)", decoded, err)
	}
	if resp.AudioBase64 != nil {
		t.Error("Clip without a script must return null audio")
	}
}

func TestGenerateClipCredentialError(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "")
	_, _, mux := newTestHandler(t, "http://unused.invalid")

	rec := doJSON(t, mux, http.MethodPost, "/api/generate-clip", map[string]any{
		"prompt":          "a red balloon",
		"videoConfig":     types.VideoConfig{AspectRatio: "16:9", Resolution: "720p"},
		"engine":          "cerebras",
		"voiceoverEngine": "gemini",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Missing key must 401, got %d %s", rec.Code, rec.Body.String())
	}
}

// sseEvents splits a text/event-stream body into its decoded data payloads.
func sseEvents(t *testing.T, body string) []map[string]any {
	t.Helper()
	var events []map[string]any
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("Bad SSE payload %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestGenerateAllStreamsProgress(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "cb-key")
	srv := cerebrasVideoStub(t, []byte("clip bytes"))
	defer srv.Close()
	_, s, mux := newTestHandler(t, srv.URL)
	if err := s.Seed([]types.Clip{{Prompt: "one"}, {Prompt: "two"}}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, mux, http.MethodPost, "/api/generate-all", map[string]any{
		"engine": "cerebras", "voiceoverEngine": "gemini",
	})
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Expected SSE content type, got %q", ct)
	}

	events := sseEvents(t, rec.Body.String())
	if len(events) < 3 {
		t.Fatalf("Expected progress plus final event, got %d: %v", len(events), events)
	}
	first := events[0]
	if first["current"] != float64(1) || first["total"] != float64(2) {
		t.Errorf("First progress event wrong: %v", first)
	}
	final := events[len(events)-1]
	if final["done"] != true {
		t.Errorf("Final event must carry done, got %v", final)
	}
	if _, ok := final["session"]; !ok {
		t.Errorf("Successful run must end with a session snapshot, got %v", final)
	}

	if s.Status() != types.StatusEditing {
		t.Errorf("Session must return to editing, got %q", s.Status())
	}
	for i, c := range s.Clips() {
		if c.GeneratedVideoPath == "" {
			t.Errorf("Clip %d has no generated video after the run", i+1)
		}
	}
}

func TestGenerateAllReportsCredentialFailure(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "")
	_, s, mux := newTestHandler(t, "http://unused.invalid")
	if err := s.Seed([]types.Clip{{Prompt: "one"}}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, mux, http.MethodPost, "/api/generate-all", map[string]any{
		"engine": "cerebras", "voiceoverEngine": "gemini",
	})
	events := sseEvents(t, rec.Body.String())
	if len(events) == 0 {
		t.Fatal("Expected at least the final event")
	}
	final := events[len(events)-1]
	errMsg, _ := final["error"].(string)
	if final["done"] != true || !strings.Contains(errMsg, "API key not found or invalid") {
		t.Errorf("Final event must carry the re-auth message, got %v", final)
	}
	if s.Status() != types.StatusEditing {
		t.Errorf("Failed run must return the session to editing, got %q", s.Status())
	}
}

func TestGenerateAllPreconditionMessage(t *testing.T) {
	t.Setenv("CEREBRAS_API_KEY", "")
	_, s, mux := newTestHandler(t, "http://unused.invalid")

	// A failed run first, so the session holds an older error message.
	if err := s.Seed([]types.Clip{{Prompt: "one"}}); err != nil {
		t.Fatal(err)
	}
	rec := doJSON(t, mux, http.MethodPost, "/api/generate-all", map[string]any{
		"engine": "cerebras", "voiceoverEngine": "gemini",
	})
	events := sseEvents(t, rec.Body.String())
	if msg, _ := events[len(events)-1]["error"].(string); !strings.Contains(msg, "API key") {
		t.Fatalf("Setup run should fail on credentials, got %v", events[len(events)-1])
	}

	// A run that fails its precondition check never starts, so its final
	// event must carry the precondition error, not the previous run's.
	if err := s.Seed([]types.Clip{{Prompt: "one"}, {Prompt: ""}}); err != nil {
		t.Fatal(err)
	}
	rec = doJSON(t, mux, http.MethodPost, "/api/generate-all", map[string]any{
		"engine": "cerebras", "voiceoverEngine": "gemini",
	})
	events = sseEvents(t, rec.Body.String())
	final := events[len(events)-1]
	msg, _ := final["error"].(string)
	if final["done"] != true || !strings.Contains(msg, "empty prompt") {
		t.Errorf("Final event must name the precondition failure, got %v", final)
	}
	if strings.Contains(msg, "API key") {
		t.Errorf("Final event must not reuse the previous run's message: %q", msg)
	}
}

func TestMergeWithNothingGenerated(t *testing.T) {
	_, s, mux := newTestHandler(t, "http://unused.invalid")
	if err := s.Seed([]types.Clip{{Prompt: "one"}}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, mux, http.MethodPost, "/api/merge", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Merge of zero ready clips must 500, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if !strings.Contains(body["message"], "nothing to merge") {
		t.Errorf("Wrong merge error: %q", body["message"])
	}
	if s.Status() != types.StatusEditing {
		t.Errorf("Failed merge must return to editing, got %q", s.Status())
	}
	if s.LastError() == "" {
		t.Error("Failed merge must record the error on the session")
	}
}

func TestPublishDisabled(t *testing.T) {
	_, _, mux := newTestHandler(t, "http://unused.invalid")
	rec := doJSON(t, mux, http.MethodPost, "/api/publish", map[string]any{"title": "My Video"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Publish with uploads disabled must 400, got %d", rec.Code)
	}
}

func TestResetClearsSession(t *testing.T) {
	_, s, mux := newTestHandler(t, "http://unused.invalid")
	if err := s.Seed([]types.Clip{{Prompt: "one"}}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, mux, http.MethodPost, "/api/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Reset failed: %d", rec.Code)
	}
	var snap sessionResponse
	decodeBody(t, rec, &snap)
	if snap.Status != types.StatusEditing || len(snap.Clips) != 0 {
		t.Errorf("Reset must return an empty editing session, got %+v", snap)
	}
}

func TestCORSMiddleware(t *testing.T) {
	_, _, mux := newTestHandler(t, "http://unused.invalid")
	wrapped := WithCORS(mux)

	req := httptest.NewRequest(http.MethodOptions, "/api/clips", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Preflight must 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Preflight must set the allow-origin header")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Plain requests must also carry the allow-origin header")
	}
}
