package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Video.PollIntervalSec != 10 {
		t.Errorf("Expected default poll interval 10s, got %d", cfg.Video.PollIntervalSec)
	}
	if cfg.Video.PollMaxAttempts != 60 {
		t.Errorf("Expected default poll cap 60 attempts, got %d", cfg.Video.PollMaxAttempts)
	}
	if cfg.Server.RequestTimeout != 900 {
		t.Errorf("Expected default request timeout 900s, got %d", cfg.Server.RequestTimeout)
	}
	if cfg.Merge.VideoCodec != "libx264" || cfg.Merge.AudioCodec != "aac" {
		t.Errorf("Expected libx264/aac defaults, got %s/%s", cfg.Merge.VideoCodec, cfg.Merge.AudioCodec)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: "9999"
video:
  poll_interval_sec: 2
  poll_max_attempts: 5
merge:
  ffmpeg_binary: /opt/ffmpeg/bin/ffmpeg
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("Expected port 9999, got %q", cfg.Server.Port)
	}
	if cfg.Video.PollIntervalSec != 2 || cfg.Video.PollMaxAttempts != 5 {
		t.Errorf("Poll overrides not applied: %d/%d", cfg.Video.PollIntervalSec, cfg.Video.PollMaxAttempts)
	}
	if cfg.Merge.FFmpegBinary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("FFmpeg binary override not applied: %q", cfg.Merge.FFmpegBinary)
	}
	// Untouched sections still get defaults
	if cfg.Speech.GeminiTTSModel != "gemini-2.5-flash-preview-tts" {
		t.Errorf("Expected default TTS model, got %q", cfg.Speech.GeminiTTSModel)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not: a mapping"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}
