package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Video   VideoConfig   `yaml:"video"`
	Speech  SpeechConfig  `yaml:"speech"`
	Merge   MergeConfig   `yaml:"merge"`
	Upload  UploadConfig  `yaml:"upload"`
	Paths   PathsConfig   `yaml:"paths"`
	Session SessionConfig `yaml:"session"`
}

type ServerConfig struct {
	Port            string `yaml:"port"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes"`
	RequestTimeout  int    `yaml:"request_timeout_sec"`
	AllowAllOrigins bool   `yaml:"allow_all_origins"`
}

type VideoConfig struct {
	GeminiModel        string `yaml:"gemini_model"`
	GeminiBaseURL      string `yaml:"gemini_base_url"`
	CerebrasBaseURL    string `yaml:"cerebras_base_url"`
	PollIntervalSec    int    `yaml:"poll_interval_sec"`
	PollMaxAttempts    int    `yaml:"poll_max_attempts"`
	HTTPTimeoutSec     int    `yaml:"http_timeout_sec"`
	DownloadTimeoutSec int    `yaml:"download_timeout_sec"`
}

type SpeechConfig struct {
	GeminiTTSModel    string `yaml:"gemini_tts_model"`
	GeminiBaseURL     string `yaml:"gemini_base_url"`
	ElevenLabsBaseURL string `yaml:"elevenlabs_base_url"`
	ElevenLabsModel   string `yaml:"elevenlabs_model"`
	HTTPTimeoutSec    int    `yaml:"http_timeout_sec"`
}

type MergeConfig struct {
	FFmpegBinary string `yaml:"ffmpeg_binary"`
	VideoCodec   string `yaml:"video_codec"`
	AudioCodec   string `yaml:"audio_codec"`
	Preset       string `yaml:"preset"`
	CRF          int    `yaml:"crf"`
}

type UploadConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Visibility      string `yaml:"visibility"`
	CategoryID      string `yaml:"category_id"`
	DefaultLanguage string `yaml:"default_language"`
}

type PathsConfig struct {
	Work      string `yaml:"work"`
	Artifacts string `yaml:"artifacts"`
}

type SessionConfig struct {
	SeedDemoClips bool `yaml:"seed_demo_clips"`
}

// Load reads config.yaml and fills in defaults for anything left unset.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		// Missing config file is fine — run on defaults.
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 50 << 20 // base64 image uploads are large
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 900
	}
	if cfg.Video.GeminiModel == "" {
		cfg.Video.GeminiModel = "veo-3.1-fast-generate-preview"
	}
	if cfg.Video.GeminiBaseURL == "" {
		cfg.Video.GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Video.CerebrasBaseURL == "" {
		cfg.Video.CerebrasBaseURL = "https://api.cerebras.net/v1"
	}
	if cfg.Video.PollIntervalSec == 0 {
		cfg.Video.PollIntervalSec = 10
	}
	if cfg.Video.PollMaxAttempts == 0 {
		cfg.Video.PollMaxAttempts = 60
	}
	if cfg.Video.HTTPTimeoutSec == 0 {
		cfg.Video.HTTPTimeoutSec = 60
	}
	if cfg.Video.DownloadTimeoutSec == 0 {
		cfg.Video.DownloadTimeoutSec = 300
	}
	if cfg.Speech.GeminiTTSModel == "" {
		cfg.Speech.GeminiTTSModel = "gemini-2.5-flash-preview-tts"
	}
	if cfg.Speech.GeminiBaseURL == "" {
		cfg.Speech.GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Speech.ElevenLabsBaseURL == "" {
		cfg.Speech.ElevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	}
	if cfg.Speech.ElevenLabsModel == "" {
		cfg.Speech.ElevenLabsModel = "eleven_monolingual_v1"
	}
	if cfg.Speech.HTTPTimeoutSec == 0 {
		cfg.Speech.HTTPTimeoutSec = 120
	}
	if cfg.Merge.FFmpegBinary == "" {
		cfg.Merge.FFmpegBinary = "ffmpeg"
	}
	if cfg.Merge.VideoCodec == "" {
		cfg.Merge.VideoCodec = "libx264"
	}
	if cfg.Merge.AudioCodec == "" {
		cfg.Merge.AudioCodec = "aac"
	}
	if cfg.Merge.Preset == "" {
		cfg.Merge.Preset = "fast"
	}
	if cfg.Merge.CRF == 0 {
		cfg.Merge.CRF = 22
	}
	if cfg.Upload.Visibility == "" {
		cfg.Upload.Visibility = "private"
	}
	if cfg.Upload.CategoryID == "" {
		cfg.Upload.CategoryID = "24" // Entertainment
	}
	if cfg.Upload.DefaultLanguage == "" {
		cfg.Upload.DefaultLanguage = "en"
	}
	if cfg.Paths.Work == "" {
		cfg.Paths.Work = "work"
	}
	if cfg.Paths.Artifacts == "" {
		cfg.Paths.Artifacts = "artifacts"
	}
}
