package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// DataDir is the root directory for the database and artifact folders
	DataDir string `yaml:"data_dir" env:"VERTICUT_DATA_DIR"`

	// UploadsDir holds raw downloads and staged uploads.
	// If empty, defaults to <data_dir>/uploads.
	UploadsDir string `yaml:"uploads_dir" env:"VERTICUT_UPLOADS_DIR"`

	// ProcessedDir holds canonical pipeline outputs (clips, burned videos).
	// If empty, defaults to <data_dir>/processed.
	ProcessedDir string `yaml:"processed_dir" env:"VERTICUT_PROCESSED_DIR"`

	// CaptionsDir holds subtitle files. If empty, defaults to <data_dir>/captions.
	CaptionsDir string `yaml:"captions_dir" env:"VERTICUT_CAPTIONS_DIR"`

	// DatabasePath is the SQLite database file (default: <data_dir>/verticut.db)
	DatabasePath string `yaml:"database_path" env:"VERTICUT_DATABASE_PATH"`

	// Workers is the number of concurrent job workers (default 4)
	Workers int `yaml:"workers" env:"VERTICUT_WORKERS"`

	// FFmpegPath is the path to the ffmpeg binary (default: "ffmpeg")
	FFmpegPath string `yaml:"ffmpeg_path" env:"VERTICUT_FFMPEG_PATH"`

	// FFprobePath is the path to the ffprobe binary (default: "ffprobe")
	FFprobePath string `yaml:"ffprobe_path" env:"VERTICUT_FFPROBE_PATH"`

	// YtDlpPath is the path to the yt-dlp binary (default: "yt-dlp")
	YtDlpPath string `yaml:"ytdlp_path" env:"VERTICUT_YTDLP_PATH"`

	// WhisperPath is the path to the whisper transcription CLI
	WhisperPath string `yaml:"whisper_path" env:"VERTICUT_WHISPER_PATH"`

	// SceneDetectPath is the path to the scenedetect CLI
	SceneDetectPath string `yaml:"scenedetect_path" env:"VERTICUT_SCENEDETECT_PATH"`

	// DownloadTimeout caps a single download attempt (default 300s)
	DownloadTimeout time.Duration `yaml:"download_timeout" env:"VERTICUT_DOWNLOAD_TIMEOUT"`

	// ProcessTimeout caps a single encoder invocation (default 600s)
	ProcessTimeout time.Duration `yaml:"process_timeout" env:"VERTICUT_PROCESS_TIMEOUT"`

	// ProbeTimeout caps a single ffprobe invocation (default 30s)
	ProbeTimeout time.Duration `yaml:"probe_timeout" env:"VERTICUT_PROBE_TIMEOUT"`

	// WhisperModelDefault is the transcription model used when a job
	// does not name one: tiny, base, small, medium, large
	WhisperModelDefault string `yaml:"whisper_model_default" env:"VERTICUT_WHISPER_MODEL"`

	// JobRetentionDays controls how long terminal jobs are kept (default 30)
	JobRetentionDays int `yaml:"job_retention_days" env:"VERTICUT_JOB_RETENTION_DAYS"`

	// AdminConfigPath is an optional JSON file that seeds/overrides the
	// bootstrap admin passcode and the global proxy on every startup
	AdminConfigPath string `yaml:"admin_config_path" env:"VERTICUT_ADMIN_CONFIG"`

	// Proxy is an optional HTTP proxy handed to the URL fetcher
	Proxy string `yaml:"proxy" env:"VERTICUT_PROXY"`

	// LogLevel controls logging verbosity: debug, info, warn, error (default: info)
	LogLevel string `yaml:"log_level" env:"VERTICUT_LOG_LEVEL"`

	// LogFormat selects "text" or "json" log output (default: text)
	LogFormat string `yaml:"log_format" env:"VERTICUT_LOG_FORMAT"`

	// Port is the HTTP listen port (default 8080)
	Port int `yaml:"port" env:"VERTICUT_PORT"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DataDir:             "data",
		Workers:             4,
		FFmpegPath:          "ffmpeg",
		FFprobePath:         "ffprobe",
		YtDlpPath:           "yt-dlp",
		WhisperPath:         "whisper-ctranslate2",
		SceneDetectPath:     "scenedetect",
		DownloadTimeout:     300 * time.Second,
		ProcessTimeout:      600 * time.Second,
		ProbeTimeout:        30 * time.Second,
		WhisperModelDefault: "tiny",
		JobRetentionDays:    30,
		AdminConfigPath:     "admin_config.json",
		LogLevel:            "info",
		LogFormat:           "text",
		Port:                8080,
	}
}

// Load reads config from a YAML file, applying defaults for missing values
// and overlaying VERTICUT_* environment variables last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		// No config file - create one with defaults
		if saveErr := cfg.Save(path); saveErr != nil {
			fmt.Printf("Warning: Could not create config file: %v\n", saveErr)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:           cfg,
		Lookuper:         envconfig.OsLookuper(),
		DefaultOverwrite: true,
	}); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills empty fields with defaults and derives the artifact
// and database paths from DataDir. Call it again after overriding DataDir
// (and blanking the derived paths) so they re-anchor to the new root.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.UploadsDir == "" {
		c.UploadsDir = filepath.Join(c.DataDir, "uploads")
	}
	if c.ProcessedDir == "" {
		c.ProcessedDir = filepath.Join(c.DataDir, "processed")
	}
	if c.CaptionsDir == "" {
		c.CaptionsDir = filepath.Join(c.DataDir, "captions")
	}
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "verticut.db")
	}
	if c.Workers < 1 {
		c.Workers = d.Workers
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = d.FFmpegPath
	}
	if c.FFprobePath == "" {
		c.FFprobePath = d.FFprobePath
	}
	if c.YtDlpPath == "" {
		c.YtDlpPath = d.YtDlpPath
	}
	if c.WhisperPath == "" {
		c.WhisperPath = d.WhisperPath
	}
	if c.SceneDetectPath == "" {
		c.SceneDetectPath = d.SceneDetectPath
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = d.DownloadTimeout
	}
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = d.ProcessTimeout
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = d.ProbeTimeout
	}
	switch c.WhisperModelDefault {
	case "tiny", "base", "small", "medium", "large":
	default:
		c.WhisperModelDefault = d.WhisperModelDefault
	}
	if c.JobRetentionDays <= 0 {
		c.JobRetentionDays = d.JobRetentionDays
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat != "json" {
		c.LogFormat = d.LogFormat
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
}

// Save writes the config to a YAML file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
