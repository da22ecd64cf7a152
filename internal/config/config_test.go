package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verticut/verticut/internal/config"
)

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verticut.yaml")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Workers)
	require.Equal(t, "ffmpeg", cfg.FFmpegPath)
	require.Equal(t, 300*time.Second, cfg.DownloadTimeout)
	require.Equal(t, 600*time.Second, cfg.ProcessTimeout)
	require.Equal(t, "tiny", cfg.WhisperModelDefault)

	// derived paths hang off the data dir
	require.Equal(t, filepath.Join(cfg.DataDir, "uploads"), cfg.UploadsDir)
	require.Equal(t, filepath.Join(cfg.DataDir, "processed"), cfg.ProcessedDir)
	require.Equal(t, filepath.Join(cfg.DataDir, "captions"), cfg.CaptionsDir)
	require.Equal(t, filepath.Join(cfg.DataDir, "verticut.db"), cfg.DatabasePath)

	// the defaults were persisted for next time
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verticut.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"data_dir: /srv/verticut\nworkers: 8\nlog_level: debug\nwhisper_model_default: garbage\n"), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/srv/verticut", cfg.DataDir)
	require.Equal(t, 8, cfg.Workers)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "tiny", cfg.WhisperModelDefault, "invalid model size falls back")
	require.Equal(t, "/srv/verticut/uploads", cfg.UploadsDir)
}

func TestApplyDefaultsRederivesPathsAfterDataDirOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verticut.yaml")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	cfg.DataDir = "/mnt/other"
	cfg.UploadsDir = ""
	cfg.ProcessedDir = ""
	cfg.CaptionsDir = ""
	cfg.DatabasePath = ""
	cfg.ApplyDefaults()

	require.Equal(t, "/mnt/other/uploads", cfg.UploadsDir)
	require.Equal(t, "/mnt/other/processed", cfg.ProcessedDir)
	require.Equal(t, "/mnt/other/captions", cfg.CaptionsDir)
	require.Equal(t, "/mnt/other/verticut.db", cfg.DatabasePath)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verticut.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0644))

	t.Setenv("VERTICUT_WORKERS", "6")
	t.Setenv("VERTICUT_PROXY", "http://proxy:3128")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 6, cfg.Workers)
	require.Equal(t, "http://proxy:3128", cfg.Proxy)
}
