package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdit/radscribe/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "ws://localhost:8000/rpc", cfg.SurrealDBURL)
	assert.Equal(t, "nova-3-medical", cfg.DeepgramModel)
	assert.Equal(t, "en-AU", cfg.DeepgramLanguage)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 30, cfg.PollIntervalSeconds)
	assert.Equal(t, 10, cfg.BatchSize)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DEEPGRAM_MODEL", "nova-2")
	t.Setenv("RADSCRIBE_LOG_LEVEL", "debug")
	t.Setenv("RADSCRIBE_POLL_INTERVAL_SECONDS", "5")
	t.Setenv("RADSCRIBE_BATCH_SIZE", "not-a-number")

	cfg := Load()
	assert.Equal(t, "nova-2", cfg.DeepgramModel)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 5, cfg.PollIntervalSeconds)
	assert.Equal(t, 10, cfg.BatchSize, "malformed int falls back to the default")
}

func TestSourcesFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - id: metro-visage
    name: Metro Imaging
    kind: visage
    enabled: true
    db_host: ris.metro.local
    db_port: 5432
    db_name: visage_ris
    audio_mode: file
    audio_mount_path: /mnt/visage-audio
  - id: regional-karisma
    name: Regional Imaging
    kind: karisma
    enabled: false
    db_host: ris.regional.local
    poll_interval_seconds: 120
`), 0o644))

	cfg := Config{SourcesFile: path, PollIntervalSeconds: 30, BatchSize: 10}

	all, err := cfg.Sources()
	require.NoError(t, err)
	require.Len(t, all, 2)

	visage := all[0]
	assert.Equal(t, "metro-visage", visage.ID)
	assert.Equal(t, models.KindVisage, visage.Kind)
	assert.Equal(t, models.AudioFile, visage.AudioMode)
	assert.Equal(t, 30, visage.PollIntervalSeconds, "global default applied")
	assert.Equal(t, 10, visage.BatchSize)

	karisma := all[1]
	assert.Equal(t, 120, karisma.PollIntervalSeconds, "per-source override wins")
	assert.Equal(t, models.AudioBlob, karisma.AudioMode, "karisma defaults to blob audio")

	enabled, err := cfg.EnabledSources()
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "metro-visage", enabled[0].ID)
}

func TestSourcesFileMissing(t *testing.T) {
	cfg := Config{SourcesFile: "/nonexistent/sources.yaml"}

	_, err := cfg.Sources()
	assert.Error(t, err)
}

func TestEnvSources(t *testing.T) {
	t.Setenv("VISAGE_ENABLED", "true")
	t.Setenv("VISAGE_DB_HOST", "visage-db")
	t.Setenv("KARISMA_ENABLED", "false")

	cfg := Load()
	sources, err := cfg.Sources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "visage", sources[0].ID)
	assert.Equal(t, models.KindVisage, sources[0].Kind)
	assert.Equal(t, "visage-db", sources[0].DBHost)
	assert.Equal(t, models.AudioFile, sources[0].AudioMode)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}
