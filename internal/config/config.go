// Package config loads RadScribe configuration from environment variables and
// an optional YAML sources file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/crowdit/radscribe/internal/models"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection (work items, watermarks, doctor profiles)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Deepgram
	DeepgramAPIKey   string
	DeepgramBaseURL  string
	DeepgramModel    string
	DeepgramLanguage string

	// Sources file; when set it wins over the env-derived source list
	SourcesFile string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Polling defaults, used when a source doesn't override them
	PollIntervalSeconds int
	BatchSize           int
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "radscribe"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "pipeline"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		DeepgramAPIKey:   getEnv("DEEPGRAM_API_KEY", ""),
		DeepgramBaseURL:  getEnv("DEEPGRAM_BASE_URL", "https://api.deepgram.com"),
		DeepgramModel:    getEnv("DEEPGRAM_MODEL", "nova-3-medical"),
		DeepgramLanguage: getEnv("DEEPGRAM_LANGUAGE", "en-AU"),

		SourcesFile: getEnv("RADSCRIBE_SOURCES_FILE", ""),

		LogFile:  getEnv("RADSCRIBE_LOG_FILE", "/tmp/radscribe.log"),
		LogLevel: parseLogLevel(getEnv("RADSCRIBE_LOG_LEVEL", "INFO")),

		PollIntervalSeconds: getEnvInt("RADSCRIBE_POLL_INTERVAL_SECONDS", 30),
		BatchSize:           getEnvInt("RADSCRIBE_BATCH_SIZE", 10),
	}
}

// Sources returns the configured source list. When SourcesFile is set the
// file is re-read on every call, so the poll loop picks up edits without a
// restart. Otherwise sources are built from flat VISAGE_*/KARISMA_* env vars.
func (c Config) Sources() ([]models.SourceConfig, error) {
	if c.SourcesFile != "" {
		return loadSourcesFile(c.SourcesFile, c)
	}
	return c.envSources(), nil
}

// EnabledSources filters Sources down to enabled entries.
func (c Config) EnabledSources() ([]models.SourceConfig, error) {
	all, err := c.Sources()
	if err != nil {
		return nil, err
	}
	enabled := make([]models.SourceConfig, 0, len(all))
	for _, s := range all {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled, nil
}

type sourcesFile struct {
	Sources []models.SourceConfig `yaml:"sources"`
}

func loadSourcesFile(path string, c Config) ([]models.SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	for i := range f.Sources {
		applySourceDefaults(&f.Sources[i], c)
	}
	return f.Sources, nil
}

func (c Config) envSources() []models.SourceConfig {
	var sources []models.SourceConfig
	if getEnv("VISAGE_ENABLED", "false") == "true" {
		s := models.SourceConfig{
			ID:             "visage",
			Name:           getEnv("VISAGE_NAME", "Visage RIS"),
			Kind:           models.KindVisage,
			Enabled:        true,
			DBHost:         getEnv("VISAGE_DB_HOST", "localhost"),
			DBPort:         getEnvInt("VISAGE_DB_PORT", 5432),
			DBName:         getEnv("VISAGE_DB_NAME", "visage_ris"),
			DBUser:         getEnv("VISAGE_DB_USER", ""),
			DBPassword:     getEnv("VISAGE_DB_PASSWORD", ""),
			AudioMode:      models.AudioFile,
			AudioMountPath: getEnv("VISAGE_AUDIO_MOUNT_PATH", "/mnt/visage-audio"),
		}
		applySourceDefaults(&s, c)
		sources = append(sources, s)
	}
	if getEnv("KARISMA_ENABLED", "false") == "true" {
		s := models.SourceConfig{
			ID:         "karisma",
			Name:       getEnv("KARISMA_NAME", "Karisma RIS"),
			Kind:       models.KindKarisma,
			Enabled:    true,
			DBHost:     getEnv("KARISMA_DB_HOST", "localhost"),
			DBPort:     getEnvInt("KARISMA_DB_PORT", 1433),
			DBName:     getEnv("KARISMA_DB_NAME", "karisma_live"),
			DBUser:     getEnv("KARISMA_DB_USER", ""),
			DBPassword: getEnv("KARISMA_DB_PASSWORD", ""),
			AudioMode:  models.AudioBlob,
		}
		applySourceDefaults(&s, c)
		sources = append(sources, s)
	}
	return sources
}

func applySourceDefaults(s *models.SourceConfig, c Config) {
	if s.PollIntervalSeconds <= 0 {
		s.PollIntervalSeconds = c.PollIntervalSeconds
	}
	if s.BatchSize <= 0 {
		s.BatchSize = c.BatchSize
	}
	if s.AudioMode == "" {
		if s.Kind == models.KindKarisma {
			s.AudioMode = models.AudioBlob
		} else {
			s.AudioMode = models.AudioFile
		}
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
