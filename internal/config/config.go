// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the optional on-disk config, overridable via FOUNDRY_CONFIG.
const DefaultFile = "foundry.toml"

// Config holds all application configuration.
type Config struct {
	// StreamURL is the campaign event stream websocket endpoint.
	StreamURL string

	// FoundryURL is the HTTP base of the foundry backend (BRD downloads).
	FoundryURL string

	// VoiceURL is the HTTP base of the voice control plane.
	VoiceURL string

	DBPath      string
	PreviewAddr string
	DownloadDir string

	ReconnectBase        time.Duration
	ReconnectCap         time.Duration
	ReconnectMaxAttempts int
	SendRetryDelay       time.Duration

	Transcript TranscriptConfig
}

// TranscriptConfig controls NDJSON stream transcripts.
type TranscriptConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// fileConfig is the TOML shape of DefaultFile. Only set fields override.
type fileConfig struct {
	StreamURL   string `toml:"stream_url"`
	FoundryURL  string `toml:"foundry_url"`
	VoiceURL    string `toml:"voice_url"`
	DBPath      string `toml:"db_path"`
	PreviewAddr string `toml:"preview_addr"`
	DownloadDir string `toml:"download_dir"`

	Transcript struct {
		Enabled *bool  `toml:"enabled"`
		Dir     string `toml:"dir"`
	} `toml:"transcript"`
}

// Load builds configuration from defaults, then the optional TOML file,
// then environment variables (highest precedence).
func Load() (*Config, error) {
	cfg := &Config{
		StreamURL:   "ws://localhost:8000/ws_stream_campaign",
		FoundryURL:  "http://localhost:8000",
		VoiceURL:    "http://localhost:8002",
		DBPath:      "./data/foundry.db",
		PreviewAddr: ":8040",
		DownloadDir: "./data/downloads",

		ReconnectBase:        3 * time.Second,
		ReconnectCap:         30 * time.Second,
		ReconnectMaxAttempts: 0, // retry forever, like the dashboard did
		SendRetryDelay:       time.Second,

		Transcript: TranscriptConfig{
			Enabled:   false,
			Dir:       "./data/transcripts",
			QueueSize: 1000,
		},
	}

	path := getEnv("FOUNDRY_CONFIG", DefaultFile)
	if err := cfg.applyFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	setIfPresent(&c.StreamURL, fc.StreamURL)
	setIfPresent(&c.FoundryURL, fc.FoundryURL)
	setIfPresent(&c.VoiceURL, fc.VoiceURL)
	setIfPresent(&c.DBPath, fc.DBPath)
	setIfPresent(&c.PreviewAddr, fc.PreviewAddr)
	setIfPresent(&c.DownloadDir, fc.DownloadDir)
	if fc.Transcript.Enabled != nil {
		c.Transcript.Enabled = *fc.Transcript.Enabled
	}
	setIfPresent(&c.Transcript.Dir, fc.Transcript.Dir)
	return nil
}

func (c *Config) applyEnv() {
	c.StreamURL = getEnv("FOUNDRY_STREAM_URL", c.StreamURL)
	c.FoundryURL = getEnv("FOUNDRY_API_URL", c.FoundryURL)
	c.VoiceURL = getEnv("FOUNDRY_VOICE_URL", c.VoiceURL)
	c.DBPath = getEnv("FOUNDRY_DB_PATH", c.DBPath)
	c.PreviewAddr = getEnv("FOUNDRY_PREVIEW_ADDR", c.PreviewAddr)
	c.DownloadDir = getEnv("FOUNDRY_DOWNLOAD_DIR", c.DownloadDir)

	c.ReconnectBase = getEnvDuration("FOUNDRY_RECONNECT_BASE", c.ReconnectBase)
	c.ReconnectCap = getEnvDuration("FOUNDRY_RECONNECT_CAP", c.ReconnectCap)
	c.ReconnectMaxAttempts = getEnvInt("FOUNDRY_RECONNECT_MAX_ATTEMPTS", c.ReconnectMaxAttempts)
	c.SendRetryDelay = getEnvDuration("FOUNDRY_SEND_RETRY_DELAY", c.SendRetryDelay)

	c.Transcript.Enabled = getEnvBool("FOUNDRY_TRANSCRIPT_ENABLED", c.Transcript.Enabled)
	c.Transcript.Dir = getEnv("FOUNDRY_TRANSCRIPT_DIR", c.Transcript.Dir)
	c.Transcript.QueueSize = getEnvInt("FOUNDRY_TRANSCRIPT_QUEUE_SIZE", c.Transcript.QueueSize)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.StreamURL == "" {
		return fmt.Errorf("FOUNDRY_STREAM_URL cannot be empty")
	}
	if !strings.HasPrefix(c.StreamURL, "ws://") && !strings.HasPrefix(c.StreamURL, "wss://") {
		return fmt.Errorf("FOUNDRY_STREAM_URL must be a ws:// or wss:// URL")
	}
	if c.FoundryURL == "" {
		return fmt.Errorf("FOUNDRY_API_URL cannot be empty")
	}
	if c.VoiceURL == "" {
		return fmt.Errorf("FOUNDRY_VOICE_URL cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("FOUNDRY_DB_PATH cannot be empty")
	}
	if c.ReconnectBase <= 0 || c.ReconnectCap < c.ReconnectBase {
		return fmt.Errorf("reconnect delays must satisfy 0 < base <= cap")
	}
	if c.Transcript.Enabled && c.Transcript.Dir == "" {
		return fmt.Errorf("FOUNDRY_TRANSCRIPT_DIR cannot be empty when transcripts are enabled")
	}
	if c.Transcript.QueueSize <= 0 {
		return fmt.Errorf("FOUNDRY_TRANSCRIPT_QUEUE_SIZE must be > 0")
	}
	return nil
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
