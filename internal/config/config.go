// Package config loads the server configuration file. YAML and TOML are
// supported, chosen by file extension.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "RTSERVER_CONFIG"

const (
	DefaultHost            = "localhost"
	DefaultPort            = 8765
	DefaultPath            = "/"
	DefaultModel           = "gpt-4o-realtime-preview-2024-12-17"
	DefaultVoice           = "alloy"
	DefaultAudioAsset      = "assets/response.mp3"
	DefaultMaxMessageSize  = 10 << 20
	DefaultAudioBufferSize = 15 << 20
	DefaultLatency         = 500 * time.Millisecond
	DefaultMessageLatency  = time.Second
)

type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Session SessionConfig `yaml:"session" toml:"session"`
	Content ContentConfig `yaml:"content" toml:"content"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

type ServerConfig struct {
	Host           string `yaml:"host" toml:"host"`
	Port           int    `yaml:"port" toml:"port"`
	Path           string `yaml:"path" toml:"path"`
	MaxMessageSize int64  `yaml:"max_message_size" toml:"max_message_size"`
}

type SessionConfig struct {
	Model           string `yaml:"model" toml:"model"`
	Voice           string `yaml:"voice" toml:"voice"`
	AudioBufferSize int    `yaml:"audio_buffer_size" toml:"audio_buffer_size"`
}

// ContentConfig controls the canned responses.
type ContentConfig struct {
	AudioAsset      string `yaml:"audio_asset" toml:"audio_asset"`
	Text            string `yaml:"text" toml:"text"`
	Transcript      string `yaml:"transcript" toml:"transcript"`
	InputTranscript string `yaml:"input_transcript" toml:"input_transcript"`

	Latency        time.Duration `yaml:"-" toml:"-"`
	MessageLatency time.Duration `yaml:"-" toml:"-"`

	// Raw string values, parsed into the durations above
	LatencyRaw        string `yaml:"latency" toml:"latency"`
	MessageLatencyRaw string `yaml:"message_latency" toml:"message_latency"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           DefaultHost,
			Port:           DefaultPort,
			Path:           DefaultPath,
			MaxMessageSize: DefaultMaxMessageSize,
		},
		Session: SessionConfig{
			Model:           DefaultModel,
			Voice:           DefaultVoice,
			AudioBufferSize: DefaultAudioBufferSize,
		},
		Content: ContentConfig{
			AudioAsset:     DefaultAudioAsset,
			Latency:        DefaultLatency,
			MessageLatency: DefaultMessageLatency,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Load reads the file at path over the defaults. ${VAR} references are
// expanded from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with the variable value, or with nothing when
// it is unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func parseDurations(cfg *Config) error {
	var err error

	if cfg.Content.LatencyRaw != "" {
		cfg.Content.Latency, err = time.ParseDuration(cfg.Content.LatencyRaw)
		if err != nil {
			return fmt.Errorf("parsing content.latency %q: %w", cfg.Content.LatencyRaw, err)
		}
	}

	if cfg.Content.MessageLatencyRaw != "" {
		cfg.Content.MessageLatency, err = time.ParseDuration(cfg.Content.MessageLatencyRaw)
		if err != nil {
			return fmt.Errorf("parsing content.message_latency %q: %w", cfg.Content.MessageLatencyRaw, err)
		}
	}

	return nil
}

// Validate returns the first invalid field it finds.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("server.path must start with /")
	}
	if c.Server.MaxMessageSize <= 0 {
		return fmt.Errorf("server.max_message_size must be positive")
	}
	if c.Session.Model == "" {
		return fmt.Errorf("session.model is required")
	}
	if c.Session.AudioBufferSize <= 0 {
		return fmt.Errorf("session.audio_buffer_size must be positive")
	}
	if c.Content.Latency < 0 || c.Content.MessageLatency < 0 {
		return fmt.Errorf("content latencies must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}
	return nil
}
