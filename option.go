package rtserver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/codewandler/openairt-server/internal/config"
	"github.com/codewandler/openairt-server/internal/content"
)

type serverConfig struct {
	addr            string
	path            string
	model           string
	voice           string
	latencyMS       int
	messageLatency  time.Duration
	assetPath       string
	maxMessageSize  int64
	audioBufferSize int
	logger          *slog.Logger

	text        content.TextSource
	audio       content.AudioSource
	transcriber content.Transcriber
	canned      *content.Canned
}

func (c *serverConfig) latency() time.Duration {
	return time.Duration(c.latencyMS) * time.Millisecond
}

func (c *serverConfig) validate() error {
	if c.addr == "" {
		return fmt.Errorf("missing listen address")
	}
	if c.model == "" {
		return fmt.Errorf("missing default model")
	}
	if c.latencyMS < 0 || c.messageLatency < 0 {
		return fmt.Errorf("latency must not be negative")
	}
	if c.maxMessageSize <= 0 {
		return fmt.Errorf("max message size must be positive")
	}
	if c.audioBufferSize <= 0 {
		return fmt.Errorf("audio buffer size must be positive")
	}
	return nil
}

type ServerOption func(*serverConfig)

func WithAddr(addr string) ServerOption {
	return func(o *serverConfig) {
		o.addr = addr
	}
}

// WithPath sets the path the websocket endpoint is mounted on. "/" accepts
// any path.
func WithPath(path string) ServerOption {
	return func(o *serverConfig) {
		o.path = path
	}
}

// WithModel sets the model reported when the client does not pass one.
func WithModel(model string) ServerOption {
	return func(o *serverConfig) {
		o.model = model
	}
}

func WithVoice(voice string) ServerOption {
	return func(o *serverConfig) {
		o.voice = voice
	}
}

// WithLatency sets the simulated generation delay in milliseconds.
func WithLatency(latencyMS int) ServerOption {
	return func(o *serverConfig) {
		o.latencyMS = latencyMS
	}
}

func WithMessageLatency(d time.Duration) ServerOption {
	return func(o *serverConfig) {
		o.messageLatency = d
	}
}

// WithAudioAsset sets the file replayed as response audio.
func WithAudioAsset(path string) ServerOption {
	return func(o *serverConfig) {
		o.assetPath = path
	}
}

func WithMaxMessageSize(n int64) ServerOption {
	return func(o *serverConfig) {
		o.maxMessageSize = n
	}
}

func WithAudioBufferSize(n int) ServerOption {
	return func(o *serverConfig) {
		o.audioBufferSize = n
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(o *serverConfig) {
		o.logger = logger
	}
}

func WithDefaultLogger() ServerOption {
	return WithLogger(slog.Default())
}

func WithTextSource(src content.TextSource) ServerOption {
	return func(o *serverConfig) {
		o.text = src
	}
}

func WithAudioSource(src content.AudioSource) ServerOption {
	return func(o *serverConfig) {
		o.audio = src
	}
}

func WithTranscriber(t content.Transcriber) ServerOption {
	return func(o *serverConfig) {
		o.transcriber = t
	}
}

// WithCannedContent overrides the canned strings. Empty values keep the
// defaults.
func WithCannedContent(text, transcript, inputTranscript string) ServerOption {
	return func(o *serverConfig) {
		if o.canned == nil {
			o.canned = content.NewCanned(nil)
		}
		if text != "" {
			o.canned.Text = text
		}
		if transcript != "" {
			o.canned.Transcript = transcript
		}
		if inputTranscript != "" {
			o.canned.InputTranscript = inputTranscript
		}
	}
}

func WithOptions(opts ...ServerOption) ServerOption {
	return func(o *serverConfig) {
		for _, opt := range opts {
			opt(o)
		}
	}
}

// WithConfig applies the server related fields of a loaded configuration.
func WithConfig(cfg *config.Config) ServerOption {
	return WithOptions(
		WithAddr(cfg.Addr()),
		WithPath(cfg.Server.Path),
		WithModel(cfg.Session.Model),
		WithVoice(cfg.Session.Voice),
		WithLatency(int(cfg.Content.Latency/time.Millisecond)),
		WithMessageLatency(cfg.Content.MessageLatency),
		WithAudioAsset(cfg.Content.AudioAsset),
		WithMaxMessageSize(cfg.Server.MaxMessageSize),
		WithAudioBufferSize(cfg.Session.AudioBufferSize),
		WithCannedContent(cfg.Content.Text, cfg.Content.Transcript, cfg.Content.InputTranscript),
	)
}

func withDefaults() ServerOption {
	return WithOptions(
		WithLogger(slog.New(slog.DiscardHandler)),
		WithConfig(config.Default()),
	)
}
