package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/codewandler/openairt-server/events"
	"github.com/codewandler/openairt-server/internal/audiobuf"
	"github.com/codewandler/openairt-server/internal/conversation"
	"github.com/google/uuid"
)

const DefaultAudioBufferSize = 15 * 1024 * 1024

type managerConfig struct {
	voice           string
	audioBufferSize int
	logger          *slog.Logger
	now             func() time.Time
}

type ManagerOption func(*managerConfig)

func WithVoice(voice string) ManagerOption {
	return func(c *managerConfig) {
		c.voice = voice
	}
}

func WithAudioBufferSize(size int) ManagerOption {
	return func(c *managerConfig) {
		c.audioBufferSize = size
	}
}

func WithLogger(logger *slog.Logger) ManagerOption {
	return func(c *managerConfig) {
		c.logger = logger
	}
}

func WithClock(now func() time.Time) ManagerOption {
	return func(c *managerConfig) {
		c.now = now
	}
}

// Manager maps connection identities to sessions. Registration happens from
// many connection goroutines, so the registry is mutex guarded.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	config   managerConfig
}

func NewManager(opts ...ManagerOption) *Manager {
	cfg := managerConfig{
		voice:           "alloy",
		audioBufferSize: DefaultAudioBufferSize,
		logger:          slog.New(slog.DiscardHandler),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Manager{
		sessions: make(map[string]*Session),
		config:   cfg,
	}
}

// GetOrCreate returns the session bound to connID, creating it on first
// contact. created reports whether this call created it.
func (m *Manager) GetOrCreate(connID, model string) (s *Session, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[connID]; ok {
		return s, false
	}

	now := m.config.now()
	s = &Session{
		ID:           uuid.New().String(),
		Model:        model,
		CreatedAt:    now,
		UpdatedAt:    now,
		Conversation: conversation.New(),
		AudioBuffer:  audiobuf.New(m.config.audioBufferSize),
		config:       events.DefaultSessionConfig(m.config.voice),
	}
	m.sessions[connID] = s

	m.config.logger.Debug("session created",
		slog.String("conn_id", connID),
		slog.String("session_id", s.ID),
		slog.String("model", model))

	return s, true
}

func (m *Manager) Get(connID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[connID]
	return s, ok
}

// UpdateConfig merges patch into the session config and bumps UpdatedAt.
func (m *Manager) UpdateConfig(s *Session, patch events.SessionConfig) *Session {
	s.applyPatch(patch, m.config.now())
	return s
}

// Release drops the session bound to connID and clears its state.
func (m *Manager) Release(connID string) {
	m.mu.Lock()
	s, ok := m.sessions[connID]
	delete(m.sessions, connID)
	m.mu.Unlock()

	if !ok {
		return
	}
	s.Conversation.Clear()
	s.AudioBuffer.Clear()

	m.config.logger.Debug("session released",
		slog.String("conn_id", connID),
		slog.String("session_id", s.ID))
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
