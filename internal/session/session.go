package session

import (
	"time"

	"github.com/codewandler/openairt-server/events"
	"github.com/codewandler/openairt-server/internal/audiobuf"
	"github.com/codewandler/openairt-server/internal/conversation"
)

// Session is the per-connection protocol state. Only the connection task that
// owns it may touch its config, conversation or audio buffer.
type Session struct {
	ID        string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time

	Conversation *conversation.Store
	AudioBuffer  *audiobuf.Buffer

	config events.SessionConfig
}

// Config returns a copy of the current configuration.
func (s *Session) Config() events.SessionConfig {
	return s.config.Clone()
}

// Snapshot is the session object sent to clients: the configuration plus
// identity fields.
func (s *Session) Snapshot() events.SessionConfig {
	snap := s.config.Clone()
	snap["id"] = s.ID
	snap["object"] = "realtime.session"
	snap["model"] = s.Model
	return snap
}

func (s *Session) applyPatch(patch events.SessionConfig, now time.Time) {
	s.config.Merge(patch)
	s.UpdatedAt = now
}
