package conversation

import (
	"github.com/codewandler/openairt-server/events"
	"github.com/google/uuid"
)

// Store is the ordered item log of one session. It is owned by the
// connection task of that session and is not safe for concurrent use.
type Store struct {
	items []*events.ConversationItem
}

func New() *Store {
	return &Store{}
}

// Add assigns an id if absent and appends the item. The returned pointer is
// the stored item; the response sequencer mutates it in place while streaming.
func (s *Store) Add(item events.ConversationItem) *events.ConversationItem {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Object == "" {
		item.Object = "realtime.item"
	}
	if item.Type == events.ItemTypeMessage && item.Status == "" {
		item.Status = events.StatusCompleted
	}

	stored := &item
	s.items = append(s.items, stored)
	return stored
}

func (s *Store) Get(id string) (*events.ConversationItem, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return nil, false
}

// Last returns the most recently added item, or nil.
func (s *Store) Last() *events.ConversationItem {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}

// Items returns the log in insertion order.
func (s *Store) Items() []*events.ConversationItem {
	out := make([]*events.ConversationItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	return len(s.items)
}

func (s *Store) Clear() {
	s.items = nil
}
