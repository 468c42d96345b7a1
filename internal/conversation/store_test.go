package conversation

import (
	"testing"

	"github.com/codewandler/openairt-server/events"
	"github.com/stretchr/testify/require"
)

func TestAddAssignsID(t *testing.T) {
	s := New()

	item := s.Add(events.ConversationItem{
		Type:    events.ItemTypeMessage,
		Role:    events.RoleUser,
		Content: []events.ContentPart{{Type: events.ContentInputText, Text: "hi"}},
	})
	require.NotEmpty(t, item.ID)
	require.Equal(t, events.StatusCompleted, item.Status)

	got, ok := s.Get(item.ID)
	require.True(t, ok)
	require.Same(t, item, got)
	require.Equal(t, "hi", got.Formatted().Text)
}

func TestAddKeepsClientID(t *testing.T) {
	s := New()
	item := s.Add(events.ConversationItem{ID: "client-id", Type: events.ItemTypeMessage})
	require.Equal(t, "client-id", item.ID)
}

func TestInsertionOrder(t *testing.T) {
	s := New()
	a := s.Add(events.ConversationItem{Type: events.ItemTypeMessage, Role: events.RoleUser})
	b := s.Add(events.ConversationItem{Type: events.ItemTypeMessage, Role: events.RoleAssistant})

	require.Equal(t, []*events.ConversationItem{a, b}, s.Items())
	require.Same(t, b, s.Last())
	require.Equal(t, 2, s.Len())
}

func TestMutationIsVisible(t *testing.T) {
	s := New()
	item := s.Add(events.ConversationItem{
		Type:   events.ItemTypeMessage,
		Role:   events.RoleAssistant,
		Status: events.StatusInProgress,
	})
	item.Content = append(item.Content, events.ContentPart{Type: events.ContentText, Text: "streamed"})
	item.Status = events.StatusCompleted

	got, ok := s.Get(item.ID)
	require.True(t, ok)
	require.Equal(t, "streamed", got.Formatted().Text)
	require.Equal(t, events.StatusCompleted, got.Status)
}

func TestGetMissing(t *testing.T) {
	_, ok := New().Get("nope")
	require.False(t, ok)
}

func TestClear(t *testing.T) {
	s := New()
	s.Add(events.ConversationItem{Type: events.ItemTypeMessage})
	s.Clear()

	require.Zero(t, s.Len())
	require.Nil(t, s.Last())
}
