package events

import "encoding/json"

// Inbound frame types.
const (
	TypeSessionUpdate          = "session.update"
	TypeConversationItemCreate = "conversation.item.create"
	TypeResponseCreate         = "response.create"
	TypeResponseCancel         = "response.cancel"
	TypeInputAudioBufferAppend = "input_audio_buffer.append"
	TypeInputAudioBufferCommit = "input_audio_buffer.commit"

	// legacy
	TypeMessage      = "message"
	TypeAudioRequest = "audio_request"
)

type SessionUpdateEvent struct {
	BaseEvent
	Session SessionConfig `json:"session"`
}

type ConversationItemCreateEvent struct {
	BaseEvent
	PreviousItemID string           `json:"previous_item_id,omitempty"`
	Item           ConversationItem `json:"item"`
}

// ResponseCreateEvent carries an optional per-response override object. It is
// kept raw: the canned backend ignores it, and its tool and tool_choice shapes
// vary between protocol revisions.
type ResponseCreateEvent struct {
	BaseEvent
	Response json.RawMessage `json:"response,omitempty"`
}

type ResponseCancelEvent struct {
	BaseEvent
	ResponseID string `json:"response_id,omitempty"`
}

type InputAudioBufferAppendEvent struct {
	BaseEvent
	Audio string `json:"audio"` // base64
}

type InputAudioBufferCommitEvent struct {
	BaseEvent
}

// MessageEvent is the legacy plain text frame.
type MessageEvent struct {
	BaseEvent
	Content string `json:"content"`
}

// AudioRequestEvent is the legacy request for the static audio asset.
type AudioRequestEvent struct {
	BaseEvent
}
