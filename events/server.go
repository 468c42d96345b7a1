package events

import "fmt"

// Outbound event types.
const (
	TypeError                            = "error"
	TypeSessionCreated                   = "session.created"
	TypeSessionUpdated                   = "session.updated"
	TypeConversationItemCreated          = "conversation.item.created"
	TypeInputAudioTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	TypeResponseCreated                  = "response.created"
	TypeResponseOutputItemAdded          = "response.output_item.added"
	TypeResponseTextDelta                = "response.text.delta"
	TypeResponseContentPartAdded         = "response.content_part.added"
	TypeResponseAudioTranscriptDelta     = "response.audio_transcript.delta"
	TypeResponseAudioDelta               = "response.audio.delta"
	TypeResponseAudioDone                = "response.audio.done"
	TypeResponseOutputItemDone           = "response.output_item.done"
	TypeResponseDone                     = "response.done"
	TypeResponseCancelled                = "response.cancelled"

	// legacy
	TypeText       = "text"
	TypeAudio      = "audio"
	TypeProcessing = "processing"
	TypeInfo       = "info"
)

type ErrorCode string

const (
	ErrorCodeInvalidAPIKey        ErrorCode = "invalid_api_key"
	ErrorCodeInvalidJSON          ErrorCode = "invalid_json"
	ErrorCodeUnknownMessageType   ErrorCode = "unknown_message_type"
	ErrorCodeAudioFileNotFound    ErrorCode = "audio_file_not_found"
	ErrorCodeAudioSendError       ErrorCode = "audio_send_error"
	ErrorCodeInvalidAudio         ErrorCode = "invalid_audio"
	ErrorCodeInputAudioBufferFull ErrorCode = "input_audio_buffer_full"
	ErrorCodeMessageTooLarge      ErrorCode = "message_too_large"
)

type ErrorEvent struct {
	BaseEvent
	Code    ErrorCode `json:"error"`
	Message string    `json:"message"`
}

func NewErrorEvent(code ErrorCode, message string) *ErrorEvent {
	return &ErrorEvent{
		BaseEvent: NewBaseEvent(TypeError),
		Code:      code,
		Message:   message,
	}
}

func (e *ErrorEvent) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type SessionCreatedEvent struct {
	BaseEvent
	SessionID string        `json:"session_id"`
	Model     string        `json:"model"`
	Session   SessionConfig `json:"session"`
}

type SessionUpdatedEvent struct {
	BaseEvent
	SessionID string        `json:"session_id"`
	Session   SessionConfig `json:"session"`
}

type ConversationItemCreatedEvent struct {
	BaseEvent
	PreviousItemID string            `json:"previous_item_id,omitempty"`
	Item           *ConversationItem `json:"item"`
}

type InputAudioTranscriptionCompletedEvent struct {
	BaseEvent
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	Transcript   string `json:"transcript"`
}

type ResponseCreatedEvent struct {
	BaseEvent
	ResponseID string `json:"response_id"`
}

type ResponseOutputItemAddedEvent struct {
	BaseEvent
	ResponseID  string            `json:"response_id"`
	OutputIndex int               `json:"output_index"`
	Item        *ConversationItem `json:"item"`
}

type ResponseTextDeltaEvent struct {
	BaseEvent
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

type ResponseContentPartAddedEvent struct {
	BaseEvent
	ResponseID   string      `json:"response_id"`
	ItemID       string      `json:"item_id"`
	OutputIndex  int         `json:"output_index"`
	ContentIndex int         `json:"content_index"`
	Content      ContentPart `json:"content"`
}

type ResponseAudioTranscriptDeltaEvent struct {
	BaseEvent
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"`
}

type ResponseAudioDeltaEvent struct {
	BaseEvent
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
	Delta        string `json:"delta"` // base64
}

type ResponseAudioDoneEvent struct {
	BaseEvent
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
}

type ResponseOutputItemDoneEvent struct {
	BaseEvent
	ResponseID  string            `json:"response_id"`
	ItemID      string            `json:"item_id"`
	OutputIndex int               `json:"output_index"`
	Item        *ConversationItem `json:"item,omitempty"`
}

type ResponseDoneEvent struct {
	BaseEvent
	ResponseID string `json:"response_id"`
}

type ResponseCancelledEvent struct {
	BaseEvent
	ResponseID string `json:"response_id,omitempty"`
}

type ProcessingEvent struct {
	BaseEvent
	Message string `json:"message"`
}

type TextEvent struct {
	BaseEvent
	Content string `json:"content"`
}

type InfoEvent struct {
	BaseEvent
	Message string `json:"message"`
}

type AudioEvent struct {
	BaseEvent
	Format string `json:"format"`
	Data   string `json:"data"` // base64
}
