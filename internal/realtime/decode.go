package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codewandler/openairt-server/events"
)

var (
	ErrInvalidJSON = errors.New("invalid json")
	ErrUnknownType = errors.New("unknown message type")
)

// ProtocolError is reported to the client as an error frame; the connection
// stays open.
type ProtocolError struct {
	Code    events.ErrorCode
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func protocolError(code events.ErrorCode, err error, format string, args ...any) *ProtocolError {
	return &ProtocolError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// Decode parses one inbound frame into its typed client event.
func Decode(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, protocolError(events.ErrorCodeInvalidJSON, fmt.Errorf("%w: %v", ErrInvalidJSON, err), "invalid json frame")
	}

	switch envelope.Type {
	case events.TypeSessionUpdate:
		return decode[events.SessionUpdateEvent](envelope.Type, data)
	case events.TypeConversationItemCreate:
		return decode[events.ConversationItemCreateEvent](envelope.Type, data)
	case events.TypeResponseCreate:
		return decode[events.ResponseCreateEvent](envelope.Type, data)
	case events.TypeResponseCancel:
		return decode[events.ResponseCancelEvent](envelope.Type, data)
	case events.TypeInputAudioBufferAppend:
		return decode[events.InputAudioBufferAppendEvent](envelope.Type, data)
	case events.TypeInputAudioBufferCommit:
		return decode[events.InputAudioBufferCommitEvent](envelope.Type, data)
	case events.TypeMessage:
		return decode[events.MessageEvent](envelope.Type, data)
	case events.TypeAudioRequest:
		return decode[events.AudioRequestEvent](envelope.Type, data)
	default:
		return nil, protocolError(events.ErrorCodeUnknownMessageType, ErrUnknownType, "unknown message type: %s", envelope.Type)
	}
}

func decode[T any](typ string, data []byte) (*T, error) {
	msg, err := events.Parse[T](data)
	if err != nil {
		return nil, protocolError(events.ErrorCodeInvalidJSON, fmt.Errorf("%w: %v", ErrInvalidJSON, err), "invalid %s frame", typ)
	}
	return msg, nil
}
