package realtime

import (
	"testing"

	"github.com/codewandler/openairt-server/events"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  any
	}{
		{"session.update", `{"type":"session.update","session":{"voice":"x"}}`, &events.SessionUpdateEvent{}},
		{"conversation.item.create", `{"type":"conversation.item.create","item":{"type":"message"}}`, &events.ConversationItemCreateEvent{}},
		{"response.create", `{"type":"response.create"}`, &events.ResponseCreateEvent{}},
		{"response.cancel", `{"type":"response.cancel"}`, &events.ResponseCancelEvent{}},
		{"input_audio_buffer.append", `{"type":"input_audio_buffer.append","audio":"AAA="}`, &events.InputAudioBufferAppendEvent{}},
		{"input_audio_buffer.commit", `{"type":"input_audio_buffer.commit"}`, &events.InputAudioBufferCommitEvent{}},
		{"message", `{"type":"message","content":"hi"}`, &events.MessageEvent{}},
		{"audio_request", `{"type":"audio_request"}`, &events.AudioRequestEvent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			require.IsType(t, tt.want, msg)
		})
	}
}

func TestDecodeFields(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"session.update","event_id":"e1","session":{"voice":"x","temperature":0.5}}`))
	require.NoError(t, err)

	update := msg.(*events.SessionUpdateEvent)
	require.Equal(t, events.EventID("e1"), update.EventID)
	require.Equal(t, "x", update.Session.String("voice"))
	require.Equal(t, 0.5, update.Session["temperature"])

	msg, err = Decode([]byte(`{"type":"response.create","event_id":7,"response":{"tool_choice":{"type":"function","name":"f"}}}`))
	require.NoError(t, err)
	create := msg.(*events.ResponseCreateEvent)
	require.Equal(t, events.EventID("7"), create.EventID)
	require.JSONEq(t, `{"tool_choice":{"type":"function","name":"f"}}`, string(create.Response))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		code  events.ErrorCode
		is    error
	}{
		{"unknown type", `{"type":"unknown_op"}`, events.ErrorCodeUnknownMessageType, ErrUnknownType},
		{"missing type", `{"foo":1}`, events.ErrorCodeUnknownMessageType, ErrUnknownType},
		{"malformed", `{"type":`, events.ErrorCodeInvalidJSON, ErrInvalidJSON},
		{"not an object", `[1,2]`, events.ErrorCodeInvalidJSON, ErrInvalidJSON},
		{"bad field type", `{"type":"session.update","session":"voice"}`, events.ErrorCodeInvalidJSON, ErrInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			require.ErrorIs(t, err, tt.is)

			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			require.Equal(t, tt.code, perr.Code)
		})
	}
}
