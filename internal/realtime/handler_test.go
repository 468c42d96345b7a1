package realtime

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/codewandler/openairt-server/events"
	"github.com/codewandler/openairt-server/internal/audiobuf"
	"github.com/codewandler/openairt-server/internal/content"
	"github.com/stretchr/testify/require"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestStartEmitsSessionCreated(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.handler.Start(context.Background()))

	require.Equal(t, []string{events.TypeSessionCreated}, f.rec.types())
	created := f.rec.frame(0)
	require.Equal(t, f.session.ID, created["session_id"])
	require.Equal(t, "test-model", created["model"])
	require.Equal(t, f.session.ID, created["session"].(map[string]any)["id"])
}

func TestSessionUpdate(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, `{"type":"session.update","session":{"voice":"x","tools":[{"type":"function","name":"get_time"}]}}`)

	require.Equal(t, []string{events.TypeSessionUpdated}, f.rec.types())
	require.Equal(t, f.session.ID, f.rec.frame(0)["session_id"])

	cfg := f.session.Config()
	require.Equal(t, "x", cfg.String(events.ConfigVoice))
	require.Equal(t, 0.8, cfg[events.ConfigTemperature])

	sent := f.rec.frame(0)["session"].(map[string]any)
	require.Equal(t, "x", sent["voice"])
	require.Equal(t, 0.8, sent["temperature"])
}

func TestSessionUpdateWithoutSession(t *testing.T) {
	f := newFixture(t, nil)
	before := f.session.Config()

	f.send(t, `{"type":"session.update"}`)

	require.Equal(t, []string{events.TypeSessionUpdated}, f.rec.types())
	require.Equal(t, before, f.session.Config())
}

func TestItemCreate(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, `{"type":"conversation.item.create","item":{"type":"message","role":"user","content":[{"type":"input_text","text":"hi"}]}}`)

	require.Equal(t, []string{events.TypeConversationItemCreated}, f.rec.types())
	sent := f.rec.frame(0)["item"].(map[string]any)
	require.NotEmpty(t, sent["id"])
	require.Equal(t, map[string]any{"text": "hi"}, sent["formatted"])

	item, ok := f.session.Conversation.Get(sent["id"].(string))
	require.True(t, ok)
	require.Equal(t, "hi", item.Formatted().Text)
}

func TestItemCreateReportsPreviousItem(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, `{"type":"conversation.item.create","item":{"id":"first","type":"message","role":"user"}}`)
	f.send(t, `{"type":"conversation.item.create","item":{"id":"second","type":"message","role":"user"}}`)

	_, hasPrevious := f.rec.frame(0)["previous_item_id"]
	require.False(t, hasPrevious)
	require.Equal(t, "first", f.rec.frame(1)["previous_item_id"])
}

func TestResponseCancel(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, `{"type":"response.cancel"}`)
	require.Equal(t, []string{events.TypeResponseCancelled}, f.rec.types())
}

func TestCommitOnEmptyBuffer(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, `{"type":"input_audio_buffer.commit"}`)

	require.Empty(t, f.rec.types())
	require.Equal(t, audiobuf.StateEmpty, f.session.AudioBuffer.State())
	require.Zero(t, f.session.Conversation.Len())
}

func TestAppendAndCommit(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, `{"type":"input_audio_buffer.append","audio":"`+b64("abc")+`"}`)
	f.send(t, `{"type":"input_audio_buffer.append","audio":"`+b64("def")+`"}`)
	require.Empty(t, f.rec.types())
	require.Equal(t, 6, f.session.AudioBuffer.Len())

	f.send(t, `{"type":"input_audio_buffer.commit"}`)

	require.Equal(t, []string{
		events.TypeConversationItemCreated,
		events.TypeInputAudioTranscriptionCompleted,
	}, f.rec.types())

	item := f.rec.frame(0)["item"].(map[string]any)
	require.Equal(t, "user", item["role"])
	require.Equal(t, content.DefaultInputTranscript, item["formatted"].(map[string]any)["transcript"])

	completed := f.rec.frame(1)
	require.Equal(t, item["id"], completed["item_id"])
	require.Equal(t, content.DefaultInputTranscript, completed["transcript"])

	require.Equal(t, audiobuf.StateEmpty, f.session.AudioBuffer.State())
	require.Equal(t, 1, f.session.Conversation.Len())

	f.rec.reset()
	f.send(t, `{"type":"input_audio_buffer.commit"}`)
	require.Empty(t, f.rec.types())
}

func TestAppendEmptyPayload(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, `{"type":"input_audio_buffer.append","audio":""}`)

	require.Empty(t, f.rec.types())
	require.Equal(t, audiobuf.StateEmpty, f.session.AudioBuffer.State())
}

func TestAppendInvalidBase64(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, `{"type":"input_audio_buffer.append","audio":"%%%"}`)

	require.Equal(t, []string{events.TypeError}, f.rec.types())
	require.Equal(t, string(events.ErrorCodeInvalidAudio), f.rec.frame(0)["error"])
}

func TestCommitKeepsAudioWhenTranscriptionFails(t *testing.T) {
	f := newFixture(t, nil)
	f.handler.config.Transcriber = failingTranscriber{}

	f.send(t, `{"type":"input_audio_buffer.append","audio":"`+b64("abc")+`"}`)
	f.send(t, `{"type":"input_audio_buffer.commit"}`)

	require.Empty(t, f.rec.types())
	require.Equal(t, 3, f.session.AudioBuffer.Len())
	require.Zero(t, f.session.Conversation.Len())
}

func TestUnknownTypeKeepsConnectionUsable(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, `{"type":"unknown_op"}`)
	f.send(t, `{"type":"session.update","session":{"voice":"x"}}`)

	require.Equal(t, []string{events.TypeError, events.TypeSessionUpdated}, f.rec.types())
	require.Equal(t, "unknown_message_type", f.rec.frame(0)["error"])
	require.Contains(t, f.rec.frame(0)["message"], "unknown_op")
}

func TestInvalidJSON(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, `not json`)

	require.Equal(t, []string{events.TypeError}, f.rec.types())
	require.Equal(t, "invalid_json", f.rec.frame(0)["error"])
}

func TestPanicIsContained(t *testing.T) {
	f := newFixture(t, nil)
	f.handler.sequencer.text = panickingText{}

	require.NotPanics(t, func() {
		f.send(t, `{"type":"response.create"}`)
	})

	f.rec.reset()
	f.send(t, `{"type":"response.cancel"}`)
	require.Equal(t, []string{events.TypeResponseCancelled}, f.rec.types())
}

func TestLegacyMessage(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, `{"type":"message","content":"hello"}`)

	require.Equal(t, []string{events.TypeProcessing, events.TypeText, events.TypeInfo}, f.rec.types())
	require.Equal(t, "You said: hello", f.rec.frame(1)["content"])
}

func TestLegacyAudioRequest(t *testing.T) {
	f := newFixture(t, writeAsset(t, []byte("mp3 bytes")))

	f.send(t, `{"type":"audio_request"}`)

	require.Equal(t, []string{events.TypeAudio}, f.rec.types())
	require.Equal(t, "mp3", f.rec.frame(0)["format"])
	require.Equal(t, b64("mp3 bytes"), f.rec.frame(0)["data"])
}

func TestLegacyAudioRequestWithoutAsset(t *testing.T) {
	f := newFixture(t, missingAsset(t))

	f.send(t, `{"type":"audio_request"}`)

	require.Equal(t, []string{events.TypeError}, f.rec.types())
	require.Equal(t, "audio_file_not_found", f.rec.frame(0)["error"])
}

func TestResponseCreateIgnoresOverrides(t *testing.T) {
	frames := map[string]string{
		"object tool_choice": `{"type":"response.create","response":{"tool_choice":{"type":"function","name":"get_weather"}}}`,
		"union property type": `{"type":"response.create","response":{"tools":[{"type":"function","name":"f",` +
			`"parameters":{"type":"object","properties":{"city":{"type":["string","null"]}}}}]}}`,
		"event_id number": `{"type":"response.create","event_id":42}`,
	}
	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, missingAsset(t))

			f.send(t, frame)

			require.Equal(t, []string{
				events.TypeResponseCreated,
				events.TypeResponseOutputItemAdded,
				events.TypeResponseTextDelta,
				events.TypeResponseContentPartAdded,
				events.TypeResponseOutputItemDone,
				events.TypeResponseDone,
			}, f.rec.types())
		})
	}
}

func TestNonStringEventIDIsAccepted(t *testing.T) {
	f := newFixture(t, nil)

	f.send(t, `{"type":"response.cancel","event_id":42}`)
	require.Equal(t, []string{events.TypeResponseCancelled}, f.rec.types())
}
