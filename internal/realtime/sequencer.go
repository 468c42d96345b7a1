package realtime

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codewandler/openairt-server/events"
	"github.com/codewandler/openairt-server/internal/content"
	"github.com/codewandler/openairt-server/internal/session"
	"github.com/google/uuid"
)

// Sequencer streams one assistant turn as the fixed event choreography:
//
//	response.created
//	response.output_item.added
//	response.text.delta               (content_index 0)
//	response.content_part.added       (content_index 0)
//	response.audio_transcript.delta   (content_index 1, if audio is available)
//	response.audio.delta              (content_index 1, if audio is available)
//	response.content_part.added       (content_index 1, if audio is available)
//	response.audio.done               (content_index 1, if audio is available)
//	response.output_item.done
//	response.done
type Sequencer struct {
	emitter Emitter
	text    content.TextSource
	audio   content.AudioSource
	latency time.Duration
	logger  *slog.Logger
}

func NewSequencer(emitter Emitter, text content.TextSource, audio content.AudioSource, latency time.Duration, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sequencer{
		emitter: emitter,
		text:    text,
		audio:   audio,
		latency: latency,
		logger:  logger,
	}
}

// Run executes one response cycle against the session conversation and
// returns the response id. A cancelled ctx abandons the cycle without
// emitting further events.
func (s *Sequencer) Run(ctx context.Context, sess *session.Session) (string, error) {
	responseID := uuid.New().String()
	logger := s.logger.With(slog.String("response_id", responseID))

	if err := emit(ctx, s.emitter, &events.ResponseCreatedEvent{
		BaseEvent:  events.NewBaseEvent(events.TypeResponseCreated),
		ResponseID: responseID,
	}); err != nil {
		return responseID, err
	}

	item := sess.Conversation.Add(events.ConversationItem{
		Type:    events.ItemTypeMessage,
		Role:    events.RoleAssistant,
		Status:  events.StatusInProgress,
		Content: []events.ContentPart{},
	})

	if err := emit(ctx, s.emitter, &events.ResponseOutputItemAddedEvent{
		BaseEvent:  events.NewBaseEvent(events.TypeResponseOutputItemAdded),
		ResponseID: responseID,
		Item:       item,
	}); err != nil {
		return responseID, err
	}

	if err := pause(ctx, s.latency); err != nil {
		return responseID, err
	}

	text, err := s.text.NextResponseText(ctx)
	if err != nil {
		return responseID, fmt.Errorf("next response text: %w", err)
	}

	if err := emit(ctx, s.emitter, &events.ResponseTextDeltaEvent{
		BaseEvent:    events.NewBaseEvent(events.TypeResponseTextDelta),
		ResponseID:   responseID,
		ItemID:       item.ID,
		ContentIndex: 0,
		Delta:        text,
	}); err != nil {
		return responseID, err
	}

	textPart := events.ContentPart{Type: events.ContentText, Text: text}
	item.Content = append(item.Content, textPart)

	if err := emit(ctx, s.emitter, &events.ResponseContentPartAddedEvent{
		BaseEvent:    events.NewBaseEvent(events.TypeResponseContentPartAdded),
		ResponseID:   responseID,
		ItemID:       item.ID,
		ContentIndex: 0,
		Content:      textPart,
	}); err != nil {
		return responseID, err
	}

	if err := s.streamAudio(ctx, logger, responseID, item); err != nil {
		return responseID, err
	}

	item.Status = events.StatusCompleted

	if err := emit(ctx, s.emitter, &events.ResponseOutputItemDoneEvent{
		BaseEvent:  events.NewBaseEvent(events.TypeResponseOutputItemDone),
		ResponseID: responseID,
		ItemID:     item.ID,
		Item:       item,
	}); err != nil {
		return responseID, err
	}

	if err := emit(ctx, s.emitter, &events.ResponseDoneEvent{
		BaseEvent:  events.NewBaseEvent(events.TypeResponseDone),
		ResponseID: responseID,
	}); err != nil {
		return responseID, err
	}

	logger.Debug("response done", slog.String("item_id", item.ID), slog.Int("parts", len(item.Content)))
	return responseID, nil
}

// streamAudio appends the audio part. Missing audio skips the audio events.
func (s *Sequencer) streamAudio(ctx context.Context, logger *slog.Logger, responseID string, item *events.ConversationItem) error {
	audio, err := s.audio.NextResponseAudio(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, content.ErrAudioUnavailable) {
			logger.Warn("response audio unavailable, skipping audio", slog.Any("err", err))
		} else {
			logger.Error("failed to load response audio, skipping audio", slog.Any("err", err))
		}
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString(audio.Data)
	contentIndex := len(item.Content)

	if err := emit(ctx, s.emitter, &events.ResponseAudioTranscriptDeltaEvent{
		BaseEvent:    events.NewBaseEvent(events.TypeResponseAudioTranscriptDelta),
		ResponseID:   responseID,
		ItemID:       item.ID,
		ContentIndex: contentIndex,
		Delta:        audio.Transcript,
	}); err != nil {
		return err
	}

	if err := emit(ctx, s.emitter, &events.ResponseAudioDeltaEvent{
		BaseEvent:    events.NewBaseEvent(events.TypeResponseAudioDelta),
		ResponseID:   responseID,
		ItemID:       item.ID,
		ContentIndex: contentIndex,
		Delta:        encoded,
	}); err != nil {
		return err
	}

	audioPart := events.ContentPart{Type: events.ContentAudio, Audio: encoded, Transcript: audio.Transcript}
	item.Content = append(item.Content, audioPart)

	if err := emit(ctx, s.emitter, &events.ResponseContentPartAddedEvent{
		BaseEvent:    events.NewBaseEvent(events.TypeResponseContentPartAdded),
		ResponseID:   responseID,
		ItemID:       item.ID,
		ContentIndex: contentIndex,
		Content:      audioPart,
	}); err != nil {
		return err
	}

	if err := emit(ctx, s.emitter, &events.ResponseAudioDoneEvent{
		BaseEvent:    events.NewBaseEvent(events.TypeResponseAudioDone),
		ResponseID:   responseID,
		ItemID:       item.ID,
		ContentIndex: contentIndex,
	}); err != nil {
		return err
	}

	logger.Debug("response audio sent", slog.Int("bytes", len(audio.Data)), slog.String("format", audio.Format))
	return nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
