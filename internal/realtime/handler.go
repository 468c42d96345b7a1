package realtime

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codewandler/openairt-server/events"
	"github.com/codewandler/openairt-server/internal/audiobuf"
	"github.com/codewandler/openairt-server/internal/content"
	"github.com/codewandler/openairt-server/internal/session"
	"github.com/codewandler/openairt-server/tool"
)

type Config struct {
	Text        content.TextSource
	Audio       content.AudioSource
	Transcriber content.Transcriber

	// Latency is the simulated generation delay inside a response.
	Latency time.Duration
	// MessageLatency is the delay before answering a legacy message.
	MessageLatency time.Duration

	Logger *slog.Logger
}

// Handler routes the inbound frames of one connection. Frames must be handed
// to Handle one at a time, in arrival order.
type Handler struct {
	session   *session.Session
	sessions  *session.Manager
	emitter   Emitter
	sequencer *Sequencer
	config    Config
	logger    *slog.Logger
}

func NewHandler(sess *session.Session, sessions *session.Manager, emitter Emitter, config Config) *Handler {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("session_id", sess.ID))

	canned := content.NewCanned(nil)
	if config.Text == nil {
		config.Text = canned
	}
	if config.Audio == nil {
		config.Audio = canned
	}
	if config.Transcriber == nil {
		config.Transcriber = canned
	}

	return &Handler{
		session:   sess,
		sessions:  sessions,
		emitter:   emitter,
		sequencer: NewSequencer(emitter, config.Text, config.Audio, config.Latency, logger),
		config:    config,
		logger:    logger,
	}
}

// Start announces the session to the client. It must be the first event on
// the connection.
func (h *Handler) Start(ctx context.Context) error {
	return emit(ctx, h.emitter, &events.SessionCreatedEvent{
		BaseEvent: events.NewBaseEvent(events.TypeSessionCreated),
		SessionID: h.session.ID,
		Model:     h.session.Model,
		Session:   h.session.Snapshot(),
	})
}

// Reject sends a protocol error for a frame that never reached Handle.
func (h *Handler) Reject(ctx context.Context, code events.ErrorCode, message string) error {
	return emit(ctx, h.emitter, events.NewErrorEvent(code, message))
}

// Handle processes one inbound frame. Failures never propagate: protocol
// errors become error frames, everything else is logged.
func (h *Handler) Handle(ctx context.Context, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("frame handler panicked", slog.Any("panic", r))
		}
	}()

	msg, err := Decode(data)
	if err == nil {
		err = h.dispatch(ctx, msg)
	}
	if err == nil {
		return
	}

	var perr *ProtocolError
	switch {
	case errors.As(err, &perr):
		h.logger.Warn("protocol error", slog.String("code", string(perr.Code)), slog.Any("err", err))
		if err := h.Reject(ctx, perr.Code, perr.Message); err != nil {
			h.logger.Debug("failed to send error event", slog.Any("err", err))
		}
	case errors.Is(err, context.Canceled):
		h.logger.Debug("frame processing abandoned", slog.Any("err", err))
	default:
		h.logger.Error("failed to handle frame", slog.Any("err", err))
	}
}

func (h *Handler) dispatch(ctx context.Context, msg any) error {
	switch m := msg.(type) {
	case *events.SessionUpdateEvent:
		return h.sessionUpdate(ctx, m)
	case *events.ConversationItemCreateEvent:
		return h.itemCreate(ctx, m)
	case *events.ResponseCreateEvent:
		h.logger.Debug("rcv: response.create", slog.Int("override_bytes", len(m.Response)))
		_, err := h.sequencer.Run(ctx, h.session)
		return err
	case *events.ResponseCancelEvent:
		return h.responseCancel(ctx, m)
	case *events.InputAudioBufferAppendEvent:
		return h.audioAppend(m)
	case *events.InputAudioBufferCommitEvent:
		return h.audioCommit(ctx)
	case *events.MessageEvent:
		return h.message(ctx, m)
	case *events.AudioRequestEvent:
		return h.audioRequest(ctx)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownType, msg)
	}
}

func (h *Handler) sessionUpdate(ctx context.Context, m *events.SessionUpdateEvent) error {
	h.logger.Debug("rcv: session.update", slog.Int("keys", len(m.Session)))

	if raw, ok := m.Session[events.ConfigTools]; ok {
		tools, err := tool.FromConfig(raw)
		if err != nil {
			h.logger.Warn("session tools not understood, stored as sent", slog.Any("err", err))
		} else {
			h.logger.Debug("session tools", slog.Any("names", tool.Names(tools)))
		}
	}
	if choice := tool.Choice(m.Session.String(events.ConfigToolChoice)); choice != "" && !choice.Valid() {
		h.logger.Debug("tool_choice is not a known mode, stored as sent", slog.String("tool_choice", string(choice)))
	}

	sess := h.sessions.UpdateConfig(h.session, m.Session)

	return emit(ctx, h.emitter, &events.SessionUpdatedEvent{
		BaseEvent: events.NewBaseEvent(events.TypeSessionUpdated),
		SessionID: sess.ID,
		Session:   sess.Snapshot(),
	})
}

func (h *Handler) itemCreate(ctx context.Context, m *events.ConversationItemCreateEvent) error {
	var previousID string
	if last := h.session.Conversation.Last(); last != nil {
		previousID = last.ID
	}

	item := h.session.Conversation.Add(m.Item)
	h.logger.Debug("rcv: conversation.item.create", slog.String("item_id", item.ID), slog.String("role", item.Role))

	return emit(ctx, h.emitter, &events.ConversationItemCreatedEvent{
		BaseEvent:      events.NewBaseEvent(events.TypeConversationItemCreated),
		PreviousItemID: previousID,
		Item:           item,
	})
}

// responseCancel only acknowledges. Frames are handled sequentially, so by
// the time a cancel is read any earlier response has already completed.
func (h *Handler) responseCancel(ctx context.Context, m *events.ResponseCancelEvent) error {
	h.logger.Debug("rcv: response.cancel", slog.String("response_id", m.ResponseID))

	return emit(ctx, h.emitter, &events.ResponseCancelledEvent{
		BaseEvent:  events.NewBaseEvent(events.TypeResponseCancelled),
		ResponseID: m.ResponseID,
	})
}

func (h *Handler) audioAppend(m *events.InputAudioBufferAppendEvent) error {
	buf := h.session.AudioBuffer

	n, err := buf.AppendBase64(m.Audio)
	switch {
	case errors.Is(err, audiobuf.ErrInvalidAudio):
		return protocolError(events.ErrorCodeInvalidAudio, err, "audio must be base64 encoded")
	case errors.Is(err, audiobuf.ErrBufferFull):
		return protocolError(events.ErrorCodeInputAudioBufferFull, err, "input audio buffer is full")
	case err != nil:
		return err
	}

	h.logger.Debug("rcv: input_audio_buffer.append",
		slog.Int("bytes", n),
		slog.Int("buffered", buf.Len()),
		slog.Duration("buffered_pcm16", audiobuf.Duration(buf.Len())))
	return nil
}

// audioCommit turns the buffered audio into a transcribed user item. An empty
// buffer commits nothing and emits nothing.
func (h *Handler) audioCommit(ctx context.Context) error {
	buf := h.session.AudioBuffer
	if buf.State() == audiobuf.StateEmpty {
		h.logger.Debug("rcv: input_audio_buffer.commit on empty buffer")
		return nil
	}

	audio := buf.Take()
	transcript, err := h.config.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		if restoreErr := buf.Append(audio); restoreErr != nil {
			h.logger.Error("failed to restore audio buffer", slog.Any("err", restoreErr))
		}
		return fmt.Errorf("transcribe input audio: %w", err)
	}

	var previousID string
	if last := h.session.Conversation.Last(); last != nil {
		previousID = last.ID
	}

	item := h.session.Conversation.Add(events.ConversationItem{
		Type:   events.ItemTypeMessage,
		Role:   events.RoleUser,
		Status: events.StatusCompleted,
		Content: []events.ContentPart{
			{Type: events.ContentInputAudio, Transcript: transcript},
		},
	})

	h.logger.Debug("rcv: input_audio_buffer.commit",
		slog.String("item_id", item.ID),
		slog.Int("bytes", len(audio)),
		slog.Duration("pcm16", audiobuf.Duration(len(audio))))

	if err := emit(ctx, h.emitter, &events.ConversationItemCreatedEvent{
		BaseEvent:      events.NewBaseEvent(events.TypeConversationItemCreated),
		PreviousItemID: previousID,
		Item:           item,
	}); err != nil {
		return err
	}

	return emit(ctx, h.emitter, &events.InputAudioTranscriptionCompletedEvent{
		BaseEvent:    events.NewBaseEvent(events.TypeInputAudioTranscriptionCompleted),
		ItemID:       item.ID,
		ContentIndex: 0,
		Transcript:   transcript,
	})
}

func (h *Handler) message(ctx context.Context, m *events.MessageEvent) error {
	h.logger.Debug("rcv: message", slog.Int("len", len(m.Content)))

	if err := emit(ctx, h.emitter, &events.ProcessingEvent{
		BaseEvent: events.NewBaseEvent(events.TypeProcessing),
		Message:   "Processing message",
	}); err != nil {
		return err
	}

	if err := pause(ctx, h.config.MessageLatency); err != nil {
		return err
	}

	if err := emit(ctx, h.emitter, &events.TextEvent{
		BaseEvent: events.NewBaseEvent(events.TypeText),
		Content:   "You said: " + m.Content,
	}); err != nil {
		return err
	}

	return emit(ctx, h.emitter, &events.InfoEvent{
		BaseEvent: events.NewBaseEvent(events.TypeInfo),
		Message:   "Send a message of type audio_request to receive an audio response",
	})
}

func (h *Handler) audioRequest(ctx context.Context) error {
	audio, err := h.config.Audio.NextResponseAudio(ctx)
	switch {
	case errors.Is(err, content.ErrAudioUnavailable):
		return protocolError(events.ErrorCodeAudioFileNotFound, err, "audio file not found")
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return protocolError(events.ErrorCodeAudioSendError, err, "failed to send audio file: %v", err)
	}

	if err := emit(ctx, h.emitter, &events.AudioEvent{
		BaseEvent: events.NewBaseEvent(events.TypeAudio),
		Format:    audio.Format,
		Data:      base64.StdEncoding.EncodeToString(audio.Data),
	}); err != nil {
		return err
	}

	h.logger.Debug("audio sent", slog.Int("bytes", len(audio.Data)))
	return nil
}
