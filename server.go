// Package rtserver is a mock server for the OpenAI realtime websocket protocol.
// It answers every response request with canned text and a static audio file.
package rtserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/codewandler/openairt-server/events"
	"github.com/codewandler/openairt-server/internal/content"
	"github.com/codewandler/openairt-server/internal/realtime"
	"github.com/codewandler/openairt-server/internal/session"
	"github.com/codewandler/openairt-server/internal/websocket"
	"github.com/gobwas/ws"
)

const bearerPrefix = "Bearer "

// Server accepts realtime websocket connections and runs one protocol session
// per connection.
type Server struct {
	config   *serverConfig
	sessions *session.Manager
	asset    *content.Asset
	logger   *slog.Logger
}

func New(opts ...ServerOption) (*Server, error) {
	config := &serverConfig{}
	WithOptions(append([]ServerOption{withDefaults()}, opts...)...)(config)

	if err := config.validate(); err != nil {
		return nil, err
	}

	asset := content.NewAsset(config.assetPath)
	canned := config.canned
	if canned == nil {
		canned = content.NewCanned(asset)
	} else if canned.Asset == nil {
		canned.Asset = asset
	}
	if config.text == nil {
		config.text = canned
	}
	if config.audio == nil {
		config.audio = canned
	}
	if config.transcriber == nil {
		config.transcriber = canned
	}

	return &Server{
		config: config,
		sessions: session.NewManager(
			session.WithVoice(config.voice),
			session.WithAudioBufferSize(config.audioBufferSize),
			session.WithLogger(config.logger),
		),
		asset:  asset,
		logger: config.logger,
	}, nil
}

// Sessions exposes the live session registry.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// ProbeAsset reports on the configured response audio file.
func (s *Server) ProbeAsset() (content.Info, error) {
	return s.asset.Probe()
}

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.config.path, s)
	return mux
}

// bearerToken extracts the token of an "Authorization: Bearer <token>"
// header. Any non-empty token is accepted.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

// ServeHTTP is the connection gate: it authenticates the upgrade request,
// binds a session to the connection and serves frames until the client goes
// away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	connID := events.NewID()
	logger := s.logger.With(
		slog.String("conn_id", connID),
		slog.String("remote", r.RemoteAddr),
	)

	model := r.URL.Query().Get("model")
	if model == "" {
		model = s.config.model
	}
	_, authorized := bearerToken(r.Header.Get("Authorization"))

	if beta := r.Header.Get("OpenAI-Beta"); beta != "" {
		logger.Info("openai-beta header", slog.String("value", beta))
	}

	conn, err := websocket.Upgrade(w, r, websocket.Config{
		MaxMessageSize: s.config.maxMessageSize,
		Logger:         logger,
	})
	if err != nil {
		logger.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}

	ctx := r.Context()

	if !authorized {
		logger.Warn("rejecting connection: missing or invalid bearer token")
		if err := conn.WriteJSON(ctx, events.NewErrorEvent(events.ErrorCodeInvalidAPIKey, "Invalid API key")); err != nil {
			logger.Debug("failed to send error event", slog.Any("err", err))
		}
		closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := conn.Close(closeCtx, ws.StatusPolicyViolation, "invalid api key"); err != nil {
			logger.Debug("close failed", slog.Any("err", err))
		}
		return
	}

	sess, _ := s.sessions.GetOrCreate(connID, model)
	defer s.sessions.Release(connID)

	logger = logger.With(slog.String("session_id", sess.ID))
	logger.Info("client connected", slog.String("model", model))

	handler := realtime.NewHandler(sess, s.sessions, realtime.EmitterFunc(conn.WriteJSON), realtime.Config{
		Text:           s.config.text,
		Audio:          s.config.audio,
		Transcriber:    s.config.transcriber,
		Latency:        s.config.latency(),
		MessageLatency: s.config.messageLatency,
		Logger:         logger,
	})

	if err := handler.Start(ctx); err != nil {
		logger.Error("failed to send session.created", slog.Any("err", err))
		_ = conn.Close(ctx, ws.StatusInternalServerError, "")
		return
	}

	err = conn.Serve(ctx, func(ctx context.Context, f websocket.Frame) {
		if f.Err != nil {
			if errors.Is(f.Err, websocket.ErrMessageTooLarge) {
				msg := fmt.Sprintf("message exceeds %d bytes", s.config.maxMessageSize)
				if err := handler.Reject(ctx, events.ErrorCodeMessageTooLarge, msg); err != nil {
					logger.Debug("failed to send error event", slog.Any("err", err))
				}
			}
			return
		}
		handler.Handle(ctx, f.Payload)
	})
	if err != nil {
		logger.Warn("connection ended with error", slog.Any("err", err))
	}

	logger.Info("client disconnected")
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// Open connections see their context cancelled and are closed with a going
// away status.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.logAsset()

	srv := &http.Server{
		Addr:              s.config.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("listening",
		slog.String("addr", s.config.addr),
		slog.String("path", s.config.path),
		slog.String("model", s.config.model))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", slog.Int("sessions", s.sessions.Count()))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) logAsset() {
	info, err := s.asset.Probe()
	switch {
	case errors.Is(err, content.ErrAudioUnavailable):
		s.logger.Warn("audio asset not found, responses will be text only", slog.String("path", info.Path))
	case err != nil:
		s.logger.Warn("audio asset could not be decoded", slog.String("path", info.Path), slog.Any("err", err))
	default:
		s.logger.Info("audio asset ready",
			slog.String("path", info.Path),
			slog.String("format", info.Format),
			slog.Int64("size", info.Size),
			slog.Duration("duration", info.Duration))
	}
}
