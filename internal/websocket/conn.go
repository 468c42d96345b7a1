package websocket

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrClosed          = errors.New("connection closed")
)

const (
	DefaultMaxMessageSize = 10 << 20
	DefaultOutboundQueue  = 256
	DefaultWriteTimeout   = 10 * time.Second
)

type Config struct {
	// MaxMessageSize limits one inbound data message, fragments included.
	MaxMessageSize int64
	// OutboundQueue is the capacity of the outbound message queue.
	OutboundQueue int
	WriteTimeout  time.Duration
	Logger        *slog.Logger
}

// Frame is one inbound data message. Err is set instead of Payload when the
// message was dropped but the connection is still usable.
type Frame struct {
	OpCode  ws.OpCode
	Payload []byte
	Err     error
}

// Conn is the server side of an upgraded websocket connection. Outbound
// messages are queued and written by a single writer goroutine, so writes from
// any goroutine keep their order.
type Conn struct {
	conn   net.Conn
	br     *bufio.Reader
	config Config
	logger *slog.Logger

	out      chan wsutil.Message
	done     chan struct{}
	doneOnce sync.Once
	writeMu  sync.Mutex
}

// Upgrade completes the websocket handshake on w and starts the writer.
func Upgrade(w http.ResponseWriter, r *http.Request, config Config) (*Conn, error) {
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.OutboundQueue <= 0 {
		config.OutboundQueue = DefaultOutboundQueue
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conn, rw, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}

	var br *bufio.Reader
	if rw != nil {
		br = rw.Reader
	}

	c := &Conn{
		conn:   conn,
		br:     br,
		config: config,
		logger: logger,
		out:    make(chan wsutil.Message, config.OutboundQueue),
		done:   make(chan struct{}),
	}
	go c.writer()

	return c, nil
}

func (c *Conn) setDone() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}

// Write queues one message. It blocks while the queue is full.
func (c *Conn) Write(ctx context.Context, opcode ws.OpCode, data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.out <- wsutil.Message{OpCode: opcode, Payload: data}:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) WriteText(ctx context.Context, data []byte) error {
	return c.Write(ctx, ws.OpText, data)
}

// WriteJSON encodes v and queues it as a text message.
func (c *Conn) WriteJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	return c.WriteText(ctx, data)
}

// Close queues a close frame behind everything already queued and waits until
// it was written.
func (c *Conn) Close(ctx context.Context, code ws.StatusCode, reason string) error {
	if err := c.Write(ctx, ws.OpClose, ws.NewCloseFrameBody(code, reason)); err != nil {
		if errors.Is(err, ErrClosed) {
			return nil
		}
		return err
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		c.setDone()
		return fmt.Errorf("close failed: %w", ctx.Err())
	}
}

func (c *Conn) writer() {
	defer func() {
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.out:
			var frame bytes.Buffer
			if err := wsutil.WriteServerMessage(&frame, msg.OpCode, msg.Payload); err != nil {
				c.logger.Error("failed to encode message", slog.Any("err", err))
				continue
			}
			if err := c.writeRaw(frame.Bytes()); err != nil {
				c.logger.Debug("message write failed", slog.Any("err", err))
				c.setDone()
				return
			}
			if msg.OpCode == ws.OpClose {
				c.setDone()
				return
			}
		}
	}
}

func (c *Conn) writeRaw(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
		return err
	}
	_, err := c.conn.Write(p)
	return err
}

// Serve reads inbound data messages and passes them to fn one at a time, in
// arrival order. The ctx handed to fn is cancelled as soon as the peer goes
// away. Serve returns when the connection is closed; a clean close by the peer
// returns nil.
func (c *Conn) Serve(ctx context.Context, fn func(ctx context.Context, f Frame)) error {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.setDone()

	input := make(chan Frame, 64)
	var readErr error

	go func() {
		defer cancel()
		defer close(input)
		readErr = c.readLoop(ctx, input)
	}()

	go func() {
		select {
		case <-parent.Done():
			closeCtx, stop := context.WithTimeout(context.WithoutCancel(parent), time.Second)
			defer stop()
			if err := c.Close(closeCtx, ws.StatusGoingAway, "server shutting down"); err != nil {
				c.logger.Debug("close on shutdown failed", slog.Any("err", err))
			}
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for f := range input {
		fn(ctx, f)
	}

	var closed wsutil.ClosedError
	switch {
	case readErr == nil, errors.Is(readErr, io.EOF), errors.As(readErr, &closed):
		return nil
	case ctx.Err() != nil && errors.Is(readErr, net.ErrClosed):
		return nil
	default:
		return readErr
	}
}

func (c *Conn) readLoop(ctx context.Context, input chan<- Frame) error {
	var src io.Reader = c.conn
	if c.br != nil {
		src = c.br
	}

	var ctl bytes.Buffer
	ctlHandler := wsutil.ControlFrameHandler(&ctl, ws.StateServerSide)
	handleControl := func(h ws.Header, r io.Reader) error {
		ctl.Reset()
		err := ctlHandler(h, r)
		if ctl.Len() > 0 {
			if werr := c.writeRaw(ctl.Bytes()); werr != nil && err == nil {
				err = werr
			}
		}
		return err
	}

	rd := &wsutil.Reader{
		Source:         src,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		OnIntermediate: handleControl,
	}

	push := func(f Frame) error {
		select {
		case input <- f:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return err
		}

		if hdr.OpCode.IsControl() {
			if err := handleControl(hdr, rd); err != nil {
				return err
			}
			continue
		}

		if hdr.OpCode&(ws.OpText|ws.OpBinary) == 0 {
			if err := rd.Discard(); err != nil {
				return err
			}
			continue
		}

		limit := c.config.MaxMessageSize
		if hdr.Length > limit {
			if err := rd.Discard(); err != nil {
				return err
			}
			c.logger.Warn("inbound message too large", slog.Int64("len", hdr.Length), slog.Int64("limit", limit))
			if err := push(Frame{OpCode: hdr.OpCode, Err: ErrMessageTooLarge}); err != nil {
				return err
			}
			continue
		}

		payload, err := io.ReadAll(io.LimitReader(rd, limit+1))
		if err != nil {
			return err
		}
		if int64(len(payload)) > limit {
			if err := rd.Discard(); err != nil {
				return err
			}
			c.logger.Warn("inbound message too large", slog.Int64("limit", limit))
			if err := push(Frame{OpCode: hdr.OpCode, Err: ErrMessageTooLarge}); err != nil {
				return err
			}
			continue
		}

		if err := push(Frame{OpCode: hdr.OpCode, Payload: payload}); err != nil {
			return err
		}
	}
}
