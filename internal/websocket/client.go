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

type ClientConfig struct {
	URL         string
	DialTimeout time.Duration
	Headers     http.Header
	Logger      *slog.Logger
}

// Client is a minimal websocket client used to drive the server from tests
// and from the smoke command.
type Client struct {
	conn     net.Conn
	br       *bufio.Reader
	out      chan wsutil.Message
	inbox    chan []byte
	done     chan struct{}
	doneOnce sync.Once
	writeMu  sync.Mutex
	logger   *slog.Logger

	closeCode   ws.StatusCode
	closeReason string
}

func (c *Client) setDone() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed when the connection ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// CloseStatus reports the close frame received from the server. It is only
// meaningful after Done is closed.
func (c *Client) CloseStatus() (ws.StatusCode, string) {
	return c.closeCode, c.closeReason
}

func (c *Client) WriteText(data []byte) {
	c.Write(ws.OpText, data)
}

// WriteJSON encodes v and sends it as a text message.
func (c *Client) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.WriteText(data)
	return nil
}

func (c *Client) SendClose(code ws.StatusCode, reason string) {
	c.Write(ws.OpClose, ws.NewCloseFrameBody(code, reason))
}

func (c *Client) Close(ctx context.Context) error {
	c.SendClose(ws.StatusNormalClosure, "closing")
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		_ = c.conn.Close()
		return fmt.Errorf("close failed: %w", ctx.Err())
	}
}

func (c *Client) Write(opcode ws.OpCode, data []byte) {
	select {
	case c.out <- wsutil.Message{OpCode: opcode, Payload: data}:
	case <-c.done:
	}
}

// ReadText returns the next queued text message.
func (c *Client) ReadText(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-c.inbox:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReadEvent returns the next text message decoded as a JSON object.
func (c *Client) ReadEvent(ctx context.Context) (map[string]any, error) {
	data, err := c.ReadText(ctx)
	if err != nil {
		return nil, err
	}
	var evt map[string]any
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return evt, nil
}

func (c *Client) writeRaw(p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(p)
	return err
}

func Connect(ctx context.Context, config ClientConfig) (*Client, error) {

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(
		slog.String("url", config.URL),
	)

	dialTimeout := config.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 10 * time.Second
	}

	// handshake timeout only
	hsCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	d := ws.Dialer{
		Timeout: dialTimeout,
		Header:  ws.HandshakeHeaderHTTP(config.Headers),
	}
	conn, br, hs, err := d.Dial(hsCtx, config.URL)
	if err != nil {
		return nil, err
	}
	logger.Debug("handshake complete", slog.Any("protocol", hs.Protocol))

	client := &Client{
		conn:   conn,
		br:     br,
		out:    make(chan wsutil.Message, 1000),
		inbox:  make(chan []byte, 1000),
		done:   make(chan struct{}),
		logger: logger,
	}

	go client.readLoop()

	// output channel -> websocket
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-client.done:
				return
			case msg := <-client.out:
				var frame bytes.Buffer
				if err := wsutil.WriteClientMessage(&frame, msg.OpCode, msg.Payload); err != nil {
					logger.Error("message encode error", slog.Any("err", err))
					continue
				}
				if err := client.writeRaw(frame.Bytes()); err != nil {
					logger.Debug("message write error", slog.Any("err", err))
					return
				}
			}
		}
	}()

	return client, nil
}

func (c *Client) readLoop() {
	defer func() {
		if c.br != nil {
			ws.PutReader(c.br)
		}
		_ = c.conn.Close()
		close(c.inbox)
		c.setDone()
	}()

	var src io.Reader = c.conn
	if c.br != nil {
		src = c.br
	}

	var ctl bytes.Buffer
	ctlHandler := wsutil.ControlFrameHandler(&ctl, ws.StateClientSide)
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
		State:          ws.StateClientSide,
		OnIntermediate: handleControl,
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.logger.Debug("ws read failed", slog.Any("err", err))
			}
			return
		}

		if hdr.OpCode.IsControl() {
			err := handleControl(hdr, rd)
			var closed wsutil.ClosedError
			if errors.As(err, &closed) {
				c.logger.Debug("rcv: close", slog.Int("code", int(closed.Code)), slog.String("reason", closed.Reason))
				c.closeCode, c.closeReason = closed.Code, closed.Reason
				return
			}
			if err != nil {
				c.logger.Error("handling of control message failed", slog.Any("err", err))
				return
			}
			continue
		}

		data, err := io.ReadAll(rd)
		if err != nil {
			c.logger.Debug("ws read failed", slog.Any("err", err))
			return
		}

		switch hdr.OpCode {
		case ws.OpText:
			c.logger.Debug("rcv: text", slog.Int("len", len(data)))
			c.inbox <- data
		case ws.OpBinary:
			c.logger.Debug("rcv: binary ignored", slog.Int("len", len(data)))
		}
	}
}
