package audiobuf

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/smallnest/ringbuffer"
)

var (
	ErrBufferFull   = errors.New("input audio buffer full")
	ErrInvalidAudio = errors.New("invalid base64 audio")
)

type State int

const (
	StateEmpty State = iota
	StateAccumulating
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const initialSize = 64 * 1024

// Buffer accumulates inbound audio until it is committed or cleared. The
// backing ring grows by doubling up to maxSize. It is not safe for
// concurrent use.
type Buffer struct {
	rb      *ringbuffer.RingBuffer
	maxSize int
}

func New(maxSize int) *Buffer {
	size := initialSize
	if maxSize < size {
		size = maxSize
	}
	return &Buffer{
		rb:      ringbuffer.New(size),
		maxSize: maxSize,
	}
}

func (b *Buffer) State() State {
	if b.rb.IsEmpty() {
		return StateEmpty
	}
	return StateAccumulating
}

func (b *Buffer) Len() int {
	return b.rb.Length()
}

// AppendBase64 decodes payload and appends it. An empty payload is a no-op.
func (b *Buffer) AppendBase64(payload string) (int, error) {
	if payload == "" {
		return 0, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	return len(data), b.Append(data)
}

// Append adds data to the buffer. Either all of data is appended or, when it
// would exceed the maximum size, none of it.
func (b *Buffer) Append(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if len(data) > b.rb.Free() {
		if err := b.grow(len(data)); err != nil {
			return err
		}
	}
	if _, err := b.rb.Write(data); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return nil
}

// Take drains the whole buffer and returns its contents. It returns nil if the
// buffer is empty.
func (b *Buffer) Take() []byte {
	n := b.rb.Length()
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	read, _ := b.rb.Read(out)
	b.rb.Reset()
	return out[:read]
}

func (b *Buffer) Clear() {
	b.rb.Reset()
}

func (b *Buffer) grow(need int) error {
	used := b.rb.Length()
	if used+need > b.maxSize {
		return fmt.Errorf("%w: %d + %d bytes exceeds %d", ErrBufferFull, used, need, b.maxSize)
	}

	size := b.rb.Capacity()
	for size-used < need {
		size *= 2
	}
	if size > b.maxSize {
		size = b.maxSize
	}

	next := ringbuffer.New(size)
	if used > 0 {
		pending := make([]byte, used)
		n, _ := b.rb.Read(pending)
		if _, err := next.Write(pending[:n]); err != nil {
			return fmt.Errorf("grow audio buffer: %w", err)
		}
	}
	b.rb = next
	return nil
}
