// Package content holds the collaborators that produce response content. The
// response sequencer only depends on the interfaces; Canned is the
// deterministic implementation used by the server.
package content

import (
	"context"
	"errors"
)

// ErrAudioUnavailable reports that no audio can be produced right now. Callers
// treat it as a degraded mode, not a failure.
var ErrAudioUnavailable = errors.New("audio unavailable")

type Audio struct {
	Data       []byte
	Format     string
	Transcript string
}

type TextSource interface {
	NextResponseText(ctx context.Context) (string, error)
}

type AudioSource interface {
	NextResponseAudio(ctx context.Context) (*Audio, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

const (
	DefaultText            = "Hello, I am an AI assistant. Happy to help you."
	DefaultTranscript      = "This is the transcript of what the assistant said."
	DefaultInputTranscript = "This is the transcript of what the user said."
)

// Canned returns fixed text and transcripts and replays a static audio asset.
type Canned struct {
	Text            string
	Transcript      string
	InputTranscript string
	Asset           *Asset
}

func NewCanned(asset *Asset) *Canned {
	return &Canned{
		Text:            DefaultText,
		Transcript:      DefaultTranscript,
		InputTranscript: DefaultInputTranscript,
		Asset:           asset,
	}
}

func (c *Canned) NextResponseText(ctx context.Context) (string, error) {
	return c.Text, ctx.Err()
}

func (c *Canned) NextResponseAudio(ctx context.Context) (*Audio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Asset == nil {
		return nil, ErrAudioUnavailable
	}
	data, err := c.Asset.Read()
	if err != nil {
		return nil, err
	}
	return &Audio{
		Data:       data,
		Format:     c.Asset.Format(),
		Transcript: c.Transcript,
	}, nil
}

func (c *Canned) Transcribe(ctx context.Context, _ []byte) (string, error) {
	return c.InputTranscript, ctx.Err()
}
