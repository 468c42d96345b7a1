package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// Asset is a static audio file replayed verbatim as response audio. It is
// read on every use so the file can be swapped while the server runs.
type Asset struct {
	Path string
}

func NewAsset(path string) *Asset {
	return &Asset{Path: path}
}

// Read returns the file bytes. A missing file yields ErrAudioUnavailable.
func (a *Asset) Read() ([]byte, error) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAudioUnavailable, a.Path)
		}
		return nil, fmt.Errorf("read audio asset: %w", err)
	}
	return data, nil
}

// Format is the file extension without the dot, defaulting to mp3.
func (a *Asset) Format() string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(a.Path)), ".")
	if ext == "" {
		return "mp3"
	}
	return ext
}

type Info struct {
	Path       string
	Format     string
	Size       int64
	Duration   time.Duration
	SampleRate int
	Channels   int
}

// Probe stats the asset and, for mp3 and wav files, decodes the header to
// report duration and sample format.
func (a *Asset) Probe() (Info, error) {
	info := Info{Path: a.Path, Format: a.Format()}

	st, err := os.Stat(a.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return info, fmt.Errorf("%w: %s", ErrAudioUnavailable, a.Path)
		}
		return info, err
	}
	info.Size = st.Size()

	f, err := os.Open(a.Path)
	if err != nil {
		return info, err
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch info.Format {
	case "mp3":
		streamer, format, err = mp3.Decode(f)
	case "wav":
		streamer, format, err = wav.Decode(f)
	default:
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("decode %s: %w", info.Format, err)
	}
	defer streamer.Close()

	info.SampleRate = int(format.SampleRate)
	info.Channels = format.NumChannels
	info.Duration = format.SampleRate.D(streamer.Len())

	return info, nil
}
