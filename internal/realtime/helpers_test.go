package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/codewandler/openairt-server/internal/content"
	"github.com/codewandler/openairt-server/internal/session"
	"github.com/stretchr/testify/require"
)

// recorder encodes events at emit time, like the websocket transport does.
type recorder struct {
	mu     sync.Mutex
	frames []map[string]any
	after  func(n int)
}

func (r *recorder) Emit(_ context.Context, evt any) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	r.mu.Lock()
	r.frames = append(r.frames, frame)
	n := len(r.frames)
	r.mu.Unlock()

	if r.after != nil {
		r.after(n)
	}
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.frames))
	for _, f := range r.frames {
		out = append(out, f["type"].(string))
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.frames = nil
	r.mu.Unlock()
}

func (r *recorder) frame(i int) map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[i]
}

func writeAsset(t *testing.T, data []byte) *content.Asset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reply.mp3")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return content.NewAsset(path)
}

func missingAsset(t *testing.T) *content.Asset {
	return content.NewAsset(filepath.Join(t.TempDir(), "missing.mp3"))
}

type fixture struct {
	handler  *Handler
	session  *session.Session
	sessions *session.Manager
	rec      *recorder
}

func newFixture(t *testing.T, asset *content.Asset) *fixture {
	t.Helper()

	sessions := session.NewManager()
	sess, _ := sessions.GetOrCreate("conn-test", "test-model")
	rec := &recorder{}
	canned := content.NewCanned(asset)

	return &fixture{
		handler: NewHandler(sess, sessions, rec, Config{
			Text:        canned,
			Audio:       canned,
			Transcriber: canned,
		}),
		session:  sess,
		sessions: sessions,
		rec:      rec,
	}
}

func (f *fixture) send(t *testing.T, frame string) {
	t.Helper()
	f.handler.Handle(context.Background(), []byte(frame))
}

type failingTranscriber struct{}

func (failingTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return "", errors.New("backend down")
}

type panickingText struct{}

func (panickingText) NextResponseText(context.Context) (string, error) {
	panic("boom")
}
