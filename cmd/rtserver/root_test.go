package main

import (
	"bytes"
	"encoding/binary"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rtserver "github.com/codewandler/openairt-server"
	"github.com/codewandler/openairt-server/internal/config"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// silentWAV builds a mono 16-bit PCM wav file.
func silentWAV(sampleRate, frames int) []byte {
	dataLen := frames * 2
	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+dataLen))
	b.WriteString("WAVEfmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(dataLen))
	b.Write(make([]byte, dataLen))
	return b.Bytes()
}

func TestCommandsRegistered(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"serve", "probe", "smoke"} {
		assert.Contains(t, names, want)
	}
}

func TestServeFlags(t *testing.T) {
	root := newRootCmd()
	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)

	for _, name := range []string{"host", "port", "model", "voice", "latency", "debug", "config", "asset", "log-format"} {
		assert.NotNil(t, serve.Flag(name), name)
	}
}

func TestResolveConfigPrecedence(t *testing.T) {
	path := writeFile(t, "rtserver.yaml", []byte(`
server:
  port: 9000
session:
  model: file-model
  voice: echo
`))

	flags := &rootFlags{configPath: path}
	cmd := newServeCmd(flags)
	require.NoError(t, cmd.ParseFlags([]string{"--model", "flag-model", "--latency", "10ms"}))

	cfg, err := resolveConfig(cmd, flags)
	require.NoError(t, err)

	assert.Equal(t, "flag-model", cfg.Session.Model)
	assert.Equal(t, "echo", cfg.Session.Voice)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 10*time.Millisecond, cfg.Content.Latency)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestResolveConfigFromEnv(t *testing.T) {
	path := writeFile(t, "rtserver.toml", []byte("[session]\nmodel = \"env-model\"\n"))
	t.Setenv(config.EnvPath, path)

	flags := &rootFlags{debug: true}
	cmd := newServeCmd(flags)
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := resolveConfig(cmd, flags)
	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Session.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestResolveConfigRejectsBadPort(t *testing.T) {
	t.Setenv(config.EnvPath, "")

	flags := &rootFlags{}
	cmd := newServeCmd(flags)
	require.NoError(t, cmd.ParseFlags([]string{"--port", "0"}))

	_, err := resolveConfig(cmd, flags)
	require.Error(t, err)
}

func TestProbe(t *testing.T) {
	t.Setenv(config.EnvPath, "")
	asset := writeFile(t, "reply.wav", silentWAV(8000, 8000))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"probe", "--asset", asset})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "format:      wav")
	assert.Contains(t, out.String(), "sample rate: 8000 Hz")
	assert.Contains(t, out.String(), "duration:    1s")
}

func TestProbeMissingAsset(t *testing.T) {
	t.Setenv(config.EnvPath, "")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"probe", "--asset", filepath.Join(t.TempDir(), "missing.mp3")})

	require.Error(t, root.Execute())
}

func TestSmoke(t *testing.T) {
	t.Setenv(config.EnvPath, "")

	srv, err := rtserver.New(
		rtserver.WithLatency(0),
		rtserver.WithAudioAsset(filepath.Join(t.TempDir(), "missing.mp3")),
	)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"smoke", "--url", "ws" + strings.TrimPrefix(ts.URL, "http"), "--timeout", "10s", "--log-format", "json"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "← session.created")
	assert.Contains(t, out.String(), "← response.done")
	assert.Contains(t, out.String(), "response cycle complete")
}
