package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	rtserver "github.com/codewandler/openairt-server"
	"github.com/codewandler/openairt-server/internal/config"
)

type rootFlags struct {
	configPath string
	debug      bool
	logFormat  string

	host    string
	port    int
	asset   string
	model   string
	voice   string
	latency time.Duration
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "rtserver",
		Short: "Mock server for the OpenAI realtime websocket protocol",
		Long: `rtserver speaks the OpenAI realtime websocket protocol without a model
behind it. Every response is canned text plus a static audio file, which makes
it useful for developing and testing realtime clients offline.

Quick Start:
  rtserver serve                          # listen on localhost:8765
  rtserver serve --port 9000 --debug      # custom port, debug logs
  rtserver probe --asset reply.mp3        # inspect the response audio
  rtserver smoke --url ws://localhost:8765 # run one response cycle`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (.yaml, .yml or .toml), defaults to $"+config.EnvPath)
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&flags.asset, "asset", "", "audio file replayed as response audio")

	cmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	cmd.AddCommand(
		newServeCmd(flags),
		newProbeCmd(flags),
		newSmokeCmd(flags),
	)
	return cmd
}

// resolveConfig layers defaults, the config file and flags set on cmd, in
// that order.
func resolveConfig(cmd *cobra.Command, flags *rootFlags) (*config.Config, error) {
	path := flags.configPath
	if path == "" {
		path = os.Getenv(config.EnvPath)
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if flags.debug {
		cfg.Logging.Level = "debug"
	}
	if changed("log-format") {
		cfg.Logging.Format = flags.logFormat
	}
	if changed("asset") {
		cfg.Content.AudioAsset = flags.asset
	}
	if changed("host") {
		cfg.Server.Host = flags.host
	}
	if changed("port") {
		cfg.Server.Port = flags.port
	}
	if changed("model") {
		cfg.Session.Model = flags.model
	}
	if changed("voice") {
		cfg.Session.Voice = flags.voice
	}
	if changed("latency") {
		cfg.Content.Latency = flags.latency
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serverOptions(cfg *config.Config) []rtserver.ServerOption {
	return []rtserver.ServerOption{rtserver.WithConfig(cfg)}
}
