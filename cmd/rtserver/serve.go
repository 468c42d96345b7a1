package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	rtserver "github.com/codewandler/openairt-server"
	"github.com/codewandler/openairt-server/internal/config"
)

const banner = `
       _
  _ __| |_ ___  ___ _ ____   _____ _ __
 | '__| __/ __|/ _ \ '__\ \ / / _ \ '__|
 | |  | |_\__ \  __/ |   \ V /  __/ |
 |_|   \__|___/\___|_|    \_/ \___|_|
`

func newServeCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the realtime websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}

			logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)

			srv, err := rtserver.New(append(serverOptions(cfg), rtserver.WithLogger(logger))...)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			if cfg.Logging.Format != "json" {
				printBanner(cmd, cfg.Addr(), cfg.Server.Path, cfg.Session.Model, cfg.Content.AudioAsset)
			}

			return srv.ListenAndServe(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.host, "host", config.DefaultHost, "listen host")
	f.IntVar(&flags.port, "port", config.DefaultPort, "listen port")
	f.StringVar(&flags.model, "model", config.DefaultModel, "model reported when the client passes none")
	f.StringVar(&flags.voice, "voice", config.DefaultVoice, "default session voice")
	f.DurationVar(&flags.latency, "latency", config.DefaultLatency, "simulated generation delay per response")

	return cmd
}

func printBanner(cmd *cobra.Command, addr, path, model, asset string) {
	out := cmd.OutOrStdout()

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)

	cyan.Fprint(out, banner)
	gray.Fprintf(out, "    version: %s\n\n", version)

	green.Fprint(out, "    ▶ ")
	fmt.Fprintf(out, "Listen:  ws://%s%s\n", addr, path)
	green.Fprint(out, "    ▶ ")
	fmt.Fprintf(out, "Model:   %s\n", model)
	green.Fprint(out, "    ▶ ")
	fmt.Fprintf(out, "Audio:   %s\n\n", asset)
}
