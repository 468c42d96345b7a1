package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	rtserver "github.com/codewandler/openairt-server"
)

func newProbeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Inspect the response audio file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}

			srv, err := rtserver.New(serverOptions(cfg)...)
			if err != nil {
				return err
			}

			info, err := srv.ProbeAsset()
			if err != nil {
				return fmt.Errorf("probing %s: %w", cfg.Content.AudioAsset, err)
			}

			out := cmd.OutOrStdout()
			green := color.New(color.FgGreen)
			green.Fprint(out, "✔ ")
			fmt.Fprintf(out, "%s\n", info.Path)
			fmt.Fprintf(out, "  format:      %s\n", info.Format)
			fmt.Fprintf(out, "  size:        %d bytes\n", info.Size)
			if info.SampleRate > 0 {
				fmt.Fprintf(out, "  sample rate: %d Hz\n", info.SampleRate)
				fmt.Fprintf(out, "  channels:    %d\n", info.Channels)
				fmt.Fprintf(out, "  duration:    %s\n", info.Duration)
			}
			return nil
		},
	}
}
