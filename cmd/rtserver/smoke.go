package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codewandler/openairt-server/events"
	"github.com/codewandler/openairt-server/internal/websocket"
)

type smokeFlags struct {
	url     string
	token   string
	text    string
	timeout time.Duration
}

// newSmokeCmd drives one full response cycle against a running server.
func newSmokeCmd(flags *rootFlags) *cobra.Command {
	sf := &smokeFlags{}

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run one response cycle against a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, flags)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)

			ctx, cancel := context.WithTimeout(cmd.Context(), sf.timeout)
			defer cancel()

			client, err := websocket.Connect(ctx, websocket.ClientConfig{
				URL:     sf.url,
				Headers: http.Header{"Authorization": []string{"Bearer " + sf.token}, "OpenAI-Beta": []string{"realtime=v1"}},
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("connecting to %s: %w", sf.url, err)
			}
			defer func() {
				_ = client.Close(context.WithoutCancel(ctx))
			}()

			out := cmd.OutOrStdout()
			gray := color.New(color.FgHiBlack)
			cyan := color.New(color.FgCyan)

			expect := func(want string) (map[string]any, error) {
				for {
					evt, err := client.ReadEvent(ctx)
					if err != nil {
						return nil, fmt.Errorf("waiting for %s: %w", want, err)
					}
					typ, _ := evt["type"].(string)
					cyan.Fprintf(out, "← %s", typ)
					if id, ok := evt["response_id"].(string); ok {
						gray.Fprintf(out, " response_id=%s", id)
					}
					fmt.Fprintln(out)

					switch typ {
					case want:
						return evt, nil
					case events.TypeError:
						return nil, fmt.Errorf("server error %v: %v", evt["error"], evt["message"])
					}
				}
			}

			if _, err := expect(events.TypeSessionCreated); err != nil {
				return err
			}

			if err := client.WriteJSON(map[string]any{
				"type": events.TypeConversationItemCreate,
				"item": map[string]any{
					"type":    events.ItemTypeMessage,
					"role":    events.RoleUser,
					"content": []map[string]any{{"type": events.ContentInputText, "text": sf.text}},
				},
			}); err != nil {
				return err
			}
			if _, err := expect(events.TypeConversationItemCreated); err != nil {
				return err
			}

			if err := client.WriteJSON(map[string]any{"type": events.TypeResponseCreate}); err != nil {
				return err
			}
			if _, err := expect(events.TypeResponseDone); err != nil {
				return err
			}

			color.New(color.FgGreen).Fprintln(out, "✔ response cycle complete")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&sf.url, "url", "ws://localhost:8765", "server url")
	f.StringVar(&sf.token, "token", "smoke-test", "bearer token")
	f.StringVar(&sf.text, "text", "Hello!", "user message sent before the response")
	f.DurationVar(&sf.timeout, "timeout", 30*time.Second, "overall timeout")

	return cmd
}
