package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snow-ghost/codeassist/core"
)

func newAskCmd(configPath *string) *cobra.Command {
	var (
		sessionID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Route one prompt and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			prompt := strings.Join(args, " ")
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			var res core.RouteResult
			if sessionID != "" {
				if _, err := a.store.CreateSession(ctx, sessionID); err != nil {
					return err
				}
				reply, err := a.chat.Continue(ctx, sessionID, prompt)
				if err != nil {
					return err
				}
				res = reply.RouteResult
			} else {
				res, err = a.chat.Generate(ctx, prompt)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintln(out, res.Response)
			fmt.Fprintf(out, "\n[%s, confidence %.1f]\n", res.Provider, res.Confidence)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Chat session id; created when missing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full routing result as JSON")
	return cmd
}
