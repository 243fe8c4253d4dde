package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// newHealthcheckCmd probes a running server, for container health checks.
func newHealthcheckCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check a running server's /health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url == "" {
				url = "http://localhost:8000/health"
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health check failed: HTTP %d", resp.StatusCode)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Health check passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Health endpoint (default http://localhost:8000/health)")
	return cmd
}
