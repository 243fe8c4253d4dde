package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/snow-ghost/codeassist/pkg/httpserver"
)

func newServeCmd(configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			serverCfg := a.cfg.Server
			if listen != "" {
				serverCfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := httpserver.NewServer(serverCfg, httpserver.Deps{
				Chat:      a.chat,
				Feedback:  a.feedback,
				Registry:  a.registry,
				Gatherer:  a.prom,
				Generator: a.generator,
			}, a.logger)

			a.logger.Info("starting codeassist",
				"addr", serverCfg.Listen,
				"backend", a.generator.Backend(),
				"model", a.generator.Model(),
				"store", a.cfg.Store.Driver,
				"agents", a.registry.Len(),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Address to listen on (overrides server.listen)")
	return cmd
}
