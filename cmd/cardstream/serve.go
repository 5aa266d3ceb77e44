// ABOUTME: "cardstream serve" runs the web chat: pages, card relay, history, and the built-in producer under /api.
// ABOUTME: The tool catalog override file is watched and hot-reloaded while the server runs.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389-research/cardstream/config"
	"github.com/2389-research/cardstream/upstream"
	"github.com/2389-research/cardstream/web"
)

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web chat server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides the config (e.g. :8080)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, out io.Writer) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	go func() {
		if err := a.catalog.Watch(ctx, nil); err != nil {
			log.Printf("component=cli action=watch_tools err=%v", err)
		}
	}()

	var api http.Handler
	producerName := "none"
	if a.producer != nil {
		api = upstream.NewServer(a.producer, a.catalog).Routes()
		producerName = a.producer.Name()
	}

	var history web.History
	if a.history != nil {
		history = a.history
	}

	srv, err := web.NewServer(web.ServerConfig{
		Addr:       cfg.Listen,
		Gate:       a.gate(cfg.StreamBaseURL(), a.pipeline),
		Pipeline:   a.pipeline,
		History:    history,
		API:        api,
		SubmitRate: cfg.SubmitRate,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "cardstream serving on http://%s (producer: %s, stream: %s)\n", cfg.Listen, producerName, cfg.StreamBaseURL())
	log.Printf("component=cli action=serve listen=%s producer=%s history=%t", cfg.Listen, producerName, a.history != nil)
	return srv.Run(ctx)
}
