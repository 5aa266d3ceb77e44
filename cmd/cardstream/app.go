// ABOUTME: Builds the shared runtime from config: tool catalog, render pipeline, history store, producer, and gate.
// ABOUTME: Without an upstream_url the producer is served on a loopback listener so the stream client has an endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/2389-research/cardstream/config"
	"github.com/2389-research/cardstream/render"
	"github.com/2389-research/cardstream/store"
	"github.com/2389-research/cardstream/stream"
	"github.com/2389-research/cardstream/tools"
	"github.com/2389-research/cardstream/upstream"
)

// app holds the components every command wires from config.
type app struct {
	cfg      *config.Config
	catalog  *tools.Catalog
	pipeline *render.Pipeline
	history  *store.TurnStore // nil when history is disabled
	producer upstream.Producer
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, pipeline: render.NewPipeline(cfg.RenderCacheTTL)}

	a.catalog = tools.Default()
	if cfg.ToolsFile != "" {
		catalog, err := tools.Load(cfg.ToolsFile)
		if err != nil {
			return nil, fmt.Errorf("load tools: %w", err)
		}
		a.catalog = catalog
	}

	producer, err := newProducer(cfg, a.catalog)
	if err != nil {
		return nil, err
	}
	a.producer = producer

	path, err := resolveHistoryPath(cfg.HistoryDB)
	if err != nil {
		return nil, err
	}
	if path != "" {
		history, err := store.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.history = history
	}
	return a, nil
}

// newProducer returns the configured producer, or nil for kind "none".
func newProducer(cfg *config.Config, catalog *tools.Catalog) (upstream.Producer, error) {
	switch cfg.Producer.Kind {
	case config.ProducerNone:
		return nil, nil
	case config.ProducerReplay:
		p, err := upstream.LoadReplay(cfg.Producer.Replay.File, cfg.Producer.Replay.Speed)
		if err != nil {
			return nil, fmt.Errorf("load replay: %w", err)
		}
		return p, nil
	case config.ProducerOpenAI:
		oa := cfg.Producer.OpenAI
		return upstream.NewOpenAIProducer(upstream.OpenAIConfig{
			APIKey:       oa.APIKey,
			BaseURL:      oa.BaseURL,
			Model:        oa.Model,
			SystemPrompt: oa.SystemPrompt,
			Runner:       upstream.ToolFuncs{"think": upstream.Think},
			Catalog:      catalog,
		}), nil
	default:
		return nil, fmt.Errorf("unknown producer kind %q", cfg.Producer.Kind)
	}
}

// recorder returns the history store as a stream.Recorder, or nil.
func (a *app) recorder() stream.Recorder {
	if a.history == nil {
		return nil
	}
	return a.history
}

// gate builds the single-session gate over the stream endpoint at baseURL.
func (a *app) gate(baseURL string, renderer stream.Renderer) *stream.Gate {
	return stream.NewGate(&stream.HTTPSource{BaseURL: baseURL}, stream.Config{
		IdleTimeout: a.cfg.IdleTimeout,
		Renderer:    renderer,
		Steps:       a.catalog,
	}, a.recorder())
}

// streamBaseURL returns the configured upstream, or serves the producer on a
// loopback port until ctx ends.
func (a *app) streamBaseURL(ctx context.Context) (string, error) {
	if a.cfg.UpstreamURL != "" {
		return a.cfg.UpstreamURL, nil
	}
	if a.producer == nil {
		return "", errors.New("no upstream_url and no producer configured")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listen for local producer: %w", err)
	}
	srv := &http.Server{
		Handler:           upstream.Handler(a.producer, a.catalog),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("component=cli action=local_producer err=%v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return "http://" + ln.Addr().String(), nil
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			log.Printf("component=cli action=close_history err=%v", err)
		}
	}
}
