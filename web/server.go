// ABOUTME: cardstream HTTP server: chat page, render endpoint, streamed chat relay, and turn history behind chi.
// ABOUTME: The relay runs a gated stream session and forwards every display update to the browser as SSE.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/2389-research/cardstream/render"
	"github.com/2389-research/cardstream/store"
	"github.com/2389-research/cardstream/stream"
)

// maxRenderBody caps POST /render bodies.
const maxRenderBody = 1 << 20

// History is the read side of the turn store.
type History interface {
	Recent(ctx context.Context, limit int) ([]store.Turn, error)
	Get(ctx context.Context, id string) (store.Turn, error)
}

// ServerConfig holds the collaborators of the web server.
type ServerConfig struct {
	Addr       string           // listen address (default: "127.0.0.1:8080")
	Gate       *stream.Gate     // required
	Pipeline   *render.Pipeline // nil renders without a cache
	History    History          // nil disables /turns and /history
	API        http.Handler     // mounted under /api when set
	SubmitRate float64          // chat submissions per minute, 0 = unlimited
}

// Server is the cardstream HTTP server.
type Server struct {
	router    chi.Router
	addr      string
	templates *TemplateEngine
	gate      *stream.Gate
	pipeline  *render.Pipeline
	history   History
	limiter   *rate.Limiter
	about     template.HTML
}

// NewServer wires the routes.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Gate == nil {
		return nil, fmt.Errorf("web server needs a stream gate")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	tmpl, err := NewTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}

	s := &Server{
		addr:      cfg.Addr,
		templates: tmpl,
		gate:      cfg.Gate,
		pipeline:  cfg.Pipeline,
		history:   cfg.History,
		limiter:   newLimiter(cfg.SubmitRate),
		about:     aboutHTML(),
	}
	s.router = s.buildRouter(cfg.API)
	return s, nil
}

// newLimiter allows perMinute submissions with a burst of a tenth of that.
func newLimiter(perMinute float64) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	burst := int(math.Max(1, math.Floor(perMinute/10)))
	return rate.NewLimiter(rate.Limit(perMinute/60), burst)
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) buildRouter(api http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(webRequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(StaticFiles()))))

	r.Post("/render", s.handleRender)
	r.Get("/chat/stream", s.handleChatStream)

	r.Get("/history", s.handleHistoryPage)
	r.Route("/turns", func(r chi.Router) {
		r.Get("/", s.handleTurnList)
		r.Get("/{turnID}", s.handleTurn)
	})

	if api != nil {
		r.Mount("/api", api)
	}
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := PageData{Title: "Research chat", About: s.about, Enabled: s.history != nil}
	if err := s.templates.Render(w, "index.html", data); err != nil {
		log.Printf("component=web action=render_page page=index err=%v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"active_session": s.gate.Active() != nil,
		"cached_renders": s.pipeline.Cached(),
	})
}

// handleRender converts a raw markdown body to a card markup fragment.
// ?final=1 marks the text as complete.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRenderBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "body exceeds 1 MiB", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	final := isTrue(r.URL.Query().Get("final"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, s.pipeline.Render(string(body), final))
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	message := strings.TrimSpace(r.URL.Query().Get("message"))
	if message == "" {
		http.Error(w, stream.ErrEmptyMessage.Error(), http.StatusBadRequest)
		return
	}
	if s.gate.Active() != nil {
		http.Error(w, stream.ErrSessionActive.Error(), http.StatusConflict)
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	// A turn may legitimately outlast the server-wide write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Printf("component=web action=clear_write_deadline err=%v", err)
	}

	relay := newRelayDisplay(w)
	out, err := s.gate.Submit(r.Context(), message, relay)
	if err != nil {
		if relay.started() {
			return
		}
		switch {
		case errors.Is(err, stream.ErrSessionActive):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, stream.ErrEmptyMessage):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	relay.End(out)
}

func (s *Server) handleTurnList(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history is disabled", http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	turns, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("component=web action=list_turns err=%v", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history is disabled", http.StatusNotFound)
		return
	}
	turn, err := s.history.Get(r.Context(), chi.URLParam(r, "turnID"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "turn not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("component=web action=get_turn err=%v", err)
		http.Error(w, "failed to load turn", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		store.Turn
		HTML string `json:"html"`
	}{turn, s.pipeline.Render(turn.Text, true)})
}

func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	data := PageData{Title: "History", Enabled: s.history != nil}
	if s.history != nil {
		turns, err := s.history.Recent(r.Context(), 0)
		if err != nil {
			log.Printf("component=web action=list_turns err=%v", err)
			http.Error(w, "failed to load history", http.StatusInternalServerError)
			return
		}
		for _, t := range turns {
			data.Turns = append(data.Turns, TurnView{
				Turn: t,
				// Renderer output escapes all source text.
				Markup: template.HTML(s.pipeline.Render(t.Text, true)),
			})
		}
	}
	if err := s.templates.Render(w, "history.html", data); err != nil {
		log.Printf("component=web action=render_page page=history err=%v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func isTrue(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
