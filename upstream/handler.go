// ABOUTME: HTTP routes for the chat producer: streaming and one-shot chat, health, and the tool list.
// ABOUTME: The stream handler runs the producer in a goroutine and sends keep-alive comments while it works.

package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/cardstream/sse"
	"github.com/2389-research/cardstream/tools"
)

// DefaultKeepAlive is the interval between keep-alive comments on a quiet stream.
const DefaultKeepAlive = 15 * time.Second

// doneData is the payload of the terminal done event.
const doneData = "[DONE]"

const maxChatBody = 64 << 10

// Server exposes a Producer over HTTP.
type Server struct {
	producer  Producer
	catalog   *tools.Catalog
	keepAlive time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithKeepAlive overrides the keep-alive interval.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

// NewServer wraps p. catalog may be nil, in which case the embedded catalog is used.
func NewServer(p Producer, catalog *tools.Catalog, opts ...Option) *Server {
	if catalog == nil {
		catalog = tools.Default()
	}
	s := &Server{producer: p, catalog: catalog, keepAlive: DefaultKeepAlive}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the producer routes relative to their mount point.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Get("/tools", s.handleTools)
	r.Get("/chat/stream", s.handleStream)
	r.Post("/chat", s.handleChat)
	return r
}

// Handler serves p under /api, the layout HTTPSource expects.
func Handler(p Producer, catalog *tools.Catalog, opts ...Option) http.Handler {
	r := chi.NewRouter()
	r.Mount("/api", NewServer(p, catalog, opts...).Routes())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"service":     "cardstream",
		"producer":    s.producer.Name(),
		"tools_count": s.catalog.Len(),
	})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Entries())
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	message := strings.TrimSpace(r.URL.Query().Get("message"))
	if message == "" {
		http.Error(w, ErrNoMessage.Error(), http.StatusBadRequest)
		return
	}

	sw, err := sse.NewWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	result := make(chan error, 1)
	go func() {
		result <- s.producer.Produce(ctx, message, &sseEmitter{w: sw})
	}()

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case err := <-result:
			s.finish(ctx, sw, err)
			return
		case <-keepAlive.C:
			if err := sw.Comment("keep-alive"); err != nil {
				log.Printf("component=upstream action=keepalive_failed err=%v", err)
			}
		case <-ctx.Done():
			// The response writer must outlive the producer goroutine.
			<-result
			return
		}
	}
}

func (s *Server) finish(ctx context.Context, sw *sse.Writer, err error) {
	if err == nil {
		if werr := sw.SendData("done", doneData); werr != nil {
			log.Printf("component=upstream action=send_done_failed err=%v", werr)
		}
		return
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}
	log.Printf("component=upstream action=produce_failed producer=%s err=%v", s.producer.Name(), err)
	if werr := sw.SendData("error", errorPayload(err)); werr != nil {
		log.Printf("component=upstream action=send_error_failed err=%v", werr)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ErrNoMessage.Error()})
		return
	}

	var c collector
	if err := s.producer.Produce(r.Context(), message, &c); err != nil {
		log.Printf("component=upstream action=chat_failed producer=%s err=%v", s.producer.Name(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": c.text.String()})
}

// sseEmitter frames producer events on an SSE writer.
type sseEmitter struct {
	w *sse.Writer
}

func (e *sseEmitter) ToolCall(name string, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args"`
	}{name, args})
	if err != nil {
		return err
	}
	return e.w.SendData("tool_call", string(data))
}

func (e *sseEmitter) Message(text string) error {
	if text == "" {
		return nil
	}
	return e.w.SendData("message", text)
}

func errorPayload(err error) string {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
