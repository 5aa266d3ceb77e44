// ABOUTME: HTTPSource opens the upstream chat stream with a GET request and decodes it with the SSE parser.
// ABOUTME: A reader goroutine feeds parsed events into the connection's channel until EOF or Close.

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/2389-research/cardstream/sse"
)

// DefaultStreamPath is the upstream chat stream endpoint.
const DefaultStreamPath = "/api/chat/stream"

// ErrUnexpectedStatus is returned by HTTPSource.Open for non-2xx responses.
var ErrUnexpectedStatus = errors.New("unexpected upstream status")

// HTTPSource opens GET {BaseURL}{Path}?message=... streams.
type HTTPSource struct {
	BaseURL string
	Path    string
	Client  *http.Client
}

// Open issues the request and starts decoding the response body.
func (s *HTTPSource) Open(ctx context.Context, message string) (Conn, error) {
	path := s.Path
	if path == "" {
		path = DefaultStreamPath
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	target := strings.TrimRight(s.BaseURL, "/") + path + "?message=" + url.QueryEscape(message)

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	c := &httpConn{
		events: make(chan sse.Event),
		body:   resp.Body,
		ctx:    ctx,
		cancel: cancel,
	}
	go c.read()
	return c, nil
}

type httpConn struct {
	events chan sse.Event
	body   io.ReadCloser
	ctx    context.Context
	cancel context.CancelFunc

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

func (c *httpConn) read() {
	defer close(c.events)
	p := sse.NewParser(c.body)
	for {
		evt, err := p.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.mu.Lock()
				c.err = err
				c.mu.Unlock()
			}
			return
		}
		select {
		case c.events <- evt:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *httpConn) Events() <-chan sse.Event { return c.events }

func (c *httpConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *httpConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.body.Close()
	})
	return err
}
