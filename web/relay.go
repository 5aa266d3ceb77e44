// ABOUTME: relayDisplay implements stream.Display by forwarding updates to the browser as SSE events.
// ABOUTME: The event stream opens lazily so requests rejected before a session starts can still get a status code.
package web

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/2389-research/cardstream/sse"
	"github.com/2389-research/cardstream/stream"
)

// Relay event types sent to the browser.
const (
	relayStep     = "step"
	relayThinking = "thinking"
	relayContent  = "content"
	relayFinal    = "final"
	relayNotice   = "notice"
	relayEnd      = "end"
)

type relayDisplay struct {
	w     http.ResponseWriter
	sw    *sse.Writer
	err   error
	steps int
}

func newRelayDisplay(w http.ResponseWriter) *relayDisplay {
	return &relayDisplay{w: w}
}

func (d *relayDisplay) started() bool { return d.sw != nil }

func (d *relayDisplay) send(eventType, data string) {
	if d.err != nil {
		return
	}
	if d.sw == nil {
		sw, err := sse.NewWriter(d.w)
		if err != nil {
			d.err = err
			log.Printf("component=web action=relay_open err=%v", err)
			return
		}
		d.sw = sw
	}
	if err := d.sw.SendData(eventType, data); err != nil {
		// The browser went away; the session ends through its context.
		d.err = err
	}
}

func (d *relayDisplay) sendJSON(eventType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("component=web action=relay_encode event=%s err=%v", eventType, err)
		return
	}
	d.send(eventType, string(data))
}

func (d *relayDisplay) AddStep(step stream.Step) {
	d.steps++
	d.sendJSON(relayStep, step)
}

func (d *relayDisplay) FinishThinking(elapsed time.Duration) {
	d.sendJSON(relayThinking, map[string]any{
		"elapsed_ms": elapsed.Milliseconds(),
		"steps":      d.steps,
	})
}

func (d *relayDisplay) ShowContent(markup string, final bool) {
	if final {
		d.send(relayFinal, markup)
		return
	}
	d.send(relayContent, markup)
}

func (d *relayDisplay) ShowError(notice string) {
	d.send(relayNotice, notice)
}

// End reports the terminal state.
func (d *relayDisplay) End(out stream.Outcome) {
	d.sendJSON(relayEnd, map[string]any{
		"session_id": out.SessionID,
		"state":      out.State.String(),
	})
}
