// ABOUTME: ReplayProducer plays a scripted turn from YAML with per-step delays scaled by a speed factor.
// ABOUTME: Used for demos without a model backend and for end-to-end tests of the stream protocol.

package upstream

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed replay_demo.yaml
var demoScript []byte

// ReplayStep is one scripted event. Event is tool_call, message, or error.
// A message with Chunk > 0 is emitted in pieces of that many runes, each
// piece after Delay. "{message}" in Data is replaced by the user's message.
type ReplayStep struct {
	Event string         `yaml:"event"`
	Data  string         `yaml:"data"`
	Name  string         `yaml:"name"`
	Args  map[string]any `yaml:"args"`
	Delay time.Duration  `yaml:"delay"`
	Chunk int            `yaml:"chunk"`
}

// ReplayScript is the decoded YAML document.
type ReplayScript struct {
	Steps []ReplayStep `yaml:"steps"`
}

// ReplayProducer replays a script for every message.
type ReplayProducer struct {
	script ReplayScript
	speed  float64
}

// ParseReplay decodes a script. speed <= 0 means real time.
func ParseReplay(data []byte, speed float64) (*ReplayProducer, error) {
	var script ReplayScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse replay script: %w", err)
	}
	for i, step := range script.Steps {
		switch step.Event {
		case "tool_call":
			if step.Name == "" {
				return nil, fmt.Errorf("replay step %d: tool_call without a name", i)
			}
		case "message", "error":
		default:
			return nil, fmt.Errorf("replay step %d: unknown event %q", i, step.Event)
		}
	}
	if speed <= 0 {
		speed = 1
	}
	return &ReplayProducer{script: script, speed: speed}, nil
}

// LoadReplay reads a script from path, or the built-in demo script when path is empty.
func LoadReplay(path string, speed float64) (*ReplayProducer, error) {
	if path == "" {
		return ParseReplay(demoScript, speed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay script: %w", err)
	}
	return ParseReplay(data, speed)
}

// Name implements Producer.
func (p *ReplayProducer) Name() string { return "replay" }

// Steps returns the number of scripted steps.
func (p *ReplayProducer) Steps() int { return len(p.script.Steps) }

// Produce implements Producer.
func (p *ReplayProducer) Produce(ctx context.Context, message string, emit Emitter) error {
	for _, step := range p.script.Steps {
		data := strings.ReplaceAll(step.Data, "{message}", message)
		switch step.Event {
		case "tool_call":
			if err := p.wait(ctx, step.Delay); err != nil {
				return err
			}
			if err := emit.ToolCall(step.Name, step.Args); err != nil {
				return err
			}
		case "message":
			for _, piece := range chunks(data, step.Chunk) {
				if err := p.wait(ctx, step.Delay); err != nil {
					return err
				}
				if err := emit.Message(piece); err != nil {
					return err
				}
			}
		case "error":
			if err := p.wait(ctx, step.Delay); err != nil {
				return err
			}
			return errors.New(data)
		}
	}
	return nil
}

func (p *ReplayProducer) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(time.Duration(float64(d) / p.speed))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// chunks splits s into pieces of n runes; n <= 0 keeps s whole.
func chunks(s string, n int) []string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return []string{s}
	}
	var out []string
	for len(s) > 0 {
		end, count := 0, 0
		for end < len(s) && count < n {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
			count++
		}
		out = append(out, s[:end])
		s = s[end:]
	}
	return out
}
