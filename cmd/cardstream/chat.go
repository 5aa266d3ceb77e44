// ABOUTME: "cardstream chat" and "cardstream ask" run turns from the terminal.
// ABOUTME: chat opens the interactive TUI; ask answers one question as ANSI, card HTML, or raw markdown.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389-research/cardstream/config"
	"github.com/2389-research/cardstream/stream"
	"github.com/2389-research/cardstream/tui"
)

// Output formats for ask.
const (
	formatANSI     = "ansi"
	formatHTML     = "html"
	formatMarkdown = "markdown"
)

func newChatCmd(load func() (*config.Config, error)) *cobra.Command {
	var style string
	var width int
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()
			_, err = runTUI(ctx, cfg, style, width)
			return err
		},
	}
	cmd.Flags().StringVar(&style, "style", "", "glamour style: dark, light, notty, ... (default: detect)")
	cmd.Flags().IntVar(&width, "width", tui.DefaultWrap, "Word-wrap width for answers")
	return cmd
}

func newAskCmd(load func() (*config.Config, error)) *cobra.Command {
	var format, style string
	var width int
	cmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: "Ask one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			message := strings.TrimSpace(strings.Join(args, " "))
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var out stream.Outcome
			switch format {
			case formatANSI:
				out, err = runTUI(ctx, cfg, style, width, tui.WithMessage(message))
			case formatHTML, formatMarkdown:
				out, err = runPlain(ctx, cfg, message, format, cmd.OutOrStdout(), cmd.ErrOrStderr())
			default:
				return fmt.Errorf("unknown format %q (want ansi, html, or markdown)", format)
			}
			if err != nil {
				return err
			}
			if out.State != stream.Completed {
				return fmt.Errorf("answer %s", out.State)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatANSI, "Output format: ansi, html, markdown")
	cmd.Flags().StringVar(&style, "style", "", "glamour style for ansi output (default: detect)")
	cmd.Flags().IntVar(&width, "width", tui.DefaultWrap, "Word-wrap width for ansi output")
	return cmd
}

func runTUI(ctx context.Context, cfg *config.Config, style string, width int, opts ...tui.ChatOption) (stream.Outcome, error) {
	a, err := newApp(cfg)
	if err != nil {
		return stream.Outcome{}, err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	baseURL, err := a.streamBaseURL(ctx)
	if err != nil {
		return stream.Outcome{}, err
	}
	renderer, err := tui.NewTerminalRenderer(width, style)
	if err != nil {
		return stream.Outcome{}, fmt.Errorf("terminal renderer: %w", err)
	}
	return tui.Run(ctx, a.gate(baseURL, renderer), opts...)
}

// runPlain answers without a TUI: steps and notices go to errOut, the final
// answer to out.
func runPlain(ctx context.Context, cfg *config.Config, message, format string, out, errOut io.Writer) (stream.Outcome, error) {
	a, err := newApp(cfg)
	if err != nil {
		return stream.Outcome{}, err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	baseURL, err := a.streamBaseURL(ctx)
	if err != nil {
		return stream.Outcome{}, err
	}

	outcome, err := a.gate(baseURL, a.pipeline).Submit(ctx, message, &logDisplay{w: errOut})
	if err != nil {
		return outcome, err
	}
	if outcome.Text != "" {
		answer := outcome.Text
		if format == formatHTML {
			answer = a.pipeline.Render(outcome.Text, outcome.State == stream.Completed)
		}
		fmt.Fprintln(out, answer)
	}
	return outcome, nil
}

// logDisplay prints progress lines for non-interactive runs.
type logDisplay struct {
	w io.Writer
}

func (d *logDisplay) AddStep(step stream.Step) {
	if step.Detail != "" {
		fmt.Fprintf(d.w, "• %s (%s)\n", step.Label, step.Detail)
		return
	}
	fmt.Fprintf(d.w, "• %s\n", step.Label)
}

func (d *logDisplay) FinishThinking(elapsed time.Duration) {
	fmt.Fprintf(d.w, "• answered after %.1fs\n", elapsed.Seconds())
}

func (d *logDisplay) ShowContent(string, bool) {}

func (d *logDisplay) ShowError(notice string) {
	fmt.Fprintf(d.w, "error: %s\n", notice)
}

var _ stream.Display = (*logDisplay)(nil)
