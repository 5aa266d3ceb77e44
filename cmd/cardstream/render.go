// ABOUTME: "cardstream render" turns a markdown file (or stdin) into card HTML or ANSI terminal output.
// ABOUTME: Useful for checking how a saved answer will look without a stream.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/2389-research/cardstream/render"
	"github.com/2389-research/cardstream/tui"
)

func newRenderCmd() *cobra.Command {
	var format, style string
	var width int
	var partial bool
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render markdown to card HTML or the terminal",
		Long: `Render reads markdown from a file, or stdin when no file (or "-") is given,
and prints it as card HTML or as ANSI text for the terminal.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read markdown: %w", err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case formatHTML:
				fmt.Fprintln(out, render.Markdown(string(data), !partial))
			case formatANSI:
				r, err := tui.NewTerminalRenderer(width, style)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, r.Render(string(data), !partial))
			default:
				return fmt.Errorf("unknown format %q (want html or ansi)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatHTML, "Output format: html, ansi")
	cmd.Flags().StringVar(&style, "style", "", "glamour style for ansi output (default: detect)")
	cmd.Flags().IntVar(&width, "width", tui.DefaultWrap, "Word-wrap width for ansi output")
	cmd.Flags().BoolVar(&partial, "partial", false, "Treat the input as an unfinished stream")
	return cmd
}
