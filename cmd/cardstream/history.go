// ABOUTME: "cardstream history" lists recorded turns or prints one turn's answer.
// ABOUTME: Reads the same SQLite history database the server and chat record into.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"

	"github.com/2389-research/cardstream/config"
	"github.com/2389-research/cardstream/render"
	"github.com/2389-research/cardstream/store"
)

// errNoHistory is returned when history_db is unset.
var errNoHistory = errors.New(`history is disabled; set history_db (or CARDSTREAM_HISTORY_DB) to a path or "auto"`)

func newHistoryCmd(load func() (*config.Config, error)) *cobra.Command {
	var limit int
	var format string
	cmd := &cobra.Command{
		Use:   "history [turn-id]",
		Short: "List recent answers, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			path, err := resolveHistoryPath(cfg.HistoryDB)
			if err != nil {
				return err
			}
			if path == "" {
				return errNoHistory
			}
			turns, err := store.Open(path)
			if err != nil {
				return err
			}
			defer turns.Close()

			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if len(args) == 1 {
				turn, err := turns.Get(ctx, args[0])
				if err != nil {
					return err
				}
				switch format {
				case "json":
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(turn)
				case "html":
					fmt.Fprintln(out, render.Markdown(turn.Text, true))
				default:
					fmt.Fprintf(out, "%s  %s  %s\n> %s\n\n", turn.ID, turn.StartedAt.Local().Format("2006-01-02 15:04"), turn.State, turn.Message)
					if turn.Notice != "" {
						fmt.Fprintf(out, "notice: %s\n\n", turn.Notice)
					}
					fmt.Fprintln(out, turn.Text)
				}
				return nil
			}

			recent, err := turns.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if format == "json" {
				return json.NewEncoder(out).Encode(recent)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tSTATE\tTOOLS\tQUESTION")
			for _, t := range recent {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					t.ID,
					t.StartedAt.Local().Format("2006-01-02 15:04"),
					t.State,
					len(t.ToolCalls),
					truncate.StringWithTail(t.Message, 48, "…"),
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultRecentLimit, "Number of turns to list")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, html (html only for a single turn)")
	return cmd
}
