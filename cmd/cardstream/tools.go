// ABOUTME: "cardstream tools" prints the tool catalog: display labels, descriptions, and argument schemas.
package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/2389-research/cardstream/config"
	"github.com/2389-research/cardstream/tools"
)

func newToolsCmd(load func() (*config.Config, error)) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tool catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			catalog := tools.Default()
			if cfg.ToolsFile != "" {
				if catalog, err = tools.Load(cfg.ToolsFile); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(catalog.Entries())
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tLABEL\tDESCRIPTION")
			for _, e := range catalog.Entries() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Label, e.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries with argument schemas as JSON")
	return cmd
}
