// ABOUTME: Cobra command tree for cardstream and the helpers every subcommand shares.
// ABOUTME: loadConfig reads --config, applies viper defaults and env overrides, and validates the result.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/2389-research/cardstream/config"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "cardstream",
		Short: "Stream research answers as rendered cards",
		Long: `cardstream consumes a chat answer streamed over server-sent events and renders
the growing markdown as stats and analysis cards, in the browser or the terminal.

Examples:
  cardstream serve                       # web chat on 127.0.0.1:8080
  cardstream chat                        # terminal chat
  cardstream ask "How is AAPL doing?"    # one answer, then exit
  cardstream render answer.md            # markdown file to card HTML
  cardstream history                     # recent answers`,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		SilenceUsage:      true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./cardstream.yaml or the user config dir)")

	load := func() (*config.Config, error) {
		return loadConfig(configPath)
	}

	root.AddCommand(
		newServeCmd(load),
		newChatCmd(load),
		newAskCmd(load),
		newRenderCmd(),
		newHistoryCmd(load),
		newToolsCmd(load),
		newSetupCmd(),
		newVersionCmd(),
	)
	return root
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cardstream %s\n", version)
		},
	}
}
