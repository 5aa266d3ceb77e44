// ABOUTME: "cardstream setup" writes a starter cardstream.yaml and, optionally, the OpenAI key into a .env file.
// ABOUTME: Existing files are left alone unless --force is given; .env keys are appended, never rewritten.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389-research/cardstream/config"
)

const configTemplate = `# cardstream configuration. Every key can be overridden with a
# CARDSTREAM_* environment variable, e.g. CARDSTREAM_PRODUCER_KIND=openai.
listen: "127.0.0.1:8080"

# Leave empty to serve the built-in producer under /api.
upstream_url: ""

idle_timeout: 60s
render_cache_ttl: 5m
submit_rate: 30

# Path to a SQLite file, "auto" for the user data dir, or empty to disable.
history_db: auto

# Optional tool catalog override; reloaded on change while serving.
tools_file: ""

producer:
  kind: %s
  openai:
    model: gpt-4o-mini
    # api_key falls back to OPENAI_API_KEY.
  replay:
    file: ""
    speed: 1.0
`

func newSetupCmd() *cobra.Command {
	var path, producer, envFile, openAIKey string
	var force bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write a starter config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch producer {
			case config.ProducerReplay, config.ProducerOpenAI, config.ProducerNone:
			default:
				return fmt.Errorf("unknown producer %q", producer)
			}
			out := cmd.OutOrStdout()

			if err := writeNew(path, fmt.Sprintf(configTemplate, producer), force); err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %s\n", path)

			if openAIKey != "" {
				if err := appendEnv(envFile, "OPENAI_API_KEY", openAIKey); err != nil {
					return err
				}
				fmt.Fprintf(out, "added OPENAI_API_KEY to %s\n", envFile)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next:")
			fmt.Fprintln(out, "  cardstream serve    # then open http://127.0.0.1:8080")
			fmt.Fprintln(out, "  cardstream chat")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "cardstream.yaml", "Where to write the config file")
	cmd.Flags().StringVar(&producer, "producer", config.ProducerReplay, "Producer kind: replay, openai, none")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Where to store the API key")
	cmd.Flags().StringVar(&openAIKey, "openai-key", "", "OpenAI API key to store in the env file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func writeNew(path, content string, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// appendEnv adds key to a .env file unless the file already sets it.
func appendEnv(path, key, value string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	vars, err := config.ParseDotEnv(strings.NewReader(string(existing)))
	if err != nil {
		return err
	}
	if _, ok := vars[key]; ok {
		return fmt.Errorf("%s already sets %s", path, key)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	line := key + "=" + value + "\n"
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		line = "\n" + line
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
