// ABOUTME: CLI entrypoint for cardstream: the web chat server, terminal chat, one-shot ask, and offline rendering.
// ABOUTME: Loads .env files before any command so CARDSTREAM_* and OPENAI_API_KEY reach the config layer.
package main

import (
	"os"

	"github.com/2389-research/cardstream/config"
)

var version = "dev"

func main() {
	config.LoadDotEnvAuto()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
