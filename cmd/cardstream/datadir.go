// ABOUTME: XDG-based data directory resolution for the cardstream CLI.
// ABOUTME: history_db "auto" resolves to history.db under $XDG_DATA_HOME/cardstream or ~/.local/share/cardstream.
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// autoHistory selects the default history database location.
const autoHistory = "auto"

// defaultDataDir returns the default data directory for cardstream state.
// It checks XDG_DATA_HOME first, then falls back to ~/.local/share/cardstream.
func defaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "cardstream"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "cardstream"), nil
}

// resolveHistoryPath maps the history_db setting to a database path. Empty
// stays empty (history disabled). The parent directory is created.
func resolveHistoryPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	path := value
	if value == autoHistory {
		dir, err := defaultDataDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, "history.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create history directory: %w", err)
	}
	return path, nil
}
