// Package store persists the harvested collection as an on-disk artifact.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/nft-harvester/pkg/pipeline"
)

// WriteJSON writes the enriched collection to <dir>/<name>.json, creating
// the directory if needed, and returns the file path.
func WriteJSON(items []pipeline.Item, name, dir string) (string, error) {
	logger := log.With().Str("component", "store").Logger()

	if len(items) == 0 {
		logger.Error().Str("name", name).Msg("No items to write")
		return "", fmt.Errorf("no items to write for %s", name)
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}

	path := filepath.Join(dir, name+".json")
	data, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Error writing artifact")
		return "", fmt.Errorf("write artifact: %w", err)
	}

	logger.Info().Str("path", path).Int("items", len(items)).Msg("Successfully wrote collection artifact")
	return path, nil
}
