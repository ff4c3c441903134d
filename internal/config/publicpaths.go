package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/bearer/internal/logging"
)

const reloadDebounce = 500 * time.Millisecond

type publicPathsFile struct {
	PublicPaths []string `json:"publicPaths"`
}

// LoadPublicPaths reads an allow-list file of the form
// {"publicPaths": ["/", "/menu"]}.
func LoadPublicPaths(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public paths: %w", err)
	}

	file := publicPathsFile{}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse json of '%s': %w", path, err)
	}
	for _, p := range file.PublicPaths {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("public path '%s' in '%s' must start with '/'", p, path)
		}
	}
	return file.PublicPaths, nil
}

// WatchPublicPaths calls onChange with the reloaded allow-list whenever the
// file at path changes, until ctx is done. A file that fails to load is
// logged and skipped, leaving the previous list in place.
func WatchPublicPaths(
	ctx context.Context,
	path string,
	log *logging.Logger,
	onChange func([]string),
) error {
	return watchPublicPaths(ctx, path, reloadDebounce, log, onChange)
}

func watchPublicPaths(
	ctx context.Context,
	path string,
	debounce time.Duration,
	log *logging.Logger,
	onChange func([]string),
) error {
	return watchFile(ctx, path, debounce, log, func() {
		paths, err := LoadPublicPaths(path)
		if err != nil {
			log.Errorf("%v\n", err)
			return
		}
		log.Infof("loaded %d public paths from %s\n", len(paths), path)
		onChange(paths)
	})
}
