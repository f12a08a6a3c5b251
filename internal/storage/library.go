package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jwebster45206/druid-of-peace/data"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
)

// ErrInvalidContent is returned when the loaded content fails validation.
var ErrInvalidContent = errors.New("content failed validation")

// LoadLibrary loads game content from dataDir, or from the embedded content
// when dataDir is empty. Missing or malformed sections are logged and left
// empty. Cross-reference problems are logged and returned as
// ErrInvalidContent alongside the library.
func LoadLibrary(dataDir string, logger *slog.Logger) (*content.Library, error) {
	var fsys fs.FS = data.FS
	source := "embedded"
	if dataDir != "" {
		info, err := os.Stat(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read data directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("data path %s is not a directory", dataDir)
		}
		fsys = os.DirFS(dataDir)
		source = dataDir
	}

	lib, errs := content.Load(fsys)
	for _, err := range errs {
		logger.Warn("Content section not loaded", "source", source, "error", err)
	}

	problems := lib.Validate()
	for _, p := range problems {
		logger.Warn("Content validation problem", "source", source, "problem", p)
	}
	logger.Info("Content loaded",
		"source", source,
		"zones", len(lib.Zones),
		"npcs", len(lib.NPCs),
		"abilities", len(lib.Abilities),
		"skills", len(lib.Skills))

	if len(problems) > 0 {
		return lib, fmt.Errorf("%w: %d problems", ErrInvalidContent, len(problems))
	}
	return lib, nil
}
