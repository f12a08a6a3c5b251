package main

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jwebster45206/druid-of-peace/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadContent(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("malformed section is served", func(t *testing.T) {
		dir := t.TempDir()
		entries, err := fs.ReadDir(data.FS, ".")
		require.NoError(t, err)
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) == ".go" {
				continue
			}
			b, err := fs.ReadFile(data.FS, e.Name())
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), b, 0o644))
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, "npcs.json"), []byte("{not json"), 0o644))

		lib, err := loadContent(dir, log)
		require.NoError(t, err)
		require.NotNil(t, lib)
		assert.NotEmpty(t, lib.Zones)
		assert.Empty(t, lib.NPCs)
	})

	t.Run("missing directory is fatal", func(t *testing.T) {
		lib, err := loadContent(filepath.Join(t.TempDir(), "nope"), log)
		assert.Error(t, err)
		assert.Nil(t, lib)
	})
}
