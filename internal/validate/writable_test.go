// SPDX-License-Identifier: MIT
package validate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/edgecam/internal/validate"
)

func TestWritableDirectory(t *testing.T) {
	t.Run("ValidExisting", func(t *testing.T) {
		tmpDir := t.TempDir()
		v := validate.New()
		v.WritableDirectory("test", tmpDir, true)
		assert.True(t, v.IsValid())

		entries, err := os.ReadDir(tmpDir)
		require.NoError(t, err)
		assert.Empty(t, entries, "write probe must be removed")
	})

	t.Run("ValidNew", func(t *testing.T) {
		tmpDir := t.TempDir()
		newDir := filepath.Join(tmpDir, "new_dir")
		v := validate.New()
		v.WritableDirectory("test", newDir, false)
		assert.True(t, v.IsValid())
		assert.DirExists(t, newDir)
	})

	t.Run("ReadOnly", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("Skipping ReadOnly test running as root (always writable)")
		}
		tmpDir := t.TempDir()
		readOnlyDir := filepath.Join(tmpDir, "readonly")
		require.NoError(t, os.Mkdir(readOnlyDir, 0500)) // r-x for user (no write)

		v := validate.New()
		v.WritableDirectory("test", readOnlyDir, true)
		assert.False(t, v.IsValid())
		assert.Contains(t, v.Err().Error(), "directory is not writable")
	})

	t.Run("MissingMustExist", func(t *testing.T) {
		missingDir := filepath.Join(t.TempDir(), "missing")

		v := validate.New()
		v.WritableDirectory("test", missingDir, true)
		assert.False(t, v.IsValid())
		assert.Contains(t, v.Err().Error(), "directory does not exist")
	})

	t.Run("NotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		v := validate.New()
		v.WritableDirectory("test", file, true)
		assert.Contains(t, v.Err().Error(), "path is not a directory")
	})
}
