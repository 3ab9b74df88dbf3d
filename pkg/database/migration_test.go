package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestMigrationVersion(t *testing.T) {
	t.Run("RepositoryMigrations", func(t *testing.T) {
		version, err := LatestMigrationVersion(filepath.Join("..", "..", "db", "pg"))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, version, 1)
	})

	t.Run("IgnoresDownAndOtherFiles", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"000001_a.up.sql", "000001_a.down.sql", "000007_b.up.sql", "000009_c.down.sql", "README.md"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600))
		}

		version, err := LatestMigrationVersion(dir)
		require.NoError(t, err)
		assert.Equal(t, 7, version)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := LatestMigrationVersion(t.TempDir())
		assert.Error(t, err)
	})
}
