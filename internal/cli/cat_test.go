package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCatCommand(t *testing.T) {
	t.Run("concatenates files in order", func(t *testing.T) {
		first := writeFile(t, "a.txt", "alpha\n")
		second := writeFile(t, "b.txt", strings.Repeat("beta\n", 5000))
		third := writeFile(t, "c.txt", "")

		out := &syncBuffer{}
		require.NoError(t, run(t, nil, out, "cat", first, second, third))

		assert.Equal(t, "alpha\n"+strings.Repeat("beta\n", 5000), out.String())
	})

	t.Run("small chunks", func(t *testing.T) {
		path := writeFile(t, "a.txt", "0123456789")

		out := &syncBuffer{}
		require.NoError(t, run(t, nil, out, "--chunk-size", "3", "cat", path))

		assert.Equal(t, "0123456789", out.String())
	})

	t.Run("missing file", func(t *testing.T) {
		err := run(t, nil, &syncBuffer{}, "cat", filepath.Join(t.TempDir(), "absent"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open")
	})

	t.Run("requires an argument", func(t *testing.T) {
		assert.Error(t, run(t, nil, &syncBuffer{}, "cat"))
	})
}
