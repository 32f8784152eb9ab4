package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLifecycleAudit(t *testing.T) {
	var buf bytes.Buffer
	SetAuditOutput(&buf)
	t.Cleanup(func() { SetAuditOutput(nilWriter{}) })

	RecordLifecycleAudit(context.Background(), "open", "sess-1", nil, map[string]interface{}{"path": "/tmp/x"})
	RecordLifecycleAudit(context.Background(), "close", "sess-1", errors.New("bad descriptor"), nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.Equal(t, "lifecycle", first["type"])
	assert.Equal(t, "open", first["action"])
	assert.Equal(t, "success", first["status"])
	assert.Equal(t, "sess-1", first["actor"])
	assert.Equal(t, "/tmp/x", first["metadata"].(map[string]interface{})["path"])

	assert.Equal(t, "failure", second["status"])
	assert.Equal(t, "bad descriptor", second["metadata"].(map[string]interface{})["error"])
}

func TestInitAuditLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	require.NoError(t, InitAuditLogger(path))
	t.Cleanup(func() {
		GetAuditLogger().Close()
		SetAuditOutput(nilWriter{})
	})

	RecordLifecycleAudit(context.Background(), "stream", "sess-2", nil, nil)
	require.NoError(t, GetAuditLogger().Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"action":"stream"`)
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }
