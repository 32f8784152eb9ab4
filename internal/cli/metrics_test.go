package cli

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeMetrics(t *testing.T) {
	srv, err := serveMetrics("127.0.0.1:0", "/metrics")
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	resp, err := http.Get("http://" + srv.Addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "fdstream_loop_queue_depth")
}

func TestServeMetrics_BadAddress(t *testing.T) {
	_, err := serveMetrics("not an address", "/metrics")
	assert.Error(t, err)
}
