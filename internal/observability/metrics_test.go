package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsHandler_ExposesModuleMetrics(t *testing.T) {
	SetLoopQueueDepth("metrics-test", 3)
	RecordLoopTask("metrics-test", time.Millisecond, true)
	RecordLoopTask("metrics-test", time.Millisecond, false)
	RecordRead("data", 10, time.Millisecond)
	RecordRead("orphaned", 5, time.Millisecond)
	RecordLifecycle("open", true)
	RecordLifecycle("close", false)
	RecordPause()
	RecordResume()
	RecordPendingReadCached()
	RecordWatchFailure()
	RecordStreamError()

	body := scrape(t)

	for _, want := range []string{
		`fdstream_loop_queue_depth{loop="metrics-test"} 3`,
		`fdstream_loop_tasks_total{loop="metrics-test",status="success"} 1`,
		`fdstream_loop_tasks_total{loop="metrics-test",status="error"} 1`,
		`fdstream_reads_total{outcome="data"}`,
		`fdstream_reads_total{outcome="orphaned"}`,
		`fdstream_lifecycle_total{action="open",status="success"}`,
		`fdstream_lifecycle_total{action="close",status="error"}`,
		"fdstream_bytes_read_total",
		"fdstream_pauses_total",
		"fdstream_resumes_total",
		"fdstream_pending_reads_cached_total",
		"fdstream_watch_failures_total",
		"fdstream_stream_errors_total",
	} {
		assert.Contains(t, body, want)
	}
}

func TestSessionGauges(t *testing.T) {
	SessionOpened()
	StreamAttached()
	body := scrape(t)
	assert.Contains(t, body, "fdstream_sessions_open")
	assert.Contains(t, body, "fdstream_streams_attached")
	StreamDetached()
	SessionClosed()
}
