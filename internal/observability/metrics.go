package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	loopQueueDepth   *prometheus.GaugeVec
	loopTasksTotal   *prometheus.CounterVec
	loopTaskDuration *prometheus.HistogramVec

	readsTotal        *prometheus.CounterVec
	bytesReadTotal    prometheus.Counter
	readDuration      prometheus.Histogram
	pausesTotal       prometheus.Counter
	resumesTotal      prometheus.Counter
	pendingReadsTotal prometheus.Counter

	sessionsOpen     prometheus.Gauge
	streamsAttached  prometheus.Gauge
	lifecycleTotal   *prometheus.CounterVec
	watchFailures    prometheus.Counter
	streamErrorTotal prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			loopQueueDepth: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "fdstream_loop_queue_depth",
					Help: "Tasks waiting on a scheduler loop.",
				},
				[]string{"loop"},
			),
			loopTasksTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fdstream_loop_tasks_total",
					Help: "Tasks run by a scheduler loop by status.",
				},
				[]string{"loop", "status"},
			),
			loopTaskDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "fdstream_loop_task_duration_seconds",
					Help:    "Scheduler task run time in seconds.",
					Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
				},
				[]string{"loop"},
			),
			readsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fdstream_reads_total",
					Help: "Descriptor reads by outcome (data, eof, replay, orphaned, error).",
				},
				[]string{"outcome"},
			),
			bytesReadTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "fdstream_bytes_read_total",
					Help: "Bytes pushed to stream consumers.",
				},
			),
			readDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "fdstream_read_duration_seconds",
					Help:    "Descriptor read syscall duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			pausesTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "fdstream_pauses_total",
					Help: "Times the read loop backed off because the consumer was not ready.",
				},
			),
			resumesTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "fdstream_resumes_total",
					Help: "Times the read loop resumed after consumer readiness was restored.",
				},
			),
			pendingReadsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "fdstream_pending_reads_cached_total",
					Help: "Read results cached because the stream detached while the read was in flight.",
				},
			),
			sessionsOpen: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "fdstream_sessions_open",
					Help: "Sessions currently holding an open descriptor.",
				},
			),
			streamsAttached: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "fdstream_streams_attached",
					Help: "Streams currently attached to a session.",
				},
			),
			lifecycleTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fdstream_lifecycle_total",
					Help: "Lifecycle operations by action and status.",
				},
				[]string{"action", "status"},
			),
			watchFailures: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "fdstream_watch_failures_total",
					Help: "Staleness watcher failures (file no longer accessible or watch error).",
				},
			),
			streamErrorTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "fdstream_stream_errors_total",
					Help: "Streams destroyed with an error.",
				},
			),
		}

		prometheus.MustRegister(
			m.loopQueueDepth,
			m.loopTasksTotal,
			m.loopTaskDuration,
			m.readsTotal,
			m.bytesReadTotal,
			m.readDuration,
			m.pausesTotal,
			m.resumesTotal,
			m.pendingReadsTotal,
			m.sessionsOpen,
			m.streamsAttached,
			m.lifecycleTotal,
			m.watchFailures,
			m.streamErrorTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SetLoopQueueDepth(loop string, depth int) {
	m := getMetrics()
	m.loopQueueDepth.WithLabelValues(loop).Set(float64(depth))
}

func RecordLoopTask(loop string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.loopTasksTotal.WithLabelValues(loop, status).Inc()
	m.loopTaskDuration.WithLabelValues(loop).Observe(duration.Seconds())
}

// RecordRead counts one read outcome; bytes is only added for delivered data.
func RecordRead(outcome string, bytes int, duration time.Duration) {
	m := getMetrics()
	m.readsTotal.WithLabelValues(outcome).Inc()
	if outcome == "data" || outcome == "replay" {
		m.bytesReadTotal.Add(float64(bytes))
	}
	if duration > 0 {
		m.readDuration.Observe(duration.Seconds())
	}
}

func RecordPause() {
	getMetrics().pausesTotal.Inc()
}

func RecordResume() {
	getMetrics().resumesTotal.Inc()
}

func RecordPendingReadCached() {
	getMetrics().pendingReadsTotal.Inc()
}

func RecordLifecycle(action string, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.lifecycleTotal.WithLabelValues(action, status).Inc()
}

func SessionOpened() {
	getMetrics().sessionsOpen.Inc()
}

func SessionClosed() {
	getMetrics().sessionsOpen.Dec()
}

func StreamAttached() {
	getMetrics().streamsAttached.Inc()
}

func StreamDetached() {
	getMetrics().streamsAttached.Dec()
}

func RecordWatchFailure() {
	getMetrics().watchFailures.Inc()
}

func RecordStreamError() {
	getMetrics().streamErrorTotal.Inc()
}
