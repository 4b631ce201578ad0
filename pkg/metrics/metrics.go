package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Partition/Raft metrics
	PartitionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pserver_partitions_total",
			Help: "Total number of locally held partitions by role",
		},
		[]string{"role"},
	)

	RaftIsLeader = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pserver_raft_is_leader",
			Help: "Whether this node is the Raft leader for a partition (1 = leader, 0 = member)",
		},
		[]string{"cpid"},
	)

	RaftLogIndex = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pserver_raft_log_index",
			Help: "Current Raft log index for a partition",
		},
		[]string{"cpid"},
	)

	RaftAppliedIndex = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pserver_raft_applied_index",
			Help: "Last applied Raft log index for a partition",
		},
		[]string{"cpid"},
	)

	RaftApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pserver_raft_apply_duration_seconds",
			Help:    "Time taken for a Raft proposal to commit and apply",
			Buckets: prometheus.DefBuckets,
		},
	)

	PartitionOffloadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pserver_partition_offload_duration_seconds",
			Help:    "Time taken to drain and release a partition during offload",
			Buckets: []float64{.05, .1, .3, .6, 1, 3, 6, 10, 30},
		},
	)

	// Index engine metrics
	IndexCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pserver_index_commit_duration_seconds",
			Help:    "Time taken for an index engine segment commit",
			Buckets: prometheus.DefBuckets,
		},
	)

	IndexCommitsSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pserver_index_commits_skipped_total",
			Help: "Total commits skipped by the index engine's activity rate limiter",
		},
	)

	IndexEventQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pserver_index_event_queue_depth",
			Help: "Current depth of the index engine's pending event queue",
		},
	)

	// KV metrics
	KVBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pserver_kv_batch_duration_seconds",
			Help:    "Time taken for a KV store atomic batch write",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Request surface metrics
	WriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pserver_write_duration_seconds",
			Help:    "Time taken to propose and apply a write, by write_type",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"write_type"},
	)

	SearchFanoutDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pserver_search_fanout_duration_seconds",
			Help:    "Time taken to scatter a search across partitions and merge hits",
			Buckets: prometheus.DefBuckets,
		},
	)

	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pserver_api_requests_total",
			Help: "Total number of router API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pserver_api_request_duration_seconds",
			Help:    "Router API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(PartitionsTotal)
	prometheus.MustRegister(RaftIsLeader)
	prometheus.MustRegister(RaftLogIndex)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(RaftApplyDuration)
	prometheus.MustRegister(PartitionOffloadDuration)

	prometheus.MustRegister(IndexCommitDuration)
	prometheus.MustRegister(IndexCommitsSkippedTotal)
	prometheus.MustRegister(IndexEventQueueDepth)

	prometheus.MustRegister(KVBatchDuration)

	prometheus.MustRegister(WriteDuration)
	prometheus.MustRegister(SearchFanoutDuration)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
