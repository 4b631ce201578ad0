/*
Package metrics defines and registers the Prometheus metrics exposed by a
pserver node: partition/Raft health, index-engine commit behavior, and
request latency across the write/get/count/search surface.

All metrics are package-level variables registered in init() against the
default Prometheus registry: no runtime registration, Handler() wraps
promhttp.Handler() for mounting under /metrics, and Timer is the shared
start/ObserveDuration helper.

# Catalog

Partition/Raft:

  pserver_partitions_total{role}            gauge
  pserver_raft_is_leader{cpid}              gauge
  pserver_raft_log_index{cpid}              gauge
  pserver_raft_applied_index{cpid}          gauge
  pserver_raft_apply_duration_seconds       histogram
  pserver_partition_offload_duration_seconds histogram

Index engine:

  pserver_index_commit_duration_seconds     histogram
  pserver_index_commits_skipped_total       counter
  pserver_index_event_queue_depth           gauge

KV:

  pserver_kv_batch_duration_seconds         histogram

Request surface:

  pserver_write_duration_seconds{write_type} histogram
  pserver_search_fanout_duration_seconds    histogram
  pserver_api_requests_total{method,status} counter
  pserver_api_request_duration_seconds{method} histogram

# Usage

	timer := metrics.NewTimer()
	resp, err := engine.Write(req, proposer)
	timer.ObserveDurationVec(metrics.WriteDuration, req.WriteType.String())
*/
package metrics
