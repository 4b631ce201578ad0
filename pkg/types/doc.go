/*
Package types defines the core data structures shared across the partition
server: collections, partitions, documents, write requests, and the fixed
error-code table.

# Architecture

The types package is the foundation of the document model. It defines:

  - Collection schema (fields, types, the scalar index subset)
  - Partition identity and placement (replicas, leader, version)
  - Document shape as seen by clients (id, sort_key, version, source)
  - Write requests and their write_type semantics
  - Search/count requests and responses, including fan-out merge results
  - The fixed error code table and the HTTP status each code maps to

All types are designed to be:
  - Serializable (JSON on the wire, since the RPC transport is JSON over HTTP)
  - Self-documenting (clear field names and comments)
  - Free of any storage or transport detail; those live in pkg/kv, pkg/index,
    pkg/simba, pkg/pserver, and pkg/router.
*/
package types
