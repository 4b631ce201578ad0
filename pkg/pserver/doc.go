// Package pserver exposes a pservice.Service over the PS RPC surface: one
// POST endpoint per RPC method (write/get/count/search/status/
// offload_partition/load_partition/command), JSON request/response bodies,
// and a matching client for pkg/router to dispatch through.
//
// This transport is plain net/http+encoding/json (see DESIGN.md's
// "Resolved Open Questions — RPC transport" entry): wire framing is treated
// as opaque here, so no third-party RPC framework is grounded in this
// package.
package pserver
