// Package router implements the HTTP-facing document API: collection-name
// based routes for get/put/update/upsert/create/delete/count/search. A
// router process holds no data of its own — it resolves a collection name
// and document id to a target partition via pkg/meta, then dispatches the
// actual operation to the owning node's pkg/pserver RPC surface.
package router
