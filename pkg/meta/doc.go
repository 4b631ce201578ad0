/*
Package meta implements the Meta service client: the node-to-master RPC
surface a pserver node uses to register itself, look up collection/
partition metadata, and report liveness.

Since protoc isn't run as part of this build, the wire contract is plain
net/http + encoding/json rather than a gRPC-shaped service, grounded the
same way pkg/pserver and pkg/router are (see DESIGN.md). Client is the
interface pkg/pservice, pkg/resolver, and pkg/router depend on;
httpClient is the one concrete implementation.
*/
package meta
