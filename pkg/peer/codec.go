// Package peer implements the REMOTE locality: an outbound gRPC client that
// invokes a peer aggregator's inbound endpoint, and the server side of that
// same endpoint (hosted by cmd/aggnsad as the AGGREGATOR locality). This
// repo owns no protobuf schema — the wire protocol adapter is explicitly
// out of scope (spec.md §1) — so messages ride gRPC's codec extension
// point as plain JSON instead of generated stubs, under the "json" codec
// name (the "json" content-subtype, content type "application/grpc+json").
package peer

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is registered with grpc's global codec registry and selected
// per-RPC via grpc.CallContentSubtype on the client side; the server side
// picks it up automatically from the incoming request's content-subtype.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements encoding.Codec by delegating straight to
// encoding/json, the same marshaling library pkg/audit uses elsewhere in
// this codebase.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}
