package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec is a grpc/encoding.Codec that marshals request/response
// structs as JSON instead of protobuf wire format. The messages in this
// package are plain Go structs with json tags, not generated pb.Message
// types, so they cannot go through grpc's default proto codec; this
// codec is the documented extension point for that (see
// google.golang.org/grpc/encoding.RegisterCodec).
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return Name }

// Name is both the codec's registered name and the content-subtype
// clients must request with grpc.CallContentSubtype(rpc.Name) to match
// ForceServerCodec on the server side.
const Name = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
