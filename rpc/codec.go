// Package rpc carries the gRPC surface of the node: the wire codec,
// hand-written service descriptors for the ordering, consensus and
// block-loader services, the server, and per-peer clients.
package rpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"

	"github.com/ryjones/iroha/ledgerpb"
)

// CodecName is the content-subtype both ends agree on.
const CodecName = "ledgerpb"

// codec bridges grpc serialization onto the canonical ledgerpb
// encoding. Registering it lets the hand-written service descriptors
// run without generated protobuf bindings.
type codec struct{}

func (codec) Name() string {
	return CodecName
}

func (codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(ledgerpb.Message)
	if !ok {
		return nil, fmt.Errorf("message %T lacks a ledgerpb encoding", v)
	}
	return m.Marshal(), nil
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	u, ok := v.(ledgerpb.Unmarshaler)
	if !ok {
		return fmt.Errorf("message %T lacks a ledgerpb decoding", v)
	}
	return u.Unmarshal(data)
}

func init() {
	encoding.RegisterCodec(codec{})
}
