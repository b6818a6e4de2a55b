package transport

import (
	"bytes"
	"encoding/gob"
)

// codecName is registered with grpc's global codec registry via
// encoding.RegisterCodec in cmd/*/main.go, ahead of grpc.NewServer /
// grpc.NewClient, so every fabric RPC carries gob-encoded payloads instead
// of protobuf wire bytes. There is no .proto in this repo to generate a
// protobuf codec from; gob is the standard library's own binary
// serialization and needs no schema compiler.
const codecName = "gob"

// GobCodec implements grpc/encoding.Codec.
type GobCodec struct{}

func (GobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (GobCodec) Name() string { return codecName }
