package meshrpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype negotiated for the mesh messages.
const CodecName = "osr"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec encodes the meshrpc messages in protobuf wire format.
type Codec struct{}

var _ encoding.Codec = Codec{}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("meshrpc: cannot marshal %T", v)
	}
	return m.appendWire(nil), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("meshrpc: cannot unmarshal into %T", v)
	}
	if err := m.consumeWire(data); err != nil {
		return fmt.Errorf("meshrpc: %w", err)
	}
	return nil
}

func (Codec) Name() string { return CodecName }
