package meshrpc

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/config"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
)

// Field numbers of osr/remesher.proto.
//
//	message Mesh {
//	  repeated float vertices = 1;   // packed xyz
//	  repeated float normals = 2;    // packed xyz, empty when absent
//	  repeated int32 triangles = 3;  // packed
//	  uint32 vertex_count = 4;
//	  uint32 triangle_count = 5;
//	}
//	message Parameters {
//	  optional double scale = 1;
//	  optional double smoothness = 2;
//	  optional int32 orientation_order = 3;
//	  optional int32 position_order = 4;
//	  optional string label = 5;
//	}
//	message ProcessMeshRequest  { Mesh mesh = 1; Parameters parameters = 2; }
//	message ProcessMeshResponse { Mesh mesh = 1; }
const (
	meshVertices      protowire.Number = 1
	meshNormals       protowire.Number = 2
	meshTriangles     protowire.Number = 3
	meshVertexCount   protowire.Number = 4
	meshTriangleCount protowire.Number = 5

	paramScale            protowire.Number = 1
	paramSmoothness       protowire.Number = 2
	paramOrientationOrder protowire.Number = 3
	paramPositionOrder    protowire.Number = 4
	paramLabel            protowire.Number = 5

	requestMesh       protowire.Number = 1
	requestParameters protowire.Number = 2

	responseMesh protowire.Number = 1
)

// Mesh is the wire form of a flat mesh.
type Mesh struct {
	Vertices      []float32
	Normals       []float32
	Triangles     []int32
	VertexCount   int
	TriangleCount int
}

// FromFlatMesh copies m into its wire form.
func FromFlatMesh(m *mesh.FlatMesh) *Mesh {
	if m == nil {
		return &Mesh{}
	}
	return &Mesh{
		Vertices:      append([]float32(nil), m.Vertices.Data()...),
		Normals:       append([]float32(nil), m.Normals.Data()...),
		Triangles:     append([]int32(nil), m.Triangles.Data()...),
		VertexCount:   m.VertexCount,
		TriangleCount: m.TriangleCount,
	}
}

// FlatMesh borrows the wire buffers. Empty normals become an absent buffer.
func (m *Mesh) FlatMesh() *mesh.FlatMesh {
	normals := m.Normals
	if len(normals) == 0 {
		normals = nil
	}
	return mesh.Borrow(m.Vertices, normals, m.Triangles, m.VertexCount, m.TriangleCount)
}

// ProcessMeshRequest asks the server to reconstruct Mesh.
type ProcessMeshRequest struct {
	Mesh       *Mesh
	Parameters *config.Parameters
}

// ProcessMeshResponse carries the reconstructed mesh.
type ProcessMeshResponse struct {
	Mesh *Mesh
}

// wireMessage is implemented by every message the codec handles.
type wireMessage interface {
	appendWire(b []byte) []byte
	consumeWire(b []byte) error
}

func (m *Mesh) appendWire(b []byte) []byte {
	b = appendPackedFloats(b, meshVertices, m.Vertices)
	b = appendPackedFloats(b, meshNormals, m.Normals)
	if len(m.Triangles) > 0 {
		var packed []byte
		for _, v := range m.Triangles {
			packed = protowire.AppendVarint(packed, uint64(int64(v)))
		}
		b = protowire.AppendTag(b, meshTriangles, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	if m.VertexCount != 0 {
		b = protowire.AppendTag(b, meshVertexCount, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.VertexCount))
	}
	if m.TriangleCount != 0 {
		b = protowire.AppendTag(b, meshTriangleCount, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.TriangleCount))
	}
	return b
}

func (m *Mesh) consumeWire(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case meshVertices:
			return consumeFloats(typ, b, &m.Vertices)
		case meshNormals:
			return consumeFloats(typ, b, &m.Normals)
		case meshTriangles:
			return consumeInt32s(typ, b, &m.Triangles)
		case meshVertexCount:
			return consumeCount(typ, b, &m.VertexCount)
		case meshTriangleCount:
			return consumeCount(typ, b, &m.TriangleCount)
		}
		return -1, nil
	})
}

func appendParameters(b []byte, p *config.Parameters) []byte {
	if p.Scale != nil {
		b = protowire.AppendTag(b, paramScale, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(*p.Scale))
	}
	if p.Smoothness != nil {
		b = protowire.AppendTag(b, paramSmoothness, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(*p.Smoothness))
	}
	if p.OrientationOrder != nil {
		b = protowire.AppendTag(b, paramOrientationOrder, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*p.OrientationOrder)))
	}
	if p.PositionOrder != nil {
		b = protowire.AppendTag(b, paramPositionOrder, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(*p.PositionOrder)))
	}
	if p.Label != nil {
		b = protowire.AppendTag(b, paramLabel, protowire.BytesType)
		b = protowire.AppendString(b, *p.Label)
	}
	return b
}

func consumeParameters(b []byte, p *config.Parameters) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case paramScale, paramSmoothness:
			if typ != protowire.Fixed64Type {
				return 0, fmt.Errorf("field %d: unexpected wire type %d", num, typ)
			}
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			if num == paramScale {
				p.Scale = config.Float64(math.Float64frombits(v))
			} else {
				p.Smoothness = config.Float64(math.Float64frombits(v))
			}
			return n, nil
		case paramOrientationOrder, paramPositionOrder:
			if typ != protowire.VarintType {
				return 0, fmt.Errorf("field %d: unexpected wire type %d", num, typ)
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			if num == paramOrientationOrder {
				p.OrientationOrder = config.Int(int(int32(v)))
			} else {
				p.PositionOrder = config.Int(int(int32(v)))
			}
			return n, nil
		case paramLabel:
			if typ != protowire.BytesType {
				return 0, fmt.Errorf("field %d: unexpected wire type %d", num, typ)
			}
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, protowire.ParseError(n)
			}
			p.Label = config.String(v)
			return n, nil
		}
		return -1, nil
	})
}

func (r *ProcessMeshRequest) appendWire(b []byte) []byte {
	if r.Mesh != nil {
		b = protowire.AppendTag(b, requestMesh, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Mesh.appendWire(nil))
	}
	if r.Parameters != nil {
		b = protowire.AppendTag(b, requestParameters, protowire.BytesType)
		b = protowire.AppendBytes(b, appendParameters(nil, r.Parameters))
	}
	return b
}

func (r *ProcessMeshRequest) consumeWire(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case requestMesh:
			r.Mesh = &Mesh{}
			return consumeMessage(typ, b, r.Mesh.consumeWire)
		case requestParameters:
			r.Parameters = config.EmptyParameters()
			return consumeMessage(typ, b, func(b []byte) error { return consumeParameters(b, r.Parameters) })
		}
		return -1, nil
	})
}

func (r *ProcessMeshResponse) appendWire(b []byte) []byte {
	if r.Mesh != nil {
		b = protowire.AppendTag(b, responseMesh, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Mesh.appendWire(nil))
	}
	return b
}

func (r *ProcessMeshResponse) consumeWire(b []byte) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == responseMesh {
			r.Mesh = &Mesh{}
			return consumeMessage(typ, b, r.Mesh.consumeWire)
		}
		return -1, nil
	})
}

// consumeFields walks the fields of a message. field returns the number of
// bytes it consumed, or -1 to have an unknown field skipped.
func consumeFields(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := field(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return nil
}

func consumeMessage(typ protowire.Type, b []byte, consume func([]byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, fmt.Errorf("unexpected wire type %d for message", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, consume(v)
}

func appendPackedFloats(b []byte, num protowire.Number, vals []float32) []byte {
	if len(vals) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(4*len(vals)))
	for _, v := range vals {
		b = protowire.AppendFixed32(b, math.Float32bits(v))
	}
	return b
}

// consumeFloats accepts both packed and unpacked encodings.
func consumeFloats(typ protowire.Type, b []byte, dst *[]float32) (int, error) {
	switch typ {
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		*dst = append(*dst, math.Float32frombits(v))
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		if len(packed)%4 != 0 {
			return 0, fmt.Errorf("packed float field has %d bytes", len(packed))
		}
		if *dst == nil {
			*dst = make([]float32, 0, len(packed)/4)
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeFixed32(packed)
			*dst = append(*dst, math.Float32frombits(v))
			packed = packed[m:]
		}
		return n, nil
	}
	return 0, fmt.Errorf("unexpected wire type %d for float field", typ)
}

func consumeInt32s(typ protowire.Type, b []byte, dst *[]int32) (int, error) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		*dst = append(*dst, int32(v))
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return 0, protowire.ParseError(m)
			}
			*dst = append(*dst, int32(v))
			packed = packed[m:]
		}
		return n, nil
	}
	return 0, fmt.Errorf("unexpected wire type %d for int32 field", typ)
}

func consumeCount(typ protowire.Type, b []byte, dst *int) (int, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("unexpected wire type %d for count", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	if v > math.MaxInt32 {
		return 0, fmt.Errorf("count %d out of range", v)
	}
	*dst = int(v)
	return n, nil
}
