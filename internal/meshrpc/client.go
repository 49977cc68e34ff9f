package meshrpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/config"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
)

// Client calls a remote Remesher.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ProcessMesh sends m to the server and returns the reconstructed mesh as
// borrowed memory owned by the Go heap. Failures come back as gRPC status
// errors.
func (c *Client) ProcessMesh(ctx context.Context, m *mesh.FlatMesh, params *config.Parameters, opts ...grpc.CallOption) (*mesh.FlatMesh, error) {
	req := &ProcessMeshRequest{Mesh: FromFlatMesh(m), Parameters: params}
	resp := new(ProcessMeshResponse)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{}), grpc.MaxCallRecvMsgSize(maxMsgSize), grpc.MaxCallSendMsgSize(maxMsgSize)}, opts...)
	if err := c.cc.Invoke(ctx, processMeshMethod, req, resp, opts...); err != nil {
		return nil, err
	}
	if resp.Mesh == nil {
		resp.Mesh = &Mesh{}
	}
	return resp.Mesh.FlatMesh(), nil
}
