// Package meshrpc serves and calls the reconstruction pipeline over gRPC.
//
// The service is osr.Remesher with a single unary ProcessMesh method. Its
// messages are encoded by Codec in protobuf wire format; see messages.go
// for the schema.
package meshrpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/mesh"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/monitoring"
	"github.com/Unity-Technologies/OnlineSurfaceReconstruction/internal/pipeline"
)

var logf = monitoring.Component("meshrpc")

const (
	serviceName       = "osr.Remesher"
	processMeshMethod = "/" + serviceName + "/ProcessMesh"

	// maxMsgSize admits meshes of roughly a million vertices.
	maxMsgSize = 64 * 1024 * 1024
)

// RemesherServer is the server API for the osr.Remesher service.
type RemesherServer interface {
	ProcessMesh(context.Context, *ProcessMeshRequest) (*ProcessMeshResponse, error)
}

var remesherServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RemesherServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessMesh", Handler: processMeshHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "osr/remesher.proto",
}

func processMeshHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ProcessMeshRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RemesherServer).ProcessMesh(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: processMeshMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RemesherServer).ProcessMesh(ctx, req.(*ProcessMeshRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterRemesherServer registers srv on s.
func RegisterRemesherServer(s grpc.ServiceRegistrar, srv RemesherServer) {
	s.RegisterService(&remesherServiceDesc, srv)
}

// NewGRPCServer creates a grpc.Server that speaks Codec and has enough
// message room for large meshes.
func NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.ForceServerCodec(Codec{}),
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	}
	return grpc.NewServer(append(base, opts...)...)
}

// Service implements RemesherServer on top of a pipeline.Processor.
type Service struct {
	proc *pipeline.Processor
}

var _ RemesherServer = (*Service)(nil)

// NewService creates a Service that runs requests through proc.
func NewService(proc *pipeline.Processor) *Service {
	return &Service{proc: proc}
}

// ProcessMesh reconstructs the request mesh. The output is copied into the
// response and released before returning.
func (s *Service) ProcessMesh(ctx context.Context, req *ProcessMeshRequest) (*ProcessMeshResponse, error) {
	if req.Mesh == nil {
		return nil, status.Error(codes.InvalidArgument, "request has no mesh")
	}

	out, err := s.proc.Process(ctx, req.Mesh.FlatMesh(), req.Parameters)
	if err != nil {
		return nil, statusError(err)
	}
	defer func() {
		if err := pipeline.Free(out); err != nil {
			logf("release output: %v", err)
		}
	}()
	return &ProcessMeshResponse{Mesh: FromFlatMesh(out)}, nil
}

// statusError maps pipeline errors onto gRPC status codes.
func statusError(err error) error {
	code := codes.Unknown
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		switch mesh.KindOf(err) {
		case mesh.KindInvalidBufferLayout, mesh.KindIndexOutOfRange, mesh.KindInvalidParameters:
			code = codes.InvalidArgument
		case mesh.KindVertexOverflow, mesh.KindFaceOverflow, mesh.KindIncompleteMesh,
			mesh.KindProtocol, mesh.KindEngine:
			code = codes.Internal
		}
	}
	return status.Error(code, err.Error())
}

// Server runs a Remesher service on a TCP listener.
type Server struct {
	addr     string
	service  RemesherServer
	server   *grpc.Server
	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
}

// NewServer creates a Server for service that will listen on addr.
func NewServer(addr string, service RemesherServer) *Server {
	return &Server{addr: addr, service: service}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = lis
	s.server = NewGRPCServer()
	RegisterRemesherServer(s.server, s.service)
	s.running.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		logf("gRPC server listening on %s", lis.Addr())
		if err := s.server.Serve(lis); err != nil && s.running.Load() {
			logf("gRPC server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully stops the server and waits for Serve to return.
func (s *Server) Stop() {
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	s.server.GracefulStop()
	s.wg.Wait()
	logf("gRPC server stopped")
}
