package peer

import (
	"context"

	"google.golang.org/grpc"

	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/util"
)

// Server is the inbound endpoint a peer's Client dials: every RPC it
// receives is dispatched straight to reg's registry.LocalityAggregator
// handlers, i.e. this process's own Aggregator, exactly as if the call had
// arrived from the (out-of-scope) wire protocol adapter instead of a peer.
type Server struct {
	reg *registry.Registry
}

// NewServer wraps reg. cmd/aggnsad registers the Aggregator's six
// operations under registry.LocalityAggregator before constructing a
// Server, so every method below has a handler to dispatch to.
func NewServer(reg *registry.Registry) *Server {
	return &Server{reg: reg}
}

// Register installs this Server's ServiceDesc on an *grpc.Server, the usual
// generated-stub registration step, done by hand here since there is no
// .proto-generated RegisterAggregatorServer to call.
func (s *Server) Register(grpcServer *grpc.Server) {
	grpcServer.RegisterService(s.serviceDesc(), s)
}

func (s *Server) serviceDesc() *grpc.ServiceDesc {
	methods := make([]grpc.MethodDesc, 0, 6)
	for _, ev := range []registry.Event{
		registry.EventReserve,
		registry.EventReserveCommit,
		registry.EventProvision,
		registry.EventRelease,
		registry.EventTerminate,
		registry.EventQuery,
	} {
		ev := ev
		methods = append(methods, grpc.MethodDesc{
			MethodName: string(ev),
			Handler:    s.unaryHandler(ev),
		})
	}
	return &grpc.ServiceDesc{
		ServiceName: "aggnsa.peer.v1.Aggregator",
		HandlerType: (*interface{})(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "pkg/peer/server.go",
	}
}

// unaryHandler builds the grpc.methodHandler for one Event: decode the
// wireRequest the client sent, dispatch it to the Aggregator locality, and
// encode whatever comes back (success or a leg-level failure) as a
// wireResponse — a transport-level error is only returned for failures in
// decoding itself, per wireResponse's "peer failure is still a successful
// RPC" contract.
func (s *Server) unaryHandler(event registry.Event) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(wireRequest)
		if err := dec(in); err != nil {
			return nil, err
		}

		handle := func(ctx context.Context, req interface{}) (interface{}, error) {
			wreq := req.(*wireRequest)
			resp, err := s.reg.Dispatch(ctx, event, registry.LocalityAggregator, wreq.toRequest())
			util.WithConnection(wreq.ConnectionID).WithField("event", string(event)).
				Debug("peer: served inbound request")
			return toWireResponse(resp, err), nil
		}

		if interceptor == nil {
			return handle(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: s, FullMethod: methodForEvent(event)}
		return interceptor(ctx, in, info, handle)
	}
}
