package protocol

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ServiceName  = "credbroker.Broker"
	LookupMethod = "/credbroker.Broker/Lookup"
)

// BrokerServer is the server side of the broker service.
type BrokerServer interface {
	Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error)
}

// RegisterBrokerServer registers srv with s.
func RegisterBrokerServer(s grpc.ServiceRegistrar, srv BrokerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func lookupHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(LookupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BrokerServer).Lookup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: LookupMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BrokerServer).Lookup(ctx, req.(*LookupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes the broker service to grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BrokerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Lookup",
			Handler:    lookupHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "credbroker",
}

// BrokerClient is the client side of the broker service.
type BrokerClient struct {
	cc grpc.ClientConnInterface
}

func NewBrokerClient(cc grpc.ClientConnInterface) *BrokerClient {
	return &BrokerClient{cc: cc}
}

// Lookup performs a blocking lookup.
func (c *BrokerClient) Lookup(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*LookupResponse, error) {
	out := new(LookupResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, LookupMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Go starts a lookup and returns immediately. reply is called exactly once,
// from another goroutine, with either the response or the transport error.
func (c *BrokerClient) Go(ctx context.Context, in *LookupRequest, reply func(*LookupResponse, error), opts ...grpc.CallOption) {
	go func() {
		reply(c.Lookup(ctx, in, opts...))
	}()
}
