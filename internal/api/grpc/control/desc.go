package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "lookout.v1.ControlService"

// Full method names used by clients.
const (
	MethodGetStatus   = "/" + ServiceName + "/GetStatus"
	MethodRecenter    = "/" + ServiceName + "/Recenter"
	MethodSetActivity = "/" + ServiceName + "/SetActivity"
)

// controlServer is the handler type checked by grpc.Server.RegisterService.
type controlServer interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Recenter(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	SetActivity(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
}

//nolint:gochecknoglobals // Service descriptors are package-level by grpc convention.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*controlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "Recenter", Handler: recenterHandler},
		{MethodName: "SetActivity", Handler: setActivityHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lookout/v1/control.proto",
}

// Register attaches srv to a gRPC server.
func Register(registrar grpc.ServiceRegistrar, srv *Server) {
	registrar.RegisterService(&serviceDesc, srv)
}

func getStatusHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(controlServer).GetStatus(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetStatus}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(controlServer).GetStatus(ctx, req.(*emptypb.Empty))
	})
}

func recenterHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(controlServer).Recenter(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodRecenter}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(controlServer).Recenter(ctx, req.(*structpb.Struct))
	})
}

func setActivityHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(controlServer).SetActivity(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodSetActivity}

	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(controlServer).SetActivity(ctx, req.(*structpb.Struct))
	})
}
