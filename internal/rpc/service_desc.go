package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// TransformServiceName is the fully-qualified gRPC service name, used in
// FullMethod strings and by clients dialing with grpc.NewClient.
const TransformServiceName = "tfgraph.rpc.TransformService"

func _TransformService_SetTransform_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SetTransformRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformServiceServer).SetTransform(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TransformServiceName + "/SetTransform"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransformServiceServer).SetTransform(ctx, req.(*SetTransformRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransformService_LookupTransform_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(LookupTransformRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformServiceServer).LookupTransform(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TransformServiceName + "/LookupTransform"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransformServiceServer).LookupTransform(ctx, req.(*LookupTransformRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransformService_CanTransform_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CanTransformRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformServiceServer).CanTransform(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TransformServiceName + "/CanTransform"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransformServiceServer).CanTransform(ctx, req.(*CanTransformRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransformService_GetLatestCommonTime_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetLatestCommonTimeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransformServiceServer).GetLatestCommonTime(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TransformServiceName + "/GetLatestCommonTime"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransformServiceServer).GetLatestCommonTime(ctx, req.(*GetLatestCommonTimeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// TransformService_ServiceDesc is the hand-written equivalent of what
// protoc-gen-go-grpc would emit for a TransformService with these four
// unary methods.
var TransformService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: TransformServiceName,
	HandlerType: (*TransformServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SetTransform", Handler: _TransformService_SetTransform_Handler},
		{MethodName: "LookupTransform", Handler: _TransformService_LookupTransform_Handler},
		{MethodName: "CanTransform", Handler: _TransformService_CanTransform_Handler},
		{MethodName: "GetLatestCommonTime", Handler: _TransformService_GetLatestCommonTime_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/rpc/service_desc.go",
}

// RegisterTransformServiceServer registers srv against s using the same
// grpc.ServiceRegistrar.RegisterService call a protoc-generated
// RegisterXxxServer function would make.
func RegisterTransformServiceServer(s grpc.ServiceRegistrar, srv TransformServiceServer) {
	s.RegisterService(&TransformService_ServiceDesc, srv)
}
