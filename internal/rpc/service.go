// Package rpc defines the BudgetService gRPC contract. Messages are
// protobuf well-known types: structured payloads travel as
// google.protobuf.Struct and are converted to typed Go values with Encode
// and Decode.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "boilerbudget.v1.BudgetService"

// Full method names, as seen by interceptors.
const (
	MethodRegister        = "/" + ServiceName + "/Register"
	MethodLogin           = "/" + ServiceName + "/Login"
	MethodRefreshToken    = "/" + ServiceName + "/RefreshToken"
	MethodWhoAmI          = "/" + ServiceName + "/WhoAmI"
	MethodGetProfile      = "/" + ServiceName + "/GetProfile"
	MethodMergeProfile    = "/" + ServiceName + "/MergeProfile"
	MethodAvatarUploadURL = "/" + ServiceName + "/AvatarUploadURL"
	MethodPing            = "/" + ServiceName + "/Ping"
)

// BudgetServiceServer is implemented by the server transport.
type BudgetServiceServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshToken(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetProfile(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	MergeProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AvatarUploadURL(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// UnimplementedBudgetServiceServer can be embedded to get forward
// compatible implementations.
type UnimplementedBudgetServiceServer struct{}

func (UnimplementedBudgetServiceServer) Register(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Register not implemented")
}
func (UnimplementedBudgetServiceServer) Login(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedBudgetServiceServer) RefreshToken(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RefreshToken not implemented")
}
func (UnimplementedBudgetServiceServer) WhoAmI(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method WhoAmI not implemented")
}
func (UnimplementedBudgetServiceServer) GetProfile(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetProfile not implemented")
}
func (UnimplementedBudgetServiceServer) MergeProfile(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method MergeProfile not implemented")
}
func (UnimplementedBudgetServiceServer) AvatarUploadURL(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AvatarUploadURL not implemented")
}
func (UnimplementedBudgetServiceServer) Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}

func RegisterBudgetServiceServer(s grpc.ServiceRegistrar, srv BudgetServiceServer) {
	s.RegisterService(&BudgetServiceDesc, srv)
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req any, Resp any, PReq interface {
	*Req
	proto.Message
}](fullMethod string, call func(BudgetServiceServer, context.Context, PReq) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BudgetServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BudgetServiceServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BudgetServiceDesc is the grpc.ServiceDesc for BudgetService.
var BudgetServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BudgetServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(MethodRegister, BudgetServiceServer.Register)},
		{MethodName: "Login", Handler: unaryHandler(MethodLogin, BudgetServiceServer.Login)},
		{MethodName: "RefreshToken", Handler: unaryHandler(MethodRefreshToken, BudgetServiceServer.RefreshToken)},
		{MethodName: "WhoAmI", Handler: unaryHandler(MethodWhoAmI, BudgetServiceServer.WhoAmI)},
		{MethodName: "GetProfile", Handler: unaryHandler(MethodGetProfile, BudgetServiceServer.GetProfile)},
		{MethodName: "MergeProfile", Handler: unaryHandler(MethodMergeProfile, BudgetServiceServer.MergeProfile)},
		{MethodName: "AvatarUploadURL", Handler: unaryHandler(MethodAvatarUploadURL, BudgetServiceServer.AvatarUploadURL)},
		{MethodName: "Ping", Handler: unaryHandler(MethodPing, BudgetServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "boilerbudget/v1/budget.proto",
}
