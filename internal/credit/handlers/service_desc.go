package handlers

import (
	"context"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "kyp.v1.CreditAnalysisService"

// Full method names, as seen by interceptors.
const (
	AnalyzeMethod      = "/" + ServiceName + "/Analyze"
	GetAnalysisMethod  = "/" + ServiceName + "/GetAnalysis"
	RenderReportMethod = "/" + ServiceName + "/RenderReport"
)

// CreditAnalysisServer is the server API of the service. Messages are
// well-known types: requests carry a JSON document or an analysis id in a
// StringValue, and analyses travel as Struct.
type CreditAnalysisServer interface {
	Analyze(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetAnalysis(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	RenderReport(context.Context, *wrapperspb.StringValue) (*httpbody.HttpBody, error)
}

// ServiceDesc describes CreditAnalysisService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CreditAnalysisServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Analyze",
			Handler:    unary(AnalyzeMethod, CreditAnalysisServer.Analyze),
		},
		{
			MethodName: "GetAnalysis",
			Handler:    unary(GetAnalysisMethod, CreditAnalysisServer.GetAnalysis),
		},
		{
			MethodName: "RenderReport",
			Handler:    unary(RenderReportMethod, CreditAnalysisServer.RenderReport),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kyp/v1/credit_analysis.proto",
}

// unary adapts a typed method to grpc.MethodHandler, routing through the
// server's interceptor when one is installed.
func unary[Resp any](
	fullMethod string,
	call func(CreditAnalysisServer, context.Context, *wrapperspb.StringValue) (Resp, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(wrapperspb.StringValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CreditAnalysisServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CreditAnalysisServer), ctx, req.(*wrapperspb.StringValue))
		}
		return interceptor(ctx, in, info, handler)
	}
}
