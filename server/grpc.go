package server

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// evaluationServer is the handler type gRPC checks EvalService against.
type evaluationServer interface {
	evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	standardize(context.Context, *structpb.Struct) (*structpb.Struct, error)
	checkSyntax(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// evaluationServiceDesc describes the EvaluationService to a gRPC server.
// Messages are google.protobuf.Struct, so no generated code is needed.
var evaluationServiceDesc = grpc.ServiceDesc{
	ServiceName: EvaluationServiceName,
	HandlerType: (*evaluationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: grpcUnary(EvaluateProcedure, evaluationServer.evaluate)},
		{MethodName: "Standardize", Handler: grpcUnary(StandardizeProcedure, evaluationServer.standardize)},
		{MethodName: "CheckSyntax", Handler: grpcUnary(CheckSyntaxProcedure, evaluationServer.checkSyntax)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rpal/v1/evaluation.proto",
}

// RegisterGRPC registers s on a gRPC server.
func (s *EvalService) RegisterGRPC(gs *grpc.Server) {
	gs.RegisterService(&evaluationServiceDesc, s)
}

type grpcMethod func(evaluationServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func grpcUnary(fullMethod string, call grpcMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			resp, err := call(srv.(evaluationServer), ctx, req.(*structpb.Struct))
			if err != nil {
				return nil, grpcStatus(err)
			}
			return resp, nil
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, handler)
	}
}

func grpcStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, errSourceRequired):
		code = codes.InvalidArgument
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, errWorkerStopped):
		code = codes.Unavailable
	}
	return status.Error(code, err.Error())
}
