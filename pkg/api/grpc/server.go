// Package grpcapi implements the Calculus gRPC service. Requests and
// responses are google.protobuf.Struct messages, so clients in any language
// can call it with only the well-known types.
package grpcapi

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/scalp/pkg/runtime"
	"github.com/lemonberrylabs/scalp/pkg/store"
	"github.com/lemonberrylabs/scalp/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "scalp.v1.Calculus"

// CalculusServer is the server API for the Calculus service.
type CalculusServer interface {
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Integrate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCalculation(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the Calculus service for grpc.Server registration.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CalculusServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Parse", Handler: unaryHandler("Parse", CalculusServer.Parse)},
		{MethodName: "Evaluate", Handler: unaryHandler("Evaluate", CalculusServer.Evaluate)},
		{MethodName: "Integrate", Handler: unaryHandler("Integrate", CalculusServer.Integrate)},
		{MethodName: "GetCalculation", Handler: unaryHandler("GetCalculation", CalculusServer.GetCalculation)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scalp/v1/calculus.proto",
}

type method func(CalculusServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call method) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CalculusServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CalculusServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Server implements the Calculus gRPC service.
type Server struct {
	engine *runtime.Engine
	grpc   *grpc.Server
}

// New creates a new gRPC server running calculations through engine.
func New(engine *runtime.Engine) *Server {
	srv := &Server{engine: engine}

	gs := grpc.NewServer()
	gs.RegisterService(&ServiceDesc, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

func (s *Server) Parse(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.run(store.OperationParse, req)
}

func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.run(store.OperationEvaluate, req)
}

func (s *Server) Integrate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.run(store.OperationIntegrate, req)
}

func (s *Server) GetCalculation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := req.GetFields()["id"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	history := s.engine.Store()
	if history == nil {
		return nil, status.Errorf(codes.NotFound, "calculation '%s' not found", id)
	}
	calc, err := history.Get(id)
	if err != nil {
		return nil, status.Error(codes.NotFound, err.Error())
	}
	return calculationToStruct(calc)
}

func (s *Server) run(op store.Operation, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	input := fields["expression"].GetStringValue()
	if input == "" {
		return nil, status.Error(codes.InvalidArgument, "expression is required")
	}
	opts := runtime.Options{Raw: fields["raw"].GetBoolValue()}

	calc, err := s.engine.Run(op, input, opts)
	if err != nil {
		return nil, toStatus(err)
	}
	return calculationToStruct(calc)
}

// toStatus maps a calculation failure to a gRPC status.
func toStatus(err error) error {
	ce := types.AsCalcError(err)
	if ce == nil {
		return status.Error(codes.Internal, err.Error())
	}
	switch ce.Family() {
	case types.TagLexError, types.TagParseError:
		return status.Error(codes.InvalidArgument, ce.Error())
	case types.TagEvalError, types.TagIntegrationError:
		return status.Error(codes.FailedPrecondition, ce.Error())
	default:
		return status.Error(codes.Unknown, ce.Error())
	}
}

func calculationToStruct(calc *store.Calculation) (*structpb.Struct, error) {
	m := map[string]any{
		"id":         calc.ID,
		"operation":  string(calc.Operation),
		"input":      calc.Input,
		"normalized": calc.Normalized,
		"createTime": calc.CreateTime.Format(time.RFC3339Nano),
	}
	if calc.Result != "" {
		m["result"] = calc.Result
	}
	if calc.Value != nil {
		m["value"] = *calc.Value
	}
	if calc.Tree != nil {
		m["tree"] = calc.Tree
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode calculation: %v", err)
	}
	return out, nil
}
