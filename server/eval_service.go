package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/rpal/compiler"
)

// Procedure names served by EvalService over Connect and gRPC.
const (
	EvaluationServiceName = "rpal.v1.EvaluationService"

	EvaluateProcedure    = "/" + EvaluationServiceName + "/Evaluate"
	StandardizeProcedure = "/" + EvaluationServiceName + "/Standardize"
	CheckSyntaxProcedure = "/" + EvaluationServiceName + "/CheckSyntax"
)

var errSourceRequired = errors.New("source is required")

// EvalService implements the EvaluationService. Requests and responses
// are google.protobuf.Struct messages, so Connect clients may speak plain
// JSON to it.
//
// Every request carries a "source" string.
type EvalService struct {
	worker *Worker
}

// NewEvalService creates an EvalService.
func NewEvalService(worker *Worker) *EvalService {
	return &EvalService{worker: worker}
}

// Handlers returns the Connect handlers keyed by procedure path.
func (s *EvalService) Handlers(opts ...connect.HandlerOption) map[string]http.Handler {
	return map[string]http.Handler{
		EvaluateProcedure:    connect.NewUnaryHandler(EvaluateProcedure, connectUnary(s.evaluate), opts...),
		StandardizeProcedure: connect.NewUnaryHandler(StandardizeProcedure, connectUnary(s.standardize), opts...),
		CheckSyntaxProcedure: connect.NewUnaryHandler(CheckSyntaxProcedure, connectUnary(s.checkSyntax), opts...),
	}
}

// Evaluate compiles and executes a program.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	return connectUnary(s.evaluate)(ctx, req)
}

// Standardize returns the raw tree, the standardized tree and the control
// structures of a program without running it.
func (s *EvalService) Standardize(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	return connectUnary(s.standardize)(ctx, req)
}

// CheckSyntax validates source code without executing it.
func (s *EvalService) CheckSyntax(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	return connectUnary(s.checkSyntax)(ctx, req)
}

// connectUnary adapts a transport-neutral method to a Connect handler.
func connectUnary(
	fn func(context.Context, *structpb.Struct) (*structpb.Struct, error),
) func(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	return func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
		resp, err := fn(ctx, req.Msg)
		if err != nil {
			return nil, connect.NewError(connectCode(err), err)
		}
		return connect.NewResponse(resp), nil
	}
}

func connectCode(err error) connect.Code {
	switch {
	case errors.Is(err, errSourceRequired):
		return connect.CodeInvalidArgument
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, errWorkerStopped):
		return connect.CodeUnavailable
	}
	return connect.CodeInternal
}

// ---------------------------------------------------------------------------
// Transport-neutral methods
// ---------------------------------------------------------------------------

func sourceOf(msg *structpb.Struct) (string, error) {
	v, ok := msg.GetFields()["source"]
	if !ok {
		return "", errSourceRequired
	}
	src, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok || src.StringValue == "" {
		return "", errSourceRequired
	}
	return src.StringValue, nil
}

func (s *EvalService) evaluate(ctx context.Context, msg *structpb.Struct) (*structpb.Struct, error) {
	src, err := sourceOf(msg)
	if err != nil {
		return nil, err
	}

	value, err := s.worker.Do(ctx, func(r *Runner) any {
		res, runErr := r.Evaluate(src)
		return evalOutcome{res, runErr}
	})
	if err != nil {
		return nil, err
	}
	out := value.(evalOutcome)

	fields := map[string]any{"success": out.err == nil}
	if out.res != nil {
		fields["output"] = out.res.Output
		fields["steps"] = out.res.Steps
		fields["cached"] = out.res.Cached
	}
	if out.err != nil {
		log.Debugf("evaluate failed: %s", out.err)
		fields["errorKind"] = ErrorKind(out.err)
		fields["errorMessage"] = out.err.Error()
	} else {
		fields["result"] = out.res.Value
	}
	return structpb.NewStruct(fields)
}

type evalOutcome struct {
	res *Result
	err error
}

func (s *EvalService) standardize(ctx context.Context, msg *structpb.Struct) (*structpb.Struct, error) {
	src, err := sourceOf(msg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fields := map[string]any{"success": false}
	root, err := compiler.Parse(src)
	if err != nil {
		return failure(fields, err)
	}
	fields["ast"] = compiler.Sprint(root)

	prog, err := compiler.CompileTree(root)
	if err != nil {
		return failure(fields, err)
	}
	fields["st"] = compiler.Sprint(prog.Tree)

	var buf bytes.Buffer
	if err := prog.Dump(&buf); err != nil {
		return nil, fmt.Errorf("listing control structures: %w", err)
	}
	fields["controls"] = buf.String()
	fields["success"] = true
	return structpb.NewStruct(fields)
}

func (s *EvalService) checkSyntax(ctx context.Context, msg *structpb.Struct) (*structpb.Struct, error) {
	src, err := sourceOf(msg)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	diags := Diagnostics(Check(src))
	list := make([]any, len(diags))
	for i, d := range diags {
		list[i] = map[string]any{
			"kind":     d.Kind,
			"line":     d.Line,
			"column":   d.Column,
			"message":  d.Message,
			"severity": "ERROR",
		}
	}
	return structpb.NewStruct(map[string]any{
		"valid":       len(diags) == 0,
		"diagnostics": list,
	})
}

func failure(fields map[string]any, err error) (*structpb.Struct, error) {
	fields["errorKind"] = ErrorKind(err)
	fields["errorMessage"] = err.Error()
	return structpb.NewStruct(fields)
}
