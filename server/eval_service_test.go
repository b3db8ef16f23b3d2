package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/rpal/store"
)

func bg() context.Context {
	return context.Background()
}

func newTestEvalService(t *testing.T, r *Runner) *EvalService {
	t.Helper()
	w := NewWorker(r)
	t.Cleanup(w.Stop)
	return NewEvalService(w)
}

func sourceReq(t *testing.T, src string) *connect.Request[structpb.Struct] {
	t.Helper()
	msg, err := structpb.NewStruct(map[string]any{"source": src})
	if err != nil {
		t.Fatal(err)
	}
	return connect.NewRequest(msg)
}

func field(msg *structpb.Struct, name string) any {
	v, ok := msg.GetFields()[name]
	if !ok {
		return nil
	}
	return v.AsInterface()
}

// ---------------------------------------------------------------------------
// Evaluate
// ---------------------------------------------------------------------------

func TestEvaluate(t *testing.T) {
	svc := newTestEvalService(t, &Runner{})

	tests := []struct {
		name   string
		source string
		output string
		result string
	}{
		{"print integer", "Print (3 + 4)", "7", "dummy"},
		{"value only", "let x = 5 in x * x", "", "25"},
		{"string escapes", `Print 'a\tb'`, "a\tb", "dummy"},
		{"tuple", "Print (1, 'two', true)", "(1, two, true)", "dummy"},
		{"recursion", "let rec f n = n eq 0 -> 1 | n * f (n - 1) in f 5", "", "120"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := svc.Evaluate(bg(), sourceReq(t, tc.source))
			if err != nil {
				t.Fatalf("Evaluate returned error: %v", err)
			}
			if field(resp.Msg, "success") != true {
				t.Fatalf("Evaluate was not successful: %v", field(resp.Msg, "errorMessage"))
			}
			if got := field(resp.Msg, "output"); got != tc.output {
				t.Errorf("output = %q, want %q", got, tc.output)
			}
			if got := field(resp.Msg, "result"); got != tc.result {
				t.Errorf("result = %q, want %q", got, tc.result)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	svc := newTestEvalService(t, &Runner{MaxSteps: 500})

	tests := []struct {
		name   string
		source string
		kind   string
		output string
	}{
		{"syntax", "let x = in x", "syntax", ""},
		{"runtime", "1 / 0", "runtime", ""},
		{"unbound", "Print y", "runtime", ""},
		{"partial output", "let d = Print 'seen' in d aug (1 / 0)", "runtime", "seen"},
		{"step limit", "let rec loop x = loop x in loop 1", "runtime", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := svc.Evaluate(bg(), sourceReq(t, tc.source))
			if err != nil {
				t.Fatalf("Evaluate returned error: %v", err)
			}
			if field(resp.Msg, "success") != false {
				t.Fatal("Evaluate should fail")
			}
			if got := field(resp.Msg, "errorKind"); got != tc.kind {
				t.Errorf("errorKind = %v, want %q (%v)", got, tc.kind, field(resp.Msg, "errorMessage"))
			}
			if tc.output != "" && field(resp.Msg, "output") != tc.output {
				t.Errorf("output = %v, want %q", field(resp.Msg, "output"), tc.output)
			}
		})
	}
}

func TestEvaluate_SourceRequired(t *testing.T) {
	svc := newTestEvalService(t, &Runner{})

	_, err := svc.Evaluate(bg(), connect.NewRequest(&structpb.Struct{}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", connect.CodeOf(err))
	}

	_, err = svc.Evaluate(bg(), sourceReq(t, ""))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("empty source code = %v, want InvalidArgument", connect.CodeOf(err))
	}
}

func TestEvaluate_Cached(t *testing.T) {
	cache, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	svc := newTestEvalService(t, &Runner{Cache: cache})

	first, err := svc.Evaluate(bg(), sourceReq(t, "Print (2 ** 10)"))
	if err != nil {
		t.Fatal(err)
	}
	if field(first.Msg, "cached") != false {
		t.Error("first run reported as cached")
	}

	second, err := svc.Evaluate(bg(), sourceReq(t, "Print(2**10) // again"))
	if err != nil {
		t.Fatal(err)
	}
	if field(second.Msg, "cached") != true {
		t.Error("second run should be answered from the cache")
	}
	if got := field(second.Msg, "output"); got != "1024" {
		t.Errorf("cached output = %q, want %q", got, "1024")
	}
	if field(second.Msg, "steps") != field(first.Msg, "steps") {
		t.Errorf("cached steps = %v, want %v", field(second.Msg, "steps"), field(first.Msg, "steps"))
	}
}

// ---------------------------------------------------------------------------
// Standardize and CheckSyntax
// ---------------------------------------------------------------------------

func TestStandardize(t *testing.T) {
	svc := newTestEvalService(t, &Runner{})

	resp, err := svc.Standardize(bg(), sourceReq(t, "let x = 1 in x"))
	if err != nil {
		t.Fatal(err)
	}
	if field(resp.Msg, "success") != true {
		t.Fatalf("Standardize failed: %v", field(resp.Msg, "errorMessage"))
	}
	if got := field(resp.Msg, "ast"); got != "let\n.=\n..<ID:x>\n..<INT:1>\n.<ID:x>\n" {
		t.Errorf("ast = %q", got)
	}
	if got := field(resp.Msg, "st"); got != "gamma\n.lambda\n..<ID:x>\n..<ID:x>\n.<INT:1>\n" {
		t.Errorf("st = %q", got)
	}
	if got, _ := field(resp.Msg, "controls").(string); !strings.Contains(got, "δ1 x") {
		t.Errorf("controls = %q, want a listing of δ1", got)
	}
}

func TestStandardize_Error(t *testing.T) {
	svc := newTestEvalService(t, &Runner{})

	resp, err := svc.Standardize(bg(), sourceReq(t, "fn . 1"))
	if err != nil {
		t.Fatal(err)
	}
	if field(resp.Msg, "success") != false {
		t.Error("Standardize should fail on a syntax error")
	}
	if field(resp.Msg, "errorKind") != "syntax" {
		t.Errorf("errorKind = %v, want syntax", field(resp.Msg, "errorKind"))
	}
}

func TestCheckSyntax(t *testing.T) {
	svc := newTestEvalService(t, &Runner{})

	resp, err := svc.CheckSyntax(bg(), sourceReq(t, "Print (1, 2)"))
	if err != nil {
		t.Fatal(err)
	}
	if field(resp.Msg, "valid") != true {
		t.Errorf("valid = %v, want true", field(resp.Msg, "valid"))
	}

	resp, err = svc.CheckSyntax(bg(), sourceReq(t, "let x = 1\nin (x"))
	if err != nil {
		t.Fatal(err)
	}
	if field(resp.Msg, "valid") != false {
		t.Fatal("valid = true for broken source")
	}
	diags, _ := field(resp.Msg, "diagnostics").([]any)
	if len(diags) == 0 {
		t.Fatal("no diagnostics reported")
	}
	d := diags[0].(map[string]any)
	if d["kind"] != "syntax" || d["severity"] != "ERROR" {
		t.Errorf("diagnostic = %v", d)
	}
	if d["line"] != float64(2) {
		t.Errorf("diagnostic line = %v, want 2", d["line"])
	}
}

// ---------------------------------------------------------------------------
// Connect over HTTP
// ---------------------------------------------------------------------------

func TestConnectOverHTTP(t *testing.T) {
	s := New(WithMaxSteps(10000))
	defer s.Stop()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for _, opts := range [][]connect.ClientOption{nil, {connect.WithProtoJSON()}} {
		client := connect.NewClient[structpb.Struct, structpb.Struct](ts.Client(), ts.URL+EvaluateProcedure, opts...)
		resp, err := client.CallUnary(bg(), sourceReq(t, "Print (Conc 'ab' 'cd')"))
		if err != nil {
			t.Fatalf("CallUnary: %v", err)
		}
		if got := field(resp.Msg, "output"); got != "abcd" {
			t.Errorf("output = %q, want %q", got, "abcd")
		}
	}

	client := connect.NewClient[structpb.Struct, structpb.Struct](ts.Client(), ts.URL+CheckSyntaxProcedure)
	_, err := client.CallUnary(bg(), connect.NewRequest(&structpb.Struct{}))
	var cerr *connect.Error
	if !errors.As(err, &cerr) || cerr.Code() != connect.CodeInvalidArgument {
		t.Errorf("missing source error = %v, want InvalidArgument", err)
	}
}

func TestWorker_ContextCanceled(t *testing.T) {
	w := NewWorker(&Runner{})
	defer w.Stop()

	ctx, cancel := context.WithCancel(bg())
	cancel()
	_, err := w.Do(ctx, func(r *Runner) any {
		return nil
	})
	// Either the request was queued and ran, or the canceled context won.
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Do error = %v, want nil or context.Canceled", err)
	}
}

func TestWorker_RecoversPanic(t *testing.T) {
	w := NewWorker(&Runner{})
	defer w.Stop()

	_, err := w.Do(bg(), func(r *Runner) any {
		panic("boom")
	})
	if err == nil || err.Error() != "boom" {
		t.Errorf("Do error = %v, want boom", err)
	}

	v, err := w.Do(bg(), func(r *Runner) any { return 42 })
	if err != nil || v != 42 {
		t.Errorf("Do after panic = %v, %v, want 42", v, err)
	}
}
