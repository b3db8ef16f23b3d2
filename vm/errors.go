package vm

import "fmt"

// RuntimeError reports a failed operation during evaluation. Evaluation
// stops at the first one and produces no result.
type RuntimeError struct {
	Op  string // operator, built-in or machine rule that failed
	Msg string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %s: %s", e.Op, e.Msg)
}

func runtimeErrorf(op, format string, args ...any) *RuntimeError {
	return &RuntimeError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// typeError reports operands of the wrong type for op.
func typeError(op string, operands ...Value) *RuntimeError {
	switch len(operands) {
	case 1:
		return runtimeErrorf(op, "invalid operand type %s", operands[0].TypeName())
	case 2:
		return runtimeErrorf(op, "invalid operand types %s and %s", operands[0].TypeName(), operands[1].TypeName())
	}
	return runtimeErrorf(op, "invalid operands")
}
