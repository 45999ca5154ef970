// Package errz defines the structured compile- and runtime-error taxonomy
// described in spec §7.
package errz

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind classifies a compile or runtime error.
type Kind int

const (
	// Compile-time kinds.
	KindDuplicateLocal Kind = iota
	KindTooManyLocals
	KindTooManyUpvalues
	KindConstantPoolOverflow
	KindJumpOffsetOverflow
	KindUnsupportedNode
	KindInvalidUpdateTarget
	KindBreakOutsideLoop
	KindContinueOutsideLoop

	// Runtime kinds.
	KindTypeError
	KindDivideByZero
	KindUndefinedGlobal
	KindNotCallable
	KindNullReference
	KindPropertyOnNonObject
	KindArityMismatch
	KindInvalidPrototype
	KindStackOverflow
	KindUnknownOpcode
	KindStackUnderflow
	KindThrown
	KindDeadlineExceeded
)

func (k Kind) String() string {
	switch k {
	case KindDuplicateLocal:
		return "duplicate local"
	case KindTooManyLocals:
		return "too many locals"
	case KindTooManyUpvalues:
		return "too many upvalues"
	case KindConstantPoolOverflow:
		return "constant pool overflow"
	case KindJumpOffsetOverflow:
		return "jump offset overflow"
	case KindUnsupportedNode:
		return "unsupported syntax"
	case KindInvalidUpdateTarget:
		return "invalid update target"
	case KindBreakOutsideLoop:
		return "break outside loop"
	case KindContinueOutsideLoop:
		return "continue outside loop"
	case KindTypeError:
		return "type error"
	case KindDivideByZero:
		return "division by zero"
	case KindUndefinedGlobal:
		return "undefined global"
	case KindNotCallable:
		return "not callable"
	case KindNullReference:
		return "null reference"
	case KindPropertyOnNonObject:
		return "property on non-object"
	case KindArityMismatch:
		return "arity mismatch"
	case KindInvalidPrototype:
		return "invalid prototype"
	case KindStackOverflow:
		return "stack overflow"
	case KindUnknownOpcode:
		return "unknown opcode"
	case KindStackUnderflow:
		return "stack underflow"
	case KindThrown:
		return "uncaught exception"
	case KindDeadlineExceeded:
		return "deadline exceeded"
	default:
		return "error"
	}
}

// IsCompileKind reports whether k belongs to the compile-time taxonomy.
func (k Kind) IsCompileKind() bool {
	return k <= KindContinueOutsideLoop
}

// CompileError is a single compile-time diagnostic with a source line for
// context. The compiler collects many of these into a CompileErrors
// aggregate rather than aborting at the first one.
type CompileError struct {
	Kind    Kind
	Message string
	Line    int
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d)", e.Kind, e.Message, e.Line)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewCompileError(kind Kind, line int, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...), Line: line}
}

// CompileErrors aggregates every CompileError produced while compiling one
// program, via hashicorp/go-multierror, so a host can report them all at
// once instead of stopping at the first mistake.
type CompileErrors struct {
	merr *multierror.Error
}

func NewCompileErrors() *CompileErrors {
	return &CompileErrors{}
}

func (c *CompileErrors) Add(err *CompileError) {
	c.merr = multierror.Append(c.merr, err)
}

func (c *CompileErrors) HasErrors() bool {
	return c.merr != nil && c.merr.Len() > 0
}

func (c *CompileErrors) ErrorOrNil() error {
	if c.merr == nil {
		return nil
	}
	return c.merr.ErrorOrNil()
}

// RuntimeError is a single runtime-time diagnostic, thrown via THROW or
// raised directly by an instruction handler. FunctionName records the
// active function at the point of the error (per §6's error surface).
type RuntimeError struct {
	Kind         Kind
	Message      string
	FunctionName string
}

func (e *RuntimeError) Error() string {
	if e.FunctionName != "" {
		return fmt.Sprintf("%s: %s (in %s)", e.Kind, e.Message, e.FunctionName)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewRuntimeError(kind Kind, functionName, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...), FunctionName: functionName}
}
