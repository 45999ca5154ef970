// Package bytecode holds the compiled, immutable representation of a
// program: functions, their code chunks, and constant pools.
package bytecode

import (
	"fmt"

	"github.com/gofrs/uuid"
)

// UpvalueDesc describes how a closure should capture one upvalue when the
// CLOSURE instruction runs. IsLocal true means "capture the enclosing
// function's local at Index"; false means "inherit upvalue Index from the
// currently-executing closure".
type UpvalueDesc struct {
	IsLocal bool
	Index   uint8
}

// Function is an immutable compiled function template. Closures are
// created at runtime by pairing a Function with a slice of upvalue
// handles; the Function itself holds no per-activation state.
type Function struct {
	id          string
	Name        string
	Arity       int
	Code        []byte
	Constants   []any
	Upvalues    []UpvalueDesc
	IsGenerator bool
	IsAsync     bool

	// LocalCount is the number of local variable slots the function's
	// frame needs, including slot 0 (callee/this) and parameters.
	LocalCount int

	// Source, when non-empty, is used only for disassembly/diagnostics.
	Source string
}

// ID returns a unique identifier for this function, stamped once at
// compile time so logs and stack traces can correlate activations of the
// same function template across closures.
func (f *Function) ID() string {
	return f.id
}

// NewFunction builds a Function and stamps it with a fresh UUID. The UUID
// generation failing (practically never, short of exhausted entropy) falls
// back to a name-based placeholder rather than panicking the compiler.
func NewFunction(name string, arity int) *Function {
	id, err := uuid.NewV4()
	idStr := ""
	if err == nil {
		idStr = id.String()
	} else {
		idStr = fmt.Sprintf("fn:%s:no-uuid", name)
	}
	return &Function{id: idStr, Name: name, Arity: arity}
}

func (f *Function) String() string {
	name := f.Name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("function %s/%d", name, f.Arity)
}
