// Package object defines the runtime value universe of the VM: numbers,
// strings, booleans, null, arrays, prototype-based objects, closures,
// upvalue cells, native objects, promises, and generators.
package object

import "github.com/briskvm/brisk/op"

// Type identifies the concrete kind of a Value.
type Type string

const (
	NUMBER    Type = "number"
	STRING    Type = "string"
	BOOL      Type = "bool"
	NULL      Type = "null"
	ARRAY     Type = "array"
	OBJECT    Type = "object"
	CLOSURE   Type = "closure"
	CELL      Type = "cell"
	NATIVE    Type = "native"
	PROMISE   Type = "promise"
	GENERATOR Type = "generator"
)

// Value is the interface every runtime value implements. It is
// deliberately small: the VM itself, not the value, knows how to run
// opcodes — RunOperation lets each type own its own arithmetic/concat
// behavior the way the teacher's object.Object does.
type Value interface {
	Type() Type
	Inspect() string
	String() string
	IsTruthy() bool
	Equals(other Value) bool
	RunOperation(opType op.BinaryOpType, right Value) (Value, error)
}

var (
	Null  = &NullValue{}
	True  = &Bool{value: true}
	False = &Bool{value: false}
)

// BoolOf returns the canonical True or False singleton for b.
func BoolOf(b bool) *Bool {
	if b {
		return True
	}
	return False
}

// Falsy reports whether v is falsy per spec: null, false, 0, "", or [].
func Falsy(v Value) bool {
	switch v := v.(type) {
	case *NullValue:
		return true
	case *Bool:
		return !v.value
	case *Number:
		return v.value == 0
	case *String:
		return v.value == ""
	case *Array:
		return len(v.Elements) == 0
	default:
		return false
	}
}
