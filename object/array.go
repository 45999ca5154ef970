package object

import (
	"fmt"
	"strings"

	"github.com/briskvm/brisk/op"
)

// Array is an ordered, mutable sequence of values.
type Array struct {
	Elements []Value
}

func NewArray(elements []Value) *Array {
	if elements == nil {
		elements = []Value{}
	}
	return &Array{Elements: elements}
}

func (a *Array) Type() Type     { return ARRAY }
func (a *Array) IsTruthy() bool { return len(a.Elements) != 0 }

func (a *Array) Inspect() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.Inspect()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (a *Array) String() string { return a.Inspect() }

// Equals uses reference identity per spec's equality rule for arrays.
func (a *Array) Equals(other Value) bool {
	o, ok := other.(*Array)
	return ok && o == a
}

func (a *Array) RunOperation(opType op.BinaryOpType, right Value) (Value, error) {
	if opType == op.OpAdd {
		if s, ok := right.(*String); ok {
			return NewString(a.String() + s.value), nil
		}
	}
	return nil, fmt.Errorf("type error: unsupported operation %s on array", opType)
}

// Get returns the element at idx, or an error if idx is out of range.
func (a *Array) Get(idx int) (Value, error) {
	if idx < 0 || idx >= len(a.Elements) {
		return nil, fmt.Errorf("runtime error: array index out of range: %d", idx)
	}
	return a.Elements[idx], nil
}

// Set writes the element at idx, growing the array with nulls if needed is
// NOT performed -- out of range is a runtime error, matching property/index
// semantics for arrays described in §4.3.
func (a *Array) Set(idx int, v Value) error {
	if idx < 0 || idx >= len(a.Elements) {
		return fmt.Errorf("runtime error: array index out of range: %d", idx)
	}
	a.Elements[idx] = v
	return nil
}
