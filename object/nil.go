package object

import (
	"fmt"

	"github.com/briskvm/brisk/op"
)

// NullValue is the sole null value. Use the package-level Null singleton
// rather than constructing this directly.
type NullValue struct{}

func (n *NullValue) Type() Type       { return NULL }
func (n *NullValue) Inspect() string  { return "null" }
func (n *NullValue) String() string   { return "null" }
func (n *NullValue) IsTruthy() bool   { return false }
func (n *NullValue) Equals(other Value) bool {
	_, ok := other.(*NullValue)
	return ok
}

func (n *NullValue) RunOperation(opType op.BinaryOpType, right Value) (Value, error) {
	if opType == op.OpAdd {
		if s, ok := right.(*String); ok {
			return NewString("null" + s.value), nil
		}
	}
	return nil, fmt.Errorf("type error: unsupported operation %s on null", opType)
}
