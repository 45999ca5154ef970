package object

import (
	"fmt"

	"github.com/briskvm/brisk/op"
)

// Bool wraps a boolean. Only the True and False singletons should exist;
// construct via BoolOf.
type Bool struct {
	value bool
}

func (b *Bool) Type() Type      { return BOOL }
func (b *Bool) Value() bool     { return b.value }
func (b *Bool) IsTruthy() bool  { return b.value }
func (b *Bool) Inspect() string { return b.String() }

func (b *Bool) String() string {
	if b.value {
		return "true"
	}
	return "false"
}

func (b *Bool) Equals(other Value) bool {
	o, ok := other.(*Bool)
	return ok && o.value == b.value
}

func (b *Bool) RunOperation(opType op.BinaryOpType, right Value) (Value, error) {
	if opType == op.OpAdd {
		if s, ok := right.(*String); ok {
			return NewString(b.String() + s.value), nil
		}
	}
	return nil, fmt.Errorf("type error: unsupported operation %s on bool", opType)
}
