package object

import (
	"fmt"
	"math"
	"strconv"

	"github.com/briskvm/brisk/op"
)

// Number is the VM's sole numeric type: an IEEE-754 double, per spec's
// "numeric tower beyond IEEE-754 doubles" non-goal.
type Number struct {
	value float64
}

func NewNumber(v float64) *Number { return &Number{value: v} }

func (n *Number) Type() Type     { return NUMBER }
func (n *Number) Value() float64 { return n.value }
func (n *Number) IsTruthy() bool { return n.value != 0 }

func (n *Number) Inspect() string {
	return strconv.FormatFloat(n.value, 'g', -1, 64)
}

func (n *Number) String() string { return n.Inspect() }

func (n *Number) Equals(other Value) bool {
	o, ok := other.(*Number)
	return ok && o.value == n.value
}

func (n *Number) RunOperation(opType op.BinaryOpType, right Value) (Value, error) {
	if opType == op.OpAdd {
		if s, ok := right.(*String); ok {
			return NewString(n.String() + s.value), nil
		}
	}
	r, ok := right.(*Number)
	if !ok {
		return nil, fmt.Errorf("type error: unsupported operation %s between number and %s", opType, right.Type())
	}
	switch opType {
	case op.OpAdd:
		return NewNumber(n.value + r.value), nil
	case op.OpSub:
		return NewNumber(n.value - r.value), nil
	case op.OpMul:
		return NewNumber(n.value * r.value), nil
	case op.OpDiv:
		if r.value == 0 {
			return nil, fmt.Errorf("runtime error: division by zero")
		}
		return NewNumber(n.value / r.value), nil
	case op.OpMod:
		if r.value == 0 {
			return nil, fmt.Errorf("runtime error: modulo by zero")
		}
		return NewNumber(math.Mod(n.value, r.value)), nil
	case op.OpPow:
		return NewNumber(math.Pow(n.value, r.value)), nil
	default:
		return nil, fmt.Errorf("type error: unsupported operation %s on number", opType)
	}
}

// Compare returns -1, 0, or 1 for n relative to other. Used by the VM's
// GT/LT/GE/LE opcodes.
func (n *Number) Compare(other Value) (int, error) {
	o, ok := other.(*Number)
	if !ok {
		return 0, fmt.Errorf("type error: cannot compare number and %s", other.Type())
	}
	switch {
	case n.value < o.value:
		return -1, nil
	case n.value > o.value:
		return 1, nil
	default:
		return 0, nil
	}
}
