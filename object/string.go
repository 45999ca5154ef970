package object

import (
	"fmt"

	"github.com/briskvm/brisk/op"
)

// String wraps a Go string. Unicode-correct semantics beyond concatenation
// are explicitly out of scope (spec Non-goals); indexing and length use
// byte-oriented Go string operations.
type String struct {
	value string
}

func NewString(v string) *String { return &String{value: v} }

func (s *String) Type() Type      { return STRING }
func (s *String) Value() string   { return s.value }
func (s *String) IsTruthy() bool  { return s.value != "" }
func (s *String) Inspect() string { return fmt.Sprintf("%q", s.value) }
func (s *String) String() string  { return s.value }

func (s *String) Equals(other Value) bool {
	o, ok := other.(*String)
	return ok && o.value == s.value
}

func (s *String) RunOperation(opType op.BinaryOpType, right Value) (Value, error) {
	if opType != op.OpAdd {
		return nil, fmt.Errorf("type error: unsupported operation %s on string", opType)
	}
	return NewString(s.value + right.String()), nil
}

func (s *String) Compare(other Value) (int, error) {
	o, ok := other.(*String)
	if !ok {
		return 0, fmt.Errorf("type error: cannot compare string and %s", other.Type())
	}
	switch {
	case s.value < o.value:
		return -1, nil
	case s.value > o.value:
		return 1, nil
	default:
		return 0, nil
	}
}
