package object

import (
	"fmt"

	"github.com/briskvm/brisk/op"

	"github.com/briskvm/brisk/bytecode"
)

// Closure pairs a compiled Function template with the upvalue Cells it
// captured at creation time. When invoked as a class constructor it also
// carries a lazily-allocated Prototype object shared by every instance.
type Closure struct {
	Fn        *bytecode.Function
	Upvalues  []*Cell
	Prototype *Object
}

func NewClosure(fn *bytecode.Function, upvalues []*Cell) *Closure {
	return &Closure{Fn: fn, Upvalues: upvalues}
}

func (c *Closure) Type() Type     { return CLOSURE }
func (c *Closure) IsTruthy() bool { return true }

func (c *Closure) Inspect() string {
	name := c.Fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("<closure %s/%d>", name, c.Fn.Arity)
}

func (c *Closure) String() string { return c.Inspect() }

// Equals uses reference identity: two closures are equal only if they are
// literally the same activation.
func (c *Closure) Equals(other Value) bool {
	o, ok := other.(*Closure)
	return ok && o == c
}

func (c *Closure) RunOperation(opType op.BinaryOpType, right Value) (Value, error) {
	return nil, fmt.Errorf("type error: unsupported operation %s on closure", opType)
}

// ClassPrototype lazily allocates and returns the constructor's shared
// prototype object, used by GET_PROTOTYPE when compiling class method
// bodies and by NEW when constructing instances.
func (c *Closure) ClassPrototype() *Object {
	if c.Prototype == nil {
		c.Prototype = NewObject()
	}
	return c.Prototype
}
