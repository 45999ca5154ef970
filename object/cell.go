package object

import (
	"fmt"

	"github.com/briskvm/brisk/op"
)

// Cell is an upvalue handle: a captured variable shared by every closure
// that closes over the same source local. It starts "open", aliasing a
// slot in the VM's value stack by index; when that slot's scope ends the
// VM "closes" the cell, copying the value in and invalidating the stack
// reference. Open cells form a singly linked list, kept sorted by
// descending StackIndex, so the VM can find-or-create a shared cell for a
// given slot and can close every cell at or above a given slot in one
// pass. Internal: constructed and mutated only by the vm package.
type Cell struct {
	Closed     bool
	StackIndex int
	value      Value // valid only when Closed
	Next       *Cell // next open cell in the VM's open-upvalue list
}

// NewOpenCell creates a cell aliasing the given stack slot.
func NewOpenCell(stackIndex int) *Cell {
	return &Cell{StackIndex: stackIndex}
}

// Get returns the cell's current value. For an open cell the caller must
// supply the live value stack to read through the alias.
func (c *Cell) Get(stack []Value) Value {
	if c.Closed {
		return c.value
	}
	return stack[c.StackIndex]
}

// Set writes through the cell. For an open cell the caller must supply
// the live value stack so the write lands on the aliased slot.
func (c *Cell) Set(stack []Value, v Value) {
	if c.Closed {
		c.value = v
		return
	}
	stack[c.StackIndex] = v
}

// Close copies the slot's current value in and detaches the cell from the
// stack. Called when the aliased slot's scope ends (block exit, return, or
// coroutine stack swap).
func (c *Cell) Close(stack []Value) {
	c.value = stack[c.StackIndex]
	c.Closed = true
	c.Next = nil
}

func (c *Cell) Type() Type     { return CELL }
func (c *Cell) IsTruthy() bool { return true }
func (c *Cell) Inspect() string {
	if c.Closed {
		return fmt.Sprintf("cell(%s)", c.value.Inspect())
	}
	return "cell(open)"
}
func (c *Cell) String() string { return c.Inspect() }

func (c *Cell) Equals(other Value) bool {
	o, ok := other.(*Cell)
	return ok && o == c
}

func (c *Cell) RunOperation(opType op.BinaryOpType, right Value) (Value, error) {
	return nil, fmt.Errorf("type error: unsupported operation for cell: %s", opType)
}
