package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCellOpenAliasesStack(t *testing.T) {
	stack := []Value{NewNumber(1), NewNumber(2)}
	c := NewOpenCell(1)

	assert.Equal(t, 2.0, c.Get(stack).(*Number).Value())

	c.Set(stack, NewNumber(42))
	assert.Equal(t, 42.0, stack[1].(*Number).Value())
}

func TestCellCloseCopiesValueAndDetaches(t *testing.T) {
	stack := []Value{NewNumber(7)}
	c := NewOpenCell(0)
	c.Next = NewOpenCell(0)

	c.Close(stack)

	assert.True(t, c.Closed)
	assert.Nil(t, c.Next)
	assert.Equal(t, 7.0, c.Get(nil).(*Number).Value())

	// Writes to a closed cell no longer touch the stack.
	c.Set(nil, NewNumber(9))
	assert.Equal(t, 9.0, c.Get(nil).(*Number).Value())
	assert.Equal(t, 7.0, stack[0].(*Number).Value())
}

func TestCellSharingBetweenClosures(t *testing.T) {
	// Two closures capturing the same slot share one Cell; a write
	// through either alias is visible through the other.
	stack := []Value{NewNumber(0)}
	shared := NewOpenCell(0)

	shared.Set(stack, NewNumber(1))
	assert.Equal(t, 1.0, shared.Get(stack).(*Number).Value())

	// Simulate a second closure reading the same cell.
	other := shared
	assert.Equal(t, 1.0, other.Get(stack).(*Number).Value())
}
