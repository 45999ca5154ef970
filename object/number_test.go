package object

import (
	"testing"

	"github.com/briskvm/brisk/op"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberArithmetic(t *testing.T) {
	five := NewNumber(5)
	two := NewNumber(2)

	result, err := five.RunOperation(op.OpAdd, two)
	require.NoError(t, err)
	assert.Equal(t, 7.0, result.(*Number).Value())

	result, err = five.RunOperation(op.OpSub, two)
	require.NoError(t, err)
	assert.Equal(t, 3.0, result.(*Number).Value())

	result, err = five.RunOperation(op.OpMod, two)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.(*Number).Value())
}

func TestNumberAddStringCoercion(t *testing.T) {
	n := NewNumber(3)
	result, err := n.RunOperation(op.OpAdd, NewString("x"))
	require.NoError(t, err)
	assert.Equal(t, "3x", result.String())
}

func TestNumberDivideByZero(t *testing.T) {
	_, err := NewNumber(1).RunOperation(op.OpDiv, NewNumber(0))
	assert.Error(t, err)
}

func TestNumberModuloByZero(t *testing.T) {
	_, err := NewNumber(1).RunOperation(op.OpMod, NewNumber(0))
	assert.Error(t, err)
}

func TestNumberOverflowDoesNotError(t *testing.T) {
	huge, err := NewNumber(2).RunOperation(op.OpPow, NewNumber(1024))
	require.NoError(t, err)
	assert.True(t, huge.(*Number).Value() >= 1)
}

func TestNumberCompare(t *testing.T) {
	n, err := NewNumber(1).Compare(NewNumber(2))
	require.NoError(t, err)
	assert.Equal(t, -1, n)

	n, err = NewNumber(2).Compare(NewNumber(2))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestNumberEquals(t *testing.T) {
	assert.True(t, NewNumber(1).Equals(NewNumber(1)))
	assert.False(t, NewNumber(1).Equals(NewNumber(2)))
	assert.False(t, NewNumber(1).Equals(NewString("1")))
}
