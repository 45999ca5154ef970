package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectPrototypeLookup(t *testing.T) {
	proto := NewObject()
	proto.SetProp("greet", NewString("hi"))

	child := NewObject()
	require.NoError(t, child.SetPrototype(proto))

	assert.Equal(t, "hi", child.GetProp("greet").String())
	assert.Equal(t, Null, child.GetProp("missing"))

	// Own property shadows the prototype's.
	child.SetProp("greet", NewString("yo"))
	assert.Equal(t, "yo", child.GetProp("greet").String())
	assert.Equal(t, "hi", proto.GetProp("greet").String())
}

func TestObjectPrototypeChainMiss(t *testing.T) {
	grandparent := NewObject()
	parent := NewObject()
	require.NoError(t, parent.SetPrototype(grandparent))
	child := NewObject()
	require.NoError(t, child.SetPrototype(parent))

	assert.Equal(t, Null, child.GetProp("anything"))

	grandparent.SetProp("anything", NewNumber(1))
	assert.Equal(t, 1.0, child.GetProp("anything").(*Number).Value())
}

func TestObjectSetPrototypeRejectsNonObject(t *testing.T) {
	o := NewObject()
	err := o.SetPrototype(NewString("nope"))
	assert.Error(t, err)
}

func TestObjectSetPrototypeAcceptsNull(t *testing.T) {
	o := NewObject()
	require.NoError(t, o.SetPrototype(NewObject()))
	require.NoError(t, o.SetPrototype(Null))
	assert.Nil(t, o.Prototype)
}

func TestObjectKeysPreserveInsertionOrder(t *testing.T) {
	o := NewObject()
	o.SetProp("b", NewNumber(1))
	o.SetProp("a", NewNumber(2))
	o.SetProp("b", NewNumber(3)) // re-set, should not move
	assert.Equal(t, []string{"b", "a"}, o.Keys())
}

func TestObjectEqualsIsReferenceIdentity(t *testing.T) {
	a := NewObject()
	b := NewObject()
	assert.True(t, a.Equals(a))
	assert.False(t, a.Equals(b))
}
