package object

import (
	"fmt"
	"strings"

	"github.com/briskvm/brisk/op"
)

// Object is a prototype-based record: an ordered own-property map plus an
// optional link to a prototype object consulted on lookup miss.
type Object struct {
	keys       []string
	properties map[string]Value
	Prototype  *Object
}

func NewObject() *Object {
	return &Object{properties: make(map[string]Value)}
}

func (o *Object) Type() Type     { return OBJECT }
func (o *Object) IsTruthy() bool { return true }

func (o *Object) Inspect() string {
	parts := make([]string, 0, len(o.keys))
	for _, k := range o.keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, o.properties[k].Inspect()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (o *Object) String() string { return o.Inspect() }

// Equals uses reference identity per spec's equality rule for objects.
func (o *Object) Equals(other Value) bool {
	other2, ok := other.(*Object)
	return ok && other2 == o
}

func (o *Object) RunOperation(opType op.BinaryOpType, right Value) (Value, error) {
	if opType == op.OpAdd {
		if s, ok := right.(*String); ok {
			return NewString(o.String() + s.value), nil
		}
	}
	return nil, fmt.Errorf("type error: unsupported operation %s on object", opType)
}

// OwnProperty returns the own (non-inherited) property with the given
// name.
func (o *Object) OwnProperty(name string) (Value, bool) {
	v, ok := o.properties[name]
	return v, ok
}

// GetProp walks the prototype chain: own property first, then ancestors.
// Per the spec's resolved Open Question, a miss anywhere in the chain
// returns Null, never a separate "undefined" value.
func (o *Object) GetProp(name string) Value {
	for cur := o; cur != nil; cur = cur.Prototype {
		if v, ok := cur.properties[name]; ok {
			return v
		}
	}
	return Null
}

// SetProp sets an own property, preserving first-insertion key order.
func (o *Object) SetProp(name string, value Value) {
	if _, exists := o.properties[name]; !exists {
		o.keys = append(o.keys, name)
	}
	o.properties[name] = value
}

// SetPrototype validates and assigns the prototype link. Per §4.3's
// runtime error taxonomy, the prototype must be an object or null.
func (o *Object) SetPrototype(proto Value) error {
	switch p := proto.(type) {
	case *NullValue:
		o.Prototype = nil
		return nil
	case *Object:
		o.Prototype = p
		return nil
	default:
		return fmt.Errorf("runtime error: prototype must be object or null, got %s", proto.Type())
	}
}

// Keys returns the own property names in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}
