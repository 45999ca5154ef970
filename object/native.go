package object

import (
	"context"
	"fmt"

	"github.com/briskvm/brisk/op"
)

// NativeFunc is the signature of a host function exposed to VM code,
// either as a standalone callable native value or as a native object's
// method. ctx carries cancellation/deadline per the ambient CallContext
// convention. A native function that needs to invoke a VM closure
// passed to it as a callback argument does so by capturing the VM's own
// re-entrant call helper at registration time, not through ctx.
type NativeFunc func(ctx context.Context, args []Value) (Value, error)

// Native is a host-provided value exposed through the interop boundary
// (console, Object, Promise's constructor, setTimeout, fetch, ...). It
// carries its own property/method table and, optionally, is itself
// directly callable (its "inner value is a function", per §4.3).
type Native struct {
	Name       string
	properties map[string]Value
	methods    map[string]NativeFunc
	call       NativeFunc
}

func NewNative(name string) *Native {
	return &Native{Name: name, properties: map[string]Value{}, methods: map[string]NativeFunc{}}
}

// NewNativeFunc builds a directly-callable native value, e.g. the
// standalone `fetch` global.
func NewNativeFunc(name string, fn NativeFunc) *Native {
	n := NewNative(name)
	n.call = fn
	return n
}

func (n *Native) Type() Type     { return NATIVE }
func (n *Native) IsTruthy() bool { return true }
func (n *Native) Inspect() string {
	return fmt.Sprintf("<native %s>", n.Name)
}
func (n *Native) String() string { return n.Inspect() }

func (n *Native) Equals(other Value) bool {
	o, ok := other.(*Native)
	return ok && o == n
}

func (n *Native) RunOperation(opType op.BinaryOpType, right Value) (Value, error) {
	return nil, fmt.Errorf("type error: unsupported operation %s on native object", opType)
}

// IsCallable reports whether this native's "inner value is a function".
func (n *Native) IsCallable() bool { return n.call != nil }

// Call invokes the native's inner function.
func (n *Native) Call(ctx context.Context, args []Value) (Value, error) {
	if n.call == nil {
		return nil, fmt.Errorf("type error: %s is not callable", n.Name)
	}
	return n.call(ctx, args)
}

// GetProperty implements the native-object getProperty hook used by
// GET_PROP/CALL_METHOD.
func (n *Native) GetProperty(name string) (Value, bool) {
	if v, ok := n.properties[name]; ok {
		return v, true
	}
	if fn, ok := n.methods[name]; ok {
		return NewNativeFunc(n.Name+"."+name, fn), true
	}
	return nil, false
}

// SetProperty implements the native-object setProperty hook.
func (n *Native) SetProperty(name string, value Value) {
	n.properties[name] = value
}

// SetMethod registers a bound method under name, callable via CALL_METHOD
// or as a detached native function via GET_PROP.
func (n *Native) SetMethod(name string, fn NativeFunc) {
	n.methods[name] = fn
}

// CallMethod invokes a registered method by name, or falls through to a
// plain property if that property itself is directly callable.
func (n *Native) CallMethod(ctx context.Context, name string, args []Value) (Value, error) {
	if fn, ok := n.methods[name]; ok {
		return fn(ctx, args)
	}
	if v, ok := n.properties[name]; ok {
		if callee, ok := v.(*Native); ok && callee.IsCallable() {
			return callee.Call(ctx, args)
		}
	}
	return nil, fmt.Errorf("runtime error: %s has no method %q", n.Name, name)
}
