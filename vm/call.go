package vm

import (
	"context"
	"fmt"

	"github.com/briskvm/brisk/errz"
	"github.com/briskvm/brisk/object"
)

// doCall implements §4.3's CALL convention for the three callee shapes:
// a plain/async/generator closure, or a callable native object.
func (v *VM) doCall(argc int) Status {
	callee := v.peek(argc)
	switch fn := callee.(type) {
	case *object.Closure:
		return v.callClosure(fn, argc, len(v.stack)-argc-1, false)
	case *object.Native:
		if !fn.IsCallable() {
			return v.throwRuntime(errz.KindNotCallable, "%s is not callable", fn.Name)
		}
		args := v.spliceArgs(argc)
		v.pop() // native callee itself
		result, err := fn.Call(v.ctx, args)
		if err != nil {
			return v.throwRuntime(errz.KindNotCallable, "%s", err)
		}
		v.push(orNull(result))
		return OK
	default:
		return v.throwRuntime(errz.KindNotCallable, "value of type %s is not callable", callee.Type())
	}
}

// callClosure pushes (or defers, for async/generator) a frame for a
// closure invoked with argc arguments already on the stack at
// calleeSlot. thisAlreadySet indicates slot 0 has already been written
// with the receiver (CALL_METHOD/NEW); otherwise slot 0 is the callee
// itself, matching a plain function/script call.
func (v *VM) callClosure(fn *object.Closure, argc, calleeSlot int, thisAlreadySet bool) Status {
	if fn.Fn.Arity != argc {
		return v.throwRuntime(errz.KindArityMismatch, "expected %d arguments, got %d", fn.Fn.Arity, argc)
	}
	if fn.Fn.IsGenerator {
		args := make([]object.Value, argc)
		copy(args, v.stack[calleeSlot+1:])
		v.stack = v.stack[:calleeSlot]
		v.push(newGenerator(fn, args))
		return OK
	}
	if fn.Fn.IsAsync {
		args := make([]object.Value, argc)
		copy(args, v.stack[calleeSlot+1:])
		receiver := object.Value(object.Null)
		if thisAlreadySet {
			receiver = v.stack[calleeSlot]
		}
		v.stack = v.stack[:calleeSlot]
		promise := object.NewPromise(v)
		v.microtasks = append(v.microtasks, microtask{
			isCall:   true,
			closure:  fn,
			promise:  promise,
			args:     args,
			receiver: receiver,
		})
		v.push(promise)
		return OK
	}
	if len(v.frames) >= v.maxFrames {
		return v.throwRuntime(errz.KindStackOverflow, "stack overflow")
	}
	v.frames = append(v.frames, &Frame{closure: fn, stackBase: calleeSlot})
	return OK
}

func (v *VM) spliceArgs(argc int) []object.Value {
	args := make([]object.Value, argc)
	copy(args, v.stack[len(v.stack)-argc:])
	v.stack = v.stack[:len(v.stack)-argc]
	return args
}

// doCallMethod implements §4.3's CALL_METHOD lookup order: native
// object property, promise's own .then, plain native property, then the
// receiver's prototype chain.
func (v *VM) doCallMethod(name string, argc int) Status {
	receiver := v.peek(argc)
	switch r := receiver.(type) {
	case *object.Native:
		if name == "" {
			return v.throwRuntime(errz.KindNotCallable, "missing method name")
		}
		args := v.spliceArgs(argc)
		v.pop() // receiver
		result, err := r.CallMethod(v.ctx, name, args)
		if err != nil {
			return v.throwRuntime(errz.KindNotCallable, "%s", err)
		}
		v.push(orNull(result))
		return OK
	case *object.Promise:
		if name == "then" {
			return v.callPromiseThen(r, argc)
		}
		return v.throwRuntime(errz.KindPropertyOnNonObject, "promise has no method %q", name)
	case *object.Object:
		prop := r.GetProp(name)
		return v.invokeResolvedMethod(prop, r, argc)
	case *Generator:
		return v.callGeneratorMethod(r, name, argc)
	case *object.NullValue:
		return v.throwRuntime(errz.KindNullReference, "cannot call method %q on null", name)
	default:
		return v.throwRuntime(errz.KindPropertyOnNonObject, "cannot call method %q on %s", name, receiver.Type())
	}
}

// callGeneratorMethod implements §3's "next/return/throw contracts" for
// generator objects, wrapping each into the {value, done} record shape
// the end-to-end scenario in §8 reads `.value`/`.done` off of.
func (v *VM) callGeneratorMethod(g *Generator, name string, argc int) Status {
	args := v.spliceArgs(argc)
	v.pop() // receiver
	switch name {
	case "next":
		value, done, err := g.Next(v, orNullArg(args))
		if err != nil {
			return v.throwRuntime(errz.KindThrown, "%s", err)
		}
		v.push(generatorResult(value, done))
		return OK
	case "return":
		v.push(generatorResult(g.Return(orNullArg(args)), true))
		return OK
	case "throw":
		value, done, err := g.Throw(v, orNullArg(args))
		if err != nil {
			return v.throwRuntime(errz.KindThrown, "%s", err)
		}
		v.push(generatorResult(value, done))
		return OK
	default:
		return v.throwRuntime(errz.KindPropertyOnNonObject, "generator has no method %q", name)
	}
}

func generatorResult(value object.Value, done bool) *object.Object {
	o := object.NewObject()
	o.SetProp("value", orNull(value))
	o.SetProp("done", object.BoolOf(done))
	return o
}

func (v *VM) invokeResolvedMethod(prop object.Value, receiver object.Value, argc int) Status {
	closure, ok := prop.(*object.Closure)
	if !ok {
		return v.throwRuntime(errz.KindNotCallable, "property is not callable")
	}
	calleeSlot := len(v.stack) - argc - 1
	v.stack[calleeSlot] = receiver
	return v.callClosure(closure, argc, calleeSlot, true)
}

func (v *VM) callPromiseThen(p *object.Promise, argc int) Status {
	args := v.spliceArgs(argc)
	v.pop() // receiver promise
	var onFulfilled, onRejected func(object.Value) (object.Value, error)
	if len(args) > 0 {
		if cb, ok := args[0].(*object.Closure); ok {
			onFulfilled = v.bridgeCallback(cb)
		}
	}
	if len(args) > 1 {
		if cb, ok := args[1].(*object.Closure); ok {
			onRejected = v.bridgeCallback(cb)
		}
	}
	next := p.Then(onFulfilled, onRejected)
	v.push(next)
	return OK
}

// bridgeCallback wraps a VM closure as a host-callable Go function so it
// can be attached as a promise reaction, per §9's "Native-object method
// dispatch" re-entrant-call strategy. The re-entrant run executes to
// completion synchronously; an AWAIT/YIELD inside it would desynchronize
// the outer dispatch loop, so callbacks passed to .then are expected not
// to contain one (mirrors the restriction §9 states for host callables).
func (v *VM) bridgeCallback(cb *object.Closure) func(object.Value) (object.Value, error) {
	return func(arg object.Value) (object.Value, error) {
		return v.callSynchronously(cb, []object.Value{arg})
	}
}

// callSynchronously re-enters the dispatch loop to run a closure to
// completion and returns its value, used for native callback bridging.
// Unlike a CALL opcode's compiled call site, a host callback offers a
// fixed argument list without knowing how many the closure declared
// (an executor may take only `resolve` and ignore `reject`, a timer
// callback may take none at all), so args is adapted to the closure's
// arity here instead of going through the strict arity check a script
// call site gets.
func (v *VM) callSynchronously(cb *object.Closure, args []object.Value) (object.Value, error) {
	args = adaptToArity(args, cb.Fn.Arity)
	savedStack, savedFrames := v.stack, v.frames
	v.stack = append([]object.Value{cb}, args...)
	v.frames = nil
	status := v.callClosure(cb, len(args), 0, false)
	if status != OK {
		v.stack, v.frames = savedStack, savedFrames
		return nil, fmt.Errorf("callback invocation failed")
	}
	status = v.dispatch(0)
	var result object.Value = object.Null
	if len(v.stack) > 0 {
		result = v.stack[len(v.stack)-1]
	}
	errVal := v.errValue
	hadErr := v.hasError
	v.hasError = false
	v.errValue = nil
	v.stack, v.frames = savedStack, savedFrames
	if status == RuntimeErrorStatus || hadErr {
		return nil, fmt.Errorf("%s", errVal)
	}
	return result, nil
}

// doNew implements §4.3's NEW convention, including the specially
// handled native Promise constructor.
func (v *VM) doNew(argc int) Status {
	callee := v.peek(argc)
	switch fn := callee.(type) {
	case *object.Closure:
		proto := fn.ClassPrototype()
		instance := object.NewObject()
		instance.SetPrototype(proto)
		calleeSlot := len(v.stack) - argc - 1
		v.stack[calleeSlot] = instance
		return v.callClosure(fn, argc, calleeSlot, true)
	case *object.Native:
		if fn.Name == "Promise" {
			return v.constructPromise(argc)
		}
		return v.throwRuntime(errz.KindNotCallable, "%s is not a constructor", fn.Name)
	default:
		return v.throwRuntime(errz.KindNotCallable, "value of type %s is not a constructor", callee.Type())
	}
}

func (v *VM) constructPromise(argc int) Status {
	if argc != 1 {
		return v.throwRuntime(errz.KindArityMismatch, "Promise constructor requires one executor argument")
	}
	executor := v.peek(0)
	v.pop() // executor
	v.pop() // Promise native callee
	promise := object.NewPromise(v)
	resolve := object.NewNativeFunc("resolve", func(ctx context.Context, args []object.Value) (object.Value, error) {
		promise.Resolve(orNullArg(args))
		return object.Null, nil
	})
	reject := object.NewNativeFunc("reject", func(ctx context.Context, args []object.Value) (object.Value, error) {
		promise.Reject(orNullArg(args))
		return object.Null, nil
	})
	switch exec := executor.(type) {
	case *object.Closure:
		if _, err := v.callSynchronously(exec, []object.Value{resolve, reject}); err != nil {
			promise.Reject(object.NewString(err.Error()))
		}
	case *object.Native:
		if exec.IsCallable() {
			if _, err := exec.Call(v.ctx, []object.Value{resolve, reject}); err != nil {
				promise.Reject(object.NewString(err.Error()))
			}
		}
	}
	v.push(promise)
	return OK
}

// invokeCallback runs a script-supplied callback value from host code,
// accepting either a VM closure or a callable native -- setTimeout(resolve,
// ms) is as common a pattern as setTimeout(() => {...}, ms), and the timer
// callback doesn't know in advance which it was handed.
func (v *VM) invokeCallback(cb object.Value, args []object.Value) (object.Value, error) {
	switch c := cb.(type) {
	case *object.Closure:
		return v.callSynchronously(c, args)
	case *object.Native:
		if !c.IsCallable() {
			return nil, fmt.Errorf("%s is not callable", c.Name)
		}
		return c.Call(v.ctx, args)
	default:
		return nil, fmt.Errorf("value of type %s is not callable", cb.Type())
	}
}

// adaptToArity truncates or pads (with Null) a host-supplied argument
// list to exactly arity entries.
func adaptToArity(args []object.Value, arity int) []object.Value {
	if len(args) == arity {
		return args
	}
	out := make([]object.Value, arity)
	n := len(args)
	if n > arity {
		n = arity
	}
	copy(out, args[:n])
	for i := n; i < arity; i++ {
		out[i] = object.Null
	}
	return out
}

func orNullArg(args []object.Value) object.Value {
	if len(args) == 0 {
		return object.Null
	}
	return args[0]
}

func orNull(v object.Value) object.Value {
	if v == nil {
		return object.Null
	}
	return v
}

// doReturn implements §4.3's RETURN: settle async promises, close
// upvalues at or above the frame's base, pop the frame, and propagate
// the value.
func (v *VM) doReturn() Status {
	retVal := v.pop()
	frame := v.currentFrame()
	v.closeUpvaluesFrom(frame.stackBase)
	v.frames = v.frames[:len(v.frames)-1]
	v.stack = v.stack[:frame.stackBase]
	if frame.asyncPromise != nil {
		frame.asyncPromise.Resolve(retVal)
	}
	v.push(retVal)
	return OK
}
