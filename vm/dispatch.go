package vm

import (
	"github.com/briskvm/brisk/bytecode"
	"github.com/briskvm/brisk/errz"
	"github.com/briskvm/brisk/object"
	"github.com/briskvm/brisk/op"
)

// cancelCheckInterval is how many instructions dispatch lets run between
// checks of the host's context deadline, per SPEC_FULL's "abort a runaway
// script between dispatch-loop iterations" requirement -- checking every
// instruction would make a hot loop pay ctx.Err()'s cost every step.
const cancelCheckInterval = 1024

// dispatch runs step() until the call-frame stack returns to floor (a
// normal completion), an error unwinds to hasError, or a step suspends on
// AWAIT/YIELD.
func (v *VM) dispatch(floor int) Status {
	for len(v.frames) > floor {
		if v.instrCount%cancelCheckInterval == 0 {
			if err := v.ctx.Err(); err != nil {
				return v.throwRuntime(errz.KindDeadlineExceeded, "execution aborted: %s", err)
			}
		}
		status := v.step()
		if status != OK {
			return status
		}
	}
	return OK
}

// step executes exactly one instruction from the current frame, per
// §4.3's "Dispatch": read opcode, invoke its handler, return a status.
func (v *VM) step() Status {
	v.instrCount++
	if len(v.frames) > v.maxFrameDepth {
		v.maxFrameDepth = len(v.frames)
	}
	frame := v.currentFrame()
	code := op.Code(frame.readByte())
	switch code {
	case op.PushConst:
		v.push(v.constant(frame, frame.readByte()))
	case op.PushNull:
		v.push(object.Null)
	case op.PushTrue:
		v.push(object.True)
	case op.PushFalse:
		v.push(object.False)
	case op.Pop:
		v.pop()
	case op.Duplicate:
		v.push(v.peek(0))

	case op.Add, op.Sub, op.Mul, op.Div, op.Mod, op.Pow:
		return v.binaryArith(binOpFor(code))
	case op.Eq:
		right, left := v.pop(), v.pop()
		v.push(object.BoolOf(left.Equals(right)))
	case op.Neq:
		right, left := v.pop(), v.pop()
		v.push(object.BoolOf(!left.Equals(right)))
	case op.Gt, op.Lt, op.Ge, op.Le:
		return v.compare(code)
	case op.Neg:
		n, ok := v.pop().(*object.Number)
		if !ok {
			return v.throwRuntime(errz.KindTypeError, "operand of unary - must be a number")
		}
		v.push(object.NewNumber(-n.Value()))
	case op.Not:
		v.push(object.BoolOf(object.Falsy(v.pop())))

	case op.GetGlobal:
		name := v.constantString(frame, frame.readByte())
		val, ok := v.globals[name]
		if !ok {
			return v.throwRuntime(errz.KindUndefinedGlobal, "undefined global %q", name)
		}
		v.push(val)
	case op.SetGlobal:
		name := v.constantString(frame, frame.readByte())
		if _, ok := v.globals[name]; !ok {
			return v.throwRuntime(errz.KindUndefinedGlobal, "undefined global %q", name)
		}
		v.globals[name] = v.peek(0)
	case op.DefineGlobal:
		name := v.constantString(frame, frame.readByte())
		v.globals[name] = v.pop()
	case op.GetLocal:
		slot := int(frame.readByte())
		v.push(v.stack[frame.stackBase+slot])
	case op.SetLocal:
		slot := int(frame.readByte())
		v.stack[frame.stackBase+slot] = v.peek(0)
	case op.GetUpvalue:
		idx := int(frame.readByte())
		v.push(frame.closure.Upvalues[idx].Get(v.stack))
	case op.SetUpvalue:
		idx := int(frame.readByte())
		frame.closure.Upvalues[idx].Set(v.stack, v.peek(0))
	case op.IncLocal, op.DecLocal:
		slot := int(frame.readByte())
		idx := frame.stackBase + slot
		newVal, status := v.bumpNumber(v.stack[idx], code == op.IncLocal)
		if status != OK {
			return status
		}
		v.stack[idx] = newVal
		v.push(newVal)
	case op.IncGlobal, op.DecGlobal:
		name := v.constantString(frame, frame.readByte())
		cur, ok := v.globals[name]
		if !ok {
			return v.throwRuntime(errz.KindUndefinedGlobal, "undefined global %q", name)
		}
		newVal, status := v.bumpNumber(cur, code == op.IncGlobal)
		if status != OK {
			return status
		}
		v.globals[name] = newVal
		v.push(newVal)
	case op.IncUpvalue, op.DecUpvalue:
		idx := int(frame.readByte())
		cell := frame.closure.Upvalues[idx]
		newVal, status := v.bumpNumber(cell.Get(v.stack), code == op.IncUpvalue)
		if status != OK {
			return status
		}
		cell.Set(v.stack, newVal)
		v.push(newVal)

	case op.Jump:
		off := frame.readUint16()
		frame.ip += off
	case op.JumpIfFalse:
		off := frame.readUint16()
		if object.Falsy(v.peek(0)) {
			frame.ip += off
		}
	case op.Loop:
		off := frame.readUint16()
		frame.ip -= off

	case op.SetupTry:
		off := frame.readUint16()
		v.handlers = append(v.handlers, handlerRecord{
			catchIP:    frame.ip + off,
			stackDepth: len(v.stack),
			frameIndex: len(v.frames) - 1,
		})
	case op.PopCatch:
		if len(v.handlers) > 0 {
			v.handlers = v.handlers[:len(v.handlers)-1]
		}
	case op.Throw:
		return v.doThrow(v.pop())

	case op.Call:
		argc := int(frame.readByte())
		return v.doCall(argc)
	case op.CallMethod:
		nameIdx := frame.readByte()
		argc := int(frame.readByte())
		return v.doCallMethod(v.constantString(frame, nameIdx), argc)
	case op.Return:
		return v.doReturn()
	case op.Closure:
		return v.doClosure(frame)
	case op.CloseUpval:
		idx := len(v.stack) - 1
		v.closeUpvalueAt(idx)
		v.pop()

	case op.Yield:
		v.pendingYield = v.pop()
		return Yielded
	case op.Await:
		return v.doAwait()

	case op.GetNative:
		name := v.constantString(frame, frame.readByte())
		if val, ok := v.globals[name]; ok {
			v.push(val)
		} else {
			v.push(object.Null)
		}
	case op.SetPrototype:
		proto := v.pop()
		target := v.pop()
		obj, ok := target.(*object.Object)
		if !ok {
			return v.throwRuntime(errz.KindInvalidPrototype, "prototype target must be an object")
		}
		if err := obj.SetPrototype(proto); err != nil {
			return v.throwRuntime(errz.KindInvalidPrototype, "%s", err)
		}
		v.push(obj)
	case op.NewArray:
		count := int(frame.readByte())
		elems := make([]object.Value, count)
		for i := count - 1; i >= 0; i-- {
			elems[i] = v.pop()
		}
		v.push(object.NewArray(elems))
	case op.NewObject:
		pairs := int(frame.readByte())
		type kv struct {
			key string
			val object.Value
		}
		kvs := make([]kv, pairs)
		for i := pairs - 1; i >= 0; i-- {
			val := v.pop()
			key := v.pop()
			kvs[i] = kv{key: key.String(), val: val}
		}
		obj := object.NewObject()
		for _, p := range kvs {
			obj.SetProp(p.key, p.val)
		}
		v.push(obj)
	case op.GetIndex:
		return v.doGetIndex()
	case op.SetIndex:
		return v.doSetIndex()
	case op.GetProp:
		name := v.constantString(frame, frame.readByte())
		return v.doGetProp(name)
	case op.SetProp:
		name := v.constantString(frame, frame.readByte())
		return v.doSetProp(name)
	case op.ObjectCreate:
		v.push(object.NewObject())
	case op.GetPrototype:
		val := v.pop()
		closure, ok := val.(*object.Closure)
		if !ok {
			return v.throwRuntime(errz.KindTypeError, "GET_PROTOTYPE requires a closure")
		}
		v.push(closure.ClassPrototype())
	case op.New:
		argc := int(frame.readByte())
		return v.doNew(argc)
	case op.IncProp, op.DecProp:
		nameIdx := frame.readByte()
		mode := op.IncDecMode(frame.readByte())
		return v.doIncDecProp(v.constantString(frame, nameIdx), code == op.IncProp, mode)

	default:
		return v.throwRuntime(errz.KindUnknownOpcode, "unknown opcode %d", code)
	}
	return OK
}

func (v *VM) constant(frame *Frame, idx byte) object.Value {
	return frame.closure.Fn.Constants[idx].(object.Value)
}

func (v *VM) constantString(frame *Frame, idx byte) string {
	return v.constant(frame, idx).String()
}

func binOpFor(code op.Code) op.BinaryOpType {
	switch code {
	case op.Add:
		return op.OpAdd
	case op.Sub:
		return op.OpSub
	case op.Mul:
		return op.OpMul
	case op.Div:
		return op.OpDiv
	case op.Mod:
		return op.OpMod
	default:
		return op.OpPow
	}
}

func (v *VM) binaryArith(opType op.BinaryOpType) Status {
	right := v.pop()
	left := v.pop()
	result, err := left.RunOperation(opType, right)
	if err != nil {
		return v.throwRuntime(errz.KindTypeError, "%s", err)
	}
	v.push(result)
	return OK
}

type comparable interface {
	Compare(object.Value) (int, error)
}

func (v *VM) compare(code op.Code) Status {
	right := v.pop()
	left := v.pop()
	cmp, ok := left.(comparable)
	if !ok {
		return v.throwRuntime(errz.KindTypeError, "cannot compare %s and %s", left.Type(), right.Type())
	}
	n, err := cmp.Compare(right)
	if err != nil {
		return v.throwRuntime(errz.KindTypeError, "%s", err)
	}
	var result bool
	switch code {
	case op.Gt:
		result = n > 0
	case op.Lt:
		result = n < 0
	case op.Ge:
		result = n >= 0
	case op.Le:
		result = n <= 0
	}
	v.push(object.BoolOf(result))
	return OK
}

func (v *VM) bumpNumber(cur object.Value, increment bool) (object.Value, Status) {
	n, ok := cur.(*object.Number)
	if !ok {
		return nil, v.throwRuntime(errz.KindTypeError, "increment/decrement target is not a number")
	}
	delta := 1.0
	if !increment {
		delta = -1.0
	}
	return object.NewNumber(n.Value() + delta), OK
}

// doClosure implements §4.3's "Closure creation": for each declared
// upvalue descriptor, capture a local by stack index or inherit the
// enclosing closure's own upvalue handle.
func (v *VM) doClosure(frame *Frame) Status {
	idx := frame.readByte()
	fn, ok := frame.closure.Fn.Constants[idx].(*bytecode.Function)
	if !ok {
		return v.throwRuntime(errz.KindUnknownOpcode, "CLOSURE constant is not a function")
	}
	cells := make([]*object.Cell, len(fn.Upvalues))
	for i, desc := range fn.Upvalues {
		if desc.IsLocal {
			cells[i] = v.findOrCreateUpvalue(frame.stackBase + int(desc.Index))
		} else {
			cells[i] = frame.closure.Upvalues[desc.Index]
		}
	}
	frame.ip += 2 * len(fn.Upvalues)
	v.push(object.NewClosure(fn, cells))
	return OK
}

func (v *VM) doGetIndex() Status {
	idx := v.pop()
	target := v.pop()
	switch t := target.(type) {
	case *object.Array:
		n, ok := idx.(*object.Number)
		if !ok {
			return v.throwRuntime(errz.KindTypeError, "array index must be a number")
		}
		val, err := t.Get(int(n.Value()))
		if err != nil {
			return v.throwRuntime(errz.KindTypeError, "%s", err)
		}
		v.push(val)
	case *object.Object:
		v.push(t.GetProp(idx.String()))
	case *object.NullValue:
		return v.throwRuntime(errz.KindNullReference, "cannot index null")
	default:
		return v.throwRuntime(errz.KindPropertyOnNonObject, "cannot index %s", target.Type())
	}
	return OK
}

func (v *VM) doSetIndex() Status {
	val := v.pop()
	idx := v.pop()
	target := v.pop()
	switch t := target.(type) {
	case *object.Array:
		n, ok := idx.(*object.Number)
		if !ok {
			return v.throwRuntime(errz.KindTypeError, "array index must be a number")
		}
		if err := t.Set(int(n.Value()), val); err != nil {
			return v.throwRuntime(errz.KindTypeError, "%s", err)
		}
	case *object.Object:
		t.SetProp(idx.String(), val)
	case *object.NullValue:
		return v.throwRuntime(errz.KindNullReference, "cannot index null")
	default:
		return v.throwRuntime(errz.KindPropertyOnNonObject, "cannot index %s", target.Type())
	}
	v.push(val)
	return OK
}

func (v *VM) doGetProp(name string) Status {
	target := v.pop()
	switch t := target.(type) {
	case *object.Native:
		val, ok := t.GetProperty(name)
		if !ok {
			v.push(object.Null)
			return OK
		}
		v.push(val)
	case *object.Object:
		v.push(t.GetProp(name))
	case *object.Promise:
		return v.throwRuntime(errz.KindPropertyOnNonObject, "promise has no property %q", name)
	case *object.NullValue:
		return v.throwRuntime(errz.KindNullReference, "cannot read property %q of null", name)
	default:
		v.push(object.Null)
	}
	return OK
}

func (v *VM) doSetProp(name string) Status {
	val := v.pop()
	target := v.pop()
	switch t := target.(type) {
	case *object.Native:
		t.SetProperty(name, val)
	case *object.Object:
		t.SetProp(name, val)
	case *object.NullValue:
		return v.throwRuntime(errz.KindNullReference, "cannot set property %q of null", name)
	default:
		return v.throwRuntime(errz.KindPropertyOnNonObject, "cannot set property on %s", target.Type())
	}
	v.push(val)
	return OK
}

// doIncDecProp implements §4.3's "Increment on property".
func (v *VM) doIncDecProp(name string, increment bool, mode op.IncDecMode) Status {
	target := v.peek(0)
	obj, ok := target.(*object.Object)
	if !ok {
		return v.throwRuntime(errz.KindPropertyOnNonObject, "increment target must be an object")
	}
	old, ok := obj.OwnProperty(name)
	if !ok {
		return v.throwRuntime(errz.KindTypeError, "property %q is not a numeric own property", name)
	}
	n, ok := old.(*object.Number)
	if !ok {
		return v.throwRuntime(errz.KindTypeError, "property %q is not a number", name)
	}
	delta := 1.0
	if !increment {
		delta = -1.0
	}
	newVal := object.NewNumber(n.Value() + delta)
	obj.SetProp(name, newVal)
	switch mode {
	case op.ModeDiscard:
		return OK
	case op.ModePrefix:
		v.pop()
		v.push(newVal)
	default:
		v.pop()
		v.push(n)
	}
	return OK
}

// doAwait implements §4.5's AWAIT semantics.
func (v *VM) doAwait() Status {
	val := v.pop()
	promise, ok := val.(*object.Promise)
	if !ok {
		v.push(val)
		return OK
	}
	frame := v.currentFrame()
	v.frames = v.frames[:len(v.frames)-1]
	promise.Then(
		func(resolved object.Value) (object.Value, error) {
			v.resumeAwait(frame, resolved, false)
			return object.Null, nil
		},
		func(reason object.Value) (object.Value, error) {
			v.resumeAwait(frame, reason, true)
			return object.Null, nil
		},
	)
	return Yielded
}
