package vm

import (
	"fmt"

	"github.com/gofrs/uuid"

	"github.com/briskvm/brisk/object"
	"github.com/briskvm/brisk/op"
)

// Generator wraps a coroutine per §3/§9's "coroutine stack swap": its own
// value stack, call-frame stack, and open-upvalue chain, swapped into the
// VM's live fields for the duration of each Next call and swapped back out
// (suspended) when the body yields or runs to completion.
type Generator struct {
	id          string
	closure     *object.Closure
	initialArgs []object.Value
	started     bool
	done        bool

	savedStack    []object.Value
	savedFrames   []*Frame
	savedUpvalues *object.Cell
	savedHandlers []handlerRecord
}

func newGenerator(fn *object.Closure, args []object.Value) *Generator {
	idStr := fmt.Sprintf("gen:%s:no-uuid", fn.Fn.Name)
	if id, err := uuid.NewV4(); err == nil {
		idStr = id.String()
	}
	return &Generator{id: idStr, closure: fn, initialArgs: args}
}

// ID returns a unique identifier for this generator activation, stamped
// the same way bytecode.Function stamps its own id, for log correlation.
func (g *Generator) ID() string { return g.id }

func (g *Generator) Type() object.Type     { return object.GENERATOR }
func (g *Generator) IsTruthy() bool        { return true }
func (g *Generator) Inspect() string       { return fmt.Sprintf("<generator %s>", g.closure.Fn.Name) }
func (g *Generator) String() string        { return g.Inspect() }
func (g *Generator) Equals(o object.Value) bool {
	other, ok := o.(*Generator)
	return ok && other == g
}
func (g *Generator) RunOperation(opType op.BinaryOpType, right object.Value) (object.Value, error) {
	return nil, fmt.Errorf("type error: unsupported operation %s on generator", opType)
}

// Next resumes the coroutine, running it until it yields, returns, or
// throws. vm is the host VM whose stack/frames/openUpvalues fields are
// temporarily swapped for the generator's own saved state.
func (g *Generator) Next(vm *VM, arg object.Value) (object.Value, bool, error) {
	if g.done {
		return object.Null, true, nil
	}
	callerStack, callerFrames, callerUp := vm.stack, vm.frames, vm.openUpvalues
	callerHandlers := vm.handlers
	if !g.started {
		g.started = true
		vm.stack = append([]object.Value{object.Value(g.closure)}, g.initialArgs...)
		vm.frames = []*Frame{{closure: g.closure, stackBase: 0}}
		vm.openUpvalues = nil
		vm.handlers = nil
	} else {
		vm.stack, vm.frames, vm.openUpvalues = g.savedStack, g.savedFrames, g.savedUpvalues
		vm.handlers = g.savedHandlers
		vm.push(arg)
	}
	status := vm.dispatch(0)
	g.savedStack, g.savedFrames, g.savedUpvalues = vm.stack, vm.frames, vm.openUpvalues
	g.savedHandlers = vm.handlers
	vm.stack, vm.frames, vm.openUpvalues = callerStack, callerFrames, callerUp
	vm.handlers = callerHandlers

	switch status {
	case Yielded:
		return vm.pendingYield, false, nil
	case RuntimeErrorStatus:
		g.done = true
		errVal := vm.errValue
		vm.hasError = false
		vm.errValue = nil
		return nil, true, runtimeErr(errVal)
	default:
		g.done = true
		var retVal object.Value = object.Null
		if len(g.savedStack) > 0 {
			retVal = g.savedStack[len(g.savedStack)-1]
		}
		return retVal, true, nil
	}
}

// Return implements §5's "explicit return(value) that transitions the
// generator to done without resuming execution".
func (g *Generator) Return(value object.Value) object.Value {
	g.done = true
	return value
}

// Throw resumes the coroutine by injecting value into its suspended
// frame via the same unwind protocol a THROW opcode would use, so a
// try/catch inside the generator body gets first refusal before the
// error surfaces to the caller of .throw().
func (g *Generator) Throw(vm *VM, value object.Value) (object.Value, bool, error) {
	if g.done || !g.started {
		g.done = true
		return nil, true, runtimeErr(value)
	}
	callerStack, callerFrames, callerUp := vm.stack, vm.frames, vm.openUpvalues
	callerHandlers := vm.handlers
	vm.stack, vm.frames, vm.openUpvalues = g.savedStack, g.savedFrames, g.savedUpvalues
	vm.handlers = g.savedHandlers

	status := vm.doThrow(value)
	if status == OK {
		status = vm.dispatch(0)
	}
	g.savedStack, g.savedFrames, g.savedUpvalues = vm.stack, vm.frames, vm.openUpvalues
	g.savedHandlers = vm.handlers
	vm.stack, vm.frames, vm.openUpvalues = callerStack, callerFrames, callerUp
	vm.handlers = callerHandlers

	switch status {
	case Yielded:
		return vm.pendingYield, false, nil
	case RuntimeErrorStatus:
		g.done = true
		errVal := vm.errValue
		vm.hasError = false
		vm.errValue = nil
		return nil, true, runtimeErr(errVal)
	default:
		g.done = true
		var retVal object.Value = object.Null
		if len(g.savedStack) > 0 {
			retVal = g.savedStack[len(g.savedStack)-1]
		}
		return retVal, true, nil
	}
}
