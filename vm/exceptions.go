package vm

import (
	"github.com/briskvm/brisk/errz"
	"github.com/briskvm/brisk/object"
)

// throwRuntime builds a structured runtime error from kind/format and
// routes it through the same unwind protocol as an explicit THROW, per
// §7's "runtime errors invoke the unwind protocol."
func (v *VM) throwRuntime(kind errz.Kind, format string, args ...any) Status {
	name := ""
	if len(v.frames) > 0 {
		name = v.currentFrame().closure.Fn.Name
	}
	rerr := errz.NewRuntimeError(kind, name, format, args...)
	return v.doThrow(object.NewString(rerr.Error()))
}

// doThrow implements §4.4's three-step unwind protocol.
func (v *VM) doThrow(value object.Value) Status {
	if len(v.handlers) > 0 {
		h := v.handlers[len(v.handlers)-1]
		v.handlers = v.handlers[:len(v.handlers)-1]
		v.frames = v.frames[:h.frameIndex+1]
		v.stack = v.stack[:h.stackDepth]
		v.push(value)
		v.currentFrame().ip = h.catchIP
		return OK
	}
	for i := len(v.frames) - 1; i >= 0; i-- {
		if promise := v.frames[i].asyncPromise; promise != nil {
			base := v.frames[i].stackBase
			v.frames = v.frames[:i]
			v.stack = v.stack[:base]
			promise.Reject(value)
			return OK
		}
	}
	v.hasError = true
	v.errValue = value
	return RuntimeErrorStatus
}
