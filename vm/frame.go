package vm

import (
	"github.com/briskvm/brisk/bytecode"
	"github.com/briskvm/brisk/object"
)

// Frame is one call-frame record per §3's "Call frame": the function
// being executed (via its owning closure), an instruction pointer, and
// the stack base -- the absolute index of the callee/receiver slot
// within the value stack. asyncPromise is non-nil only for frames
// belonging to an async function invocation, set once the corresponding
// async-call microtask is drained (§4.3's CALL rule for async closures).
type Frame struct {
	closure      *object.Closure
	ip           int
	stackBase    int
	asyncPromise *object.Promise
}

func (f *Frame) fn() *object.Closure { return f.closure }

func (f *Frame) readByte() byte {
	b := f.closure.Fn.Code[f.ip]
	f.ip++
	return b
}

func (f *Frame) readUint16() int {
	off := int(bytecode.ReadUint16(f.closure.Fn.Code, f.ip))
	f.ip += 2
	return off
}
