package vm

import (
	"time"

	"github.com/briskvm/brisk/object"
)

// microtask is §3's "either an async call task ... or an opaque
// continuation." continuation is set for the latter; the isCall fields
// are set for the former.
type microtask struct {
	continuation func()

	isCall   bool
	closure  *object.Closure
	promise  *object.Promise
	args     []object.Value
	receiver object.Value
}

// timerHandle backs setTimeout/setInterval. Clearing it stops the
// underlying Go timer and, if it hadn't already fired, decrements
// pendingHostOps.
type timerHandle struct {
	id       int
	goTimer  CancelTimer
	interval time.Duration
	stopped  bool
}

// drainMicrotasks processes the entire current queue in FIFO order,
// running each task to completion (or to its next suspension point)
// before starting the next, per §5's "a microtask runs to completion
// before the next starts."
func (v *VM) drainMicrotasks() {
	for len(v.microtasks) > 0 && !v.hasError {
		t := v.microtasks[0]
		v.microtasks = v.microtasks[1:]
		v.microtasksDrained++
		if t.continuation != nil {
			t.continuation()
			continue
		}
		v.runAsyncCallTask(t)
	}
}

// runAsyncCallTask pushes the async call's frame and runs it until its
// own contribution to the frame stack returns to baseline, i.e. until it
// returns or suspends on its own AWAIT/YIELD, per the CALL convention's
// "async frame's asyncPromise field is set when the microtask is
// drained."
func (v *VM) runAsyncCallTask(t microtask) {
	base := len(v.stack)
	v.stack = append(v.stack, t.receiver)
	v.stack = append(v.stack, t.args...)
	baseFrames := len(v.frames)
	if baseFrames >= v.maxFrames {
		t.promise.Reject(object.NewString("runtime error: stack overflow"))
		v.stack = v.stack[:base]
		return
	}
	v.frames = append(v.frames, &Frame{closure: t.closure, stackBase: base, asyncPromise: t.promise})
	v.dispatch(baseFrames)
}

// resumeAwait is the opaque continuation AWAIT schedules on the promise
// it suspended on: push the saved frame back and deliver the settled
// value, or throw it into the resumed frame on rejection.
func (v *VM) resumeAwait(frame *Frame, settled object.Value, rejected bool) {
	v.frames = append(v.frames, frame)
	if rejected {
		v.doThrow(settled)
		return
	}
	v.push(settled)
}

// waitForHostOps blocks briefly for a pending timer or fetch to post a
// host event, translating it into VM state changes on the executor
// goroutine only, per §5's "never mutate VM state from outside the event
// loop."
func (v *VM) waitForHostOps() {
	select {
	case ev := <-v.hostEvents:
		ev()
	case <-time.After(5 * time.Millisecond):
	}
	for {
		select {
		case ev := <-v.hostEvents:
			ev()
		default:
			return
		}
	}
}

func runtimeErr(v object.Value) error {
	if v == nil {
		return nil
	}
	return &runtimeError{value: v}
}

type runtimeError struct{ value object.Value }

func (e *runtimeError) Error() string { return e.value.String() }
