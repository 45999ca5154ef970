// Package vm implements the bytecode dispatch loop, call-frame stack,
// exception unwind protocol, generator coroutines, and the promise +
// microtask event loop described in §4.3-§4.5.
package vm

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/briskvm/brisk/bytecode"
	"github.com/briskvm/brisk/object"
)

// Status is the outcome of interpreting a program, per §6's "interpret
// entrypoint".
type Status int

const (
	OK Status = iota
	RuntimeErrorStatus
	Yielded
)

// Result is the return value of Run.
type Result struct {
	Status Status
	Value  object.Value
	Err    error
}

const defaultMaxFrames = 256

// VM is the single-threaded executor described in §4.3's "Core state".
type VM struct {
	stack  []object.Value
	frames []*Frame

	globals map[string]object.Value

	openUpvalues *object.Cell

	handlers []handlerRecord

	microtasks     []microtask
	pendingHostOps int

	hasError bool
	errValue object.Value

	maxFrames int
	logger    zerolog.Logger
	clock     Clock

	ctx context.Context

	timers      map[int]*timerHandle
	nextTimerID int

	hostEvents chan func()

	pendingYield object.Value

	stdout io.Writer

	instrCount        uint64
	maxFrameDepth     int
	microtasksDrained uint64
}

// Stats is a snapshot of per-run counters exposed for host observability.
type Stats struct {
	InstructionsExecuted uint64
	MaxFrameDepth        int
	MicrotasksDrained    uint64
}

// Stats returns the VM's execution counters as of the most recent step.
func (v *VM) Stats() Stats {
	return Stats{
		InstructionsExecuted: v.instrCount,
		MaxFrameDepth:        v.maxFrameDepth,
		MicrotasksDrained:    v.microtasksDrained,
	}
}

// handlerRecord is §3's "Exception handler record".
type handlerRecord struct {
	catchIP    int
	stackDepth int
	frameIndex int
}

func New(opts ...Option) *VM {
	v := &VM{
		globals:    make(map[string]object.Value),
		maxFrames:  defaultMaxFrames,
		logger:     zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
		clock:      realClock{},
		ctx:        context.Background(),
		timers:     make(map[int]*timerHandle),
		hostEvents: make(chan func(), 64),
		stdout:     os.Stdout,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.bindNatives()
	return v
}

// EnqueueMicrotask implements object.Scheduler so promises created by
// this VM can schedule their settlement callbacks without object
// depending on vm.
func (v *VM) EnqueueMicrotask(fn func()) {
	v.microtasks = append(v.microtasks, microtask{continuation: fn})
}

func (v *VM) push(val object.Value) {
	v.stack = append(v.stack, val)
}

func (v *VM) pop() object.Value {
	n := len(v.stack) - 1
	val := v.stack[n]
	v.stack = v.stack[:n]
	return val
}

func (v *VM) peek(distanceFromTop int) object.Value {
	return v.stack[len(v.stack)-1-distanceFromTop]
}

func (v *VM) currentFrame() *Frame {
	return v.frames[len(v.frames)-1]
}

// Interpret runs fn as the program's main function to completion,
// draining the event loop per §4.5, and returns the script's result.
func Interpret(ctx context.Context, fn *bytecode.Function, opts ...Option) *Result {
	v := New(opts...)
	v.ctx = ctx
	return v.Run(fn)
}

// Run implements §4.5's outer event loop, executing fn as the initial
// call frame.
func (v *VM) Run(fn *bytecode.Function) *Result {
	closure := object.NewClosure(fn, nil)
	v.frames = append(v.frames, &Frame{closure: closure, stackBase: 0})
	v.push(closure)

	var last object.Value = object.Null
	for {
		if v.hasError {
			break
		}
		v.drainMicrotasks()
		if len(v.frames) > 0 {
			status := v.dispatch(0)
			if status == RuntimeErrorStatus {
				break
			}
			if len(v.stack) > 0 {
				last = v.stack[len(v.stack)-1]
			}
		}
		if len(v.frames) == 0 && len(v.microtasks) == 0 && v.pendingHostOps > 0 {
			v.waitForHostOps()
			continue
		}
		if len(v.frames) == 0 && len(v.microtasks) == 0 && v.pendingHostOps == 0 {
			break
		}
	}
	if v.hasError {
		return &Result{Status: RuntimeErrorStatus, Value: v.errValue, Err: runtimeErr(v.errValue)}
	}
	return &Result{Status: OK, Value: last}
}
