package object

import (
	"fmt"

	"github.com/briskvm/brisk/op"
)

// PromiseState is one of the three one-shot settlement states.
type PromiseState int

const (
	Pending PromiseState = iota
	Fulfilled
	Rejected
)

func (s PromiseState) String() string {
	switch s {
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Scheduler lets a Promise enqueue microtask reactions without the object
// package depending on the vm package. The VM implements this interface
// and is injected into every Promise it creates.
type Scheduler interface {
	EnqueueMicrotask(fn func())
}

// Promise implements the single-threaded pending/fulfilled/rejected value
// described in §3 and §4.5. All callback invocations are scheduled via the
// Scheduler's microtask queue -- never called synchronously from
// Resolve/Reject.
type Promise struct {
	state     PromiseState
	value     Value
	onFulfill []func(Value)
	onReject  []func(Value)
	scheduler Scheduler
}

func NewPromise(scheduler Scheduler) *Promise {
	return &Promise{state: Pending, scheduler: scheduler}
}

func (p *Promise) Type() Type     { return PROMISE }
func (p *Promise) IsTruthy() bool { return true }

func (p *Promise) Inspect() string {
	switch p.state {
	case Fulfilled:
		return fmt.Sprintf("Promise{fulfilled: %s}", p.value.Inspect())
	case Rejected:
		return fmt.Sprintf("Promise{rejected: %s}", p.value.Inspect())
	default:
		return "Promise{pending}"
	}
}

func (p *Promise) String() string { return p.Inspect() }

func (p *Promise) Equals(other Value) bool {
	o, ok := other.(*Promise)
	return ok && o == p
}

func (p *Promise) RunOperation(opType op.BinaryOpType, right Value) (Value, error) {
	return nil, fmt.Errorf("type error: unsupported operation %s on promise", opType)
}

func (p *Promise) State() PromiseState { return p.state }
func (p *Promise) Value() Value        { return p.value }

// Resolve settles the promise as fulfilled, unless v is itself a promise,
// in which case this promise adopts v's eventual state (chains to it).
// Settling an already-settled promise is a no-op (one-shot settlement).
func (p *Promise) Resolve(v Value) {
	if p.state != Pending {
		return
	}
	if inner, ok := v.(*Promise); ok {
		inner.onSettle(p.Resolve, p.Reject)
		return
	}
	p.state = Fulfilled
	p.value = v
	p.flush(p.onFulfill)
	p.onFulfill = nil
	p.onReject = nil
}

// Reject settles the promise as rejected.
func (p *Promise) Reject(reason Value) {
	if p.state != Pending {
		return
	}
	p.state = Rejected
	p.value = reason
	p.flush(p.onReject)
	p.onFulfill = nil
	p.onReject = nil
}

func (p *Promise) flush(callbacks []func(Value)) {
	for _, cb := range callbacks {
		cb := cb
		v := p.value
		p.scheduler.EnqueueMicrotask(func() { cb(v) })
	}
}

// onSettle registers raw settlement callbacks used internally for
// adoption chaining; unlike Then, these do not themselves go through the
// microtask queue a second time (Resolve/Reject already schedules them).
func (p *Promise) onSettle(onFulfilled, onRejected func(Value)) {
	switch p.state {
	case Fulfilled:
		p.scheduler.EnqueueMicrotask(func() { onFulfilled(p.value) })
	case Rejected:
		p.scheduler.EnqueueMicrotask(func() { onRejected(p.value) })
	default:
		p.onFulfill = append(p.onFulfill, onFulfilled)
		p.onReject = append(p.onReject, onRejected)
	}
}

// Then registers fulfillment/rejection handlers and returns a new promise
// settled with their result, implementing the standard `.then` chain.
// Handlers run as microtasks regardless of whether the promise is already
// settled (never synchronously), per §3's "never synchronous" rule.
func (p *Promise) Then(onFulfilled, onRejected func(Value) (Value, error)) *Promise {
	next := NewPromise(p.scheduler)
	run := func(handler func(Value) (Value, error), passthroughReject bool, v Value) {
		if handler == nil {
			if passthroughReject {
				next.Reject(v)
			} else {
				next.Resolve(v)
			}
			return
		}
		result, err := handler(v)
		if err != nil {
			next.Reject(errorValueOf(err))
			return
		}
		next.Resolve(result)
	}
	p.onSettle(
		func(v Value) { run(onFulfilled, false, v) },
		func(v Value) { run(onRejected, true, v) },
	)
	return next
}

func errorValueOf(err error) Value {
	return NewString(err.Error())
}
