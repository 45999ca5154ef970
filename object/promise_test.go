package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeScheduler is a minimal FIFO microtask queue standing in for the VM,
// enough to exercise Promise's "never synchronous" settlement contract in
// isolation from vm.VM.
type fakeScheduler struct {
	queue []func()
}

func (s *fakeScheduler) EnqueueMicrotask(fn func()) {
	s.queue = append(s.queue, fn)
}

func (s *fakeScheduler) drain() {
	for len(s.queue) > 0 {
		fn := s.queue[0]
		s.queue = s.queue[1:]
		fn()
	}
}

func TestPromiseResolveIsOneShot(t *testing.T) {
	sched := &fakeScheduler{}
	p := NewPromise(sched)

	var seen []Value
	p.Then(func(v Value) (Value, error) {
		seen = append(seen, v)
		return v, nil
	}, nil)

	p.Resolve(NewNumber(1))
	p.Resolve(NewNumber(2)) // ignored: already settled
	sched.drain()

	assert.Equal(t, []Value{NewNumber(1)}, seen)
	assert.Equal(t, Fulfilled, p.State())
}

func TestPromiseCallbacksNeverRunSynchronously(t *testing.T) {
	sched := &fakeScheduler{}
	p := NewPromise(sched)
	ran := false
	p.Then(func(v Value) (Value, error) {
		ran = true
		return v, nil
	}, nil)
	p.Resolve(NewNumber(1))
	assert.False(t, ran, "Then callback must not run before the microtask queue is drained")
	sched.drain()
	assert.True(t, ran)
}

func TestPromiseThenOnAlreadySettledStillDefersToMicrotask(t *testing.T) {
	sched := &fakeScheduler{}
	p := NewPromise(sched)
	p.Resolve(NewNumber(5))
	sched.drain()

	ran := false
	p.Then(func(v Value) (Value, error) {
		ran = true
		return v, nil
	}, nil)
	assert.False(t, ran)
	sched.drain()
	assert.True(t, ran)
}

func TestPromiseRejectRoutesToRejectionHandler(t *testing.T) {
	sched := &fakeScheduler{}
	p := NewPromise(sched)
	var reason Value
	p.Then(nil, func(v Value) (Value, error) {
		reason = v
		return v, nil
	})
	p.Reject(NewString("boom"))
	sched.drain()
	assert.Equal(t, "boom", reason.String())
	assert.Equal(t, Rejected, p.State())
}

func TestPromiseAdoptsInnerPromiseState(t *testing.T) {
	sched := &fakeScheduler{}
	inner := NewPromise(sched)
	outer := NewPromise(sched)

	outer.Resolve(inner)
	inner.Resolve(NewString("adopted"))
	sched.drain()
	sched.drain()

	assert.Equal(t, Fulfilled, outer.State())
	assert.Equal(t, "adopted", outer.Value().String())
}

func TestPromiseMicrotaskFIFOOrder(t *testing.T) {
	sched := &fakeScheduler{}
	p1 := NewPromise(sched)
	p2 := NewPromise(sched)

	var order []int
	p1.Then(func(v Value) (Value, error) { order = append(order, 1); return v, nil }, nil)
	p2.Then(func(v Value) (Value, error) { order = append(order, 2); return v, nil }, nil)

	p1.Resolve(Null)
	p2.Resolve(Null)
	sched.drain()

	assert.Equal(t, []int{1, 2}, order)
}
