package vm

import "time"

// Clock abstracts wall-clock time behind the interop boundary so
// Date.now() and the setTimeout/setInterval family can be driven by a
// fake clock in tests instead of real time, per the ambient WithClock
// option.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) CancelTimer
}

// CancelTimer is the subset of *time.Timer a Clock's armed timer needs
// to expose back to the caller.
type CancelTimer interface {
	Stop() bool
}

// realClock is the default Clock, backed by the time package.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) CancelTimer {
	return time.AfterFunc(d, f)
}
