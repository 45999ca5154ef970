package vm

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/briskvm/brisk/object"
)

// Option configures a VirtualMachine at construction time, grounded on
// the teacher's functional-options pattern (vm.Option/With*) in its own
// options.go.
type Option func(*VM)

// WithStdout overrides where the console native writes console.log
// output. Defaults to os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(v *VM) { v.stdout = w }
}

// WithGlobals seeds the VM's globals map before execution starts.
func WithGlobals(globals map[string]object.Value) Option {
	return func(v *VM) {
		for name, value := range globals {
			v.globals[name] = value
		}
	}
}

// WithMaxFrames overrides the call-frame bound from §5 ("256 frames
// maximum (configurable)").
func WithMaxFrames(n int) Option {
	return func(v *VM) { v.maxFrames = n }
}

// WithLogger overrides the VM's zerolog logger, which records each
// console.log/warn/error line and timer callback failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(v *VM) { v.logger = logger }
}

// WithClock overrides the wall clock behind Date.now() and the
// setTimeout/setInterval family, letting a host (or a test) drive
// timing deterministically instead of through real time.
func WithClock(clock Clock) Option {
	return func(v *VM) { v.clock = clock }
}
