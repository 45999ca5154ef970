package vm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/briskvm/brisk/object"
)

// bindNatives installs the host interop surface described in §6: the
// five required built-ins (console, Object, Promise, the setTimeout/
// setInterval timer family, fetch) plus Math and Date from the compiler's
// nativeGlobals set. That set also names `performance`, which has no
// binding here, so GET_NATIVE pushes null for it.
// Each is a *object.Native registered directly in globals, exactly as an
// embedder's own bindNative(name, nativeObject) call would do.
func (v *VM) bindNatives() {
	v.globals["console"] = v.consoleNative()
	v.globals["Math"] = mathNative()
	v.globals["Date"] = v.dateNative()
	v.globals["Object"] = objectNative()
	v.globals["Promise"] = v.promiseNative()
	v.globals["setTimeout"] = v.setTimeoutNative()
	v.globals["clearTimeout"] = v.clearTimerNative()
	v.globals["setInterval"] = v.setIntervalNative()
	v.globals["clearInterval"] = v.clearTimerNative()
	v.globals["fetch"] = v.fetchNative()
}

func inspectArgs(args []object.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if s, ok := a.(*object.String); ok {
			parts[i] = s.Value()
			continue
		}
		parts[i] = a.Inspect()
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

// consoleNative implements §6's required `console` native: log/error/warn
// write to the VM's stdout for observable script output, and additionally
// route through the VM's structured zerolog logger the way the rest of
// the ambient stack logs, per spec §1's "console ... injected as native
// objects."
func (v *VM) consoleNative() *object.Native {
	n := object.NewNative("console")
	n.SetMethod("log", func(ctx context.Context, args []object.Value) (object.Value, error) {
		line := inspectArgs(args)
		fmt.Fprintln(v.stdout, line)
		v.logger.Info().Msg(line)
		return object.Null, nil
	})
	n.SetMethod("warn", func(ctx context.Context, args []object.Value) (object.Value, error) {
		line := inspectArgs(args)
		fmt.Fprintln(v.stdout, line)
		v.logger.Warn().Msg(line)
		return object.Null, nil
	})
	n.SetMethod("error", func(ctx context.Context, args []object.Value) (object.Value, error) {
		line := inspectArgs(args)
		fmt.Fprintln(v.stdout, line)
		v.logger.Error().Msg(line)
		return object.Null, nil
	})
	return n
}

// mathNative implements the `Math` native the compiler resolves via
// GET_NATIVE. Only a practical subset is provided; scripts needing more
// reach for it through the same interop boundary rather than a new
// opcode.
func mathNative() *object.Native {
	n := object.NewNative("Math")
	n.SetProperty("PI", object.NewNumber(math.Pi))
	n.SetProperty("E", object.NewNumber(math.E))
	unary := func(fn func(float64) float64) object.NativeFunc {
		return func(ctx context.Context, args []object.Value) (object.Value, error) {
			x, err := numArg(args, 0)
			if err != nil {
				return nil, err
			}
			return object.NewNumber(fn(x)), nil
		}
	}
	n.SetMethod("abs", unary(math.Abs))
	n.SetMethod("floor", unary(math.Floor))
	n.SetMethod("ceil", unary(math.Ceil))
	n.SetMethod("round", unary(math.Round))
	n.SetMethod("sqrt", unary(math.Sqrt))
	n.SetMethod("pow", func(ctx context.Context, args []object.Value) (object.Value, error) {
		x, err := numArg(args, 0)
		if err != nil {
			return nil, err
		}
		y, err := numArg(args, 1)
		if err != nil {
			return nil, err
		}
		return object.NewNumber(math.Pow(x, y)), nil
	})
	n.SetMethod("max", func(ctx context.Context, args []object.Value) (object.Value, error) {
		return reduceNums(args, math.Inf(-1), math.Max)
	})
	n.SetMethod("min", func(ctx context.Context, args []object.Value) (object.Value, error) {
		return reduceNums(args, math.Inf(1), math.Min)
	})
	n.SetMethod("random", func(ctx context.Context, args []object.Value) (object.Value, error) {
		return object.NewNumber(rand.Float64()), nil
	})
	return n
}

func reduceNums(args []object.Value, identity float64, combine func(a, b float64) float64) (object.Value, error) {
	acc := identity
	for i := range args {
		x, err := numArg(args, i)
		if err != nil {
			return nil, err
		}
		acc = combine(acc, x)
	}
	return object.NewNumber(acc), nil
}

func numArg(args []object.Value, idx int) (float64, error) {
	if idx >= len(args) {
		return 0, fmt.Errorf("runtime error: missing numeric argument %d", idx)
	}
	n, ok := args[idx].(*object.Number)
	if !ok {
		return 0, fmt.Errorf("runtime error: argument %d must be a number, got %s", idx, args[idx].Type())
	}
	return n.Value(), nil
}

// dateNative implements the `Date` native with the single method
// scripts actually need for the timing scenarios in §8: now(), read
// through the VM's injected Clock rather than the time package directly
// so it can be driven deterministically via WithClock.
func (v *VM) dateNative() *object.Native {
	n := object.NewNative("Date")
	n.SetMethod("now", func(ctx context.Context, args []object.Value) (object.Value, error) {
		return object.NewNumber(float64(v.clock.Now().UnixMilli())), nil
	})
	return n
}

// objectNative implements the `Object` native: keys() and create(),
// mirroring the VM's own OBJECT_CREATE/GET_PROTOTYPE opcodes at the
// interop boundary for use from ordinary (non-`new`) call sites.
func objectNative() *object.Native {
	n := object.NewNative("Object")
	n.SetMethod("keys", func(ctx context.Context, args []object.Value) (object.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("runtime error: Object.keys expects 1 argument, got %d", len(args))
		}
		obj, ok := args[0].(*object.Object)
		if !ok {
			return nil, fmt.Errorf("runtime error: Object.keys expects an object, got %s", args[0].Type())
		}
		keys := obj.Keys()
		elems := make([]object.Value, len(keys))
		for i, k := range keys {
			elems[i] = object.NewString(k)
		}
		return object.NewArray(elems), nil
	})
	n.SetMethod("create", func(ctx context.Context, args []object.Value) (object.Value, error) {
		obj := object.NewObject()
		if len(args) > 0 {
			if err := obj.SetPrototype(args[0]); err != nil {
				return nil, err
			}
		}
		return obj, nil
	})
	return n
}

// promiseNative implements the `Promise` native global. §4.3's NEW
// handler treats a Native named "Promise" specially to run the executor;
// resolve/reject here are the static convenience constructors scripts
// commonly reach for without a `new Promise(...)` executor.
func (v *VM) promiseNative() *object.Native {
	n := object.NewNative("Promise")
	n.SetMethod("resolve", func(ctx context.Context, args []object.Value) (object.Value, error) {
		p := object.NewPromise(v)
		p.Resolve(orNullArg(args))
		return p, nil
	})
	n.SetMethod("reject", func(ctx context.Context, args []object.Value) (object.Value, error) {
		p := object.NewPromise(v)
		p.Reject(orNullArg(args))
		return p, nil
	})
	return n
}

// armTimer is shared plumbing for setTimeout/setInterval: it increments
// pendingHostOps while the underlying time.Timer is live and, on fire,
// posts the script callback's invocation onto v.hostEvents so it only
// ever touches VM state from the executor goroutine, per §5's "never
// mutate VM state from outside the event loop."
func (v *VM) armTimer(repeating bool, delayMs float64, cb object.Value) *timerHandle {
	v.nextTimerID++
	handle := &timerHandle{id: v.nextTimerID, interval: time.Duration(delayMs) * time.Millisecond}
	v.timers[handle.id] = handle
	v.pendingHostOps++

	var arm func()
	fire := func() {
		v.hostEvents <- func() {
			if handle.stopped {
				return
			}
			if !repeating {
				delete(v.timers, handle.id)
				v.pendingHostOps--
			}
			if _, err := v.invokeCallback(cb, nil); err != nil {
				v.logger.Error().Err(err).Msg("timer callback failed")
			}
			if repeating && !handle.stopped {
				arm()
			}
		}
	}
	arm = func() {
		handle.goTimer = v.clock.AfterFunc(handle.interval, fire)
	}
	arm()
	return handle
}

func timerHandleNative(onClear func()) *object.Native {
	n := object.NewNative("Timer")
	n.SetMethod("clear", func(ctx context.Context, args []object.Value) (object.Value, error) {
		onClear()
		return object.Null, nil
	})
	return n
}

func (v *VM) stopTimer(h *timerHandle) {
	if h.stopped {
		return
	}
	h.stopped = true
	if h.goTimer != nil {
		h.goTimer.Stop()
	}
	if _, live := v.timers[h.id]; live {
		delete(v.timers, h.id)
		v.pendingHostOps--
	}
}

func (v *VM) setTimeoutNative() *object.Native {
	return object.NewNativeFunc("setTimeout", func(ctx context.Context, args []object.Value) (object.Value, error) {
		cb, delay, err := timerArgs(args)
		if err != nil {
			return nil, err
		}
		h := v.armTimer(false, delay, cb)
		return timerHandleNative(func() { v.stopTimer(h) }), nil
	})
}

func (v *VM) setIntervalNative() *object.Native {
	return object.NewNativeFunc("setInterval", func(ctx context.Context, args []object.Value) (object.Value, error) {
		cb, delay, err := timerArgs(args)
		if err != nil {
			return nil, err
		}
		h := v.armTimer(true, delay, cb)
		return timerHandleNative(func() { v.stopTimer(h) }), nil
	})
}

// clearTimerNative backs both clearTimeout and clearInterval: each
// accepts either the opaque handle object §6 describes or, defensively,
// no-ops on anything else rather than erroring.
func (v *VM) clearTimerNative() *object.Native {
	return object.NewNativeFunc("clearTimer", func(ctx context.Context, args []object.Value) (object.Value, error) {
		if len(args) == 0 {
			return object.Null, nil
		}
		if handle, ok := args[0].(*object.Native); ok {
			if _, err := handle.CallMethod(ctx, "clear", nil); err != nil {
				return nil, err
			}
		}
		return object.Null, nil
	})
}

func timerArgs(args []object.Value) (object.Value, float64, error) {
	if len(args) < 1 {
		return nil, 0, fmt.Errorf("runtime error: timer requires a callback argument")
	}
	switch cb := args[0].(type) {
	case *object.Closure:
	case *object.Native:
		if !cb.IsCallable() {
			return nil, 0, fmt.Errorf("runtime error: timer callback must be callable, got non-callable native %s", cb.Name)
		}
	default:
		return nil, 0, fmt.Errorf("runtime error: timer callback must be a function, got %s", args[0].Type())
	}
	cb := args[0]
	delay := 0.0
	if len(args) > 1 {
		if n, ok := args[1].(*object.Number); ok {
			delay = n.Value()
		}
	}
	return cb, delay, nil
}

// fetchNative implements the `fetch` required native per §4.5/§9's
// "native host promises returned from plain-object method calls are
// wrapped" pattern: the real HTTP round trip runs on a background
// goroutine and only posts its result back onto v.hostEvents, where
// settling the VM promise happens on the executor goroutine.
func (v *VM) fetchNative() *object.Native {
	return object.NewNativeFunc("fetch", func(ctx context.Context, args []object.Value) (object.Value, error) {
		if len(args) < 1 {
			return nil, fmt.Errorf("runtime error: fetch requires a URL argument")
		}
		url, ok := args[0].(*object.String)
		if !ok {
			return nil, fmt.Errorf("runtime error: fetch URL must be a string, got %s", args[0].Type())
		}
		promise := object.NewPromise(v)
		v.pendingHostOps++
		go func() {
			resp, err := http.Get(url.Value())
			v.hostEvents <- func() {
				v.pendingHostOps--
				if err != nil {
					promise.Reject(object.NewString(err.Error()))
					return
				}
				promise.Resolve(v.wrapResponse(resp))
			}
		}()
		return promise, nil
	})
}

// wrapResponse builds the native Response object fetch()'s promise
// resolves with: status plus .text()/.json() methods that, per §4.5,
// themselves return promises (already-settled ones, since the body is
// read eagerly here rather than streamed).
func (v *VM) wrapResponse(resp *http.Response) *object.Native {
	n := object.NewNative("Response")
	n.SetProperty("status", object.NewNumber(float64(resp.StatusCode)))
	n.SetProperty("ok", object.BoolOf(resp.StatusCode >= 200 && resp.StatusCode < 300))
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	n.SetMethod("text", func(ctx context.Context, args []object.Value) (object.Value, error) {
		p := object.NewPromise(v)
		if readErr != nil {
			p.Reject(object.NewString(readErr.Error()))
		} else {
			p.Resolve(object.NewString(string(body)))
		}
		return p, nil
	})
	n.SetMethod("json", func(ctx context.Context, args []object.Value) (object.Value, error) {
		p := object.NewPromise(v)
		if readErr != nil {
			p.Reject(object.NewString(readErr.Error()))
		} else {
			p.Resolve(parseJSONValue(body))
		}
		return p, nil
	})
	return n
}

// parseJSONValue decodes a JSON document into the VM's own Value
// universe, using encoding/json's generic interface{} decode (the same
// approach the teacher's object/typeconv.go takes for Go-interop) as the
// intermediate representation.
func parseJSONValue(data []byte) object.Value {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return object.NewString(string(data))
	}
	return goValueToVM(raw)
}

func goValueToVM(raw any) object.Value {
	switch v := raw.(type) {
	case nil:
		return object.Null
	case bool:
		return object.BoolOf(v)
	case float64:
		return object.NewNumber(v)
	case string:
		return object.NewString(v)
	case []any:
		elems := make([]object.Value, len(v))
		for i, e := range v {
			elems[i] = goValueToVM(e)
		}
		return object.NewArray(elems)
	case map[string]any:
		obj := object.NewObject()
		for k, val := range v {
			obj.SetProp(k, goValueToVM(val))
		}
		return obj
	default:
		return object.Null
	}
}
