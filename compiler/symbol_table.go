package compiler

import "github.com/briskvm/brisk/bytecode"

// local is one entry in a function compiler's ordered local-variable
// stack. Depth is the lexical scope depth at which it was declared;
// Captured marks whether some nested closure captured it as an upvalue,
// which determines whether scope exit emits CLOSE_UPVALUE or POP for it.
type local struct {
	name     string
	depth    int
	captured bool
}

// funcState is the per-function compiler scratch described in spec
// §4.2/§2 item 2: the active locals stack, the current scope depth, and
// the upvalue table, plus a pointer to the enclosing function's state so
// identifier resolution can walk outward. Grounded on the teacher's
// pkg/compiler/symbol_table.go SymbolTable, but reshaped into the flat
// locals-with-depth model the spec's "ordered stack"/"pops all locals
// whose depth exceeds" language describes directly.
type funcState struct {
	enclosing *funcState
	name      string
	isMethod  bool

	locals []local
	depth  int

	upvalues []bytecode.UpvalueDesc

	loops []*loopContext

	code        []byte
	constants   []any
	arity       int
	isGenerator   bool
	isAsync       bool
	isConstructor bool
	maxLocals     int
}

func newFuncState(enclosing *funcState, name string, isMethod bool) *funcState {
	fs := &funcState{enclosing: enclosing, name: name, isMethod: isMethod}
	// Slot 0 is reserved for the callee (scripts/plain functions) or
	// `this` (methods), per §4.2 "Scope model".
	reserved := "this"
	if !isMethod {
		reserved = name
	}
	fs.locals = append(fs.locals, local{name: reserved, depth: 0})
	fs.maxLocals = 1
	return fs
}

// declareLocal adds name as a new local at the current scope depth,
// returning its slot. Redeclaring the same name at the same depth is a
// compile-time error, reported by the caller.
func (fs *funcState) declareLocal(name string) (slot int, redeclared bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := fs.locals[i]
		if l.depth < fs.depth {
			break
		}
		if l.depth == fs.depth && l.name == name {
			return i, true
		}
	}
	fs.locals = append(fs.locals, local{name: name, depth: fs.depth})
	if len(fs.locals) > fs.maxLocals {
		fs.maxLocals = len(fs.locals)
	}
	return len(fs.locals) - 1, false
}

// resolveLocal searches this function's own locals, innermost scope
// first.
func (fs *funcState) resolveLocal(name string) (slot int, ok bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue implements the transitive free-variable chain from
// §4.2's "Identifier resolution" step 2: if the enclosing function has
// the name as a local, mark it captured and record a direct upvalue;
// otherwise recurse into the enclosing function's own upvalues, which by
// induction may themselves reach further outward.
func (fs *funcState) resolveUpvalue(name string) (index int, ok bool) {
	if fs.enclosing == nil {
		return 0, false
	}
	if slot, found := fs.enclosing.resolveLocal(name); found {
		fs.enclosing.locals[slot].captured = true
		return fs.addUpvalue(bytecode.UpvalueDesc{IsLocal: true, Index: uint8(slot)})
	}
	if idx, found := fs.enclosing.resolveUpvalue(name); found {
		return fs.addUpvalue(bytecode.UpvalueDesc{IsLocal: false, Index: uint8(idx)})
	}
	return 0, false
}

// addUpvalue implements "Upvalue uniqueness": adding a duplicate
// (isLocal, index) pair returns the existing slot instead of appending.
func (fs *funcState) addUpvalue(desc bytecode.UpvalueDesc) (int, bool) {
	for i, u := range fs.upvalues {
		if u.IsLocal == desc.IsLocal && u.Index == desc.Index {
			return i, true
		}
	}
	fs.upvalues = append(fs.upvalues, desc)
	return len(fs.upvalues) - 1, true
}

// beginScope raises the scope depth on block entry.
func (fs *funcState) beginScope() { fs.depth++ }

// endScope pops every local declared at or beyond the scope being closed,
// returning them (innermost/most-recent first) so the caller can emit
// POP or CLOSE_UPVALUE for each per whether it was captured.
func (fs *funcState) endScope() []local {
	fs.depth--
	var popped []local
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.depth {
		popped = append(popped, fs.locals[len(fs.locals)-1])
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
	return popped
}

// localsAbove returns, innermost-first, every local declared at a depth
// strictly greater than scopeDepth -- used by break/continue to know
// which locals must be popped/closed before jumping out of nested
// blocks within the loop body.
func (fs *funcState) localsAbove(scopeDepth int) []local {
	var out []local
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].depth <= scopeDepth {
			break
		}
		out = append(out, fs.locals[i])
	}
	return out
}

// loopContext is the compile-time-only record from §3: patch lists for
// break/continue and the scope depth at the loop header.
type loopContext struct {
	breakJumps    []int
	continueJumps []int
	loopStart     int
	scopeDepth    int
}

func (fs *funcState) pushLoop(loopStart int) *loopContext {
	lc := &loopContext{loopStart: loopStart, scopeDepth: fs.depth}
	fs.loops = append(fs.loops, lc)
	return lc
}

func (fs *funcState) popLoop() {
	fs.loops = fs.loops[:len(fs.loops)-1]
}

func (fs *funcState) currentLoop() *loopContext {
	if len(fs.loops) == 0 {
		return nil
	}
	return fs.loops[len(fs.loops)-1]
}
