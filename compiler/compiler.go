// Package compiler lowers the AST described in §6 into the bytecode
// catalog described in §4.1, producing an immutable bytecode.Function.
// It is a single-pass compiler: no separate analysis pass runs before
// code generation, matching the teacher's own compiler.Compiler shape
// (one AST walk, emitting as it goes, with a SymbolTable-style scope
// stack resolving identifiers on the fly).
package compiler

import (
	"github.com/briskvm/brisk/ast"
	"github.com/briskvm/brisk/bytecode"
	"github.com/briskvm/brisk/errz"
	"github.com/briskvm/brisk/object"
	"github.com/briskvm/brisk/op"
)

// nativeGlobals is the fixed set of identifier names that resolve to
// GET_NATIVE rather than GET_GLOBAL, per §4.2 "Identifier resolution"
// step 3.
var nativeGlobals = map[string]bool{
	"console":     true,
	"Math":        true,
	"performance": true,
	"Date":        true,
	"Object":      true,
	"Promise":     true,
}

// Compiler holds the single piece of state that spans the whole
// compilation: the chain of per-function scratch (funcState) and the
// aggregated compile-error list. A fresh Compiler is single-use; build a
// new one per Compile call.
type Compiler struct {
	current *funcState
	errs    *errz.CompileErrors
}

func New() *Compiler {
	return &Compiler{errs: errz.NewCompileErrors()}
}

// Compile lowers a program into its main Function. Compile errors are
// collected rather than aborting eagerly (via errz.CompileErrors), so a
// host can report every mistake in one pass; if any were recorded,
// Compile returns a nil Function and the aggregated error.
func Compile(prog *ast.Program) (*bytecode.Function, error) {
	c := New()
	fn := c.compileProgram(prog)
	if c.errs.HasErrors() {
		return nil, c.errs.ErrorOrNil()
	}
	return fn, nil
}

func (c *Compiler) compileProgram(prog *ast.Program) *bytecode.Function {
	fs := newFuncState(nil, "<script>", false)
	c.current = fs
	for _, stmt := range prog.Body {
		c.compileStatement(stmt)
	}
	c.ensureReturn()
	fn := bytecode.NewFunction("<script>", 0)
	fn.Code = fs.code
	fn.Constants = fs.constants
	fn.Upvalues = fs.upvalues
	fn.LocalCount = fs.maxLocals
	return fn
}

func (c *Compiler) errorf(kind errz.Kind, format string, args ...any) {
	c.errs.Add(errz.NewCompileError(kind, 0, format, args...))
}

// isScriptScope reports whether the compiler is currently emitting code
// for the top-level script (as opposed to inside a function body), the
// distinction that decides DEFINE_GLOBAL vs. a plain local slot.
func (c *Compiler) isScriptScope() bool {
	return c.current.enclosing == nil && c.current.depth == 0
}

// --- low-level emission -----------------------------------------------

func (c *Compiler) appendOp(code op.Code) {
	c.current.code = append(c.current.code, byte(code))
}

func (c *Compiler) emit(code op.Code) {
	c.appendOp(code)
}

func (c *Compiler) emit1(code op.Code, operand byte) {
	c.appendOp(code)
	c.current.code = append(c.current.code, operand)
}

func (c *Compiler) emit2(code op.Code, a, b byte) {
	c.appendOp(code)
	c.current.code = append(c.current.code, a, b)
}

// emitJump appends a jump-family opcode plus a two-byte placeholder
// offset, returning the offset's position for a later patchJump call.
func (c *Compiler) emitJump(code op.Code) int {
	c.appendOp(code)
	pos := len(c.current.code)
	c.current.code = append(c.current.code, 0, 0)
	return pos
}

func (c *Compiler) patchJump(operandPos int) {
	jumpFrom := operandPos + 2
	offset := len(c.current.code) - jumpFrom
	if offset < 0 || offset > 0xFFFF {
		c.errorf(errz.KindJumpOffsetOverflow, "jump offset %d out of range", offset)
		return
	}
	bytecode.PutUint16(c.current.code, operandPos, uint16(offset))
}

// emitLoop appends LOOP with a backward offset to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.appendOp(op.Loop)
	pos := len(c.current.code)
	c.current.code = append(c.current.code, 0, 0)
	jumpFrom := pos + 2
	offset := jumpFrom - loopStart
	if offset < 0 || offset > 0xFFFF {
		c.errorf(errz.KindJumpOffsetOverflow, "loop offset %d out of range", offset)
		return
	}
	bytecode.PutUint16(c.current.code, pos, uint16(offset))
}

// constantIndex interns value into the current function's constant
// pool, enforcing the 0..255 limit from §4.1.
func (c *Compiler) constantIndex(value any) byte {
	if len(c.current.constants) >= 256 {
		c.errorf(errz.KindConstantPoolOverflow, "constant pool exceeds 256 entries")
		return 0
	}
	c.current.constants = append(c.current.constants, value)
	return byte(len(c.current.constants) - 1)
}

func (c *Compiler) pushConst(value any) {
	c.emit1(op.PushConst, c.constantIndex(value))
}

// ensureReturn implements "ensure the bytecode ends with either RETURN
// or THROW" from §4.2: constructors implicitly `return this`; every
// other function/script implicitly returns null.
func (c *Compiler) ensureReturn() {
	n := len(c.current.code)
	if n > 0 {
		last := op.Code(c.lastOpcode())
		if last == op.Return || last == op.Throw {
			return
		}
	}
	if c.current.isConstructor {
		c.emit1(op.GetLocal, 0)
	} else {
		c.emit(op.PushNull)
	}
	c.emit(op.Return)
}

// lastOpcode scans backward using op.GetInfo's operand widths to find the
// byte position of the most recently emitted instruction, since
// instructions are variable length. Good enough for the single use above
// (end-of-function check); not used as a general-purpose disassembler.
func (c *Compiler) lastOpcode() byte {
	code := c.current.code
	i := 0
	last := 0
	for i < len(code) {
		last = i
		info := op.GetInfo(op.Code(code[i]))
		switch op.Code(code[i]) {
		case op.Closure:
			// funcConstIx(1) + upvalueCount*2, upvalueCount not stored
			// inline; recover it from the referenced function constant.
			idx := int(code[i+1])
			width := 1
			if idx < len(c.current.constants) {
				if fn, ok := c.current.constants[idx].(*bytecode.Function); ok {
					width += 2 * len(fn.Upvalues)
				}
			}
			i += 1 + width
		default:
			i += 1 + info.OperandCount
		}
	}
	return code[last]
}

// --- identifier resolution ---------------------------------------------

func (c *Compiler) loadIdentifier(name string) {
	if slot, ok := c.current.resolveLocal(name); ok {
		c.emit1(op.GetLocal, byte(slot))
		return
	}
	if idx, ok := c.resolveUpvalue(name); ok {
		c.emit1(op.GetUpvalue, byte(idx))
		return
	}
	if nativeGlobals[name] {
		c.emit1(op.GetNative, c.constantIndex(object.NewString(name)))
		return
	}
	c.emit1(op.GetGlobal, c.constantIndex(object.NewString(name)))
}

// storeIdentifier emits the matching SET_* for an assignment target.
// Every SET_* opcode is defined to pop only what it needs and leave the
// assigned value on top, so assignment remains a usable expression value.
func (c *Compiler) storeIdentifier(name string) {
	if slot, ok := c.current.resolveLocal(name); ok {
		c.emit1(op.SetLocal, byte(slot))
		return
	}
	if idx, ok := c.resolveUpvalue(name); ok {
		c.emit1(op.SetUpvalue, byte(idx))
		return
	}
	c.emit1(op.SetGlobal, c.constantIndex(object.NewString(name)))
}

// resolveUpvalue wraps funcState.resolveUpvalue with the §4.1 "too many
// upvalues (>255)" compile-error bound, since a fresh upvalue slot index
// must fit in the single operand byte GET_UPVALUE/SET_UPVALUE read.
func (c *Compiler) resolveUpvalue(name string) (int, bool) {
	idx, ok := c.current.resolveUpvalue(name)
	if ok && len(c.current.upvalues) > 256 {
		c.errorf(errz.KindTooManyUpvalues, "too many upvalues in function %q (max 256)", c.current.name)
	}
	return idx, ok
}

// declareLocal wraps funcState.declareLocal with the §4.1 "too many
// locals (>255)" compile-error bound, since a fresh local's slot index
// must fit in the single operand byte GET_LOCAL/SET_LOCAL read.
func (c *Compiler) declareLocal(name string) (int, bool) {
	slot, redeclared := c.current.declareLocal(name)
	if !redeclared && len(c.current.locals) > 256 {
		c.errorf(errz.KindTooManyLocals, "too many local variables in function %q (max 256)", c.current.name)
	}
	return slot, redeclared
}

// defineBinding declares name as a brand-new binding for the value that
// is already sitting on top of the stack: at script scope this emits
// DEFINE_GLOBAL (which pops it); at function scope the top-of-stack slot
// simply becomes the new local in place, no opcode required.
func (c *Compiler) defineBinding(name string) {
	if c.isScriptScope() {
		c.emit1(op.DefineGlobal, c.constantIndex(object.NewString(name)))
		return
	}
	if _, redeclared := c.declareLocal(name); redeclared {
		c.errorf(errz.KindDuplicateLocal, "duplicate local declaration: %s", name)
	}
}

// closeScope pops every local endScope returns, emitting CLOSE_UPVALUE
// for ones captured by a nested closure and POP otherwise.
func (c *Compiler) closeScope() {
	for _, l := range c.current.endScope() {
		if l.captured {
			c.emit(op.CloseUpval)
		} else {
			c.emit(op.Pop)
		}
	}
}

// closeLocalsAbove emits the same cleanup as closeScope but without
// actually popping the compiler's own bookkeeping -- used by break and
// continue, which jump out of (or back within) nested blocks without
// ending those blocks' lexical scopes.
func (c *Compiler) closeLocalsAbove(depth int) {
	for _, l := range c.current.localsAbove(depth) {
		if l.captured {
			c.emit(op.CloseUpval)
		} else {
			c.emit(op.Pop)
		}
	}
}
