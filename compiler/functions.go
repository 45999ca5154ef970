package compiler

import (
	"github.com/briskvm/brisk/ast"
	"github.com/briskvm/brisk/bytecode"
	"github.com/briskvm/brisk/object"
	"github.com/briskvm/brisk/op"
)

// functionOpts bundles everything compileFunctionLike needs to lower
// any of FunctionDeclaration, FunctionExpression, ArrowFunctionExpression,
// or a class method/constructor into one bytecode.Function, per §4.2
// "Functions, methods, arrows."
type functionOpts struct {
	name          string
	params        []ast.Node
	body          *ast.BlockStatement
	exprBody      ast.Expression // set instead of body for concise arrows
	isMethod      bool
	isConstructor bool
	isAsync       bool
	isGenerator   bool
}

func (c *Compiler) compileFunctionLike(opts functionOpts) *bytecode.Function {
	enclosing := c.current
	fs := newFuncState(enclosing, opts.name, opts.isMethod)
	fs.isAsync = opts.isAsync
	fs.isGenerator = opts.isGenerator
	fs.isConstructor = opts.isConstructor
	c.current = fs

	arity := 0
	for _, p := range opts.params {
		if id, ok := p.(*ast.Identifier); ok {
			c.declareLocal(id.Name)
			arity++
			continue
		}
		// Destructured parameters are outside the set of forms §4.2
		// details lowering rules for; reserve an anonymous slot so
		// later parameters still land at the right index.
		c.declareLocal("<param>")
		arity++
	}
	fs.arity = arity

	if opts.exprBody != nil {
		c.compileExpression(opts.exprBody)
		c.emit(op.Return)
	} else if opts.body != nil {
		for _, stmt := range opts.body.Body {
			c.compileStatement(stmt)
		}
	}
	c.ensureReturn()

	fn := bytecode.NewFunction(opts.name, arity)
	fn.Code = fs.code
	fn.Constants = fs.constants
	fn.Upvalues = fs.upvalues
	fn.IsAsync = opts.isAsync
	fn.IsGenerator = opts.isGenerator
	fn.LocalCount = fs.maxLocals

	c.current = enclosing
	return fn
}

// emitClosure emits CLOSURE funcConstIx followed by each upvalue
// descriptor's two raw bytes, per §4.1's "CLOSURE funcConstIx(1) then
// upvalueCount × 2 bytes (isLocal, index)" -- a variable-length
// instruction the generic emit helpers don't model.
func (c *Compiler) emitClosure(fn *bytecode.Function) {
	idx := c.constantIndex(fn)
	c.current.code = append(c.current.code, byte(op.Closure), idx)
	for _, u := range fn.Upvalues {
		var isLocal byte
		if u.IsLocal {
			isLocal = 1
		}
		c.current.code = append(c.current.code, isLocal, u.Index)
	}
}

// compileClass implements §4.2's three-step class desugaring.
func (c *Compiler) compileClass(s *ast.ClassDeclaration) {
	var ctor *ast.MethodDefinition
	for _, m := range s.Body {
		if m.Kind == "constructor" {
			ctor = m
			break
		}
	}
	ctorParams := []ast.Node{}
	var ctorBody *ast.BlockStatement
	if ctor != nil {
		ctorParams = ctor.Value.Params
		ctorBody = ctor.Value.Body
	} else {
		ctorBody = &ast.BlockStatement{}
	}

	// Step 1: compile the constructor and leave the class closure on the
	// stack.
	ctorFn := c.compileFunctionLike(functionOpts{
		name:          s.ID.Name,
		params:        ctorParams,
		body:          ctorBody,
		isMethod:      true,
		isConstructor: true,
	})
	c.emitClosure(ctorFn)

	// Step 2: bind the class name.
	c.defineBinding(s.ID.Name)

	// Step 3: attach every other method to the class's prototype.
	for _, m := range s.Body {
		if m.Kind == "constructor" {
			continue
		}
		c.loadIdentifier(s.ID.Name)
		c.emit(op.GetPrototype)
		methodFn := c.compileFunctionLike(functionOpts{
			name:        m.Key,
			params:      m.Value.Params,
			body:        m.Value.Body,
			isMethod:    true,
			isAsync:     m.Value.IsAsync,
			isGenerator: m.Value.IsGenerator,
		})
		c.emitClosure(methodFn)
		c.emit1(op.SetProp, c.constantIndex(object.NewString(m.Key)))
		c.emit(op.Pop)
	}
}
