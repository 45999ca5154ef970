package compiler

import (
	"github.com/briskvm/brisk/ast"
	"github.com/briskvm/brisk/errz"
	"github.com/briskvm/brisk/object"
	"github.com/briskvm/brisk/op"
)

func (c *Compiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.VariableDeclaration:
		for _, d := range s.Declarations {
			c.compileVariableDeclarator(d)
		}
	case *ast.FunctionDeclaration:
		fn := c.compileFunctionLike(functionOpts{
			name:        s.ID.Name,
			params:      s.Params,
			body:        s.Body,
			isAsync:     s.IsAsync,
			isGenerator: s.IsGenerator,
		})
		c.emitClosure(fn)
		c.defineBinding(s.ID.Name)
	case *ast.ClassDeclaration:
		c.compileClass(s)
	case *ast.IfStatement:
		c.compileIf(s)
	case *ast.WhileStatement:
		c.compileWhile(s)
	case *ast.ForStatement:
		c.compileFor(s)
	case *ast.BreakStatement:
		c.compileBreak()
	case *ast.ContinueStatement:
		c.compileContinue()
	case *ast.ReturnStatement:
		if s.Argument != nil {
			c.compileExpression(s.Argument)
		} else {
			c.emit(op.PushNull)
		}
		c.emit(op.Return)
	case *ast.TryStatement:
		c.compileTry(s)
	case *ast.ThrowStatement:
		c.compileExpression(s.Argument)
		c.emit(op.Throw)
	case *ast.ExpressionStatement:
		c.compileExpressionStatement(s.Expr)
	case *ast.BlockStatement:
		c.current.beginScope()
		for _, inner := range s.Body {
			c.compileStatement(inner)
		}
		c.closeScope()
	default:
		c.errorf(errz.KindUnsupportedNode, "unsupported statement node %T", s)
	}
}

// compileExpressionStatement compiles an expression purely for its side
// effects, discarding whatever value it leaves on the stack. A bare
// `o.p++`/`o.p--` at statement level uses INC_PROP/DEC_PROP's discard
// mode directly instead of computing then dropping a value, per §4.1's
// mode byte.
func (c *Compiler) compileExpressionStatement(expr ast.Expression) {
	if u, ok := expr.(*ast.UpdateExpression); ok {
		if m, ok := u.Argument.(*ast.MemberExpression); ok && !m.Computed {
			c.compileExpression(m.Object)
			name := memberName(m)
			mode := op.ModeDiscard
			code := op.IncProp
			if u.Operator == "--" {
				code = op.DecProp
			}
			c.emit2(code, c.constantIndex(object.NewString(name)), byte(mode))
			c.emit(op.Pop)
			return
		}
	}
	c.compileExpression(expr)
	c.emit(op.Pop)
}

func (c *Compiler) compileVariableDeclarator(d *ast.VariableDeclarator) {
	switch id := d.ID.(type) {
	case *ast.Identifier:
		c.compileExprOrNull(d.Init)
		c.defineBinding(id.Name)
	case *ast.ArrayPattern:
		c.compileDestructureArray(id, d.Init)
	case *ast.ObjectPattern:
		c.compileDestructureObject(id, d.Init)
	default:
		c.errorf(errz.KindUnsupportedNode, "unsupported binding target %T", id)
	}
}

func (c *Compiler) compileExprOrNull(e ast.Expression) {
	if e != nil {
		c.compileExpression(e)
	} else {
		c.emit(op.PushNull)
	}
}

// compileDestructureArray/Object implement §4.2's "Destructuring". At
// script scope rhs's stack slot is stable and reusable via DUPLICATE,
// exactly as the spec's dup/index/define/pop sequence describes. At
// function scope locals alias fixed stack slots, so rhs is first bound
// to a hidden local and each element is re-fetched from that slot with
// GET_LOCAL instead of DUPLICATE -- DUPLICATE's literal "top of stack"
// target would otherwise point at the most recently bound element
// rather than rhs once more than one element has been extracted.
func (c *Compiler) compileDestructureArray(pat *ast.ArrayPattern, init ast.Expression) {
	c.compileExprOrNull(init)
	if c.isScriptScope() {
		for i, el := range pat.Elements {
			c.emit(op.Duplicate)
			c.pushConst(object.NewNumber(float64(i)))
			c.emit(op.GetIndex)
			c.defineBinding(el.Name)
		}
		c.emit(op.Pop)
		return
	}
	rhsSlot, _ := c.declareLocal("<destructure>")
	for i, el := range pat.Elements {
		c.emit1(op.GetLocal, byte(rhsSlot))
		c.pushConst(object.NewNumber(float64(i)))
		c.emit(op.GetIndex)
		c.defineBinding(el.Name)
	}
}

func (c *Compiler) compileDestructureObject(pat *ast.ObjectPattern, init ast.Expression) {
	c.compileExprOrNull(init)
	if c.isScriptScope() {
		for _, prop := range pat.Properties {
			c.emit(op.Duplicate)
			nameIdx := c.constantIndex(object.NewString(prop.Key))
			c.emit1(op.GetProp, nameIdx)
			c.defineBinding(prop.Value.Name)
		}
		c.emit(op.Pop)
		return
	}
	rhsSlot, _ := c.declareLocal("<destructure>")
	for _, prop := range pat.Properties {
		c.emit1(op.GetLocal, byte(rhsSlot))
		nameIdx := c.constantIndex(object.NewString(prop.Key))
		c.emit1(op.GetProp, nameIdx)
		c.defineBinding(prop.Value.Name)
	}
}

func (c *Compiler) compileIf(s *ast.IfStatement) {
	c.compileExpression(s.Test)
	elseJump := c.emitJump(op.JumpIfFalse)
	c.emit(op.Pop)
	c.compileStatement(s.Consequent)
	if s.Alternate != nil {
		endJump := c.emitJump(op.Jump)
		c.patchJump(elseJump)
		c.emit(op.Pop)
		c.compileStatement(s.Alternate)
		c.patchJump(endJump)
	} else {
		c.patchJump(elseJump)
		c.emit(op.Pop)
	}
}

func (c *Compiler) compileWhile(s *ast.WhileStatement) {
	loopStart := len(c.current.code)
	c.current.pushLoop(loopStart)
	c.compileExpression(s.Test)
	exitJump := c.emitJump(op.JumpIfFalse)
	c.emit(op.Pop)
	c.compileStatement(s.Body)
	c.patchContinues()
	c.emitLoop(loopStart)
	c.patchJump(exitJump)
	c.emit(op.Pop)
	c.patchBreaks()
	c.current.popLoop()
}

func (c *Compiler) compileFor(s *ast.ForStatement) {
	c.current.beginScope()
	switch init := s.Init.(type) {
	case nil:
	case *ast.VariableDeclaration:
		for _, d := range init.Declarations {
			c.compileVariableDeclarator(d)
		}
	case ast.Expression:
		c.compileExpression(init)
		c.emit(op.Pop)
	}
	loopStart := len(c.current.code)
	c.current.pushLoop(loopStart)
	exitJump := -1
	if s.Test != nil {
		c.compileExpression(s.Test)
		exitJump = c.emitJump(op.JumpIfFalse)
		c.emit(op.Pop)
	}
	c.compileStatement(s.Body)
	c.patchContinues()
	if s.Update != nil {
		c.compileExpression(s.Update)
		c.emit(op.Pop)
	}
	c.emitLoop(loopStart)
	if exitJump >= 0 {
		c.patchJump(exitJump)
		c.emit(op.Pop)
	}
	c.patchBreaks()
	c.current.popLoop()
	c.closeScope()
}

func (c *Compiler) patchBreaks() {
	lc := c.current.currentLoop()
	for _, pos := range lc.breakJumps {
		c.patchJump(pos)
	}
}

// patchContinues resolves every continue jump recorded for the
// innermost loop to right here -- after the body, before the loop's
// update/re-test -- so a for loop's update clause still runs on a
// continue'd iteration instead of being skipped (clox-style).
func (c *Compiler) patchContinues() {
	lc := c.current.currentLoop()
	for _, pos := range lc.continueJumps {
		c.patchJump(pos)
	}
	lc.continueJumps = nil
}

func (c *Compiler) compileBreak() {
	lc := c.current.currentLoop()
	if lc == nil {
		c.errorf(errz.KindBreakOutsideLoop, "break outside loop")
		return
	}
	c.closeLocalsAbove(lc.scopeDepth)
	j := c.emitJump(op.Jump)
	lc.breakJumps = append(lc.breakJumps, j)
}

// compileContinue jumps forward to patchContinues' target rather than
// straight back to loopStart: loopStart sits before a for loop's update
// clause, so looping there directly would skip the update on every
// continue'd iteration.
func (c *Compiler) compileContinue() {
	lc := c.current.currentLoop()
	if lc == nil {
		c.errorf(errz.KindContinueOutsideLoop, "continue outside loop")
		return
	}
	c.closeLocalsAbove(lc.scopeDepth)
	j := c.emitJump(op.Jump)
	lc.continueJumps = append(lc.continueJumps, j)
}

func (c *Compiler) compileTry(s *ast.TryStatement) {
	if s.Handler == nil {
		c.compileStatement(s.Block)
		return
	}
	setupPos := c.emitJump(op.SetupTry)
	c.compileStatement(s.Block)
	c.emit(op.PopCatch)
	skipJump := c.emitJump(op.Jump)
	c.patchJump(setupPos)
	if s.Handler.Param != nil {
		c.current.beginScope()
		c.declareLocal(s.Handler.Param.Name)
		for _, inner := range s.Handler.Body.Body {
			c.compileStatement(inner)
		}
		c.closeScope()
	} else {
		c.emit(op.Pop)
		c.compileStatement(s.Handler.Body)
	}
	c.patchJump(skipJump)
}

func memberName(m *ast.MemberExpression) string {
	if id, ok := m.Property.(*ast.Identifier); ok {
		return id.Name
	}
	return ""
}
