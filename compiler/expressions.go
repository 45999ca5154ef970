package compiler

import (
	"github.com/briskvm/brisk/ast"
	"github.com/briskvm/brisk/errz"
	"github.com/briskvm/brisk/object"
	"github.com/briskvm/brisk/op"
)

func (c *Compiler) compileExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.NumericLiteral:
		c.pushConst(object.NewNumber(e.Value))
	case *ast.StringLiteral:
		c.pushConst(object.NewString(e.Value))
	case *ast.BooleanLiteral:
		if e.Value {
			c.emit(op.PushTrue)
		} else {
			c.emit(op.PushFalse)
		}
	case *ast.NullLiteral:
		c.emit(op.PushNull)
	case *ast.ThisExpression:
		c.loadIdentifier("this")
	case *ast.Identifier:
		c.loadIdentifier(e.Name)
	case *ast.TemplateLiteral:
		c.compileTemplateLiteral(e)
	case *ast.ArrayExpression:
		for _, el := range e.Elements {
			c.compileExpression(el)
		}
		if len(e.Elements) > 255 {
			c.errorf(errz.KindUnsupportedNode, "array literal exceeds 255 elements")
		}
		c.emit1(op.NewArray, byte(len(e.Elements)))
	case *ast.ObjectExpression:
		c.compileObjectExpression(e)
	case *ast.BinaryExpression:
		c.compileBinary(e)
	case *ast.UnaryExpression:
		c.compileExpression(e.Argument)
		switch e.Operator {
		case "!":
			c.emit(op.Not)
		case "-":
			c.emit(op.Neg)
		default:
			c.errorf(errz.KindUnsupportedNode, "unsupported unary operator %q", e.Operator)
		}
	case *ast.UpdateExpression:
		c.compileUpdate(e)
	case *ast.AssignmentExpression:
		c.compileAssignment(e)
	case *ast.CallExpression:
		c.compileCall(e)
	case *ast.NewExpression:
		c.compileExpression(e.Callee)
		for _, a := range e.Arguments {
			c.compileExpression(a)
		}
		c.emit1(op.New, byte(len(e.Arguments)))
	case *ast.MemberExpression:
		c.compileExpression(e.Object)
		c.compileMemberGet(e)
	case *ast.AwaitExpression:
		c.compileExpression(e.Argument)
		c.emit(op.Await)
	case *ast.YieldExpression:
		c.compileExprOrNull(e.Argument)
		c.emit(op.Yield)
	case *ast.FunctionExpression:
		fn := c.compileFunctionLike(functionOpts{
			name:        nameOf(e.ID),
			params:      e.Params,
			body:        e.Body,
			isAsync:     e.IsAsync,
			isGenerator: e.IsGenerator,
		})
		c.emitClosure(fn)
	case *ast.ArrowFunctionExpression:
		opts := functionOpts{params: e.Params, isAsync: e.IsAsync}
		if body, ok := e.Body.(*ast.BlockStatement); ok {
			opts.body = body
		} else if bodyExpr, ok := e.Body.(ast.Expression); ok {
			opts.exprBody = bodyExpr
		}
		fn := c.compileFunctionLike(opts)
		c.emitClosure(fn)
	default:
		c.errorf(errz.KindUnsupportedNode, "unsupported expression node %T", e)
	}
}

func nameOf(id *ast.Identifier) string {
	if id == nil {
		return ""
	}
	return id.Name
}

func (c *Compiler) compileTemplateLiteral(e *ast.TemplateLiteral) {
	if len(e.Quasis) == 0 {
		c.pushConst(object.NewString(""))
		return
	}
	c.pushConst(object.NewString(e.Quasis[0].Raw))
	for i, expr := range e.Expressions {
		c.compileExpression(expr)
		c.emit(op.Add)
		if i+1 < len(e.Quasis) {
			c.pushConst(object.NewString(e.Quasis[i+1].Raw))
			c.emit(op.Add)
		}
	}
}

func (c *Compiler) compileObjectExpression(e *ast.ObjectExpression) {
	pairs := 0
	for _, member := range e.Properties {
		switch m := member.(type) {
		case *ast.ObjectProperty:
			c.pushConst(object.NewString(m.Key))
			c.compileExpression(m.Value)
		case *ast.ObjectMethod:
			c.pushConst(object.NewString(m.Key))
			fn := c.compileFunctionLike(functionOpts{
				name:   m.Key,
				params: m.Value.Params,
				body:   m.Value.Body,
			})
			c.emitClosure(fn)
		default:
			c.errorf(errz.KindUnsupportedNode, "unsupported object member %T", m)
			continue
		}
		pairs++
	}
	if pairs > 255 {
		c.errorf(errz.KindUnsupportedNode, "object literal exceeds 255 properties")
	}
	c.emit1(op.NewObject, byte(pairs))
}

// compileBinary implements both ordinary binary operators and the
// short-circuiting "&&"/"||" forms, which this AST represents as plain
// BinaryExpression nodes (see ast.BinaryExpression's doc comment).
func (c *Compiler) compileBinary(e *ast.BinaryExpression) {
	switch e.Operator {
	case "&&":
		c.compileExpression(e.Left)
		endJump := c.emitJump(op.JumpIfFalse)
		c.emit(op.Pop)
		c.compileExpression(e.Right)
		c.patchJump(endJump)
		return
	case "||":
		c.compileExpression(e.Left)
		elseJump := c.emitJump(op.JumpIfFalse)
		thenJump := c.emitJump(op.Jump)
		c.patchJump(elseJump)
		c.emit(op.Pop)
		c.compileExpression(e.Right)
		c.patchJump(thenJump)
		return
	}
	c.compileExpression(e.Left)
	c.compileExpression(e.Right)
	c.emit(binaryOpcode(e.Operator))
}

func binaryOpcode(operator string) op.Code {
	switch operator {
	case "+":
		return op.Add
	case "-":
		return op.Sub
	case "*":
		return op.Mul
	case "/":
		return op.Div
	case "%":
		return op.Mod
	case "**":
		return op.Pow
	case "==":
		return op.Eq
	case "!=":
		return op.Neq
	case ">":
		return op.Gt
	case "<":
		return op.Lt
	case ">=":
		return op.Ge
	case "<=":
		return op.Le
	default:
		return op.Invalid
	}
}

// compileUpdate implements §4.2's "Prefix/postfix ++/-- on identifiers".
func (c *Compiler) compileUpdate(e *ast.UpdateExpression) {
	switch target := e.Argument.(type) {
	case *ast.Identifier:
		slot, isLocal := c.current.resolveLocal(target.Name)
		if isLocal {
			if e.Prefix {
				c.emit1(incOpcode(e.Operator, op.IncLocal, op.DecLocal), byte(slot))
			} else {
				c.emit1(op.GetLocal, byte(slot))
				c.emit1(incOpcode(e.Operator, op.IncLocal, op.DecLocal), byte(slot))
				c.emit(op.Pop)
			}
			return
		}
		if idx, isUp := c.resolveUpvalue(target.Name); isUp {
			if e.Prefix {
				c.emit1(incOpcode(e.Operator, op.IncUpvalue, op.DecUpvalue), byte(idx))
			} else {
				c.emit1(op.GetUpvalue, byte(idx))
				c.emit1(incOpcode(e.Operator, op.IncUpvalue, op.DecUpvalue), byte(idx))
				c.emit(op.Pop)
			}
			return
		}
		nameIdx := c.constantIndex(object.NewString(target.Name))
		if e.Prefix {
			c.emit1(incOpcode(e.Operator, op.IncGlobal, op.DecGlobal), nameIdx)
		} else {
			c.emit1(op.GetGlobal, nameIdx)
			c.emit1(incOpcode(e.Operator, op.IncGlobal, op.DecGlobal), nameIdx)
			c.emit(op.Pop)
		}
	case *ast.MemberExpression:
		if target.Computed {
			c.errorf(errz.KindInvalidUpdateTarget, "computed property increment/decrement is not supported")
			return
		}
		c.compileExpression(target.Object)
		nameIdx := c.constantIndex(object.NewString(memberName(target)))
		mode := op.ModePostfix
		if e.Prefix {
			mode = op.ModePrefix
		}
		c.emit2(incOpcode(e.Operator, op.IncProp, op.DecProp), nameIdx, byte(mode))
	default:
		c.errorf(errz.KindInvalidUpdateTarget, "invalid update target %T", target)
	}
}

func incOpcode(operator string, incCode, decCode op.Code) op.Code {
	if operator == "--" {
		return decCode
	}
	return incCode
}

// compileAssignment implements §4.2's "Assignments and updates" for both
// simple and compound forms.
func (c *Compiler) compileAssignment(e *ast.AssignmentExpression) {
	if member, ok := e.Left.(*ast.MemberExpression); ok {
		c.compileMemberAssignment(e, member)
		return
	}
	id, ok := e.Left.(*ast.Identifier)
	if !ok {
		c.errorf(errz.KindInvalidUpdateTarget, "invalid assignment target %T", e.Left)
		return
	}
	if e.Operator == "=" {
		c.compileExpression(e.Right)
		c.storeIdentifier(id.Name)
		return
	}
	c.loadIdentifier(id.Name)
	c.compileExpression(e.Right)
	c.emit(binaryOpcode(compoundOperator(e.Operator)))
	c.storeIdentifier(id.Name)
}

func (c *Compiler) compileMemberAssignment(e *ast.AssignmentExpression, member *ast.MemberExpression) {
	if member.Computed {
		if e.Operator != "=" {
			c.errorf(errz.KindUnsupportedNode, "compound assignment to a computed property is not supported")
			return
		}
		c.compileExpression(member.Object)
		c.compileExpression(member.Property)
		c.compileExpression(e.Right)
		c.emit(op.SetIndex)
		return
	}
	nameIdx := c.constantIndex(object.NewString(memberName(member)))
	if e.Operator == "=" {
		c.compileExpression(member.Object)
		c.compileExpression(e.Right)
		c.emit1(op.SetProp, nameIdx)
		return
	}
	c.compileExpression(member.Object)
	c.emit(op.Duplicate)
	c.emit1(op.GetProp, nameIdx)
	c.compileExpression(e.Right)
	c.emit(binaryOpcode(compoundOperator(e.Operator)))
	c.emit1(op.SetProp, nameIdx)
}

func compoundOperator(operator string) string {
	if len(operator) > 0 && operator[len(operator)-1] == '=' {
		return operator[:len(operator)-1]
	}
	return operator
}

func (c *Compiler) compileMemberGet(e *ast.MemberExpression) {
	if e.Computed {
		c.compileExpression(e.Property)
		c.emit(op.GetIndex)
		return
	}
	c.emit1(op.GetProp, c.constantIndex(object.NewString(memberName(e))))
}

func (c *Compiler) compileCall(e *ast.CallExpression) {
	if member, ok := e.Callee.(*ast.MemberExpression); ok && !member.Computed {
		c.compileExpression(member.Object)
		for _, a := range e.Arguments {
			c.compileExpression(a)
		}
		nameIdx := c.constantIndex(object.NewString(memberName(member)))
		if len(e.Arguments) > 255 {
			c.errorf(errz.KindUnsupportedNode, "call exceeds 255 arguments")
		}
		c.emit2(op.CallMethod, nameIdx, byte(len(e.Arguments)))
		return
	}
	c.compileExpression(e.Callee)
	for _, a := range e.Arguments {
		c.compileExpression(a)
	}
	if len(e.Arguments) > 255 {
		c.errorf(errz.KindUnsupportedNode, "call exceeds 255 arguments")
	}
	c.emit1(op.Call, byte(len(e.Arguments)))
}
