package compiler

import (
	"testing"

	"github.com/briskvm/brisk/ast"
	"github.com/briskvm/brisk/bytecode"
	"github.com/briskvm/brisk/op"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func program(stmts ...ast.Statement) *ast.Program {
	return &ast.Program{Body: stmts}
}

func exprStmt(e ast.Expression) ast.Statement {
	return &ast.ExpressionStatement{Expr: e}
}

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func num(v float64) *ast.NumericLiteral { return &ast.NumericLiteral{Value: v} }

func letDecl(name string, init ast.Expression) ast.Statement {
	return &ast.VariableDeclaration{
		Kind: "let",
		Declarations: []*ast.VariableDeclarator{
			{ID: ident(name), Init: init},
		},
	}
}

// decodeOps returns the sequence of opcodes in fn.Code, ignoring operand
// bytes, enough to assert shape without hardcoding exact byte offsets.
func decodeOps(t *testing.T, fn *bytecode.Function) []op.Code {
	t.Helper()
	var out []op.Code
	code := fn.Code
	i := 0
	for i < len(code) {
		c := op.Code(code[i])
		out = append(out, c)
		if c == op.Closure {
			idx := int(code[i+1])
			width := 1
			if idx < len(fn.Constants) {
				if nested, ok := fn.Constants[idx].(*bytecode.Function); ok {
					width += 2 * len(nested.Upvalues)
				}
			}
			i += 1 + width
			continue
		}
		i += 1 + op.GetInfo(c).OperandCount
	}
	return out
}

func TestCompileNumericLiteralStatement(t *testing.T) {
	fn, err := Compile(program(exprStmt(num(5))))
	require.NoError(t, err)
	assert.Equal(t, []op.Code{op.PushConst, op.Pop, op.PushNull, op.Return}, decodeOps(t, fn))
}

func TestCompileGlobalDefineAndRead(t *testing.T) {
	fn, err := Compile(program(
		letDecl("x", num(1)),
		exprStmt(ident("x")),
	))
	require.NoError(t, err)
	ops := decodeOps(t, fn)
	assert.Contains(t, ops, op.DefineGlobal)
	assert.Contains(t, ops, op.GetGlobal)
}

func TestCompileIfElseEmitsJumps(t *testing.T) {
	fn, err := Compile(program(
		&ast.IfStatement{
			Test:       ident("cond"),
			Consequent: exprStmt(num(1)),
			Alternate:  exprStmt(num(2)),
		},
	))
	// "cond" is read as an undefined global at runtime, not a compile
	// error -- global reads resolve dynamically per §4.2.
	require.NoError(t, err)
	ops := decodeOps(t, fn)
	assert.Contains(t, ops, op.JumpIfFalse)
	assert.Contains(t, ops, op.Jump)
}

func TestCompileWhileLoopEmitsLoop(t *testing.T) {
	fn, err := Compile(program(
		&ast.WhileStatement{
			Test: ident("cond"),
			Body: exprStmt(num(1)),
		},
	))
	require.NoError(t, err)
	assert.Contains(t, decodeOps(t, fn), op.Loop)
}

func TestCompileBreakOutsideLoopIsCompileError(t *testing.T) {
	_, err := Compile(program(&ast.BreakStatement{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "break outside loop")
}

func TestCompileContinueOutsideLoopIsCompileError(t *testing.T) {
	_, err := Compile(program(&ast.ContinueStatement{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "continue outside loop")
}

func TestCompileDuplicateLocalInFunctionIsCompileError(t *testing.T) {
	fnExpr := &ast.FunctionExpression{
		Params: nil,
		Body: &ast.BlockStatement{Body: []ast.Statement{
			letDecl("x", num(1)),
			letDecl("x", num(2)),
		}},
	}
	_, err := Compile(program(exprStmt(fnExpr)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate local")
}

func TestCompileComputedPropertyIncrementIsCompileError(t *testing.T) {
	_, err := Compile(program(exprStmt(&ast.UpdateExpression{
		Operator: "++",
		Argument: &ast.MemberExpression{
			Object:   ident("o"),
			Property: ident("k"),
			Computed: true,
		},
	})))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "computed property increment")
}

func TestCompileClosureCapturesOuterLocalAsUpvalue(t *testing.T) {
	// function outer() { let x = 0; return function() { return ++x } }
	inner := &ast.FunctionExpression{
		Body: &ast.BlockStatement{Body: []ast.Statement{
			&ast.ReturnStatement{Argument: &ast.UpdateExpression{
				Operator: "++", Argument: ident("x"), Prefix: true,
			}},
		}},
	}
	outer := &ast.FunctionDeclaration{
		ID: ident("outer"),
		Body: &ast.BlockStatement{Body: []ast.Statement{
			letDecl("x", num(0)),
			&ast.ReturnStatement{Argument: inner},
		}},
	}
	fn, err := Compile(program(outer))
	require.NoError(t, err)

	var outerFn *bytecode.Function
	for _, c := range fn.Constants {
		if f, ok := c.(*bytecode.Function); ok && f.Name == "outer" {
			outerFn = f
		}
	}
	require.NotNil(t, outerFn)

	var innerFn *bytecode.Function
	for _, c := range outerFn.Constants {
		if f, ok := c.(*bytecode.Function); ok {
			innerFn = f
		}
	}
	require.NotNil(t, innerFn)
	require.Len(t, innerFn.Upvalues, 1)
	assert.True(t, innerFn.Upvalues[0].IsLocal)
}

func TestCompileClassDesugaring(t *testing.T) {
	// class P { greet() { return "hi" } }
	cls := &ast.ClassDeclaration{
		ID: ident("P"),
		Body: []*ast.MethodDefinition{
			{
				Key:  "greet",
				Kind: "method",
				Value: &ast.FunctionExpression{
					Body: &ast.BlockStatement{Body: []ast.Statement{
						&ast.ReturnStatement{Argument: &ast.StringLiteral{Value: "hi"}},
					}},
				},
			},
		},
	}
	fn, err := Compile(program(cls))
	require.NoError(t, err)
	ops := decodeOps(t, fn)
	assert.Contains(t, ops, op.Closure)
	assert.Contains(t, ops, op.GetPrototype)
	assert.Contains(t, ops, op.SetProp)
	assert.Contains(t, ops, op.DefineGlobal)
}

func TestCompileConstantPoolOverflow(t *testing.T) {
	// Each distinct string literal interns its own constant since the
	// compiler does not dedupe constants; 300 distinct ones overflow the
	// 256-entry pool (indices 0..255).
	var stmts []ast.Statement
	for i := 0; i < 300; i++ {
		stmts = append(stmts, exprStmt(&ast.StringLiteral{Value: itoa(i)}))
	}
	_, err := Compile(program(stmts...))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constant pool")
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}
