package vm

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briskvm/brisk/ast"
	"github.com/briskvm/brisk/compiler"
	"github.com/briskvm/brisk/object"
)

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }
func num(v float64) *ast.NumericLiteral { return &ast.NumericLiteral{Value: v} }
func str(v string) *ast.StringLiteral   { return &ast.StringLiteral{Value: v} }

func letDecl(name string, init ast.Expression) ast.Statement {
	return &ast.VariableDeclaration{
		Kind:         "let",
		Declarations: []*ast.VariableDeclarator{{ID: ident(name), Init: init}},
	}
}

func exprStmt(e ast.Expression) ast.Statement { return &ast.ExpressionStatement{Expr: e} }

func call(callee ast.Expression, args ...ast.Expression) *ast.CallExpression {
	return &ast.CallExpression{Callee: callee, Arguments: args}
}

func member(obj ast.Expression, prop string) *ast.MemberExpression {
	return &ast.MemberExpression{Object: obj, Property: ident(prop)}
}

func methodCall(obj ast.Expression, method string, args ...ast.Expression) *ast.CallExpression {
	return &ast.CallExpression{Callee: member(obj, method), Arguments: args}
}

// runProgram compiles and interprets prog, requiring a clean, non-erroring
// run, and returns the result.
func runProgram(t *testing.T, prog *ast.Program, opts ...Option) *Result {
	t.Helper()
	fn, err := compiler.Compile(prog)
	require.NoError(t, err)
	return Interpret(context.Background(), fn, opts...)
}

// TestClosuresPreserveBindingsPerActivation implements §8 scenario 1:
// function outer(){let x=0;return function(){return ++x;}}
// let f1=outer(),f2=outer(); [f1(),f1(),f2(),f1(),f2()] -> [1,2,1,3,2]
func TestClosuresPreserveBindingsPerActivation(t *testing.T) {
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
	prog := &ast.Program{Body: []ast.Statement{
		outer,
		&ast.VariableDeclaration{
			Kind: "let",
			Declarations: []*ast.VariableDeclarator{
				{ID: ident("f1"), Init: call(ident("outer"))},
				{ID: ident("f2"), Init: call(ident("outer"))},
			},
		},
		&ast.ReturnStatement{Argument: &ast.ArrayExpression{Elements: []ast.Expression{
			call(ident("f1")), call(ident("f1")), call(ident("f2")),
			call(ident("f1")), call(ident("f2")),
		}}},
	}}

	res := runProgram(t, prog)
	require.Equal(t, OK, res.Status)
	arr, ok := res.Value.(*object.Array)
	require.True(t, ok)
	got := make([]float64, len(arr.Elements))
	for i, e := range arr.Elements {
		got[i] = e.(*object.Number).Value()
	}
	assert.Equal(t, []float64{1, 2, 1, 3, 2}, got)
}

// TestGeneratorsYieldInOrder implements §8 scenario 2:
// function* g(){yield 1;yield 2;yield 3;} let it=g();
// [it.next().value, it.next().value, it.next().value, it.next().done] -> [1,2,3,true]
func TestGeneratorsYieldInOrder(t *testing.T) {
	gen := &ast.FunctionDeclaration{
		ID:          ident("g"),
		IsGenerator: true,
		Body: &ast.BlockStatement{Body: []ast.Statement{
			exprStmt(&ast.YieldExpression{Argument: num(1)}),
			exprStmt(&ast.YieldExpression{Argument: num(2)}),
			exprStmt(&ast.YieldExpression{Argument: num(3)}),
		}},
	}
	nextValue := func() ast.Expression { return member(methodCall(ident("it"), "next"), "value") }
	prog := &ast.Program{Body: []ast.Statement{
		gen,
		letDecl("it", call(ident("g"))),
		&ast.ReturnStatement{Argument: &ast.ArrayExpression{Elements: []ast.Expression{
			nextValue(), nextValue(), nextValue(),
			member(methodCall(ident("it"), "next"), "done"),
		}}},
	}}

	res := runProgram(t, prog)
	require.Equal(t, OK, res.Status)
	arr, ok := res.Value.(*object.Array)
	require.True(t, ok)
	require.Len(t, arr.Elements, 4)
	assert.Equal(t, float64(1), arr.Elements[0].(*object.Number).Value())
	assert.Equal(t, float64(2), arr.Elements[1].(*object.Number).Value())
	assert.Equal(t, float64(3), arr.Elements[2].(*object.Number).Value())
	assert.Equal(t, object.True, arr.Elements[3])
}

// TestAsyncOrdering implements §8 scenario 3:
// async function h(){ await new Promise(r=>setTimeout(r,10)); console.log("B"); }
// h(); console.log("A"); -> logs "A" then "B".
func TestAsyncOrdering(t *testing.T) {
	executor := &ast.ArrowFunctionExpression{
		Params: []ast.Node{ident("r")},
		Body:   call(ident("setTimeout"), ident("r"), num(10)),
	}
	h := &ast.FunctionDeclaration{
		ID:      ident("h"),
		IsAsync: true,
		Body: &ast.BlockStatement{Body: []ast.Statement{
			exprStmt(&ast.AwaitExpression{Argument: &ast.NewExpression{
				Callee:    ident("Promise"),
				Arguments: []ast.Expression{executor},
			}}),
			exprStmt(methodCall(ident("console"), "log", str("B"))),
		}},
	}
	prog := &ast.Program{Body: []ast.Statement{
		h,
		exprStmt(call(ident("h"))),
		exprStmt(methodCall(ident("console"), "log", str("A"))),
	}}

	var buf bytes.Buffer
	res := runProgram(t, prog, WithStdout(&buf))
	require.Equal(t, OK, res.Status)
	assert.Equal(t, "A\nB\n", buf.String())
}

// TestExceptionThroughCallChain implements §8 scenario 4:
// function a(){throw "e";} function b(){a();} try{b();}catch(e){console.log(e);}
func TestExceptionThroughCallChain(t *testing.T) {
	a := &ast.FunctionDeclaration{
		ID:   ident("a"),
		Body: &ast.BlockStatement{Body: []ast.Statement{&ast.ThrowStatement{Argument: str("e")}}},
	}
	b := &ast.FunctionDeclaration{
		ID:   ident("b"),
		Body: &ast.BlockStatement{Body: []ast.Statement{exprStmt(call(ident("a")))}},
	}
	prog := &ast.Program{Body: []ast.Statement{
		a, b,
		&ast.TryStatement{
			Block: &ast.BlockStatement{Body: []ast.Statement{exprStmt(call(ident("b")))}},
			Handler: &ast.CatchClause{
				Param: ident("e"),
				Body:  &ast.BlockStatement{Body: []ast.Statement{exprStmt(methodCall(ident("console"), "log", ident("e")))}},
			},
		},
	}}

	var buf bytes.Buffer
	res := runProgram(t, prog, WithStdout(&buf))
	require.Equal(t, OK, res.Status)
	assert.Equal(t, "e\n", buf.String())
}

// TestPrototypeMethodDispatch implements §8 scenario 5:
// class P{greet(){return "hi";}} let p=new P(); p.greet() -> "hi"
func TestPrototypeMethodDispatch(t *testing.T) {
	cls := &ast.ClassDeclaration{
		ID: ident("P"),
		Body: []*ast.MethodDefinition{
			{
				Key:  "greet",
				Kind: "method",
				Value: &ast.FunctionExpression{
					Body: &ast.BlockStatement{Body: []ast.Statement{
						&ast.ReturnStatement{Argument: str("hi")},
					}},
				},
			},
		},
	}
	prog := &ast.Program{Body: []ast.Statement{
		cls,
		letDecl("p", &ast.NewExpression{Callee: ident("P")}),
		&ast.ReturnStatement{Argument: methodCall(ident("p"), "greet")},
	}}

	res := runProgram(t, prog)
	require.Equal(t, OK, res.Status)
	s, ok := res.Value.(*object.String)
	require.True(t, ok)
	assert.Equal(t, "hi", s.Value())
}

// TestCompoundMemberAssignment implements §8 scenario 6:
// let o={n:10}; o.n += 5; o.n++; final o.n = 16, postfix expression value 15
// (the value before the increment).
func TestCompoundMemberAssignment(t *testing.T) {
	prog := &ast.Program{Body: []ast.Statement{
		letDecl("o", &ast.ObjectExpression{Properties: []ast.ObjectMember{
			&ast.ObjectProperty{Key: "n", Value: num(10)},
		}}),
		exprStmt(&ast.AssignmentExpression{Operator: "+=", Left: member(ident("o"), "n"), Right: num(5)}),
		&ast.ReturnStatement{Argument: &ast.ArrayExpression{Elements: []ast.Expression{
			&ast.UpdateExpression{Operator: "++", Argument: member(ident("o"), "n"), Prefix: false},
			member(ident("o"), "n"),
		}}},
	}}

	res := runProgram(t, prog)
	require.Equal(t, OK, res.Status)
	arr, ok := res.Value.(*object.Array)
	require.True(t, ok)
	assert.Equal(t, float64(15), arr.Elements[0].(*object.Number).Value(), "postfix ++ evaluates to the pre-increment value")
	assert.Equal(t, float64(16), arr.Elements[1].(*object.Number).Value())
}

// TestArityMismatchIsRuntimeError covers the §8 boundary behavior
// "Arity mismatch on closure call is a runtime error."
func TestArityMismatchIsRuntimeError(t *testing.T) {
	fn := &ast.FunctionDeclaration{
		ID:     ident("f"),
		Params: []ast.Node{ident("a"), ident("b")},
		Body:   &ast.BlockStatement{},
	}
	prog := &ast.Program{Body: []ast.Statement{fn, exprStmt(call(ident("f"), num(1)))}}
	res := runProgram(t, prog)
	assert.Equal(t, RuntimeErrorStatus, res.Status)
	assert.Error(t, res.Err)
}

// TestDivideByZeroIsRuntimeError covers the §8 boundary behavior
// "Division/modulo by zero fails with a runtime error; overflow does not."
func TestDivideByZeroIsRuntimeError(t *testing.T) {
	prog := &ast.Program{Body: []ast.Statement{
		exprStmt(&ast.BinaryExpression{Operator: "/", Left: num(1), Right: num(0)}),
	}}
	res := runProgram(t, prog)
	assert.Equal(t, RuntimeErrorStatus, res.Status)
}

// TestEmptyArrayAndStringAreFalsy covers the §8 boundary behavior about
// falsy values, exercised through the VM's JumpIfFalse dispatch rather
// than object.Falsy directly.
func TestEmptyArrayAndStringAreFalsy(t *testing.T) {
	prog := &ast.Program{Body: []ast.Statement{
		&ast.IfStatement{
			Test:       &ast.ArrayExpression{},
			Consequent: &ast.ReturnStatement{Argument: str("truthy")},
			Alternate:  &ast.ReturnStatement{Argument: str("falsy")},
		},
	}}
	res := runProgram(t, prog)
	require.Equal(t, OK, res.Status)
	assert.Equal(t, "falsy", res.Value.(*object.String).Value())

	prog = &ast.Program{Body: []ast.Statement{
		&ast.IfStatement{
			Test:       str(""),
			Consequent: &ast.ReturnStatement{Argument: str("truthy")},
			Alternate:  &ast.ReturnStatement{Argument: str("falsy")},
		},
	}}
	res = runProgram(t, prog)
	require.Equal(t, OK, res.Status)
	assert.Equal(t, "falsy", res.Value.(*object.String).Value())
}

// TestUndefinedGlobalReadIsRuntimeError covers the §7 runtime-error
// taxonomy's "undefined global read."
func TestUndefinedGlobalReadIsRuntimeError(t *testing.T) {
	prog := &ast.Program{Body: []ast.Statement{exprStmt(ident("neverDeclared"))}}
	res := runProgram(t, prog)
	assert.Equal(t, RuntimeErrorStatus, res.Status)
}

// TestGeneratorReturnEndsIterationWithoutResuming exercises Generator's
// explicit return(value) contract.
func TestGeneratorReturnEndsIterationWithoutResuming(t *testing.T) {
	gen := &ast.FunctionDeclaration{
		ID:          ident("g"),
		IsGenerator: true,
		Body: &ast.BlockStatement{Body: []ast.Statement{
			exprStmt(&ast.YieldExpression{Argument: num(1)}),
			exprStmt(&ast.YieldExpression{Argument: num(2)}),
		}},
	}
	prog := &ast.Program{Body: []ast.Statement{
		gen,
		letDecl("it", call(ident("g"))),
		&ast.ReturnStatement{Argument: &ast.ArrayExpression{Elements: []ast.Expression{
			member(methodCall(ident("it"), "return", num(99)), "value"),
			member(methodCall(ident("it"), "return", num(99)), "done"),
			member(methodCall(ident("it"), "next"), "done"),
		}}},
	}}
	res := runProgram(t, prog)
	require.Equal(t, OK, res.Status)
	arr := res.Value.(*object.Array)
	assert.Equal(t, float64(99), arr.Elements[0].(*object.Number).Value())
	assert.Equal(t, object.True, arr.Elements[1])
	assert.Equal(t, object.True, arr.Elements[2], "next() after return() stays done")
}
