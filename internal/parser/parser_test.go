package parser_test

import (
	"strings"
	"testing"

	"github.com/quinlang/quin/internal/ast"
	"github.com/quinlang/quin/internal/lexer"
	"github.com/quinlang/quin/internal/parser"
	"github.com/quinlang/quin/internal/pipeline"
)

// parse runs the lexer and parser and fails the test on any diagnostic.
func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	ctx := &pipeline.PipelineContext{SourceCode: input}
	ctx = lexer.NewLexerProcessor().Process(ctx)
	ctx = parser.NewParserProcessor().Process(ctx)
	if len(ctx.Errors) > 0 {
		var msgs []string
		for _, err := range ctx.Errors {
			msgs = append(msgs, err.Error())
		}
		t.Fatalf("parsing failed with errors:\n%s", strings.Join(msgs, "\n"))
	}
	return ctx.Program
}

// parseBody parses a main body and returns its statements.
func parseBody(t *testing.T, body string) []ast.Statement {
	t.Helper()
	program := parse(t, "fn main(): int {\n"+body+"\nreturn 0;\n}")
	stmts := program.Functions[0].Body.Statements
	// drop the trailing return added above
	return stmts[:len(stmts)-1]
}

func TestFunctionDecl(t *testing.T) {
	program := parse(t, `
fn add(a: int, b: int): int { return a + b; }
fn log(msg: str) { println(msg); }
fn main(): int { return 0; }
`)
	if len(program.Functions) != 3 {
		t.Fatalf("expected 3 functions, got %d", len(program.Functions))
	}

	add := program.Functions[0]
	if add.Name != "add" {
		t.Errorf("expected function 'add', got %q", add.Name)
	}
	if len(add.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(add.Params))
	}
	if add.Params[0].Name != "a" || add.Params[0].Type.Name != "int" {
		t.Errorf("unexpected first param: %s: %s", add.Params[0].Name, add.Params[0].Type)
	}
	if add.ReturnType == nil || add.ReturnType.Name != "int" {
		t.Errorf("expected return type int, got %v", add.ReturnType)
	}

	log := program.Functions[1]
	if log.ReturnType != nil {
		t.Errorf("expected nil return type for void function, got %v", log.ReturnType)
	}
}

func TestLetStatement(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		hasType  bool
		hasValue bool
	}{
		{"inferred", "let x = 5;", false, true},
		{"typed", "let x: int;", true, false},
		{"typed_init", "let x: bool = true;", true, true},
		{"array", "let xs: int[4];", true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stmts := parseBody(t, tc.input)
			let, ok := stmts[0].(*ast.LetStmt)
			if !ok {
				t.Fatalf("expected *ast.LetStmt, got %T", stmts[0])
			}
			if (let.Type != nil) != tc.hasType {
				t.Errorf("type presence: expected %v", tc.hasType)
			}
			if (let.Value != nil) != tc.hasValue {
				t.Errorf("value presence: expected %v", tc.hasValue)
			}
		})
	}
}

func TestArrayType(t *testing.T) {
	stmts := parseBody(t, "let xs: int[8];")
	let := stmts[0].(*ast.LetStmt)
	if let.Type.Name != "int" || let.Type.ArrayLen != 8 {
		t.Fatalf("expected int[8], got %s", let.Type)
	}
}

func TestAssignStatements(t *testing.T) {
	stmts := parseBody(t, "let x = 1; let xs: int[2]; x = 2; xs[0] = x;")
	if len(stmts) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(stmts))
	}

	simple, ok := stmts[2].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected *ast.AssignStmt, got %T", stmts[2])
	}
	if _, ok := simple.Target.(*ast.Identifier); !ok {
		t.Errorf("expected identifier target, got %T", simple.Target)
	}

	indexed := stmts[3].(*ast.AssignStmt)
	if _, ok := indexed.Target.(*ast.IndexExpr); !ok {
		t.Errorf("expected index target, got %T", indexed.Target)
	}
}

func TestIfElseChain(t *testing.T) {
	stmts := parseBody(t, `
if a < 1 {
	b = 1;
} else if a < 2 {
	b = 2;
} else {
	b = 3;
}`)
	ifStmt, ok := stmts[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected *ast.IfStmt, got %T", stmts[0])
	}
	if ifStmt.Alternative == nil || len(ifStmt.Alternative.Statements) != 1 {
		t.Fatalf("expected else-if wrapped in a single-statement block")
	}
	nested, ok := ifStmt.Alternative.Statements[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected nested *ast.IfStmt, got %T", ifStmt.Alternative.Statements[0])
	}
	if nested.Alternative == nil {
		t.Errorf("expected final else block on the nested if")
	}
}

func TestWhileStatement(t *testing.T) {
	stmts := parseBody(t, "while i < 10 { i = i + 1; }")
	while, ok := stmts[0].(*ast.WhileStmt)
	if !ok {
		t.Fatalf("expected *ast.WhileStmt, got %T", stmts[0])
	}
	if _, ok := while.Condition.(*ast.BinaryExpr); !ok {
		t.Errorf("expected binary condition, got %T", while.Condition)
	}
	if len(while.Body.Statements) != 1 {
		t.Errorf("expected 1 body statement, got %d", len(while.Body.Statements))
	}
}

func TestReturnStatements(t *testing.T) {
	program := parse(t, `
fn a() { return; }
fn main(): int { return 1 + 2; }
`)
	bare := program.Functions[0].Body.Statements[0].(*ast.ReturnStmt)
	if bare.Value != nil {
		t.Errorf("expected bare return, got value %T", bare.Value)
	}
	valued := program.Functions[1].Body.Statements[0].(*ast.ReturnStmt)
	if _, ok := valued.Value.(*ast.BinaryExpr); !ok {
		t.Errorf("expected binary return value, got %T", valued.Value)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	// each case pairs an input expression with its fully parenthesized form
	cases := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"-a * b", "((-a) * b)"},
		{"!x == y", "((!x) == y)"},
		{"a + b < c * d", "((a + b) < (c * d))"},
		{"a < b == c > d", "((a < b) == (c > d))"},
		{"a && b || c && d", "((a && b) || (c && d))"},
		{"a == b && c != d", "((a == b) && (c != d))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"a + f(b) * c", "(a + (f(b) * c))"},
		{"-xs[0] + 1", "((-xs[0]) + 1)"},
		{"a / b / c", "((a / b) / c)"},
	}
	for _, tc := range cases {
		stmts := parseBody(t, "x = "+tc.input+";")
		assign := stmts[len(stmts)-1].(*ast.AssignStmt)
		got := exprString(assign.Value)
		if got != tc.expected {
			t.Errorf("%q: expected %s, got %s", tc.input, tc.expected, got)
		}
	}
}

// exprString renders an expression fully parenthesized for precedence
// assertions.
func exprString(expr ast.Expression) string {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e.Value
	case *ast.IntLiteral:
		return e.Token.Lexeme
	case *ast.BoolLiteral:
		return e.Token.Lexeme
	case *ast.StringLiteral:
		return e.Token.Lexeme
	case *ast.UnaryExpr:
		return "(" + e.Operator + exprString(e.Right) + ")"
	case *ast.BinaryExpr:
		return "(" + exprString(e.Left) + " " + e.Operator + " " + exprString(e.Right) + ")"
	case *ast.LogicalExpr:
		return "(" + exprString(e.Left) + " " + e.Operator + " " + exprString(e.Right) + ")"
	case *ast.CallExpr:
		var args []string
		for _, arg := range e.Arguments {
			args = append(args, exprString(arg))
		}
		return e.Function.Value + "(" + strings.Join(args, ", ") + ")"
	case *ast.IndexExpr:
		return exprString(e.Left) + "[" + exprString(e.Index) + "]"
	case *ast.AddressOfExpr:
		return "(&" + exprString(e.Target) + ")"
	}
	return "?"
}

func TestLogicalVsBinaryNodes(t *testing.T) {
	stmts := parseBody(t, "x = a && b == c;")
	assign := stmts[0].(*ast.AssignStmt)
	logical, ok := assign.Value.(*ast.LogicalExpr)
	if !ok {
		t.Fatalf("expected *ast.LogicalExpr at the top, got %T", assign.Value)
	}
	if _, ok := logical.Right.(*ast.BinaryExpr); !ok {
		t.Errorf("expected *ast.BinaryExpr on the right, got %T", logical.Right)
	}
}

func TestAddressOf(t *testing.T) {
	stmts := parseBody(t, "x = &y; z = &xs[2];")
	first := stmts[0].(*ast.AssignStmt).Value.(*ast.AddressOfExpr)
	if _, ok := first.Target.(*ast.Identifier); !ok {
		t.Errorf("expected identifier target, got %T", first.Target)
	}
	second := stmts[1].(*ast.AssignStmt).Value.(*ast.AddressOfExpr)
	if _, ok := second.Target.(*ast.IndexExpr); !ok {
		t.Errorf("expected index target, got %T", second.Target)
	}
}

func TestCallArguments(t *testing.T) {
	stmts := parseBody(t, "f(); g(1); h(1, a + 2, \"s\");")
	counts := []int{0, 1, 3}
	for i, want := range counts {
		call := stmts[i].(*ast.ExprStmt).Expression.(*ast.CallExpr)
		if len(call.Arguments) != want {
			t.Errorf("call %d: expected %d arguments, got %d", i, want, len(call.Arguments))
		}
	}
}

func TestVmAsmBlock(t *testing.T) {
	stmts := parseBody(t, `
vm_asm {
	push_int 5;
	load_local x;
	add;
}`)
	block, ok := stmts[0].(*ast.VmAsmStmt)
	if !ok {
		t.Fatalf("expected *ast.VmAsmStmt, got %T", stmts[0])
	}
	expected := "push_int 5\nload_local x\nadd"
	if block.Code != expected {
		t.Errorf("expected code %q, got %q", expected, block.Code)
	}
}

func TestRawAsmStatement(t *testing.T) {
	stmts := parseBody(t, `asm "mov ax, 5";`)
	raw, ok := stmts[0].(*ast.RawAsmStmt)
	if !ok {
		t.Fatalf("expected *ast.RawAsmStmt, got %T", stmts[0])
	}
	if raw.Code != "mov ax, 5" {
		t.Errorf("expected raw payload, got %q", raw.Code)
	}
}

func TestNestedBlocks(t *testing.T) {
	stmts := parseBody(t, "{ let x = 1; { let y = 2; } }")
	outer, ok := stmts[0].(*ast.BlockStmt)
	if !ok {
		t.Fatalf("expected *ast.BlockStmt, got %T", stmts[0])
	}
	if len(outer.Statements) != 2 {
		t.Fatalf("expected 2 statements in the outer block, got %d", len(outer.Statements))
	}
	if _, ok := outer.Statements[1].(*ast.BlockStmt); !ok {
		t.Errorf("expected nested block, got %T", outer.Statements[1])
	}
}
