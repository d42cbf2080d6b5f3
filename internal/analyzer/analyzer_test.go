package analyzer_test

import (
	"strings"
	"testing"

	"github.com/quinlang/quin/internal/analyzer"
	"github.com/quinlang/quin/internal/diagnostics"
	"github.com/quinlang/quin/internal/lexer"
	"github.com/quinlang/quin/internal/parser"
	"github.com/quinlang/quin/internal/pipeline"
	"github.com/quinlang/quin/internal/typesystem"
)

// analyze runs the front end through the analyzer and returns the info and
// all diagnostics. The input must at least parse.
func analyze(t *testing.T, input string) (*analyzer.Info, []*diagnostics.DiagnosticError) {
	t.Helper()
	ctx := &pipeline.PipelineContext{SourceCode: input}
	ctx = lexer.NewLexerProcessor().Process(ctx)
	ctx = parser.NewParserProcessor().Process(ctx)
	if ctx.HasErrors() {
		t.Fatalf("input does not parse: %s", ctx.Errors[0].Error())
	}
	return analyzer.Analyze(ctx.Program)
}

func expectOK(t *testing.T, input string) *analyzer.Info {
	t.Helper()
	info, errs := analyze(t, input)
	if len(errs) > 0 {
		var msgs []string
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		t.Fatalf("expected no errors, got:\n%s", strings.Join(msgs, "\n"))
	}
	return info
}

func expectError(t *testing.T, input string, code diagnostics.ErrorCode) *diagnostics.DiagnosticError {
	t.Helper()
	_, errs := analyze(t, input)
	if len(errs) == 0 {
		t.Fatalf("expected error %s, but got none\ninput: %s", code, input)
	}
	for _, e := range errs {
		if e.Code == code {
			return e
		}
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	t.Fatalf("expected error %s, got:\n%s\ninput: %s", code, strings.Join(msgs, "\n"), input)
	return nil
}

func inMain(body string) string {
	return "fn main(): int {\n" + body + "\nreturn 0;\n}"
}

// ---------------------------------------------------------------------------
// Signatures and layout
// ---------------------------------------------------------------------------

func TestSignatureCollection(t *testing.T) {
	info := expectOK(t, `
fn add(a: int, b: int): int { return a + b; }
fn main(): int { return add(1, 2); }
`)
	sig := info.Functions["add"]
	if sig == nil {
		t.Fatal("missing signature for add")
	}
	if len(sig.Params) != 2 || !sig.Params[0].Equals(typesystem.Int) {
		t.Errorf("unexpected params: %v", sig.Params)
	}
	if !sig.Return.Equals(typesystem.Int) {
		t.Errorf("expected int return, got %s", sig.Return)
	}
	if got := info.FuncOrder; len(got) != 2 || got[0] != "add" || got[1] != "main" {
		t.Errorf("unexpected function order: %v", got)
	}
}

func TestForwardAndMutualCalls(t *testing.T) {
	expectOK(t, `
fn even(n: int): bool {
	if n == 0 { return true; }
	return odd(n - 1);
}
fn odd(n: int): bool {
	if n == 0 { return false; }
	return even(n - 1);
}
fn main(): int {
	if even(10) { return 0; }
	return 1;
}
`)
}

func TestSlotLayout(t *testing.T) {
	info := expectOK(t, `
fn f(a: int, b: int): int {
	let c = a;
	let xs: int[4];
	let d = b;
	xs[0] = d;
	return c;
}
fn main(): int { return f(1, 2); }
`)
	// params a,b in slots 0,1; c in 2; xs takes 4 words from 3; d in 7
	if got := info.NumSlots["f"]; got != 8 {
		t.Errorf("expected 8 slots for f, got %d", got)
	}
	if got := info.NumSlots["main"]; got != 0 {
		t.Errorf("expected 0 slots for main, got %d", got)
	}
}

func TestVoidReturnDefault(t *testing.T) {
	info := expectOK(t, `
fn ping() { println(1); }
fn main(): int { ping(); return 0; }
`)
	if !info.Functions["ping"].Return.Equals(typesystem.Void) {
		t.Errorf("expected void return, got %s", info.Functions["ping"].Return)
	}
}

// ---------------------------------------------------------------------------
// A001, A002, A003: names
// ---------------------------------------------------------------------------

func TestA001_UndeclaredIdentifier(t *testing.T) {
	expectError(t, inMain("let x = y;"), diagnostics.ErrA001)
}

func TestA001_UndeclaredFunction(t *testing.T) {
	expectError(t, inMain("nope();"), diagnostics.ErrA001)
}

func TestA001_OutOfScopeAfterBlock(t *testing.T) {
	expectError(t, inMain("{ let x = 1; } let y = x;"), diagnostics.ErrA001)
}

func TestA002_Redeclaration(t *testing.T) {
	expectError(t, inMain("let x = 1; let x = 2;"), diagnostics.ErrA002)
}

func TestA002_DuplicateParam(t *testing.T) {
	expectError(t, "fn f(a: int, a: int): int { return 0; } fn main(): int { return 0; }",
		diagnostics.ErrA002)
}

func TestShadowingInInnerScope(t *testing.T) {
	expectOK(t, inMain("let x = 1; { let x = true; if x { } }"))
}

func TestA003_FunctionRedefinition(t *testing.T) {
	expectError(t, `
fn f(): int { return 1; }
fn f(): int { return 2; }
fn main(): int { return 0; }
`, diagnostics.ErrA003)
}

func TestA003_RedefiningBuiltin(t *testing.T) {
	expectError(t, `
fn println(x: int) { }
fn main(): int { return 0; }
`, diagnostics.ErrA003)
}

// ---------------------------------------------------------------------------
// A004: type mismatches
// ---------------------------------------------------------------------------

func TestA004_Mismatches(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"init", "let x: int = true;"},
		{"assign", "let x = 1; x = true;"},
		{"arith_on_bool", "let x = true + 1;"},
		{"compare_mixed", "let x = 1 == true;"},
		{"relational_bool", "let x = true < false;"},
		{"logical_int", "let x = 1 && 2;"},
		{"not_on_int", "let x = !1;"},
		{"neg_on_bool", "let x = -true;"},
		{"if_condition", "if 1 { }"},
		{"while_condition", "while 0 { }"},
		{"array_as_value", "let xs: int[2]; let ys = xs;"},
		{"array_assign_whole", "let xs: int[2]; let ys: int[2]; xs = ys;"},
		{"array_element_bool", "let xs: int[2]; xs[0] = true;"},
		{"void_variable", "let v: void;"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectError(t, inMain(tc.input), diagnostics.ErrA004)
		})
	}
}

func TestA004_ReturnMismatch(t *testing.T) {
	expectError(t, "fn f(): int { return true; } fn main(): int { return 0; }",
		diagnostics.ErrA004)
}

func TestA004_ReturnValueFromVoid(t *testing.T) {
	expectError(t, "fn f() { return 1; } fn main(): int { return 0; }",
		diagnostics.ErrA004)
}

func TestA004_BareReturnFromValued(t *testing.T) {
	expectError(t, "fn f(): int { return; } fn main(): int { return 0; }",
		diagnostics.ErrA004)
}

func TestA004_ArrayParam(t *testing.T) {
	expectError(t, "fn f(xs: int[4]) { } fn main(): int { return 0; }",
		diagnostics.ErrA004)
}

func TestA004_ArgumentType(t *testing.T) {
	expectError(t, `
fn f(a: int): int { return a; }
fn main(): int { return f(true); }
`, diagnostics.ErrA004)
}

// ---------------------------------------------------------------------------
// A005..A008
// ---------------------------------------------------------------------------

func TestA005_ArityMismatch(t *testing.T) {
	expectError(t, `
fn f(a: int): int { return a; }
fn main(): int { return f(1, 2); }
`, diagnostics.ErrA005)
}

func TestA006_IndexingNonIndexable(t *testing.T) {
	expectError(t, inMain("let x = 1; let y = x[0];"), diagnostics.ErrA006)
}

func TestIndexingPointerIsAllowed(t *testing.T) {
	expectOK(t, inMain("let x = 1; let p = &x; let y = p[0];"))
}

func TestA007_AddressOfExpression(t *testing.T) {
	expectError(t, inMain("let p = &(1 + 2);"), diagnostics.ErrA007)
}

func TestA008_CallingLocal(t *testing.T) {
	expectError(t, inMain("let f = 1; f();"), diagnostics.ErrA008)
}

func TestLocalShadowingBuiltinStaysCallable(t *testing.T) {
	// a local named like a builtin does not hide the builtin; builtins
	// are resolved first
	expectOK(t, inMain("let println = 1; println(println);"))
}

// ---------------------------------------------------------------------------
// A009: missing return
// ---------------------------------------------------------------------------

func TestA009_MissingReturn(t *testing.T) {
	expectError(t, "fn f(): int { let x = 1; } fn main(): int { return 0; }",
		diagnostics.ErrA009)
}

func TestA009_IfWithoutElse(t *testing.T) {
	expectError(t, `
fn f(a: bool): int {
	if a { return 1; }
}
fn main(): int { return 0; }
`, diagnostics.ErrA009)
}

func TestReturnInBothBranches(t *testing.T) {
	expectOK(t, `
fn f(a: bool): int {
	if a { return 1; } else { return 2; }
}
fn main(): int { return 0; }
`)
}

func TestWhileDoesNotCountAsReturn(t *testing.T) {
	expectError(t, `
fn f(): int {
	while true { return 1; }
}
fn main(): int { return 0; }
`, diagnostics.ErrA009)
}

// ---------------------------------------------------------------------------
// A010: intrinsics
// ---------------------------------------------------------------------------

func TestA010_Intrinsics(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"print_arity", "print(1, 2);"},
		{"print_ptr", "let x = 1; print(&x);"},
		{"load16_arity", "let x = load16();"},
		{"load16_int_arg", "let x = load16(1);"},
		{"store16_value_bool", "let x = 1; store16(&x, true);"},
		{"memcpy_arity", "let x = 1; memcpy(&x, &x);"},
		{"array_push_non_array", "let x = 1; let n = array_push(x, 0, 5);"},
		{"ct_eq_bool", "let b = ct_eq(true, false);"},
		{"ct_select_arity", "let v = ct_select(1, 2);"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectError(t, inMain(tc.input), diagnostics.ErrA010)
		})
	}
}

func TestIntrinsicTypes(t *testing.T) {
	expectOK(t, inMain(`
	let x = 1;
	let v = load16(&x);
	let b = ct_eq(v, 1);
	let s = ct_select(1, 2, 3);
	let xs: int[4];
	let n = array_push(xs, 0, 5);
	let m = array_pop(xs, n);
	println(b);
	println(s + m);`))
}

// ---------------------------------------------------------------------------
// A011..A014
// ---------------------------------------------------------------------------

func TestA011_MissingMain(t *testing.T) {
	expectError(t, "fn helper(): int { return 0; }", diagnostics.ErrA011)
}

func TestA012_BadMainSignature(t *testing.T) {
	expectError(t, "fn main(a: int): int { return a; }", diagnostics.ErrA012)
	expectError(t, "fn main() { }", diagnostics.ErrA012)
}

func TestBadInitializerDoesNotCascade(t *testing.T) {
	// the undeclared call is the only diagnostic; the let itself must not
	// add a second one
	_, errs := analyze(t, inMain("let x = nope();"))
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 diagnostic, got %d", len(errs))
	}
	if errs[0].Code != diagnostics.ErrA001 {
		t.Errorf("expected A001, got %s", errs[0].Code)
	}
}

func TestA014_VoidValueUse(t *testing.T) {
	expectError(t, inMain("let x = println(1);"), diagnostics.ErrA014)
	expectError(t, inMain("let y = 1; let x = 1 + store16(&y, 2);"), diagnostics.ErrA014)
}

// ---------------------------------------------------------------------------
// Multiple independent errors
// ---------------------------------------------------------------------------

func TestIndependentErrorsAcrossFunctions(t *testing.T) {
	_, errs := analyze(t, `
fn f(): int { return true; }
fn g(): int { return missing; }
fn main(): int { return 0; }
`)
	if len(errs) < 2 {
		t.Fatalf("expected at least 2 diagnostics, got %d", len(errs))
	}
	seen := map[diagnostics.ErrorCode]bool{}
	for _, e := range errs {
		seen[e.Code] = true
	}
	if !seen[diagnostics.ErrA004] || !seen[diagnostics.ErrA001] {
		t.Errorf("expected both A004 and A001, got %v", seen)
	}
}

// ---------------------------------------------------------------------------
// Decoration
// ---------------------------------------------------------------------------

func TestTypeMapDecoration(t *testing.T) {
	ctx := &pipeline.PipelineContext{SourceCode: inMain("let x = 1 < 2;")}
	ctx = lexer.NewLexerProcessor().Process(ctx)
	ctx = parser.NewParserProcessor().Process(ctx)
	info, errs := analyzer.Analyze(ctx.Program)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs[0])
	}
	found := false
	for _, typ := range info.TypeMap {
		if typ.Equals(typesystem.Bool) {
			found = true
		}
	}
	if !found {
		t.Error("expected a bool-typed expression in the type map")
	}
}

func TestVmAsmVisibleNames(t *testing.T) {
	ctx := &pipeline.PipelineContext{SourceCode: `
fn main(): int {
	let x = 1;
	{
		let y = 2;
		vm_asm { load_local x; load_local y; add; store_local x; }
	}
	return x;
}`}
	ctx = lexer.NewLexerProcessor().Process(ctx)
	ctx = parser.NewParserProcessor().Process(ctx)
	info, errs := analyzer.Analyze(ctx.Program)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs[0])
	}
	if len(info.VmAsmVars) != 1 {
		t.Fatalf("expected 1 vm_asm snapshot, got %d", len(info.VmAsmVars))
	}
	for _, vars := range info.VmAsmVars {
		if vars["x"] == nil || vars["y"] == nil {
			t.Errorf("expected both x and y visible, got %v", vars)
		}
	}
}
