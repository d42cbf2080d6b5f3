package codegen8086_test

import (
	"strings"
	"testing"

	"github.com/quinlang/quin/internal/analyzer"
	"github.com/quinlang/quin/internal/codegen8086"
	"github.com/quinlang/quin/internal/diagnostics"
	"github.com/quinlang/quin/internal/lexer"
	"github.com/quinlang/quin/internal/parser"
	"github.com/quinlang/quin/internal/pipeline"
)

// generate runs the front end and the native backend, failing the test on
// any diagnostic.
func generate(t *testing.T, source string) string {
	t.Helper()
	asm, errs := generateWithErrors(t, source)
	if len(errs) > 0 {
		var msgs []string
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		t.Fatalf("codegen failed:\n%s", strings.Join(msgs, "\n"))
	}
	return asm
}

func generateWithErrors(t *testing.T, source string) (string, []*diagnostics.DiagnosticError) {
	t.Helper()
	ctx := &pipeline.PipelineContext{SourceCode: source}
	ctx = lexer.NewLexerProcessor().Process(ctx)
	ctx = parser.NewParserProcessor().Process(ctx)
	if ctx.HasErrors() {
		t.Fatalf("input does not parse: %s", ctx.Errors[0].Error())
	}
	info, errs := analyzer.Analyze(ctx.Program)
	if len(errs) > 0 {
		t.Fatalf("input does not analyze: %s", errs[0].Error())
	}
	return codegen8086.Generate(ctx.Program, info)
}

func expectLines(t *testing.T, asm string, wanted ...string) {
	t.Helper()
	for _, want := range wanted {
		if !strings.Contains(asm, want) {
			t.Errorf("assembly is missing %q\n%s", want, asm)
		}
	}
}

func TestFunctionFrame(t *testing.T) {
	asm := generate(t, `
fn f(a: int, b: int): int {
	let c = a;
	return c + b;
}
fn main(): int { return f(1, 2); }
`)
	expectLines(t, asm,
		"global f",
		"f:",
		"push bp",
		"mov bp, sp",
		"sub sp, 2",       // one local word
		"mov ax, [bp+6]",  // a: first param, deepest
		"mov ax, [bp-2]",  // c
		"mov sp, bp",
		"pop bp",
		"ret",
	)
}

func TestCallPushesArgsAndCleansUp(t *testing.T) {
	asm := generate(t, `
fn f(a: int, b: int): int { return a; }
fn main(): int { return f(1, 2); }
`)
	expectLines(t, asm, "push ax", "call f", "add sp, 4")
}

func TestStringsLandInDataSection(t *testing.T) {
	asm := generate(t, `
fn main(): int {
	println("hi");
	return 0;
}`)
	expectLines(t, asm,
		"section .text",
		"section .data",
		"str_0: db",
		"mov dx, ax",
		"call rt_print_str",
		"call rt_print_newline",
	)
}

func TestStringDeduplication(t *testing.T) {
	asm := generate(t, `
fn main(): int {
	print("dup");
	print("dup");
	return 0;
}`)
	if strings.Count(asm, "str_0: db") != 1 {
		t.Error("expected one data entry for the repeated literal")
	}
	if strings.Contains(asm, "str_1:") {
		t.Error("repeated literal allocated a second label")
	}
}

func TestArithmeticAndDivision(t *testing.T) {
	asm := generate(t, `
fn main(): int {
	let x = 10 / 3;
	return x * 2;
}`)
	// division moves the divisor out of AX before cwd/idiv
	expectLines(t, asm, "mov cx, ax", "cwd", "idiv cx", "imul bx")
}

func TestShortCircuitBranches(t *testing.T) {
	asm := generate(t, `
fn t(): bool { return true; }
fn main(): int {
	if t() && t() { return 1; }
	if t() || t() { return 2; }
	return 0;
}`)
	expectLines(t, asm, ".AND_FALSE_", ".AND_END_", ".OR_TRUE_", ".OR_END_")
}

func TestArrayAddressing(t *testing.T) {
	asm := generate(t, `
fn main(): int {
	let xs: int[4];
	xs[1] = 9;
	return xs[1];
}`)
	expectLines(t, asm, "mov si, ax", "shl si, 1")
	if !strings.Contains(asm, "mov [bp+si-") {
		t.Errorf("expected BP-relative indexed store\n%s", asm)
	}
}

func TestAddressOfAndLoad16(t *testing.T) {
	asm := generate(t, `
fn main(): int {
	let x = 1;
	let p = &x;
	return load16(p);
}`)
	expectLines(t, asm, "lea ax, [bp-", "mov bx, ax", "mov ax, [bx]")
}

func TestConstantTimeHelpersAreBranchFree(t *testing.T) {
	asm := generate(t, `
fn main(): int {
	print(ct_eq(1, 2));
	return ct_select(1, 10, 20);
}`)
	// mask widening and masked merge, with no conditional jumps in the
	// select itself
	expectLines(t, asm, "sbb ax, ax", "not bx", "or ax, dx", "xor al, 1")
	for _, line := range strings.Split(asm, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "je ") || strings.HasPrefix(trimmed, "jne ") {
			t.Errorf("unexpected conditional jump in constant-time code: %s", trimmed)
		}
	}
}

func TestRawAsmSpliced(t *testing.T) {
	asm := generate(t, `
fn main(): int {
	asm "int 0x21";
	return 0;
}`)
	expectLines(t, asm, "int 0x21")
}

func TestC003_VmAsmRejected(t *testing.T) {
	_, errs := generateWithErrors(t, `
fn main(): int {
	vm_asm { push_int 1; }
	return 0;
}`)
	if len(errs) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(errs))
	}
	if errs[0].Code != diagnostics.ErrC003 {
		t.Errorf("expected C003, got %s", errs[0].Code)
	}
}
