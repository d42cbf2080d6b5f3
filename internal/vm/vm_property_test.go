package vm_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/quinlang/quin/internal/analyzer"
	"github.com/quinlang/quin/internal/lexer"
	"github.com/quinlang/quin/internal/parser"
	"github.com/quinlang/quin/internal/pipeline"
	"github.com/quinlang/quin/internal/vm"
)

// execute compiles and runs generated source without a testing.T, for use
// inside property closures.
func execute(source string) (string, vm.Result, error) {
	ctx := &pipeline.PipelineContext{SourceCode: source}
	ctx = lexer.NewLexerProcessor().Process(ctx)
	ctx = parser.NewParserProcessor().Process(ctx)
	ctx = analyzer.NewAnalyzerProcessor().Process(ctx)
	ctx = vm.NewCompilerProcessor().Process(ctx)
	if ctx.HasErrors() {
		return "", vm.Result{}, fmt.Errorf("compile: %s", ctx.Errors[0].Error())
	}
	prog := ctx.Bytecode.(*vm.Program)

	var sb strings.Builder
	res := vm.New(prog, vm.WithOutput(func(text string) { sb.WriteString(text) })).Run(context.Background())
	return sb.String(), res, nil
}

func propParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	return parameters
}

func TestPropertyStoreLoadRoundtrip(t *testing.T) {
	properties := gopter.NewProperties(propParameters())

	properties.Property("load16 after store16 returns the stored word", prop.ForAll(
		func(v uint16) bool {
			source := fmt.Sprintf(`
fn main(): int {
	let x = 0;
	store16(&x, %d);
	println(load16(&x));
	return 0;
}`, v)
			output, res, err := execute(source)
			if err != nil || res.State != vm.StateExited {
				return false
			}
			return output == fmt.Sprintf("%d\n", v)
		},
		gen.UInt16(),
	))

	properties.TestingRun(t)
}

func TestPropertyArithmeticWraps(t *testing.T) {
	properties := gopter.NewProperties(propParameters())

	properties.Property("addition wraps modulo 2^16", prop.ForAll(
		func(a, b uint16) bool {
			source := fmt.Sprintf("fn main(): int { println(%d + %d); return 0; }", a, b)
			output, res, err := execute(source)
			if err != nil || res.State != vm.StateExited {
				return false
			}
			return output == fmt.Sprintf("%d\n", a+b)
		},
		gen.UInt16(), gen.UInt16(),
	))

	properties.Property("subtraction wraps modulo 2^16", prop.ForAll(
		func(a, b uint16) bool {
			source := fmt.Sprintf("fn main(): int { println(%d - %d); return 0; }", a, b)
			output, res, err := execute(source)
			if err != nil || res.State != vm.StateExited {
				return false
			}
			return output == fmt.Sprintf("%d\n", a-b)
		},
		gen.UInt16(), gen.UInt16(),
	))

	properties.TestingRun(t)
}

func TestPropertyShortCircuit(t *testing.T) {
	properties := gopter.NewProperties(propParameters())

	properties.Property("right operand of && runs only when the left is true", prop.ForAll(
		func(left bool) bool {
			source := fmt.Sprintf(`
fn noise(): bool { println(7); return true; }
fn main(): int {
	let r = %t && noise();
	println(r);
	return 0;
}`, left)
			output, res, err := execute(source)
			if err != nil || res.State != vm.StateExited {
				return false
			}
			if left {
				return output == "7\ntrue\n"
			}
			return output == "false\n"
		},
		gen.Bool(),
	))

	properties.Property("right operand of || runs only when the left is false", prop.ForAll(
		func(left bool) bool {
			source := fmt.Sprintf(`
fn noise(): bool { println(7); return false; }
fn main(): int {
	let r = %t || noise();
	println(r);
	return 0;
}`, left)
			output, res, err := execute(source)
			if err != nil || res.State != vm.StateExited {
				return false
			}
			if left {
				return output == "true\n"
			}
			return output == "7\nfalse\n"
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestPropertyBoundsLaw(t *testing.T) {
	properties := gopter.NewProperties(propParameters())

	properties.Property("push within capacity then pop returns the value", prop.ForAll(
		func(v uint16, fill int) bool {
			// fill is how many elements are already in a capacity-8 array
			source := fmt.Sprintf(`
fn main(): int {
	let arr: int[8];
	let n = %d;
	n = array_push(arr, n, %d);
	println(array_pop(arr, n));
	return 0;
}`, fill, v)
			output, res, err := execute(source)
			if err != nil || res.State != vm.StateExited {
				return false
			}
			return output == fmt.Sprintf("%d\n", v)
		},
		gen.UInt16(),
		gen.IntRange(0, 7),
	))

	properties.Property("push past capacity always faults OutOfBounds", prop.ForAll(
		func(v uint16) bool {
			source := fmt.Sprintf(`
fn main(): int {
	let arr: int[4];
	let n = array_push(arr, 4, %d);
	return n;
}`, v)
			_, res, err := execute(source)
			if err != nil {
				return false
			}
			return res.State == vm.StateFaulted && res.Fault.Kind == vm.FaultOutOfBounds
		},
		gen.UInt16(),
	))

	properties.TestingRun(t)
}

func TestPropertyMemsetFill(t *testing.T) {
	properties := gopter.NewProperties(propParameters())

	properties.Property("every word in a memset range reads back as value*257", prop.ForAll(
		func(value uint8, words int) bool {
			// filling 2*words bytes with v makes each 16-bit word v|v<<8
			source := fmt.Sprintf(`
fn main(): int {
	let arr: int[6];
	memset(&arr[0], %d, %d);
	let i = 0;
	while i < %d {
		println(arr[i]);
		i = i + 1;
	}
	return 0;
}`, value, 2*words, words)
			output, res, err := execute(source)
			if err != nil || res.State != vm.StateExited {
				return false
			}
			expected := strings.Repeat(fmt.Sprintf("%d\n", uint16(value)*257), words)
			return output == expected
		},
		gen.UInt8(),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}

func TestPropertyConstantTimeSelect(t *testing.T) {
	properties := gopter.NewProperties(propParameters())

	properties.Property("ct_select(mask, x, y) picks x when mask is 1, y when 0", prop.ForAll(
		func(mask bool, x, y uint16) bool {
			m := 0
			if mask {
				m = 1
			}
			source := fmt.Sprintf("fn main(): int { println(ct_select(%d, %d, %d)); return 0; }", m, x, y)
			output, res, err := execute(source)
			if err != nil || res.State != vm.StateExited {
				return false
			}
			expected := y
			if mask {
				expected = x
			}
			return output == fmt.Sprintf("%d\n", expected)
		},
		gen.Bool(), gen.UInt16(), gen.UInt16(),
	))

	properties.Property("ct_eq agrees with ==", prop.ForAll(
		func(a, b uint16) bool {
			source := fmt.Sprintf("fn main(): int { println(ct_eq(%d, %d)); return 0; }", a, b)
			output, res, err := execute(source)
			if err != nil || res.State != vm.StateExited {
				return false
			}
			return output == fmt.Sprintf("%t\n", a == b)
		},
		gen.UInt16(), gen.UInt16(),
	))

	properties.TestingRun(t)
}
