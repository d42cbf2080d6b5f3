// Package quin is the host contract for the QuinLang compiler and VM:
// compile source text to a bytecode program, execute it with an output
// callback and a cancellation context, and get back diagnostics or a run
// result as plain data. Hosts (editors, terminals, test harnesses) need
// nothing below this package.
package quin

import (
	"context"

	"github.com/google/uuid"

	"github.com/quinlang/quin/internal/analyzer"
	"github.com/quinlang/quin/internal/backend"
	"github.com/quinlang/quin/internal/lexer"
	"github.com/quinlang/quin/internal/parser"
	"github.com/quinlang/quin/internal/pipeline"
	"github.com/quinlang/quin/internal/vm"
)

// Diagnostic is one compile-time problem, rendered as data so any host
// can present it.
type Diagnostic struct {
	Stage    string // lexer, parser, sema, codegen
	Code     string
	Message  string
	Line     int
	Column   int
	Severity string
}

// RunResult is the outcome of one Execute call. RunID correlates the
// run's output and result in host logs.
type RunResult struct {
	RunID    string
	State    vm.RunState
	ExitCode int
	Fault    *vm.Fault
}

func runPipeline(source string, gen pipeline.Processor) *pipeline.PipelineContext {
	ctx := &pipeline.PipelineContext{FilePath: "<input>", SourceCode: source}
	return pipeline.New(
		lexer.NewLexerProcessor(),
		parser.NewParserProcessor(),
		analyzer.NewAnalyzerProcessor(),
		gen,
	).Run(ctx)
}

func diagnosticsOf(ctx *pipeline.PipelineContext) []Diagnostic {
	if len(ctx.Errors) == 0 {
		return nil
	}
	diags := make([]Diagnostic, 0, len(ctx.Errors))
	for _, err := range ctx.Errors {
		diags = append(diags, Diagnostic{
			Stage:    err.Stage(),
			Code:     string(err.Code),
			Message:  err.Message,
			Line:     err.Line(),
			Column:   err.Column(),
			Severity: err.Severity.String(),
		})
	}
	return diags
}

// Compile runs the full pipeline on one compilation unit. On any
// error-severity diagnostic the program is nil and nothing may run.
func Compile(source string) (*vm.Program, []Diagnostic) {
	gen, _ := backend.Processor(backend.KindVM)
	ctx := runPipeline(source, gen)
	if ctx.HasErrors() {
		return nil, diagnosticsOf(ctx)
	}
	prog, _ := ctx.Bytecode.(*vm.Program)
	return prog, diagnosticsOf(ctx)
}

// GenerateAsm compiles for the native 8086 text backend and returns the
// assembly source.
func GenerateAsm(source string) (string, []Diagnostic) {
	gen, _ := backend.Processor(backend.Kind8086)
	ctx := runPipeline(source, gen)
	if ctx.HasErrors() {
		return "", diagnosticsOf(ctx)
	}
	return ctx.Asm, diagnosticsOf(ctx)
}

// Execute runs a compiled program on a fresh VM. onOutput is invoked
// synchronously on the executing goroutine, once per complete print
// operation; cancelling ctx stops the run with a Cancelled result rather
// than a fault.
func Execute(ctx context.Context, prog *vm.Program, onOutput func(string), opts ...vm.Option) RunResult {
	opts = append(opts, vm.WithOutput(onOutput))
	res := vm.New(prog, opts...).Run(ctx)
	return RunResult{
		RunID:    uuid.NewString(),
		State:    res.State,
		ExitCode: res.ExitCode,
		Fault:    res.Fault,
	}
}
