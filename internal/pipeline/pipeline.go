// Package pipeline wires the compiler stages together. Each stage is a
// Processor that reads and extends a shared PipelineContext; stages run in
// order and later stages observe earlier failures through ctx.Errors.
package pipeline

import (
	"github.com/quinlang/quin/internal/ast"
	"github.com/quinlang/quin/internal/diagnostics"
	"github.com/quinlang/quin/internal/token"
)

// PipelineContext carries one compilation unit through the stages.
type PipelineContext struct {
	FilePath   string
	SourceCode string

	Tokens  []token.Token
	Program *ast.Program

	// Analysis holds the analyzer's decoration result (*analyzer.Info).
	// Typed as any to keep this package below the analyzer in the
	// dependency order.
	Analysis any

	// Bytecode holds the generated program (*vm.Program).
	Bytecode any

	// Asm holds the native backend's assembly text when that backend runs.
	Asm string

	Errors []*diagnostics.DiagnosticError
}

// HasErrors reports whether any stage produced an error-severity diagnostic.
func (ctx *PipelineContext) HasErrors() bool {
	return diagnostics.HasErrors(ctx.Errors)
}

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. Stages keep running after errors so one call
// collects diagnostics from every stage that can still make progress;
// stages that need a valid artifact from an earlier stage bail out on
// their own.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
	}
	return ctx
}
