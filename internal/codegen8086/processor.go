package codegen8086

import (
	"github.com/quinlang/quin/internal/analyzer"
	"github.com/quinlang/quin/internal/pipeline"
)

// GeneratorProcessor is the native codegen stage; it replaces the VM
// bytecode stage when the 8086 backend is selected.
type GeneratorProcessor struct{}

func NewGeneratorProcessor() *GeneratorProcessor {
	return &GeneratorProcessor{}
}

func (gp *GeneratorProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	info, ok := ctx.Analysis.(*analyzer.Info)
	if !ok || ctx.Program == nil || ctx.HasErrors() {
		return ctx
	}

	asm, errs := Generate(ctx.Program, info)
	for _, err := range errs {
		if err.File == "" {
			err.File = ctx.FilePath
		}
		ctx.Errors = append(ctx.Errors, err)
	}
	ctx.Asm = asm
	return ctx
}
