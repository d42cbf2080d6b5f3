package vm

import (
	"github.com/quinlang/quin/internal/analyzer"
	"github.com/quinlang/quin/internal/pipeline"
)

// CompilerProcessor is the bytecode generation stage of the compile
// pipeline. It only runs on a fully analyzed, error-free program.
type CompilerProcessor struct{}

func NewCompilerProcessor() *CompilerProcessor {
	return &CompilerProcessor{}
}

func (cp *CompilerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	info, ok := ctx.Analysis.(*analyzer.Info)
	if !ok || ctx.Program == nil || ctx.HasErrors() {
		return ctx
	}

	prog, errs := Compile(ctx.Program, info)
	for _, err := range errs {
		if err.File == "" {
			err.File = ctx.FilePath
		}
		ctx.Errors = append(ctx.Errors, err)
	}
	ctx.Bytecode = prog
	return ctx
}
