package analyzer

import (
	"github.com/quinlang/quin/internal/pipeline"
)

// AnalyzerProcessor is the semantic analysis stage of the compile
// pipeline. It bails out when earlier stages failed: no partial program
// is analyzed.
type AnalyzerProcessor struct{}

func NewAnalyzerProcessor() *AnalyzerProcessor {
	return &AnalyzerProcessor{}
}

func (ap *AnalyzerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Program == nil || ctx.HasErrors() {
		return ctx
	}

	info, errs := Analyze(ctx.Program)
	for _, err := range errs {
		if err.File == "" {
			err.File = ctx.FilePath
		}
		ctx.Errors = append(ctx.Errors, err)
	}
	ctx.Analysis = info
	return ctx
}
