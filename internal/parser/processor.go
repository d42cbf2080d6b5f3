package parser

import (
	"github.com/quinlang/quin/internal/pipeline"
)

// ParserProcessor is the parse stage of the compile pipeline.
type ParserProcessor struct{}

func NewParserProcessor() *ParserProcessor {
	return &ParserProcessor{}
}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	parser := New(ctx.Tokens, ctx)
	ctx.Program = parser.ParseProgram()
	ctx.Program.File = ctx.FilePath

	for _, err := range ctx.Errors {
		if err.File == "" {
			err.File = ctx.FilePath
		}
	}
	return ctx
}
