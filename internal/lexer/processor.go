package lexer

import (
	"fmt"

	"github.com/quinlang/quin/internal/diagnostics"
	"github.com/quinlang/quin/internal/pipeline"
	"github.com/quinlang/quin/internal/token"
)

// LexerProcessor is the tokenization stage of the compile pipeline.
type LexerProcessor struct{}

func NewLexerProcessor() *LexerProcessor {
	return &LexerProcessor{}
}

func (p *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	toks := Tokenize(ctx.SourceCode)
	ctx.Tokens = toks

	for _, tok := range toks {
		if tok.Type != token.ILLEGAL {
			continue
		}
		switch {
		case len(tok.Lexeme) > 0 && tok.Lexeme[0] == '"':
			if terminated(tok.Lexeme) {
				ctx.Errors = append(ctx.Errors, diagnostics.NewError(
					diagnostics.ErrL002, tok,
					fmt.Sprintf("invalid escape sequence in string literal %s", tok.Lexeme)))
			} else {
				ctx.Errors = append(ctx.Errors, diagnostics.NewError(
					diagnostics.ErrL003, tok,
					"unterminated string literal"))
			}
		default:
			ctx.Errors = append(ctx.Errors, diagnostics.NewError(
				diagnostics.ErrL001, tok,
				fmt.Sprintf("unexpected character %q", tok.Lexeme)))
		}
	}
	return ctx
}

// terminated distinguishes a string rejected for a bad escape from one
// rejected for a missing closing quote. The lexer only flags a bad escape
// after scanning to the closing quote, so a terminated ILLEGAL string
// always means a bad escape.
func terminated(lexeme string) bool {
	return len(lexeme) >= 2 && lexeme[len(lexeme)-1] == '"'
}
