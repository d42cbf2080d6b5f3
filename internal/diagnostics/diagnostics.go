// Package diagnostics defines the structured error values every compiler
// stage reports. A DiagnosticError carries a stable code, the offending
// token's position, and a human-readable message; hosts render them
// without needing stage-specific knowledge.
package diagnostics

import (
	"fmt"

	"github.com/quinlang/quin/internal/token"
)

type ErrorCode string

const (
	// Lexer
	ErrL001 ErrorCode = "L001" // unexpected character
	ErrL002 ErrorCode = "L002" // invalid escape sequence in string literal
	ErrL003 ErrorCode = "L003" // unterminated string literal

	// Parser
	ErrP001 ErrorCode = "P001" // expected token
	ErrP002 ErrorCode = "P002" // expected expression
	ErrP003 ErrorCode = "P003" // bad array size
	ErrP004 ErrorCode = "P004" // illegal token in input
	ErrP005 ErrorCode = "P005" // expected type name
	ErrP006 ErrorCode = "P006" // malformed construct

	// Semantic analysis
	ErrA001 ErrorCode = "A001" // undeclared identifier
	ErrA002 ErrorCode = "A002" // redeclaration in scope
	ErrA003 ErrorCode = "A003" // function redefinition
	ErrA004 ErrorCode = "A004" // type mismatch
	ErrA005 ErrorCode = "A005" // arity mismatch
	ErrA006 ErrorCode = "A006" // indexing non-array/non-pointer
	ErrA007 ErrorCode = "A007" // address-of non-lvalue
	ErrA008 ErrorCode = "A008" // calling a non-function
	ErrA009 ErrorCode = "A009" // missing return on a required path
	ErrA010 ErrorCode = "A010" // wrong intrinsic use
	ErrA011 ErrorCode = "A011" // missing main
	ErrA012 ErrorCode = "A012" // bad main signature
	ErrA013 ErrorCode = "A013" // cannot infer type without initializer
	ErrA014 ErrorCode = "A014" // void value used

	// Code generation
	ErrC001 ErrorCode = "C001" // unknown vm_asm mnemonic
	ErrC002 ErrorCode = "C002" // unknown local name in vm_asm
	ErrC003 ErrorCode = "C003" // backend mismatch
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// DiagnosticError is one positioned compiler diagnostic.
type DiagnosticError struct {
	Code     ErrorCode
	Token    token.Token
	File     string
	Message  string
	Severity Severity
}

func NewError(code ErrorCode, tok token.Token, message string) *DiagnosticError {
	return &DiagnosticError{
		Code:     code,
		Token:    tok,
		Message:  message,
		Severity: SeverityError,
	}
}

// Stage names the pipeline stage that produced the diagnostic, derived
// from the code prefix.
func (e *DiagnosticError) Stage() string {
	if len(e.Code) == 0 {
		return "unknown"
	}
	switch e.Code[0] {
	case 'L':
		return "lexer"
	case 'P':
		return "parser"
	case 'A':
		return "sema"
	case 'C':
		return "codegen"
	}
	return "unknown"
}

func (e *DiagnosticError) Line() int   { return e.Token.Line }
func (e *DiagnosticError) Column() int { return e.Token.Column }

func (e *DiagnosticError) Error() string {
	file := e.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d: %s [%s] %s",
		file, e.Line(), e.Column(), e.Severity, e.Code, e.Message)
}

// HasErrors reports whether any diagnostic in the list has error severity.
func HasErrors(errs []*DiagnosticError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}
