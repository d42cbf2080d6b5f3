// Package token defines the lexical token kinds shared by the lexer and
// the parser.
package token

type TokenType string

// Token is one lexical unit with its source position. Literal carries the
// decoded value for NUMBER (int64) and STRING (string with escapes
// applied); Lexeme is always the raw source text.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Column  int
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	// Identifiers and literals
	IDENT  = "IDENT"
	NUMBER = "NUMBER"
	STRING = "STRING"

	// Operators
	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	BANG     = "!"
	AMP      = "&"

	EQ     = "=="
	NOT_EQ = "!="
	LT     = "<"
	LTE    = "<="
	GT     = ">"
	GTE    = ">="

	AND = "&&"
	OR  = "||"

	// Delimiters
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"

	// Keywords
	FN     = "FN"
	LET    = "LET"
	IF     = "IF"
	ELSE   = "ELSE"
	WHILE  = "WHILE"
	RETURN = "RETURN"
	TRUE   = "TRUE"
	FALSE  = "FALSE"
	INT    = "INT"
	BOOL   = "BOOL"
	STR    = "STR"
	PTR    = "PTR"
	VOID   = "VOID"
	VM_ASM = "VM_ASM"
	ASM    = "ASM"
)

var keywords = map[string]TokenType{
	"fn":     FN,
	"let":    LET,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"return": RETURN,
	"true":   TRUE,
	"false":  FALSE,
	"int":    INT,
	"bool":   BOOL,
	"str":    STR,
	"ptr":    PTR,
	"void":   VOID,
	"vm_asm": VM_ASM,
	"asm":    ASM,
}

// LookupIdent returns the keyword type for reserved words, IDENT otherwise.
// Intrinsic names (print, memcpy, ...) deliberately lex as IDENT; the
// analyzer special-cases them.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
