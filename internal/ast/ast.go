// Package ast defines the abstract syntax tree for one QuinLang
// compilation unit. The tree has strict ownership (no sharing, no cycles);
// every node carries its source position through its primary token. After
// successful analysis every Expression has an entry in the analyzer's type
// map and every Identifier a resolved *symbols.Symbol.
package ast

import (
	"github.com/quinlang/quin/internal/symbols"
	"github.com/quinlang/quin/internal/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	GetToken() token.Token
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node of every AST the parser produces: one
// compilation unit as a list of function declarations.
type Program struct {
	File      string
	Functions []*FunctionDecl
}

func (p *Program) TokenLiteral() string {
	if len(p.Functions) > 0 {
		return p.Functions[0].TokenLiteral()
	}
	return ""
}

func (p *Program) GetToken() token.Token {
	if p == nil || len(p.Functions) == 0 {
		return token.Token{}
	}
	return p.Functions[0].GetToken()
}

// TypeRef is an unresolved type name as written in the source, e.g.
// `int`, `ptr` or `int[8]`. The analyzer resolves it to a typesystem.Type.
type TypeRef struct {
	Token    token.Token
	Name     string // base name: int, bool, str, ptr, void
	ArrayLen int    // > 0 for int[N]
}

func (t *TypeRef) String() string {
	if t.ArrayLen > 0 {
		return t.Name + "[" + itoa(t.ArrayLen) + "]"
	}
	return t.Name
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Param is one function parameter.
type Param struct {
	Token token.Token // the parameter name token
	Name  string
	Type  *TypeRef
}

// FunctionDecl is a top-level function declaration.
// fn name(p: int, q: ptr): int { ... }
type FunctionDecl struct {
	Token      token.Token // the 'fn' token
	Name       string
	Params     []*Param
	ReturnType *TypeRef // nil means void
	Body       *BlockStmt
}

func (fd *FunctionDecl) statementNode()       {}
func (fd *FunctionDecl) TokenLiteral() string { return fd.Token.Lexeme }
func (fd *FunctionDecl) GetToken() token.Token {
	if fd == nil {
		return token.Token{}
	}
	return fd.Token
}

// BlockStmt is a brace-delimited statement list.
type BlockStmt struct {
	Token      token.Token // the '{' token
	Statements []Statement
}

func (bs *BlockStmt) statementNode()       {}
func (bs *BlockStmt) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BlockStmt) GetToken() token.Token {
	if bs == nil {
		return token.Token{}
	}
	return bs.Token
}

// LetStmt declares a local. Either the type or the initializer may be
// omitted, not both: `let x = 1;`, `let x: int;`, `let xs: int[4];`.
type LetStmt struct {
	Token token.Token // the 'let' token
	Name  *Identifier
	Type  *TypeRef   // optional
	Value Expression // optional
}

func (ls *LetStmt) statementNode()       {}
func (ls *LetStmt) TokenLiteral() string { return ls.Token.Lexeme }
func (ls *LetStmt) GetToken() token.Token {
	if ls == nil {
		return token.Token{}
	}
	return ls.Token
}

// AssignStmt assigns to an lvalue: `x = e;` or `xs[i] = e;` or `p[i] = e;`.
type AssignStmt struct {
	Token  token.Token // the '=' token
	Target Expression
	Value  Expression
}

func (as *AssignStmt) statementNode()       {}
func (as *AssignStmt) TokenLiteral() string { return as.Token.Lexeme }
func (as *AssignStmt) GetToken() token.Token {
	if as == nil {
		return token.Token{}
	}
	return as.Token
}

// IfStmt with optional else block.
type IfStmt struct {
	Token       token.Token // the 'if' token
	Condition   Expression
	Consequence *BlockStmt
	Alternative *BlockStmt // nil when there is no else
}

func (is *IfStmt) statementNode()       {}
func (is *IfStmt) TokenLiteral() string { return is.Token.Lexeme }
func (is *IfStmt) GetToken() token.Token {
	if is == nil {
		return token.Token{}
	}
	return is.Token
}

// WhileStmt loops while the condition holds.
type WhileStmt struct {
	Token     token.Token // the 'while' token
	Condition Expression
	Body      *BlockStmt
}

func (ws *WhileStmt) statementNode()       {}
func (ws *WhileStmt) TokenLiteral() string { return ws.Token.Lexeme }
func (ws *WhileStmt) GetToken() token.Token {
	if ws == nil {
		return token.Token{}
	}
	return ws.Token
}

// ReturnStmt returns from the enclosing function, with an optional value.
type ReturnStmt struct {
	Token token.Token // the 'return' token
	Value Expression  // nil for bare return
}

func (rs *ReturnStmt) statementNode()       {}
func (rs *ReturnStmt) TokenLiteral() string { return rs.Token.Lexeme }
func (rs *ReturnStmt) GetToken() token.Token {
	if rs == nil {
		return token.Token{}
	}
	return rs.Token
}

// ExprStmt is an expression evaluated for its effect; any result is
// discarded.
type ExprStmt struct {
	Token      token.Token
	Expression Expression
}

func (es *ExprStmt) statementNode()       {}
func (es *ExprStmt) TokenLiteral() string { return es.Token.Lexeme }
func (es *ExprStmt) GetToken() token.Token {
	if es == nil {
		return token.Token{}
	}
	return es.Token
}

// RawAsmStmt is an `asm "...";` statement: a raw string destined for a
// native backend. The bytecode backend treats it as an inert no-op; the
// 8086 backend splices it verbatim.
type RawAsmStmt struct {
	Token token.Token // the 'asm' token
	Code  string
}

func (ra *RawAsmStmt) statementNode()       {}
func (ra *RawAsmStmt) TokenLiteral() string { return ra.Token.Lexeme }
func (ra *RawAsmStmt) GetToken() token.Token {
	if ra == nil {
		return token.Token{}
	}
	return ra.Token
}

// VmAsmStmt is a `vm_asm { ... }` block: newline-separated VM mnemonic
// lines captured verbatim, type-unchecked. The code generator resolves
// local names in the lines against the enclosing function's slot table.
type VmAsmStmt struct {
	Token token.Token // the 'vm_asm' token
	Code  string
}

func (va *VmAsmStmt) statementNode()       {}
func (va *VmAsmStmt) TokenLiteral() string { return va.Token.Lexeme }
func (va *VmAsmStmt) GetToken() token.Token {
	if va == nil {
		return token.Token{}
	}
	return va.Token
}

// Identifier is a name use. Sym is filled in by the analyzer.
type Identifier struct {
	Token token.Token
	Value string
	Sym   *symbols.Symbol
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Lexeme }
func (i *Identifier) GetToken() token.Token {
	if i == nil {
		return token.Token{}
	}
	return i.Token
}

// IntLiteral is a decimal or 0x-hex integer literal.
type IntLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntLiteral) expressionNode()      {}
func (il *IntLiteral) TokenLiteral() string { return il.Token.Lexeme }
func (il *IntLiteral) GetToken() token.Token {
	if il == nil {
		return token.Token{}
	}
	return il.Token
}

// BoolLiteral is true or false.
type BoolLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BoolLiteral) expressionNode()      {}
func (bl *BoolLiteral) TokenLiteral() string { return bl.Token.Lexeme }
func (bl *BoolLiteral) GetToken() token.Token {
	if bl == nil {
		return token.Token{}
	}
	return bl.Token
}

// StringLiteral holds the decoded string value (escapes already applied).
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Lexeme }
func (sl *StringLiteral) GetToken() token.Token {
	if sl == nil {
		return token.Token{}
	}
	return sl.Token
}

// UnaryExpr is `!e` or `-e`.
type UnaryExpr struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (ue *UnaryExpr) expressionNode()      {}
func (ue *UnaryExpr) TokenLiteral() string { return ue.Token.Lexeme }
func (ue *UnaryExpr) GetToken() token.Token {
	if ue == nil {
		return token.Token{}
	}
	return ue.Token
}

// BinaryExpr is an eager binary operator: arithmetic, equality, relational.
// && and || are LogicalExpr, never BinaryExpr.
type BinaryExpr struct {
	Token    token.Token
	Operator string
	Left     Expression
	Right    Expression
}

func (be *BinaryExpr) expressionNode()      {}
func (be *BinaryExpr) TokenLiteral() string { return be.Token.Lexeme }
func (be *BinaryExpr) GetToken() token.Token {
	if be == nil {
		return token.Token{}
	}
	return be.Token
}

// LogicalExpr is a short-circuit && or ||. Kept distinct from BinaryExpr
// so the code generator must lower it with conditional jumps: the right
// operand is never evaluated when the left already decides the result.
type LogicalExpr struct {
	Token    token.Token
	Operator string // "&&" or "||"
	Left     Expression
	Right    Expression
}

func (le *LogicalExpr) expressionNode()      {}
func (le *LogicalExpr) TokenLiteral() string { return le.Token.Lexeme }
func (le *LogicalExpr) GetToken() token.Token {
	if le == nil {
		return token.Token{}
	}
	return le.Token
}

// CallExpr calls a user function or an intrinsic by name. The analyzer
// distinguishes the two; Intrinsic is set when the callee is a builtin.
type CallExpr struct {
	Token     token.Token // the '(' token
	Function  *Identifier
	Arguments []Expression
	Intrinsic bool
}

func (ce *CallExpr) expressionNode()      {}
func (ce *CallExpr) TokenLiteral() string { return ce.Token.Lexeme }
func (ce *CallExpr) GetToken() token.Token {
	if ce == nil {
		return token.Token{}
	}
	return ce.Token
}

// IndexExpr is `base[index]` over an array or a pointer.
type IndexExpr struct {
	Token token.Token // the '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpr) expressionNode()      {}
func (ie *IndexExpr) TokenLiteral() string { return ie.Token.Lexeme }
func (ie *IndexExpr) GetToken() token.Token {
	if ie == nil {
		return token.Token{}
	}
	return ie.Token
}

// AddressOfExpr is `&lvalue`: the address of a local, an array, or an
// array element, as a raw byte offset into the run's data memory.
type AddressOfExpr struct {
	Token  token.Token // the '&' token
	Target Expression
}

func (ae *AddressOfExpr) expressionNode()      {}
func (ae *AddressOfExpr) TokenLiteral() string { return ae.Token.Lexeme }
func (ae *AddressOfExpr) GetToken() token.Token {
	if ae == nil {
		return token.Token{}
	}
	return ae.Token
}
