package parser

import (
	"strings"

	"github.com/quinlang/quin/internal/ast"
	"github.com/quinlang/quin/internal/diagnostics"
	"github.com/quinlang/quin/internal/token"
)

// ParseProgram parses the whole unit: a sequence of function declarations.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	for !p.curTokenIs(token.EOF) {
		if !p.curTokenIs(token.FN) {
			p.errorf(diagnostics.ErrP006, p.curToken,
				"expected 'fn' at top level, found %s", describeToken(p.curToken))
			p.skipToNextFunction()
			continue
		}
		fn := p.parseFunctionDecl()
		if fn != nil {
			program.Functions = append(program.Functions, fn)
		}
	}
	return program
}

// skipToNextFunction recovers from a top-level error by scanning for the
// next 'fn' keyword.
func (p *Parser) skipToNextFunction() {
	for !p.curTokenIs(token.FN) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

// parseFunctionDecl parses: fn name(a: int, b: ptr): int { ... }
// The return type clause is optional; omitting it means void.
func (p *Parser) parseFunctionDecl() *ast.FunctionDecl {
	fn := &ast.FunctionDecl{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		p.skipToNextFunction()
		return nil
	}
	fn.Name = p.curToken.Lexeme

	if !p.expectPeek(token.LPAREN) {
		p.skipToNextFunction()
		return nil
	}
	fn.Params = p.parseParams()
	if fn.Params == nil && !p.curTokenIs(token.RPAREN) {
		p.skipToNextFunction()
		return nil
	}

	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		p.nextToken()
		fn.ReturnType = p.parseTypeRef()
		if fn.ReturnType == nil {
			p.skipToNextFunction()
			return nil
		}
	}

	if !p.expectPeek(token.LBRACE) {
		p.skipToNextFunction()
		return nil
	}
	fn.Body = p.parseBlockStatement()
	p.nextToken()
	return fn
}

// parseParams parses the parameter list after '('; on return curToken is
// the closing ')'. Returns a non-nil (possibly empty) slice on success.
func (p *Parser) parseParams() []*ast.Param {
	params := []*ast.Param{}

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}

	for {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		param := &ast.Param{Token: p.curToken, Name: p.curToken.Lexeme}
		if !p.expectPeek(token.COLON) {
			return nil
		}
		p.nextToken()
		param.Type = p.parseTypeRef()
		if param.Type == nil {
			return nil
		}
		params = append(params, param)

		if !p.peekTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return params
}

// parseTypeRef parses a type at curToken: int, bool, str, ptr, void, or
// int[N]. Reports P005 for a non-type token and P003 for a bad array size.
func (p *Parser) parseTypeRef() *ast.TypeRef {
	switch p.curToken.Type {
	case token.INT, token.BOOL, token.STR, token.PTR, token.VOID:
	default:
		p.errorf(diagnostics.ErrP005, p.curToken,
			"expected a type name, found %s", describeToken(p.curToken))
		return nil
	}
	ref := &ast.TypeRef{Token: p.curToken, Name: p.curToken.Lexeme}

	if p.peekTokenIs(token.LBRACKET) {
		if ref.Name != "int" {
			p.errorf(diagnostics.ErrP005, p.peekToken,
				"only int arrays are supported, found %s[...]", ref.Name)
			return nil
		}
		p.nextToken()
		if !p.expectPeek(token.NUMBER) {
			return nil
		}
		size, _ := p.curToken.Literal.(int64)
		if size <= 0 {
			p.errorf(diagnostics.ErrP003, p.curToken,
				"array size must be a positive integer, found %s", p.curToken.Lexeme)
			return nil
		}
		ref.ArrayLen = int(size)
		if !p.expectPeek(token.RBRACKET) {
			return nil
		}
	}
	return ref
}

// parseBlockStatement parses statements until the matching '}'. curToken
// must be '{' on entry and is the '}' on exit.
func (p *Parser) parseBlockStatement() *ast.BlockStmt {
	block := &ast.BlockStmt{Token: p.curToken}
	p.nextToken()

	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
	}
	if p.curTokenIs(token.EOF) {
		p.errorf(diagnostics.ErrP001, p.curToken, "expected '}', found end of input")
	}
	return block
}

// parseStatement parses one statement and leaves curToken on the first
// token after it.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LET:
		return p.parseLetStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.VM_ASM:
		return p.parseVmAsmStatement()
	case token.ASM:
		return p.parseRawAsmStatement()
	case token.LBRACE:
		block := p.parseBlockStatement()
		p.nextToken()
		return block
	case token.SEMICOLON:
		p.nextToken()
		return nil
	default:
		return p.parseExpressionStatement()
	}
}

// parseLetStatement parses: let x = e;  let x: int;  let xs: int[4];
// At least one of the type and the initializer must be present.
func (p *Parser) parseLetStatement() ast.Statement {
	stmt := &ast.LetStmt{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		p.skipToStatementBoundary()
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}

	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		p.nextToken()
		stmt.Type = p.parseTypeRef()
		if stmt.Type == nil {
			p.skipToStatementBoundary()
			return nil
		}
	}

	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
		if stmt.Value == nil {
			p.skipToStatementBoundary()
			return nil
		}
	}

	if stmt.Type == nil && stmt.Value == nil {
		p.errorf(diagnostics.ErrP006, stmt.Token,
			"let declaration of '%s' needs a type or an initializer", stmt.Name.Value)
		p.skipToStatementBoundary()
		return nil
	}

	if !p.expectPeek(token.SEMICOLON) {
		p.skipToStatementBoundary()
		return nil
	}
	p.nextToken()
	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStmt{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		p.skipToStatementBoundary()
		return nil
	}

	if !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return nil
	}
	stmt.Consequence = p.parseBlockStatement()

	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if p.peekTokenIs(token.IF) {
			// else if: wrap the nested if in a synthetic block
			p.nextToken()
			elifTok := p.curToken
			elif := p.parseIfStatement()
			if elif == nil {
				return nil
			}
			stmt.Alternative = &ast.BlockStmt{Token: elifTok, Statements: []ast.Statement{elif}}
			return stmt
		}
		if !p.expectPeek(token.LBRACE) {
			p.skipToStatementBoundary()
			return nil
		}
		stmt.Alternative = p.parseBlockStatement()
	}
	p.nextToken()
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStmt{Token: p.curToken}

	p.nextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		p.skipToStatementBoundary()
		return nil
	}

	if !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return nil
	}
	stmt.Body = p.parseBlockStatement()
	p.nextToken()
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Statement {
	stmt := &ast.ReturnStmt{Token: p.curToken}

	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		p.nextToken()
		return stmt
	}

	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		p.skipToStatementBoundary()
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		p.skipToStatementBoundary()
		return nil
	}
	p.nextToken()
	return stmt
}

// parseVmAsmStatement captures the tokens of a vm_asm { ... } block
// verbatim: lexemes are joined with spaces and semicolons become line
// breaks. The payload is not type checked; the code generator resolves it.
func (p *Parser) parseVmAsmStatement() ast.Statement {
	stmt := &ast.VmAsmStmt{Token: p.curToken}

	if !p.expectPeek(token.LBRACE) {
		p.skipToStatementBoundary()
		return nil
	}
	p.nextToken()

	var lines []string
	var line []string
	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.errorf(diagnostics.ErrP001, p.curToken, "expected '}', found end of input")
			return nil
		}
		if p.curTokenIs(token.SEMICOLON) {
			if len(line) > 0 {
				lines = append(lines, strings.Join(line, " "))
				line = nil
			}
		} else {
			line = append(line, p.curToken.Lexeme)
		}
		p.nextToken()
	}
	if len(line) > 0 {
		lines = append(lines, strings.Join(line, " "))
	}
	stmt.Code = strings.Join(lines, "\n")

	p.nextToken()
	return stmt
}

// parseRawAsmStatement parses: asm "raw text";
func (p *Parser) parseRawAsmStatement() ast.Statement {
	stmt := &ast.RawAsmStmt{Token: p.curToken}

	if !p.expectPeek(token.STRING) {
		p.skipToStatementBoundary()
		return nil
	}
	stmt.Code, _ = p.curToken.Literal.(string)

	if !p.expectPeek(token.SEMICOLON) {
		p.skipToStatementBoundary()
		return nil
	}
	p.nextToken()
	return stmt
}

// parseExpressionStatement parses an expression and, when it is followed
// by '=', reinterprets it as an assignment to an lvalue.
func (p *Parser) parseExpressionStatement() ast.Statement {
	first := p.curToken
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		p.skipToStatementBoundary()
		return nil
	}

	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		assign := &ast.AssignStmt{Token: p.curToken, Target: expr}
		switch expr.(type) {
		case *ast.Identifier, *ast.IndexExpr:
		default:
			p.errorf(diagnostics.ErrP006, first, "cannot assign to this expression")
			p.skipToStatementBoundary()
			return nil
		}
		p.nextToken()
		assign.Value = p.parseExpression(LOWEST)
		if assign.Value == nil {
			p.skipToStatementBoundary()
			return nil
		}
		if !p.expectPeek(token.SEMICOLON) {
			p.skipToStatementBoundary()
			return nil
		}
		p.nextToken()
		return assign
	}

	if !p.expectPeek(token.SEMICOLON) {
		p.skipToStatementBoundary()
		return nil
	}
	p.nextToken()
	return &ast.ExprStmt{Token: first, Expression: expr}
}
