// Package analyzer type-checks and decorates the AST. Analysis runs two
// passes: the first collects every function signature so calls may be
// forward or mutually recursive, the second checks each body against an
// explicit scope chain. All errors inside a function are collected rather
// than stopping at the first; a body is skipped only when its own
// signature is invalid.
package analyzer

import (
	"fmt"

	"github.com/quinlang/quin/internal/ast"
	"github.com/quinlang/quin/internal/diagnostics"
	"github.com/quinlang/quin/internal/symbols"
	"github.com/quinlang/quin/internal/typesystem"
)

// Info is the analysis result consumed by the code generators: resolved
// signatures, frame layouts, the type of every expression, and the names
// visible to each vm_asm block.
type Info struct {
	Functions map[string]*symbols.FunctionSig
	FuncOrder []string // valid functions in declaration order
	NumSlots  map[string]int
	TypeMap   map[ast.Expression]typesystem.Type
	VmAsmVars map[*ast.VmAsmStmt]map[string]*symbols.Symbol
}

type Analyzer struct {
	info *Info
	errs []*diagnostics.DiagnosticError

	curFn     *ast.FunctionDecl
	curSig    *symbols.FunctionSig
	slotCount int
}

// Analyze checks the program and returns the decoration info. The info is
// only meaningful when the error list is empty.
func Analyze(program *ast.Program) (*Info, []*diagnostics.DiagnosticError) {
	a := &Analyzer{
		info: &Info{
			Functions: make(map[string]*symbols.FunctionSig),
			NumSlots:  make(map[string]int),
			TypeMap:   make(map[ast.Expression]typesystem.Type),
			VmAsmVars: make(map[*ast.VmAsmStmt]map[string]*symbols.Symbol),
		},
	}

	valid := a.collectSignatures(program)
	for _, fn := range program.Functions {
		if !valid[fn] {
			continue
		}
		a.checkFunction(fn)
	}
	a.checkMain(program)

	return a.info, a.errs
}

func (a *Analyzer) errorf(code diagnostics.ErrorCode, node ast.Node, format string, args ...interface{}) {
	a.errs = append(a.errs, diagnostics.NewError(code, node.GetToken(), fmt.Sprintf(format, args...)))
}

// collectSignatures is pass one: register every function signature and
// report redefinitions and invalid parameter/return types. The returned
// set marks the declarations whose bodies pass two should check.
func (a *Analyzer) collectSignatures(program *ast.Program) map[*ast.FunctionDecl]bool {
	valid := make(map[*ast.FunctionDecl]bool)
	index := 0

	for _, fn := range program.Functions {
		if LookupIntrinsic(fn.Name) != nil {
			a.errorf(diagnostics.ErrA003, fn, "function '%s' redefines a builtin", fn.Name)
			continue
		}
		if _, exists := a.info.Functions[fn.Name]; exists {
			a.errorf(diagnostics.ErrA003, fn, "function '%s' is already defined", fn.Name)
			continue
		}

		sig := &symbols.FunctionSig{Name: fn.Name, Return: typesystem.Void, Index: index}
		ok := true
		for _, param := range fn.Params {
			pt := a.resolveTypeRef(param.Type)
			if pt == nil {
				ok = false
				continue
			}
			if pt.Equals(typesystem.Void) || typesystem.IsArray(pt) {
				a.errorf(diagnostics.ErrA004, fn,
					"parameter '%s' of '%s' cannot have type %s", param.Name, fn.Name, pt)
				ok = false
				continue
			}
			sig.Params = append(sig.Params, pt)
		}
		if fn.ReturnType != nil {
			rt := a.resolveTypeRef(fn.ReturnType)
			if rt == nil {
				ok = false
			} else if typesystem.IsArray(rt) {
				a.errorf(diagnostics.ErrA004, fn,
					"function '%s' cannot return an array", fn.Name)
				ok = false
			} else {
				sig.Return = rt
			}
		}

		a.info.Functions[fn.Name] = sig
		a.info.FuncOrder = append(a.info.FuncOrder, fn.Name)
		index++
		valid[fn] = ok
	}
	return valid
}

// resolveTypeRef maps a syntactic type to a static type. The parser only
// produces known base names, so a nil result means a malformed ref built
// by hand.
func (a *Analyzer) resolveTypeRef(ref *ast.TypeRef) typesystem.Type {
	var base typesystem.Type
	switch ref.Name {
	case "int":
		base = typesystem.Int
	case "bool":
		base = typesystem.Bool
	case "str":
		base = typesystem.Str
	case "ptr":
		base = typesystem.Ptr
	case "void":
		base = typesystem.Void
	default:
		return nil
	}
	if ref.ArrayLen > 0 {
		return &typesystem.Array{Elem: typesystem.Int, Len: ref.ArrayLen}
	}
	return base
}

// checkFunction is pass two for one function: fresh scope, params in
// slots 0..N-1, then the body. Slot indices count 16-bit words; arrays
// take Len consecutive words.
func (a *Analyzer) checkFunction(fn *ast.FunctionDecl) {
	a.curFn = fn
	a.curSig = a.info.Functions[fn.Name]
	a.slotCount = 0

	scope := symbols.NewScope(nil)
	for i, param := range fn.Params {
		sym := &symbols.Symbol{
			Name: param.Name,
			Type: a.curSig.Params[i],
			Kind: symbols.KindParam,
			Slot: a.slotCount,
		}
		if !scope.Define(sym) {
			a.errorf(diagnostics.ErrA002, fn,
				"duplicate parameter '%s' in '%s'", param.Name, fn.Name)
			continue
		}
		a.slotCount++
	}

	terminates := a.checkBlock(fn.Body, scope)
	if !a.curSig.Return.Equals(typesystem.Void) && !terminates {
		a.errorf(diagnostics.ErrA009, fn,
			"function '%s' must return %s on every path", fn.Name, a.curSig.Return)
	}

	a.info.NumSlots[fn.Name] = a.slotCount
}

// checkBlock checks every statement in its own scope and reports whether
// the block definitely returns.
func (a *Analyzer) checkBlock(block *ast.BlockStmt, parent *symbols.Scope) bool {
	scope := symbols.NewScope(parent)
	terminates := false
	for _, stmt := range block.Statements {
		if a.checkStatement(stmt, scope) {
			terminates = true
		}
	}
	return terminates
}

func (a *Analyzer) checkStatement(stmt ast.Statement, scope *symbols.Scope) bool {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		a.checkLet(s, scope)
	case *ast.AssignStmt:
		a.checkAssign(s, scope)
	case *ast.IfStmt:
		return a.checkIf(s, scope)
	case *ast.WhileStmt:
		a.checkCondition(s.Condition, scope)
		a.checkBlock(s.Body, scope)
	case *ast.ReturnStmt:
		a.checkReturn(s, scope)
		return true
	case *ast.ExprStmt:
		a.checkExpression(s.Expression, scope)
	case *ast.BlockStmt:
		return a.checkBlock(s, scope)
	case *ast.VmAsmStmt:
		a.info.VmAsmVars[s] = scope.Visible()
	case *ast.RawAsmStmt:
		// opaque payload for a native backend
	}
	return false
}

func (a *Analyzer) checkLet(s *ast.LetStmt, scope *symbols.Scope) {
	var declared typesystem.Type
	if s.Type != nil {
		declared = a.resolveTypeRef(s.Type)
		if declared != nil && declared.Equals(typesystem.Void) {
			a.errorf(diagnostics.ErrA004, s, "variable '%s' cannot have type void", s.Name.Value)
			return
		}
	}

	var inferred typesystem.Type
	if s.Value != nil {
		if declared != nil && typesystem.IsArray(declared) {
			a.errorf(diagnostics.ErrA004, s,
				"array '%s' cannot take an initializer", s.Name.Value)
			return
		}
		inferred = a.checkValueExpression(s.Value, scope)
		if inferred == nil {
			return
		}
	}

	var final typesystem.Type
	switch {
	case declared != nil && inferred != nil:
		if !declared.Equals(inferred) {
			a.errorf(diagnostics.ErrA004, s,
				"cannot initialize %s '%s' with %s", declared, s.Name.Value, inferred)
			return
		}
		final = declared
	case declared != nil:
		final = declared
	case inferred != nil:
		final = inferred
	default:
		a.errorf(diagnostics.ErrA013, s,
			"cannot infer the type of '%s' without an initializer", s.Name.Value)
		return
	}

	sym := &symbols.Symbol{
		Name: s.Name.Value,
		Type: final,
		Kind: symbols.KindLocal,
		Slot: a.slotCount,
	}
	if !scope.Define(sym) {
		a.errorf(diagnostics.ErrA002, s,
			"'%s' is already declared in this scope", s.Name.Value)
		return
	}
	a.slotCount += final.Size() / typesystem.WordSize

	s.Name.Sym = sym
	a.info.TypeMap[s.Name] = final
}

func (a *Analyzer) checkAssign(s *ast.AssignStmt, scope *symbols.Scope) {
	switch target := s.Target.(type) {
	case *ast.Identifier:
		sym := scope.Resolve(target.Value)
		if sym == nil {
			a.errorf(diagnostics.ErrA001, target, "undeclared identifier '%s'", target.Value)
			return
		}
		if typesystem.IsArray(sym.Type) {
			a.errorf(diagnostics.ErrA004, s,
				"cannot assign to array '%s' as a whole", target.Value)
			return
		}
		target.Sym = sym
		a.info.TypeMap[target] = sym.Type

		vt := a.checkValueExpression(s.Value, scope)
		if vt == nil {
			return
		}
		if !vt.Equals(sym.Type) {
			a.errorf(diagnostics.ErrA004, s,
				"cannot assign %s to '%s' of type %s", vt, target.Value, sym.Type)
		}
	case *ast.IndexExpr:
		et := a.checkExpression(target, scope)
		if et == nil {
			return
		}
		vt := a.checkValueExpression(s.Value, scope)
		if vt == nil {
			return
		}
		if !vt.Equals(et) {
			a.errorf(diagnostics.ErrA004, s, "cannot store %s into an element of type %s", vt, et)
		}
	default:
		a.errorf(diagnostics.ErrA007, s, "cannot assign to this expression")
	}
}

func (a *Analyzer) checkIf(s *ast.IfStmt, scope *symbols.Scope) bool {
	a.checkCondition(s.Condition, scope)
	consequenceTerminates := a.checkBlock(s.Consequence, scope)
	if s.Alternative == nil {
		return false
	}
	alternativeTerminates := a.checkBlock(s.Alternative, scope)
	return consequenceTerminates && alternativeTerminates
}

func (a *Analyzer) checkCondition(cond ast.Expression, scope *symbols.Scope) {
	t := a.checkValueExpression(cond, scope)
	if t != nil && !t.Equals(typesystem.Bool) {
		a.errorf(diagnostics.ErrA004, cond, "condition must be bool, found %s", t)
	}
}

func (a *Analyzer) checkReturn(s *ast.ReturnStmt, scope *symbols.Scope) {
	wantsValue := !a.curSig.Return.Equals(typesystem.Void)
	if s.Value == nil {
		if wantsValue {
			a.errorf(diagnostics.ErrA004, s,
				"'%s' must return a value of type %s", a.curFn.Name, a.curSig.Return)
		}
		return
	}
	if !wantsValue {
		a.errorf(diagnostics.ErrA004, s,
			"'%s' has no return value but one is returned", a.curFn.Name)
		return
	}
	vt := a.checkValueExpression(s.Value, scope)
	if vt != nil && !vt.Equals(a.curSig.Return) {
		a.errorf(diagnostics.ErrA004, s,
			"'%s' returns %s, found %s", a.curFn.Name, a.curSig.Return, vt)
	}
}

// checkValueExpression checks an expression that must produce a value;
// a void result is an error.
func (a *Analyzer) checkValueExpression(expr ast.Expression, scope *symbols.Scope) typesystem.Type {
	t := a.checkExpression(expr, scope)
	if t == nil {
		return nil
	}
	if t.Equals(typesystem.Void) {
		a.errorf(diagnostics.ErrA014, expr, "expression has no value")
		return nil
	}
	if typesystem.IsArray(t) {
		a.errorf(diagnostics.ErrA004, expr, "an array is not a value; index it or take its address")
		return nil
	}
	return t
}

// checkExpression type-checks one expression, decorates it, and returns
// its type. A nil return means an error was already reported.
func (a *Analyzer) checkExpression(expr ast.Expression, scope *symbols.Scope) typesystem.Type {
	var t typesystem.Type

	switch e := expr.(type) {
	case *ast.IntLiteral:
		t = typesystem.Int
	case *ast.BoolLiteral:
		t = typesystem.Bool
	case *ast.StringLiteral:
		t = typesystem.Str
	case *ast.Identifier:
		sym := scope.Resolve(e.Value)
		if sym == nil {
			a.errorf(diagnostics.ErrA001, e, "undeclared identifier '%s'", e.Value)
			return nil
		}
		e.Sym = sym
		t = sym.Type
	case *ast.UnaryExpr:
		t = a.checkUnary(e, scope)
	case *ast.BinaryExpr:
		t = a.checkBinary(e, scope)
	case *ast.LogicalExpr:
		t = a.checkLogical(e, scope)
	case *ast.CallExpr:
		t = a.checkCall(e, scope)
	case *ast.IndexExpr:
		t = a.checkIndex(e, scope)
	case *ast.AddressOfExpr:
		t = a.checkAddressOf(e, scope)
	default:
		a.errorf(diagnostics.ErrA004, expr, "unsupported expression")
		return nil
	}

	if t != nil {
		a.info.TypeMap[expr] = t
	}
	return t
}

func (a *Analyzer) checkUnary(e *ast.UnaryExpr, scope *symbols.Scope) typesystem.Type {
	rt := a.checkValueExpression(e.Right, scope)
	if rt == nil {
		return nil
	}
	switch e.Operator {
	case "!":
		if !rt.Equals(typesystem.Bool) {
			a.errorf(diagnostics.ErrA004, e, "operator ! needs bool, found %s", rt)
			return nil
		}
		return typesystem.Bool
	case "-":
		if !rt.Equals(typesystem.Int) {
			a.errorf(diagnostics.ErrA004, e, "operator - needs int, found %s", rt)
			return nil
		}
		return typesystem.Int
	}
	return nil
}

func (a *Analyzer) checkBinary(e *ast.BinaryExpr, scope *symbols.Scope) typesystem.Type {
	lt := a.checkValueExpression(e.Left, scope)
	rt := a.checkValueExpression(e.Right, scope)
	if lt == nil || rt == nil {
		return nil
	}

	switch e.Operator {
	case "+", "-", "*", "/":
		if !lt.Equals(typesystem.Int) || !rt.Equals(typesystem.Int) {
			a.errorf(diagnostics.ErrA004, e,
				"operator %s needs int operands, found %s and %s", e.Operator, lt, rt)
			return nil
		}
		return typesystem.Int
	case "==", "!=":
		if !lt.Equals(rt) {
			a.errorf(diagnostics.ErrA004, e,
				"operator %s needs matching operands, found %s and %s", e.Operator, lt, rt)
			return nil
		}
		return typesystem.Bool
	case "<", "<=", ">", ">=":
		if !lt.Equals(typesystem.Int) || !rt.Equals(typesystem.Int) {
			a.errorf(diagnostics.ErrA004, e,
				"operator %s needs int operands, found %s and %s", e.Operator, lt, rt)
			return nil
		}
		return typesystem.Bool
	}
	return nil
}

func (a *Analyzer) checkLogical(e *ast.LogicalExpr, scope *symbols.Scope) typesystem.Type {
	lt := a.checkValueExpression(e.Left, scope)
	rt := a.checkValueExpression(e.Right, scope)
	if lt == nil || rt == nil {
		return nil
	}
	if !lt.Equals(typesystem.Bool) || !rt.Equals(typesystem.Bool) {
		a.errorf(diagnostics.ErrA004, e,
			"operator %s needs bool operands, found %s and %s", e.Operator, lt, rt)
		return nil
	}
	return typesystem.Bool
}

func (a *Analyzer) checkCall(e *ast.CallExpr, scope *symbols.Scope) typesystem.Type {
	name := e.Function.Value

	if intr := LookupIntrinsic(name); intr != nil {
		e.Intrinsic = true
		return a.checkIntrinsicCall(e, intr, scope)
	}

	sig, ok := a.info.Functions[name]
	if !ok {
		if scope.Resolve(name) != nil {
			a.errorf(diagnostics.ErrA008, e, "'%s' is not a function", name)
		} else {
			a.errorf(diagnostics.ErrA001, e, "undeclared function '%s'", name)
		}
		return nil
	}

	if len(e.Arguments) != len(sig.Params) {
		a.errorf(diagnostics.ErrA005, e,
			"'%s' takes %d arguments, found %d", name, len(sig.Params), len(e.Arguments))
		return nil
	}
	failed := false
	for i, arg := range e.Arguments {
		at := a.checkValueExpression(arg, scope)
		if at == nil {
			failed = true
			continue
		}
		if !at.Equals(sig.Params[i]) {
			a.errorf(diagnostics.ErrA004, arg,
				"argument %d of '%s' needs %s, found %s", i+1, name, sig.Params[i], at)
			failed = true
		}
	}
	if failed {
		return nil
	}
	return sig.Return
}

func (a *Analyzer) checkIntrinsicCall(e *ast.CallExpr, intr *Intrinsic, scope *symbols.Scope) typesystem.Type {
	if len(e.Arguments) != len(intr.Args) {
		a.errorf(diagnostics.ErrA010, e,
			"'%s' takes %d arguments, found %d", intr.Name, len(intr.Args), len(e.Arguments))
		return nil
	}
	failed := false
	for i, arg := range e.Arguments {
		var at typesystem.Type
		if intr.Args[i] == ArgArray {
			// arrays themselves are not first-class values
			at = a.checkExpression(arg, scope)
		} else {
			at = a.checkValueExpression(arg, scope)
		}
		if at == nil {
			failed = true
			continue
		}
		if !intr.Args[i].matches(at) {
			a.errorf(diagnostics.ErrA010, arg,
				"argument %d of '%s' needs %s, found %s", i+1, intr.Name, intr.Args[i], at)
			failed = true
		}
	}
	if failed {
		return nil
	}
	return intr.Return
}

func (a *Analyzer) checkIndex(e *ast.IndexExpr, scope *symbols.Scope) typesystem.Type {
	lt := a.checkExpression(e.Left, scope)
	it := a.checkValueExpression(e.Index, scope)
	if lt == nil || it == nil {
		return nil
	}
	if !typesystem.Indexable(lt) {
		a.errorf(diagnostics.ErrA006, e, "type %s cannot be indexed", lt)
		return nil
	}
	if !it.Equals(typesystem.Int) {
		a.errorf(diagnostics.ErrA004, e.Index, "index must be int, found %s", it)
		return nil
	}
	return typesystem.Int
}

func (a *Analyzer) checkAddressOf(e *ast.AddressOfExpr, scope *symbols.Scope) typesystem.Type {
	switch target := e.Target.(type) {
	case *ast.Identifier:
		if a.checkExpression(target, scope) == nil {
			return nil
		}
		return typesystem.Ptr
	case *ast.IndexExpr:
		if a.checkIndex(target, scope) == nil {
			return nil
		}
		a.info.TypeMap[target] = typesystem.Int
		return typesystem.Ptr
	default:
		a.errorf(diagnostics.ErrA007, e, "cannot take the address of this expression")
		return nil
	}
}

// checkMain enforces the entry point contract: fn main(): int.
func (a *Analyzer) checkMain(program *ast.Program) {
	sig, ok := a.info.Functions["main"]
	if !ok {
		a.errorf(diagnostics.ErrA011, program, "program has no 'main' function")
		return
	}
	if len(sig.Params) != 0 || !sig.Return.Equals(typesystem.Int) {
		a.errorf(diagnostics.ErrA012, program, "'main' must be declared as fn main(): int")
	}
}
