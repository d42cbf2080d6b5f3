// Package symbols implements the analysis-time scope chain and the
// per-function slot assignment consumed by the code generator.
package symbols

import "github.com/quinlang/quin/internal/typesystem"

type SymbolKind int

const (
	KindParam SymbolKind = iota
	KindLocal
)

func (k SymbolKind) String() string {
	if k == KindParam {
		return "param"
	}
	return "local"
}

// Symbol is one declared name inside a function. Slot is the index of its
// first frame word; arrays occupy Type.Size()/WordSize consecutive slots.
type Symbol struct {
	Name string
	Type typesystem.Type
	Kind SymbolKind
	Slot int
}

// FunctionSig is a user-defined or intrinsic function signature. User
// functions carry the Index used by the CALL instruction.
type FunctionSig struct {
	Name   string
	Params []typesystem.Type
	Return typesystem.Type
	Index  int
}

// Scope is one lexical scope. Scopes form a chain through parent; lookup
// walks innermost-to-outermost. Scopes are explicit objects passed through
// the analysis so concurrent analyses never interfere.
type Scope struct {
	parent *Scope
	names  map[string]*Symbol
}

func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, names: make(map[string]*Symbol)}
}

// Define binds sym in this scope. It reports false when the name is
// already bound here; shadowing an outer scope is allowed.
func (s *Scope) Define(sym *Symbol) bool {
	if _, exists := s.names[sym.Name]; exists {
		return false
	}
	s.names[sym.Name] = sym
	return true
}

// Visible returns every binding reachable from this scope, with inner
// declarations shadowing outer ones. Used to snapshot the names a vm_asm
// block may reference.
func (s *Scope) Visible() map[string]*Symbol {
	out := make(map[string]*Symbol)
	for scope := s; scope != nil; scope = scope.parent {
		for name, sym := range scope.names {
			if _, ok := out[name]; !ok {
				out[name] = sym
			}
		}
	}
	return out
}

// Resolve walks the chain from the innermost scope outward.
func (s *Scope) Resolve(name string) *Symbol {
	for scope := s; scope != nil; scope = scope.parent {
		if sym, ok := scope.names[name]; ok {
			return sym
		}
	}
	return nil
}
