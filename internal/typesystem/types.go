// Package typesystem defines the static types of QuinLang. The machine
// word is 16 bits; int, ptr and str (a pointer into the string pool) all
// occupy one word. Equality is structural: array(int, N) is a distinct
// type per N.
package typesystem

import "fmt"

const WordSize = 2 // bytes

type Type interface {
	String() string
	// Size is the storage size in bytes when the value lives in a frame slot.
	Size() int
	Equals(other Type) bool
}

// Basic is a scalar built-in type.
type Basic struct {
	Name  string
	Bytes int
}

func (b *Basic) String() string { return b.Name }
func (b *Basic) Size() int      { return b.Bytes }
func (b *Basic) Equals(other Type) bool {
	o, ok := other.(*Basic)
	return ok && o.Name == b.Name
}

var (
	Int  = &Basic{Name: "int", Bytes: WordSize}
	Bool = &Basic{Name: "bool", Bytes: WordSize}
	Str  = &Basic{Name: "str", Bytes: WordSize}
	Ptr  = &Basic{Name: "ptr", Bytes: WordSize}
	Void = &Basic{Name: "void", Bytes: 0}
)

// Array is a fixed-size int array, declared as int[N]. Arrays decay to
// ptr under address-of; indexing yields the element type.
type Array struct {
	Elem Type
	Len  int
}

func (a *Array) String() string { return fmt.Sprintf("%s[%d]", a.Elem, a.Len) }
func (a *Array) Size() int      { return a.Elem.Size() * a.Len }
func (a *Array) Equals(other Type) bool {
	o, ok := other.(*Array)
	return ok && o.Len == a.Len && o.Elem.Equals(a.Elem)
}

// IsArray reports whether t is an array type.
func IsArray(t Type) bool {
	_, ok := t.(*Array)
	return ok
}

// Indexable reports whether t supports the [] operator: arrays by declared
// capacity, pointers as raw word-addressed memory.
func Indexable(t Type) bool {
	return IsArray(t) || t.Equals(Ptr)
}

// Printable reports whether print/println accepts t.
func Printable(t Type) bool {
	return t.Equals(Int) || t.Equals(Bool) || t.Equals(Str)
}
