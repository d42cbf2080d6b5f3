package analyzer

import "github.com/quinlang/quin/internal/typesystem"

// ArgClass constrains one intrinsic argument beyond plain type equality.
type ArgClass int

const (
	ArgInt ArgClass = iota
	ArgPtr
	ArgArray     // an expression of array type
	ArgPrintable // int, bool or str
)

// Intrinsic is a builtin with a fixed signature known to the analyzer,
// the code generator and the VM.
type Intrinsic struct {
	Name   string
	Args   []ArgClass
	Return typesystem.Type
}

var intrinsics = map[string]*Intrinsic{
	"print":      {Name: "print", Args: []ArgClass{ArgPrintable}, Return: typesystem.Void},
	"println":    {Name: "println", Args: []ArgClass{ArgPrintable}, Return: typesystem.Void},
	"load16":     {Name: "load16", Args: []ArgClass{ArgPtr}, Return: typesystem.Int},
	"store16":    {Name: "store16", Args: []ArgClass{ArgPtr, ArgInt}, Return: typesystem.Void},
	"memcpy":     {Name: "memcpy", Args: []ArgClass{ArgPtr, ArgPtr, ArgInt}, Return: typesystem.Void},
	"memset":     {Name: "memset", Args: []ArgClass{ArgPtr, ArgInt, ArgInt}, Return: typesystem.Void},
	"array_push": {Name: "array_push", Args: []ArgClass{ArgArray, ArgInt, ArgInt}, Return: typesystem.Int},
	"array_pop":  {Name: "array_pop", Args: []ArgClass{ArgArray, ArgInt}, Return: typesystem.Int},
	"ct_eq":      {Name: "ct_eq", Args: []ArgClass{ArgInt, ArgInt}, Return: typesystem.Bool},
	"ct_select":  {Name: "ct_select", Args: []ArgClass{ArgInt, ArgInt, ArgInt}, Return: typesystem.Int},
}

// LookupIntrinsic returns the builtin with the given name, or nil.
func LookupIntrinsic(name string) *Intrinsic {
	return intrinsics[name]
}

// matches reports whether a value of type t satisfies the class.
func (c ArgClass) matches(t typesystem.Type) bool {
	switch c {
	case ArgInt:
		return t.Equals(typesystem.Int)
	case ArgPtr:
		return t.Equals(typesystem.Ptr)
	case ArgArray:
		return typesystem.IsArray(t)
	case ArgPrintable:
		return typesystem.Printable(t)
	}
	return false
}

func (c ArgClass) String() string {
	switch c {
	case ArgInt:
		return "int"
	case ArgPtr:
		return "ptr"
	case ArgArray:
		return "an array"
	case ArgPrintable:
		return "int, bool or str"
	}
	return "?"
}
