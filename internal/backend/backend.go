// Package backend selects the code generation target. The language has
// two: the bytecode VM and the native 8086 text backend.
package backend

import (
	"fmt"

	"github.com/quinlang/quin/internal/codegen8086"
	"github.com/quinlang/quin/internal/pipeline"
	"github.com/quinlang/quin/internal/vm"
)

type Kind string

const (
	KindVM   Kind = "vm"
	Kind8086 Kind = "8086"
)

// Processor returns the codegen stage for the selected backend.
func Processor(kind Kind) (pipeline.Processor, error) {
	switch kind {
	case KindVM:
		return vm.NewCompilerProcessor(), nil
	case Kind8086:
		return codegen8086.NewGeneratorProcessor(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %q or %q)", kind, KindVM, Kind8086)
	}
}
