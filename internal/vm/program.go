package vm

// Instruction is one decoded VM instruction. Arg and Aux meanings depend
// on the opcode; jump targets are instruction indices, not byte offsets.
type Instruction struct {
	Op  Opcode
	Arg int
	Aux int
}

// FuncInfo is one function table entry. NumSlots counts 16-bit frame
// words including parameters; arrays occupy their capacity in words.
type FuncInfo struct {
	Name      string
	Entry     int
	NumParams int
	NumSlots  int
}

// Program is the code generator's output and the VM's sole input. It is
// immutable once emitted and safe to share between concurrent runs. All
// fields are exported so a Program round-trips through encoding/gob.
type Program struct {
	Code      []Instruction
	Functions []FuncInfo
	Strings   []string
}

// FunctionIndex returns the table index of the named function, or -1.
func (p *Program) FunctionIndex(name string) int {
	for i := range p.Functions {
		if p.Functions[i].Name == name {
			return i
		}
	}
	return -1
}
