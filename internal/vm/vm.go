package vm

import (
	"fmt"
)

// RunState is the explicit state of one VM run.
type RunState int

const (
	StateRunning RunState = iota
	StateExited
	StateFaulted
	StateCancelled
)

func (s RunState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateFaulted:
		return "faulted"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// FaultKind classifies a runtime fault.
type FaultKind string

const (
	FaultStackOverflow         FaultKind = "StackOverflow"
	FaultOutOfBounds           FaultKind = "OutOfBounds"
	FaultDivideByZero          FaultKind = "DivideByZero"
	FaultOperandStackUnderflow FaultKind = "OperandStackUnderflow"
	FaultInvalidOpcode         FaultKind = "InvalidOpcode"
)

// FrameInfo is one entry of a fault's call-stack trace, innermost first.
type FrameInfo struct {
	Function string
	PC       int
}

// Fault is a runtime error that aborted a run. The VM instance is dead
// afterwards and must not be reused.
type Fault struct {
	Kind    FaultKind
	Message string
	Trace   []FrameInfo
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Result is the outcome of one run.
type Result struct {
	State    RunState
	ExitCode int
	Fault    *Fault
}

const (
	DefaultMemorySize    = 65536
	DefaultMaxCallDepth  = 256
	DefaultCheckInterval = 1000
)

// Option configures a VM instance.
type Option func(*VM)

// WithMemorySize sets the data memory size in bytes.
func WithMemorySize(bytes int) Option {
	return func(vm *VM) { vm.memorySize = bytes }
}

// WithMaxCallDepth bounds the call stack.
func WithMaxCallDepth(depth int) Option {
	return func(vm *VM) { vm.maxCallDepth = depth }
}

// WithCheckInterval sets how many instructions run between cancellation
// checks.
func WithCheckInterval(instructions int) Option {
	return func(vm *VM) { vm.checkInterval = instructions }
}

// WithOutput sets the print callback. It runs synchronously on the
// executing goroutine and is only invoked for complete print operations.
func WithOutput(fn func(string)) Option {
	return func(vm *VM) { vm.output = fn }
}

// VM executes one Program. Each instance owns one run: fresh data memory
// and a fresh call stack, so a fault can never leak into a later run.
type VM struct {
	prog *Program

	mem    []byte   // linear data memory; all frame locals live here
	memTop int      // first free byte above the deepest frame
	stack  []uint16 // operand stack
	frames []frame
	pc     int

	state    RunState
	fault    *Fault
	exitCode int

	output        func(string)
	memorySize    int
	maxCallDepth  int
	checkInterval int
}

// frame is one call activation. base is the byte offset of the frame's
// slot region in data memory.
type frame struct {
	fn    int // function table index
	base  int
	retPC int
}

func New(prog *Program, opts ...Option) *VM {
	vm := &VM{
		prog:          prog,
		memorySize:    DefaultMemorySize,
		maxCallDepth:  DefaultMaxCallDepth,
		checkInterval: DefaultCheckInterval,
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.mem = make([]byte, vm.memorySize)
	return vm
}

func (vm *VM) faultf(kind FaultKind, format string, args ...interface{}) {
	vm.state = StateFaulted
	vm.fault = &Fault{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Trace:   vm.trace(),
	}
}

// trace captures the live call stack, innermost frame first. The top
// frame reports the instruction being executed; callers report their
// call site.
func (vm *VM) trace() []FrameInfo {
	trace := make([]FrameInfo, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		pc := f.retPC - 1
		if i == len(vm.frames)-1 {
			pc = vm.pc - 1
		}
		trace = append(trace, FrameInfo{
			Function: vm.prog.Functions[f.fn].Name,
			PC:       pc,
		})
	}
	return trace
}

func (vm *VM) emit(text string) {
	if vm.output != nil {
		vm.output(text)
	}
}

// pushFrame allocates a zeroed slot region for the callee at the top of
// data memory.
func (vm *VM) pushFrame(fnIndex, retPC int) bool {
	if len(vm.frames) >= vm.maxCallDepth {
		vm.faultf(FaultStackOverflow, "call depth exceeds %d", vm.maxCallDepth)
		return false
	}
	fn := &vm.prog.Functions[fnIndex]
	base := vm.memTop
	top := base + fn.NumSlots*2
	if top > len(vm.mem) {
		vm.faultf(FaultStackOverflow, "data memory exhausted calling '%s'", fn.Name)
		return false
	}
	for i := base; i < top; i++ {
		vm.mem[i] = 0
	}
	vm.frames = append(vm.frames, frame{fn: fnIndex, base: base, retPC: retPC})
	vm.memTop = top
	return true
}

func (vm *VM) push(v uint16) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() uint16 {
	if len(vm.stack) == 0 {
		if vm.state == StateRunning {
			vm.faultf(FaultOperandStackUnderflow, "operand stack is empty")
		}
		return 0
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) loadWord(addr int) uint16 {
	if addr < 0 || addr+1 >= len(vm.mem) {
		vm.faultf(FaultOutOfBounds, "word read at address %d outside memory of %d bytes", addr, len(vm.mem))
		return 0
	}
	return uint16(vm.mem[addr]) | uint16(vm.mem[addr+1])<<8
}

func (vm *VM) storeWord(addr int, v uint16) {
	if addr < 0 || addr+1 >= len(vm.mem) {
		vm.faultf(FaultOutOfBounds, "word write at address %d outside memory of %d bytes", addr, len(vm.mem))
		return
	}
	vm.mem[addr] = byte(v)
	vm.mem[addr+1] = byte(v >> 8)
}

// slotAddr is the byte address of a word slot in the current frame.
func (vm *VM) slotAddr(slot int) int {
	return vm.frames[len(vm.frames)-1].base + slot*2
}
