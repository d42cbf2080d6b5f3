package vm

import (
	"context"
	"strconv"
)

// Run executes the program from main until it exits, faults, or the
// context is cancelled. A VM instance runs exactly once.
func (vm *VM) Run(ctx context.Context) Result {
	mainIndex := vm.prog.FunctionIndex("main")
	if mainIndex < 0 {
		vm.state = StateFaulted
		vm.fault = &Fault{Kind: FaultInvalidOpcode, Message: "program has no 'main' function"}
		return vm.result()
	}
	if !vm.pushFrame(mainIndex, len(vm.prog.Code)) {
		return vm.result()
	}
	vm.pc = vm.prog.Functions[mainIndex].Entry

	opsSinceCheck := 0
	for vm.state == StateRunning {
		opsSinceCheck++
		if opsSinceCheck >= vm.checkInterval {
			opsSinceCheck = 0
			select {
			case <-ctx.Done():
				vm.state = StateCancelled
				return vm.result()
			default:
			}
		}

		if vm.pc < 0 || vm.pc >= len(vm.prog.Code) {
			// fell off the end of the code
			vm.state = StateExited
			break
		}
		instr := vm.prog.Code[vm.pc]
		vm.pc++
		vm.step(instr)
	}
	return vm.result()
}

func (vm *VM) result() Result {
	res := Result{State: vm.state, Fault: vm.fault}
	if vm.state == StateExited {
		res.ExitCode = vm.exitCode
	}
	return res
}

// step executes one decoded instruction. Handlers that perform a side
// effect after popping re-check the run state so a faulted pop never
// writes memory or emits output.
func (vm *VM) step(instr Instruction) {
	switch instr.Op {
	case OP_PUSH:
		vm.push(uint16(instr.Arg))
	case OP_POP:
		vm.pop()
	case OP_DUP:
		v := vm.pop()
		if vm.state != StateRunning {
			return
		}
		vm.push(v)
		vm.push(v)
	case OP_SWAP:
		b, a := vm.pop(), vm.pop()
		if vm.state != StateRunning {
			return
		}
		vm.push(b)
		vm.push(a)
	case OP_OVER:
		b, a := vm.pop(), vm.pop()
		if vm.state != StateRunning {
			return
		}
		vm.push(a)
		vm.push(b)
		vm.push(a)

	case OP_LOAD_LOCAL:
		vm.push(vm.loadWord(vm.slotAddr(instr.Arg)))
	case OP_STORE_LOCAL:
		v := vm.pop()
		if vm.state != StateRunning {
			return
		}
		vm.storeWord(vm.slotAddr(instr.Arg), v)
	case OP_ADDR_LOCAL:
		vm.push(uint16(vm.slotAddr(instr.Arg)))

	case OP_ARR_LOAD:
		idx := int(vm.pop())
		if vm.state != StateRunning {
			return
		}
		if idx >= instr.Aux {
			vm.faultf(FaultOutOfBounds, "index %d outside array of %d elements", idx, instr.Aux)
			return
		}
		vm.push(vm.loadWord(vm.slotAddr(instr.Arg + idx)))
	case OP_ARR_STORE:
		v := vm.pop()
		idx := int(vm.pop())
		if vm.state != StateRunning {
			return
		}
		if idx >= instr.Aux {
			vm.faultf(FaultOutOfBounds, "index %d outside array of %d elements", idx, instr.Aux)
			return
		}
		vm.storeWord(vm.slotAddr(instr.Arg+idx), v)

	case OP_LOAD16:
		addr := int(vm.pop())
		if vm.state != StateRunning {
			return
		}
		vm.push(vm.loadWord(addr))
	case OP_STORE16:
		v := vm.pop()
		addr := int(vm.pop())
		if vm.state != StateRunning {
			return
		}
		vm.storeWord(addr, v)
	case OP_MEMCPY:
		count := int(vm.pop())
		src := int(vm.pop())
		dst := int(vm.pop())
		if vm.state != StateRunning {
			return
		}
		if src+count > len(vm.mem) || dst+count > len(vm.mem) {
			vm.faultf(FaultOutOfBounds, "memcpy of %d bytes from %d to %d outside memory", count, src, dst)
			return
		}
		// copy is overlap-safe for forward ranges; reverse overlap needs
		// the explicit backward walk
		if dst > src && dst < src+count {
			for i := count - 1; i >= 0; i-- {
				vm.mem[dst+i] = vm.mem[src+i]
			}
		} else {
			copy(vm.mem[dst:dst+count], vm.mem[src:src+count])
		}
	case OP_MEMSET:
		count := int(vm.pop())
		value := byte(vm.pop())
		dst := int(vm.pop())
		if vm.state != StateRunning {
			return
		}
		if dst+count > len(vm.mem) {
			vm.faultf(FaultOutOfBounds, "memset of %d bytes at %d outside memory", count, dst)
			return
		}
		for i := 0; i < count; i++ {
			vm.mem[dst+i] = value
		}

	case OP_ADD:
		b, a := vm.pop(), vm.pop()
		vm.push(a + b)
	case OP_SUB:
		b, a := vm.pop(), vm.pop()
		vm.push(a - b)
	case OP_MUL:
		b, a := vm.pop(), vm.pop()
		vm.push(a * b)
	case OP_DIV:
		b, a := vm.pop(), vm.pop()
		if vm.state != StateRunning {
			return
		}
		if b == 0 {
			vm.faultf(FaultDivideByZero, "division by zero")
			return
		}
		vm.push(a / b)
	case OP_NEG:
		vm.push(-vm.pop())
	case OP_NOT:
		if vm.pop() == 0 {
			vm.push(1)
		} else {
			vm.push(0)
		}

	case OP_CMP_EQ, OP_CMP_NE, OP_CMP_LT, OP_CMP_LE, OP_CMP_GT, OP_CMP_GE:
		b, a := vm.pop(), vm.pop()
		var res bool
		switch instr.Op {
		case OP_CMP_EQ:
			res = a == b
		case OP_CMP_NE:
			res = a != b
		case OP_CMP_LT:
			res = a < b
		case OP_CMP_LE:
			res = a <= b
		case OP_CMP_GT:
			res = a > b
		default:
			res = a >= b
		}
		if res {
			vm.push(1)
		} else {
			vm.push(0)
		}

	case OP_JMP:
		vm.pc = instr.Arg
	case OP_JZ:
		v := vm.pop()
		if vm.state != StateRunning {
			return
		}
		if v == 0 {
			vm.pc = instr.Arg
		}
	case OP_JNZ:
		v := vm.pop()
		if vm.state != StateRunning {
			return
		}
		if v != 0 {
			vm.pc = instr.Arg
		}

	case OP_CALL:
		vm.call(instr.Arg)
	case OP_RET:
		vm.ret()

	case OP_PRINT_INT, OP_PRINTLN_INT:
		v := vm.pop()
		if vm.state != StateRunning {
			return
		}
		vm.emit(strconv.Itoa(int(v)) + lineEnd(instr.Op == OP_PRINTLN_INT))
	case OP_PRINT_BOOL, OP_PRINTLN_BOOL:
		v := vm.pop()
		if vm.state != StateRunning {
			return
		}
		text := "false"
		if v != 0 {
			text = "true"
		}
		vm.emit(text + lineEnd(instr.Op == OP_PRINTLN_BOOL))
	case OP_PRINT_STR, OP_PRINTLN_STR:
		sid := int(vm.pop())
		if vm.state != StateRunning {
			return
		}
		var s string
		if sid >= 0 && sid < len(vm.prog.Strings) {
			s = vm.prog.Strings[sid]
		}
		vm.emit(s + lineEnd(instr.Op == OP_PRINTLN_STR))

	default:
		// unreachable for codegen-produced programs
		vm.faultf(FaultInvalidOpcode, "opcode %d at pc %d", instr.Op, vm.pc-1)
	}
}

func lineEnd(line bool) string {
	if line {
		return "\n"
	}
	return ""
}

// call copies the callee's arguments from the operand stack into its
// first parameter slots, rightmost argument on top.
func (vm *VM) call(fnIndex int) {
	if fnIndex < 0 || fnIndex >= len(vm.prog.Functions) {
		vm.faultf(FaultInvalidOpcode, "call to unknown function %d", fnIndex)
		return
	}
	fn := &vm.prog.Functions[fnIndex]

	args := make([]uint16, fn.NumParams)
	for i := fn.NumParams - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	if vm.state != StateRunning {
		return
	}
	if !vm.pushFrame(fnIndex, vm.pc) {
		return
	}
	for i, v := range args {
		vm.storeWord(vm.slotAddr(i), v)
	}
	vm.pc = fn.Entry
}

// ret pops the return value and the current frame; returning from main
// exits the run with the value as the exit code.
func (vm *VM) ret() {
	var ret uint16
	if len(vm.stack) > 0 {
		ret = vm.pop()
	}
	top := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.memTop = top.base

	if len(vm.frames) == 0 {
		vm.state = StateExited
		vm.exitCode = int(ret)
		return
	}
	vm.pc = top.retPC
	vm.push(ret)
}
