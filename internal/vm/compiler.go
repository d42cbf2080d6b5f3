package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quinlang/quin/internal/analyzer"
	"github.com/quinlang/quin/internal/ast"
	"github.com/quinlang/quin/internal/diagnostics"
	"github.com/quinlang/quin/internal/typesystem"
)

// Compiler lowers a decorated AST into a Program. Every expression leaves
// exactly one word on the operand stack; void calls leave a dummy zero
// that expression statements pop again.
type Compiler struct {
	info *analyzer.Info
	errs []*diagnostics.DiagnosticError

	code      []Instruction
	functions []FuncInfo
	strings   []string
	stringIDs map[string]int
}

// Compile generates bytecode for an analyzed program. The analysis info
// must come from a run that reported no errors.
func Compile(program *ast.Program, info *analyzer.Info) (*Program, []*diagnostics.DiagnosticError) {
	c := &Compiler{
		info:      info,
		functions: make([]FuncInfo, len(info.FuncOrder)),
		stringIDs: make(map[string]int),
	}

	for _, fn := range program.Functions {
		c.compileFunction(fn)
	}

	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return &Program{Code: c.code, Functions: c.functions, Strings: c.strings}, nil
}

func (c *Compiler) errorf(code diagnostics.ErrorCode, node ast.Node, format string, args ...interface{}) {
	c.errs = append(c.errs, diagnostics.NewError(code, node.GetToken(), fmt.Sprintf(format, args...)))
}

func (c *Compiler) emit(op Opcode, args ...int) int {
	instr := Instruction{Op: op}
	if len(args) > 0 {
		instr.Arg = args[0]
	}
	if len(args) > 1 {
		instr.Aux = args[1]
	}
	c.code = append(c.code, instr)
	return len(c.code) - 1
}

// patch points the jump at index at the next instruction to be emitted.
func (c *Compiler) patch(index int) {
	c.code[index].Arg = len(c.code)
}

func (c *Compiler) addString(s string) int {
	if id, ok := c.stringIDs[s]; ok {
		return id
	}
	id := len(c.strings)
	c.strings = append(c.strings, s)
	c.stringIDs[s] = id
	return id
}

func (c *Compiler) compileFunction(fn *ast.FunctionDecl) {
	sig := c.info.Functions[fn.Name]
	c.functions[sig.Index] = FuncInfo{
		Name:      fn.Name,
		Entry:     len(c.code),
		NumParams: len(sig.Params),
		NumSlots:  c.info.NumSlots[fn.Name],
	}

	c.compileBlock(fn.Body)

	// implicit epilogue; only reachable in functions without a trailing
	// return, which the analyzer restricts to void returns
	c.emit(OP_PUSH, 0)
	c.emit(OP_RET)
}

func (c *Compiler) compileBlock(block *ast.BlockStmt) {
	for _, stmt := range block.Statements {
		c.compileStatement(stmt)
	}
}

func (c *Compiler) compileStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		if s.Value != nil {
			c.compileExpression(s.Value)
			c.emit(OP_STORE_LOCAL, s.Name.Sym.Slot)
		}
	case *ast.AssignStmt:
		c.compileAssign(s)
	case *ast.IfStmt:
		c.compileIf(s)
	case *ast.WhileStmt:
		c.compileWhile(s)
	case *ast.ReturnStmt:
		if s.Value != nil {
			c.compileExpression(s.Value)
		} else {
			c.emit(OP_PUSH, 0)
		}
		c.emit(OP_RET)
	case *ast.ExprStmt:
		c.compileExpression(s.Expression)
		c.emit(OP_POP)
	case *ast.BlockStmt:
		c.compileBlock(s)
	case *ast.VmAsmStmt:
		c.compileVmAsm(s)
	case *ast.RawAsmStmt:
		// native-backend payload; inert on the bytecode target
	}
}

func (c *Compiler) compileAssign(s *ast.AssignStmt) {
	switch target := s.Target.(type) {
	case *ast.Identifier:
		c.compileExpression(s.Value)
		c.emit(OP_STORE_LOCAL, target.Sym.Slot)
	case *ast.IndexExpr:
		base := target.Left
		if arr, ok := arrayOperand(base, c.info); ok {
			c.compileExpression(target.Index)
			c.compileExpression(s.Value)
			c.emit(OP_ARR_STORE, arr.slot, arr.cap)
			return
		}
		// pointer element: address = p + 2*index
		c.compileExpression(base)
		c.compileExpression(target.Index)
		c.emit(OP_PUSH, typesystem.WordSize)
		c.emit(OP_MUL)
		c.emit(OP_ADD)
		c.compileExpression(s.Value)
		c.emit(OP_STORE16)
	}
}

func (c *Compiler) compileIf(s *ast.IfStmt) {
	c.compileExpression(s.Condition)
	jz := c.emit(OP_JZ)
	c.compileBlock(s.Consequence)
	if s.Alternative == nil {
		c.patch(jz)
		return
	}
	jmp := c.emit(OP_JMP)
	c.patch(jz)
	c.compileBlock(s.Alternative)
	c.patch(jmp)
}

func (c *Compiler) compileWhile(s *ast.WhileStmt) {
	head := len(c.code)
	c.compileExpression(s.Condition)
	jz := c.emit(OP_JZ)
	c.compileBlock(s.Body)
	c.emit(OP_JMP, head)
	c.patch(jz)
}

func (c *Compiler) compileExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		c.emit(OP_PUSH, int(e.Value)&0xFFFF)
	case *ast.BoolLiteral:
		if e.Value {
			c.emit(OP_PUSH, 1)
		} else {
			c.emit(OP_PUSH, 0)
		}
	case *ast.StringLiteral:
		c.emit(OP_PUSH, c.addString(e.Value))
	case *ast.Identifier:
		c.emit(OP_LOAD_LOCAL, e.Sym.Slot)
	case *ast.UnaryExpr:
		c.compileExpression(e.Right)
		if e.Operator == "-" {
			c.emit(OP_NEG)
		} else {
			c.emit(OP_NOT)
		}
	case *ast.BinaryExpr:
		c.compileExpression(e.Left)
		c.compileExpression(e.Right)
		c.emit(binaryOp(e.Operator))
	case *ast.LogicalExpr:
		c.compileLogical(e)
	case *ast.CallExpr:
		c.compileCall(e)
	case *ast.IndexExpr:
		c.compileIndex(e)
	case *ast.AddressOfExpr:
		c.compileAddressOf(e)
	}
}

func binaryOp(operator string) Opcode {
	switch operator {
	case "+":
		return OP_ADD
	case "-":
		return OP_SUB
	case "*":
		return OP_MUL
	case "/":
		return OP_DIV
	case "==":
		return OP_CMP_EQ
	case "!=":
		return OP_CMP_NE
	case "<":
		return OP_CMP_LT
	case "<=":
		return OP_CMP_LE
	case ">":
		return OP_CMP_GT
	default:
		return OP_CMP_GE
	}
}

// compileLogical lowers && and || with conditional jumps: the right
// operand never executes when the left already decides the result.
func (c *Compiler) compileLogical(e *ast.LogicalExpr) {
	c.compileExpression(e.Left)
	if e.Operator == "&&" {
		jz := c.emit(OP_JZ)
		c.compileExpression(e.Right)
		jmp := c.emit(OP_JMP)
		c.patch(jz)
		c.emit(OP_PUSH, 0)
		c.patch(jmp)
	} else {
		jnz := c.emit(OP_JNZ)
		c.compileExpression(e.Right)
		jmp := c.emit(OP_JMP)
		c.patch(jnz)
		c.emit(OP_PUSH, 1)
		c.patch(jmp)
	}
}

func (c *Compiler) compileCall(e *ast.CallExpr) {
	if e.Intrinsic {
		c.compileIntrinsic(e)
		return
	}
	for _, arg := range e.Arguments {
		c.compileExpression(arg)
	}
	sig := c.info.Functions[e.Function.Value]
	c.emit(OP_CALL, sig.Index)
}

func (c *Compiler) compileIntrinsic(e *ast.CallExpr) {
	args := e.Arguments
	switch e.Function.Value {
	case "print", "println":
		c.compileExpression(args[0])
		c.emit(printOp(e.Function.Value, c.info.TypeMap[args[0]]))
		c.emit(OP_PUSH, 0)
	case "load16":
		c.compileExpression(args[0])
		c.emit(OP_LOAD16)
	case "store16":
		c.compileExpression(args[0])
		c.compileExpression(args[1])
		c.emit(OP_STORE16)
		c.emit(OP_PUSH, 0)
	case "memcpy":
		c.compileExpression(args[0])
		c.compileExpression(args[1])
		c.compileExpression(args[2])
		c.emit(OP_MEMCPY)
		c.emit(OP_PUSH, 0)
	case "memset":
		c.compileExpression(args[0])
		c.compileExpression(args[1])
		c.compileExpression(args[2])
		c.emit(OP_MEMSET)
		c.emit(OP_PUSH, 0)
	case "array_push":
		// writes value at [len], leaves len+1
		arr, _ := arrayOperand(args[0], c.info)
		c.compileExpression(args[1])
		c.emit(OP_DUP)
		c.compileExpression(args[2])
		c.emit(OP_ARR_STORE, arr.slot, arr.cap)
		c.emit(OP_PUSH, 1)
		c.emit(OP_ADD)
	case "array_pop":
		// reads [len-1]; the caller updates its length itself
		arr, _ := arrayOperand(args[0], c.info)
		c.compileExpression(args[1])
		c.emit(OP_PUSH, 1)
		c.emit(OP_SUB)
		c.emit(OP_ARR_LOAD, arr.slot, arr.cap)
	case "ct_eq":
		c.compileExpression(args[0])
		c.compileExpression(args[1])
		c.emit(OP_CMP_EQ)
	case "ct_select":
		// ct_select(mask, x, y) = y + mask*(x - y); branch-free, and each
		// operand is evaluated once
		c.compileExpression(args[2])
		c.compileExpression(args[1])
		c.emit(OP_OVER)
		c.emit(OP_SUB)
		c.compileExpression(args[0])
		c.emit(OP_MUL)
		c.emit(OP_ADD)
	}
}

func printOp(name string, t typesystem.Type) Opcode {
	line := name == "println"
	switch {
	case t.Equals(typesystem.Bool):
		if line {
			return OP_PRINTLN_BOOL
		}
		return OP_PRINT_BOOL
	case t.Equals(typesystem.Str):
		if line {
			return OP_PRINTLN_STR
		}
		return OP_PRINT_STR
	default:
		if line {
			return OP_PRINTLN_INT
		}
		return OP_PRINT_INT
	}
}

func (c *Compiler) compileIndex(e *ast.IndexExpr) {
	if arr, ok := arrayOperand(e.Left, c.info); ok {
		c.compileExpression(e.Index)
		c.emit(OP_ARR_LOAD, arr.slot, arr.cap)
		return
	}
	c.compileExpression(e.Left)
	c.compileExpression(e.Index)
	c.emit(OP_PUSH, typesystem.WordSize)
	c.emit(OP_MUL)
	c.emit(OP_ADD)
	c.emit(OP_LOAD16)
}

func (c *Compiler) compileAddressOf(e *ast.AddressOfExpr) {
	switch target := e.Target.(type) {
	case *ast.Identifier:
		c.emit(OP_ADDR_LOCAL, target.Sym.Slot)
	case *ast.IndexExpr:
		if arr, ok := arrayOperand(target.Left, c.info); ok {
			c.emit(OP_ADDR_LOCAL, arr.slot)
		} else {
			c.compileExpression(target.Left)
		}
		c.compileExpression(target.Index)
		c.emit(OP_PUSH, typesystem.WordSize)
		c.emit(OP_MUL)
		c.emit(OP_ADD)
	}
}

type arrayRef struct {
	slot int
	cap  int
}

// arrayOperand extracts the slot and capacity of an array-typed operand.
// Arrays are only ever named locals, so the operand is an identifier.
func arrayOperand(expr ast.Expression, info *analyzer.Info) (arrayRef, bool) {
	ident, ok := expr.(*ast.Identifier)
	if !ok || ident.Sym == nil {
		return arrayRef{}, false
	}
	arr, ok := ident.Sym.Type.(*typesystem.Array)
	if !ok {
		return arrayRef{}, false
	}
	return arrayRef{slot: ident.Sym.Slot, cap: arr.Len}, true
}

// vm_asm mnemonics without operands.
var vmAsmSimple = map[string]Opcode{
	"add":    OP_ADD,
	"sub":    OP_SUB,
	"mul":    OP_MUL,
	"div":    OP_DIV,
	"neg":    OP_NEG,
	"not":    OP_NOT,
	"cmp_eq": OP_CMP_EQ,
	"cmp_ne": OP_CMP_NE,
	"cmp_lt": OP_CMP_LT,
	"cmp_le": OP_CMP_LE,
	"cmp_gt": OP_CMP_GT,
	"cmp_ge": OP_CMP_GE,
}

// compileVmAsm lowers the captured mnemonic lines of a vm_asm block.
// Local names resolve against the names visible at the block, exactly as
// ordinary identifier references would.
func (c *Compiler) compileVmAsm(s *ast.VmAsmStmt) {
	vars := c.info.VmAsmVars[s]

	for _, raw := range strings.Split(s.Code, "\n") {
		line := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ";"))
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		op, args := parts[0], parts[1:]

		switch {
		case op == "push_int" && len(args) == 1:
			value, err := strconv.ParseInt(args[0], 0, 64)
			if err != nil {
				c.errorf(diagnostics.ErrC001, s,
					"push_int expects an integer literal, found '%s'", args[0])
				continue
			}
			c.emit(OP_PUSH, int(value)&0xFFFF)
		case (op == "load_local" || op == "store_local") && len(args) == 1:
			sym, ok := vars[args[0]]
			if !ok {
				c.errorf(diagnostics.ErrC002, s,
					"%s references unknown local '%s'", op, args[0])
				continue
			}
			if op == "load_local" {
				c.emit(OP_LOAD_LOCAL, sym.Slot)
			} else {
				c.emit(OP_STORE_LOCAL, sym.Slot)
			}
		default:
			if simple, ok := vmAsmSimple[op]; ok && len(args) == 0 {
				c.emit(simple)
				continue
			}
			c.errorf(diagnostics.ErrC001, s,
				"unknown or malformed instruction '%s'", line)
		}
	}
}
