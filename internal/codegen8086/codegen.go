package codegen8086

import (
	"strings"

	"github.com/quinlang/quin/internal/analyzer"
	"github.com/quinlang/quin/internal/ast"
	"github.com/quinlang/quin/internal/diagnostics"
	"github.com/quinlang/quin/internal/symbols"
	"github.com/quinlang/quin/internal/typesystem"
)

// Generator lowers a decorated AST to 8086 assembly. Expression results
// live in AX; locals are BP-relative on the stack; callers push arguments
// left to right and clean them up after the call.
type Generator struct {
	em   *Emitter
	info *analyzer.Info
	errs []*diagnostics.DiagnosticError

	// current function layout
	numParams  int
	localWords int
	offsets    map[string]localSlot
}

type localSlot struct {
	sym    *symbols.Symbol
	offset int // displacement: [bp-offset] for locals, [bp+offset] for params
	param  bool
}

// Generate produces the assembly text for an analyzed program. vm_asm
// blocks are a VM-backend construct and are rejected here.
func Generate(program *ast.Program, info *analyzer.Info) (string, []*diagnostics.DiagnosticError) {
	g := &Generator{em: NewEmitter(), info: info}
	for _, fn := range program.Functions {
		g.emitFunction(fn)
	}
	if len(g.errs) > 0 {
		return "", g.errs
	}
	return g.em.Render(), nil
}

func (g *Generator) errorf(code diagnostics.ErrorCode, node ast.Node, message string) {
	g.errs = append(g.errs, diagnostics.NewError(code, node.GetToken(), message))
}

// buildLayout assigns BP displacements from the analyzer's slot numbers.
// Params sit above the saved BP and return address; locals grow down,
// with array elements ascending toward BP.
func (g *Generator) buildLayout(fn *ast.FunctionDecl) {
	sig := g.info.Functions[fn.Name]
	g.numParams = len(sig.Params)
	g.localWords = g.info.NumSlots[fn.Name] - g.numParams
	g.offsets = make(map[string]localSlot)

	var walkBlock func(*ast.BlockStmt)
	var walkStmt func(ast.Statement)
	walkStmt = func(stmt ast.Statement) {
		switch s := stmt.(type) {
		case *ast.LetStmt:
			if s.Name.Sym != nil {
				g.offsets[s.Name.Value] = g.slotFor(s.Name.Sym)
			}
		case *ast.IfStmt:
			walkBlock(s.Consequence)
			if s.Alternative != nil {
				walkBlock(s.Alternative)
			}
		case *ast.WhileStmt:
			walkBlock(s.Body)
		case *ast.BlockStmt:
			walkBlock(s)
		}
	}
	walkBlock = func(block *ast.BlockStmt) {
		for _, stmt := range block.Statements {
			walkStmt(stmt)
		}
	}

	for i, param := range fn.Params {
		sym := &symbols.Symbol{Name: param.Name, Type: sig.Params[i], Kind: symbols.KindParam, Slot: i}
		g.offsets[param.Name] = g.slotFor(sym)
	}
	walkBlock(fn.Body)
}

func (g *Generator) slotFor(sym *symbols.Symbol) localSlot {
	if sym.Kind == symbols.KindParam {
		// caller pushed left to right, so the first param is deepest
		return localSlot{sym: sym, offset: 4 + 2*(g.numParams-1-sym.Slot), param: true}
	}
	word := sym.Slot - g.numParams
	return localSlot{sym: sym, offset: 2 * (g.localWords - word), param: false}
}

func (g *Generator) lookup(name string) (localSlot, bool) {
	slot, ok := g.offsets[name]
	return slot, ok
}

func (g *Generator) loadLocal(slot localSlot) {
	if slot.param {
		g.em.Emitf("mov ax, [bp+%d]", slot.offset)
	} else {
		g.em.Emitf("mov ax, [bp-%d]", slot.offset)
	}
}

func (g *Generator) storeLocal(slot localSlot) {
	if slot.param {
		g.em.Emitf("mov [bp+%d], ax", slot.offset)
	} else {
		g.em.Emitf("mov [bp-%d], ax", slot.offset)
	}
}

func (g *Generator) emitFunction(fn *ast.FunctionDecl) {
	g.buildLayout(fn)

	g.em.Emitf("global %s", fn.Name)
	g.em.Label(fn.Name)
	g.em.Emit("push bp")
	g.em.Emit("mov bp, sp")
	if g.localWords > 0 {
		g.em.Emitf("sub sp, %d", g.localWords*2)
	}

	g.emitBlock(fn.Body)
	g.emitEpilogue()
}

func (g *Generator) emitEpilogue() {
	g.em.Emit("mov sp, bp")
	g.em.Emit("pop bp")
	g.em.Emit("ret")
}

func (g *Generator) emitBlock(block *ast.BlockStmt) {
	for _, stmt := range block.Statements {
		g.emitStmt(stmt)
	}
}

func (g *Generator) emitStmt(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		if typesystem.IsArray(s.Name.Sym.Type) {
			return
		}
		if s.Value != nil {
			g.emitExpr(s.Value)
		} else {
			g.em.Emit("xor ax, ax")
		}
		if slot, ok := g.lookup(s.Name.Value); ok {
			g.storeLocal(slot)
		}
	case *ast.AssignStmt:
		g.emitAssign(s)
	case *ast.IfStmt:
		elseLbl := g.em.UniqueLabel("ELSE")
		endLbl := g.em.UniqueLabel("ENDIF")
		g.emitExpr(s.Condition)
		g.em.Emit("cmp ax, 0")
		g.em.Emitf("je %s", elseLbl)
		g.emitBlock(s.Consequence)
		g.em.Emitf("jmp %s", endLbl)
		g.em.Label(elseLbl)
		if s.Alternative != nil {
			g.emitBlock(s.Alternative)
		}
		g.em.Label(endLbl)
	case *ast.WhileStmt:
		top := g.em.UniqueLabel("WHL")
		end := g.em.UniqueLabel("ENDW")
		g.em.Label(top)
		g.emitExpr(s.Condition)
		g.em.Emit("cmp ax, 0")
		g.em.Emitf("je %s", end)
		g.emitBlock(s.Body)
		g.em.Emitf("jmp %s", top)
		g.em.Label(end)
	case *ast.ReturnStmt:
		if s.Value != nil {
			g.emitExpr(s.Value)
		}
		g.emitEpilogue()
	case *ast.ExprStmt:
		g.emitExpr(s.Expression)
	case *ast.BlockStmt:
		g.emitBlock(s)
	case *ast.RawAsmStmt:
		// splice raw assembly lines directly into the output
		for _, line := range strings.Split(s.Code, "\n") {
			if strings.TrimSpace(line) != "" {
				g.em.Emit(strings.TrimSpace(line))
			}
		}
	case *ast.VmAsmStmt:
		g.errorf(diagnostics.ErrC003, s,
			"vm_asm blocks are only supported by the VM backend")
	}
}

func (g *Generator) emitAssign(s *ast.AssignStmt) {
	switch target := s.Target.(type) {
	case *ast.Identifier:
		g.emitExpr(s.Value)
		if slot, ok := g.lookup(target.Value); ok {
			g.storeLocal(slot)
		}
	case *ast.IndexExpr:
		if ident, ok := target.Left.(*ast.Identifier); ok && ident.Sym != nil && typesystem.IsArray(ident.Sym.Type) {
			slot, _ := g.lookup(ident.Value)
			g.emitExpr(s.Value)
			g.em.Emit("push ax")
			g.emitExpr(target.Index)
			g.em.Emit("mov si, ax")
			g.em.Emit("shl si, 1")
			g.em.Emit("pop ax")
			g.em.Emitf("mov [bp+si-%d], ax", slot.offset)
			return
		}
		// pointer element: address = p + 2*index
		g.emitExpr(target.Left)
		g.em.Emit("push ax")
		g.emitExpr(target.Index)
		g.em.Emit("shl ax, 1")
		g.em.Emit("pop bx")
		g.em.Emit("add bx, ax")
		g.emitExpr(s.Value)
		g.em.Emit("mov [bx], ax")
	}
}

func (g *Generator) emitExpr(e ast.Expression) {
	switch e := e.(type) {
	case *ast.IntLiteral:
		g.em.Emitf("mov ax, %d", int(e.Value)&0xFFFF)
	case *ast.BoolLiteral:
		if e.Value {
			g.em.Emit("mov ax, 1")
		} else {
			g.em.Emit("xor ax, ax")
		}
	case *ast.StringLiteral:
		lbl := g.em.AddString(e.Value)
		g.em.Emitf("mov ax, %s", lbl)
	case *ast.Identifier:
		if slot, ok := g.lookup(e.Value); ok {
			g.loadLocal(slot)
		} else {
			g.em.Emit("xor ax, ax")
		}
	case *ast.AddressOfExpr:
		g.emitAddressOf(e)
	case *ast.UnaryExpr:
		g.emitExpr(e.Right)
		if e.Operator == "-" {
			g.em.Emit("neg ax")
		} else {
			g.emitBoolFromCond("je")
		}
	case *ast.BinaryExpr:
		g.emitBinary(e)
	case *ast.LogicalExpr:
		g.emitLogical(e)
	case *ast.IndexExpr:
		g.emitIndex(e)
	case *ast.CallExpr:
		g.emitCall(e)
	default:
		g.em.Emit("xor ax, ax")
	}
}

// emitBoolFromCond turns the current AX into 0/1 by testing it against
// zero with the given jump condition selecting the 1 branch.
func (g *Generator) emitBoolFromCond(jump string) {
	t := g.em.UniqueLabel("T")
	end := g.em.UniqueLabel("E")
	g.em.Emit("cmp ax, 0")
	g.em.Emitf("%s %s", jump, t)
	g.em.Emit("xor ax, ax")
	g.em.Emitf("jmp %s", end)
	g.em.Label(t)
	g.em.Emit("mov ax, 1")
	g.em.Label(end)
}

var cmpJumps = map[string]string{
	"==": "je",
	"!=": "jne",
	"<":  "jl",
	"<=": "jle",
	">":  "jg",
	">=": "jge",
}

func (g *Generator) emitBinary(e *ast.BinaryExpr) {
	lt := g.info.TypeMap[e.Left]
	if lt != nil && lt.Equals(typesystem.Str) {
		if jump, ok := cmpJumps[e.Operator]; ok {
			g.emitExpr(e.Left)
			g.em.Emit("push ax")
			g.emitExpr(e.Right)
			g.em.Emit("mov di, ax")
			g.em.Emit("pop si")
			g.em.Emit("call rt_str_cmp")
			g.emitBoolFromCond(jump)
			return
		}
	}

	g.emitExpr(e.Left)
	g.em.Emit("push ax")
	g.emitExpr(e.Right)
	g.em.Emit("pop bx")
	switch e.Operator {
	case "+":
		g.em.Emit("add ax, bx")
	case "-":
		g.em.Emit("sub bx, ax")
		g.em.Emit("mov ax, bx")
	case "*":
		g.em.Emit("imul bx")
	case "/":
		g.em.Emit("mov cx, ax")
		g.em.Emit("mov ax, bx")
		g.em.Emit("cwd")
		g.em.Emit("idiv cx")
	default:
		jump := cmpJumps[e.Operator]
		t := g.em.UniqueLabel("T")
		end := g.em.UniqueLabel("E")
		g.em.Emit("cmp bx, ax")
		g.em.Emitf("%s %s", jump, t)
		g.em.Emit("xor ax, ax")
		g.em.Emitf("jmp %s", end)
		g.em.Label(t)
		g.em.Emit("mov ax, 1")
		g.em.Label(end)
	}
}

func (g *Generator) emitLogical(e *ast.LogicalExpr) {
	if e.Operator == "&&" {
		endLbl := g.em.UniqueLabel("AND_END")
		falseLbl := g.em.UniqueLabel("AND_FALSE")
		g.emitExpr(e.Left)
		g.em.Emit("cmp ax, 0")
		g.em.Emitf("je %s", falseLbl)
		g.emitExpr(e.Right)
		g.em.Emit("cmp ax, 0")
		g.em.Emitf("je %s", falseLbl)
		g.em.Emit("mov ax, 1")
		g.em.Emitf("jmp %s", endLbl)
		g.em.Label(falseLbl)
		g.em.Emit("xor ax, ax")
		g.em.Label(endLbl)
		return
	}
	endLbl := g.em.UniqueLabel("OR_END")
	trueLbl := g.em.UniqueLabel("OR_TRUE")
	g.emitExpr(e.Left)
	g.em.Emit("cmp ax, 0")
	g.em.Emitf("jne %s", trueLbl)
	g.emitExpr(e.Right)
	g.em.Emit("cmp ax, 0")
	g.em.Emitf("jne %s", trueLbl)
	g.em.Emit("xor ax, ax")
	g.em.Emitf("jmp %s", endLbl)
	g.em.Label(trueLbl)
	g.em.Emit("mov ax, 1")
	g.em.Label(endLbl)
}

func (g *Generator) emitIndex(e *ast.IndexExpr) {
	if ident, ok := e.Left.(*ast.Identifier); ok && ident.Sym != nil && typesystem.IsArray(ident.Sym.Type) {
		slot, _ := g.lookup(ident.Value)
		g.emitExpr(e.Index)
		g.em.Emit("mov si, ax")
		g.em.Emit("shl si, 1")
		g.em.Emitf("mov ax, [bp+si-%d]", slot.offset)
		return
	}
	// pointer element
	g.emitExpr(e.Left)
	g.em.Emit("push ax")
	g.emitExpr(e.Index)
	g.em.Emit("shl ax, 1")
	g.em.Emit("pop bx")
	g.em.Emit("add bx, ax")
	g.em.Emit("mov ax, [bx]")
}

func (g *Generator) emitAddressOf(e *ast.AddressOfExpr) {
	switch target := e.Target.(type) {
	case *ast.Identifier:
		if slot, ok := g.lookup(target.Value); ok && !slot.param {
			g.em.Emitf("lea ax, [bp-%d]", slot.offset)
		} else if ok {
			g.em.Emitf("lea ax, [bp+%d]", slot.offset)
		} else {
			g.em.Emit("xor ax, ax")
		}
	case *ast.IndexExpr:
		if ident, ok := target.Left.(*ast.Identifier); ok && ident.Sym != nil && typesystem.IsArray(ident.Sym.Type) {
			slot, _ := g.lookup(ident.Value)
			g.emitExpr(target.Index)
			g.em.Emit("mov si, ax")
			g.em.Emit("shl si, 1")
			g.em.Emitf("lea ax, [bp+si-%d]", slot.offset)
			return
		}
		g.emitExpr(target.Left)
		g.em.Emit("push ax")
		g.emitExpr(target.Index)
		g.em.Emit("shl ax, 1")
		g.em.Emit("pop bx")
		g.em.Emit("add ax, bx")
	default:
		g.em.Emit("xor ax, ax")
	}
}

func (g *Generator) emitCall(e *ast.CallExpr) {
	if e.Intrinsic {
		g.emitIntrinsic(e)
		return
	}
	for _, arg := range e.Arguments {
		g.emitExpr(arg)
		g.em.Emit("push ax")
	}
	g.em.Emitf("call %s", e.Function.Value)
	if n := len(e.Arguments); n > 0 {
		g.em.Emitf("add sp, %d", n*2)
	}
}

func (g *Generator) emitIntrinsic(e *ast.CallExpr) {
	args := e.Arguments
	switch e.Function.Value {
	case "print", "println":
		g.emitExpr(args[0])
		t := g.info.TypeMap[args[0]]
		if t != nil && t.Equals(typesystem.Str) {
			g.em.Emit("mov dx, ax")
			g.em.Emit("call rt_print_str")
		} else {
			g.em.Emit("call rt_print_num16")
		}
		if e.Function.Value == "println" {
			g.em.Emit("call rt_print_newline")
		}
	case "load16":
		g.emitExpr(args[0])
		g.em.Emit("mov bx, ax")
		g.em.Emit("mov ax, [bx]")
	case "store16":
		g.emitExpr(args[0])
		g.em.Emit("push ax")
		g.emitExpr(args[1])
		g.em.Emit("pop bx")
		g.em.Emit("mov [bx], ax")
	case "memcpy":
		g.emitExpr(args[0])
		g.em.Emit("push ax")
		g.emitExpr(args[1])
		g.em.Emit("push ax")
		g.emitExpr(args[2])
		g.em.Emit("mov cx, ax")
		g.em.Emit("pop si")
		g.em.Emit("pop di")
		loopLbl := g.em.UniqueLabel("MEMCPY_LOOP")
		endLbl := g.em.UniqueLabel("MEMCPY_END")
		g.em.Label(loopLbl)
		g.em.Emit("cmp cx, 0")
		g.em.Emitf("je %s", endLbl)
		g.em.Emit("mov al, [si]")
		g.em.Emit("mov [di], al")
		g.em.Emit("inc si")
		g.em.Emit("inc di")
		g.em.Emit("dec cx")
		g.em.Emitf("jmp %s", loopLbl)
		g.em.Label(endLbl)
	case "memset":
		g.emitExpr(args[0])
		g.em.Emit("push ax")
		g.emitExpr(args[1])
		g.em.Emit("mov dl, al")
		g.emitExpr(args[2])
		g.em.Emit("mov cx, ax")
		g.em.Emit("pop di")
		loopLbl := g.em.UniqueLabel("MEMSET_LOOP")
		endLbl := g.em.UniqueLabel("MEMSET_END")
		g.em.Label(loopLbl)
		g.em.Emit("cmp cx, 0")
		g.em.Emitf("je %s", endLbl)
		g.em.Emit("mov [di], dl")
		g.em.Emit("inc di")
		g.em.Emit("dec cx")
		g.em.Emitf("jmp %s", loopLbl)
		g.em.Label(endLbl)
	case "ct_eq":
		// branch-free: fold a ^ b to one bit, then invert
		g.emitExpr(args[0])
		g.em.Emit("push ax")
		g.emitExpr(args[1])
		g.em.Emit("pop bx")
		g.em.Emit("xor ax, bx")
		g.em.Emit("mov cx, ax")
		g.em.Emit("shr cx, 8")
		g.em.Emit("or al, cl")
		g.em.Emit("neg al")
		g.em.Emit("mov cl, 7")
		g.em.Emit("shr al, cl")
		g.em.Emit("and al, 1")
		g.em.Emit("xor al, 1")
		g.em.Emit("mov ah, 0")
	case "ct_select":
		// (mask & x) | (~mask & y), mask widened with NEG+SBB
		g.emitExpr(args[0])
		g.em.Emit("neg ax")
		g.em.Emit("sbb ax, ax")
		g.em.Emit("push ax")
		g.emitExpr(args[1])
		g.em.Emit("push ax")
		g.emitExpr(args[2])
		g.em.Emit("mov dx, ax")
		g.em.Emit("pop cx")
		g.em.Emit("pop bx")
		g.em.Emit("mov ax, cx")
		g.em.Emit("and ax, bx")
		g.em.Emit("not bx")
		g.em.Emit("and dx, bx")
		g.em.Emit("or ax, dx")
	case "array_push":
		ident := args[0].(*ast.Identifier)
		slot, _ := g.lookup(ident.Value)
		g.emitExpr(args[1])
		g.em.Emit("push ax")
		g.emitExpr(args[2])
		g.em.Emit("pop dx")
		g.em.Emit("mov si, dx")
		g.em.Emit("shl si, 1")
		g.em.Emitf("mov [bp+si-%d], ax", slot.offset)
		g.em.Emit("mov ax, dx")
		g.em.Emit("inc ax")
	case "array_pop":
		ident := args[0].(*ast.Identifier)
		slot, _ := g.lookup(ident.Value)
		g.emitExpr(args[1])
		g.em.Emit("dec ax")
		g.em.Emit("mov si, ax")
		g.em.Emit("shl si, 1")
		g.em.Emitf("mov ax, [bp+si-%d]", slot.offset)
	}
}
