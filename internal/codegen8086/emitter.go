// Package codegen8086 is the native text backend: it lowers a decorated
// AST to 8086 assembly source. Assembling and linking the output is out
// of scope; runtime helpers (rt_print_num16, rt_print_str,
// rt_print_newline, rt_str_cmp) are expected from a support library.
package codegen8086

import (
	"fmt"
	"strings"
)

// Emitter accumulates assembly lines and the string data section.
// Strings use the DOS convention: '$'-terminated, printed via
// rt_print_str with the address in DX.
type Emitter struct {
	lines      []string
	labelCount int

	stringLabels map[string]string
	stringOrder  []string
}

func NewEmitter() *Emitter {
	return &Emitter{stringLabels: make(map[string]string)}
}

// Emit appends one instruction line, indented.
func (em *Emitter) Emit(line string) {
	em.lines = append(em.lines, "    "+line)
}

func (em *Emitter) Emitf(format string, args ...interface{}) {
	em.Emit(fmt.Sprintf(format, args...))
}

// Label appends a label definition at column zero.
func (em *Emitter) Label(name string) {
	em.lines = append(em.lines, name+":")
}

// UniqueLabel returns a fresh label with the given prefix.
func (em *Emitter) UniqueLabel(prefix string) string {
	em.labelCount++
	return fmt.Sprintf(".%s_%d", prefix, em.labelCount)
}

// AddString interns a literal in the data section and returns its label.
func (em *Emitter) AddString(value string) string {
	if lbl, ok := em.stringLabels[value]; ok {
		return lbl
	}
	lbl := fmt.Sprintf("str_%d", len(em.stringOrder))
	em.stringLabels[value] = lbl
	em.stringOrder = append(em.stringOrder, value)
	return lbl
}

// Render produces the final assembly text: code, then the data section.
func (em *Emitter) Render() string {
	var sb strings.Builder
	sb.WriteString("section .text\n")
	for _, line := range em.lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if len(em.stringOrder) > 0 {
		sb.WriteString("\nsection .data\n")
		for i, value := range em.stringOrder {
			fmt.Fprintf(&sb, "str_%d: db %s, '$'\n", i, dataBytes(value))
		}
	}
	return sb.String()
}

// dataBytes renders a string literal as db operands, escaping anything
// outside printable ASCII as a numeric byte.
func dataBytes(value string) string {
	var parts []string
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			parts = append(parts, "\""+run.String()+"\"")
			run.Reset()
		}
	}
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if ch >= 0x20 && ch < 0x7F && ch != '"' {
			run.WriteByte(ch)
			continue
		}
		flush()
		parts = append(parts, fmt.Sprintf("%d", ch))
	}
	flush()
	if len(parts) == 0 {
		return "\"\""
	}
	return strings.Join(parts, ", ")
}
