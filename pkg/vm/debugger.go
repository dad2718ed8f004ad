// Package vm - bytecode disassembly, the teacher's `cmd/smog disassemble`
// ambient concern (SPEC_FULL.md §1 treats an in-process disassembler as
// ambient tooling, not a protocol) carried forward over Lumen's
// stack-machine Chunk instead of the teacher's message-send Bytecode.
package vm

import (
	"fmt"
	"strings"

	"github.com/kristofer/lumen/pkg/bytecode"
	"github.com/kristofer/lumen/pkg/object"
)

// Disassemble renders every instruction in chunk as clox-style
// `offset line OPCODE operand` text, resolving constant/identifier
// operands against heap for readability.
func Disassemble(heap *object.Heap, chunk *object.Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		offset = disassembleInstruction(&b, heap, chunk, offset)
	}
	return b.String()
}

func disassembleInstruction(b *strings.Builder, heap *object.Heap, chunk *object.Chunk, offset int) int {
	fmt.Fprintf(b, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		fmt.Fprint(b, "   | ")
	} else {
		fmt.Fprintf(b, "%4d ", chunk.Lines[offset])
	}

	op := bytecode.Opcode(chunk.Code[offset])
	switch op {
	case bytecode.OpConstant:
		return constantInstruction(b, heap, chunk, op, offset)
	case bytecode.OpGetLocal, bytecode.OpSetLocal,
		bytecode.OpGetUpvalue, bytecode.OpSetUpvalue,
		bytecode.OpCall, bytecode.OpArray, bytecode.OpDictionary:
		return byteInstruction(b, op, chunk, offset)
	case bytecode.OpGetGlobal, bytecode.OpSetGlobal, bytecode.OpDefineGlobal,
		bytecode.OpGetProperty, bytecode.OpSetProperty, bytecode.OpGetSuper,
		bytecode.OpClass, bytecode.OpMethod, bytecode.OpTrait,
		bytecode.OpNamespace, bytecode.OpGetNamespaceMember, bytecode.OpSetNamespaceMember:
		return identifierInstruction(b, chunk, op, offset)
	case bytecode.OpInvoke, bytecode.OpSuperInvoke:
		return invokeInstruction(b, chunk, op, offset)
	case bytecode.OpJump, bytecode.OpJumpIfFalse, bytecode.OpPushHandler:
		return jumpInstruction(b, op, 1, chunk, offset)
	case bytecode.OpLoop:
		return jumpInstruction(b, op, -1, chunk, offset)
	case bytecode.OpClosure:
		return closureInstruction(b, heap, chunk, offset)
	default:
		fmt.Fprintln(b, op)
		return offset + 1
	}
}

func simpleValue(heap *object.Heap, v object.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		return fmt.Sprintf("%t", v.AsBool())
	case v.IsInt():
		return fmt.Sprintf("%d", v.AsInt())
	case v.IsFloat():
		return fmt.Sprintf("%g", v.AsFloat())
	case v.IsObject():
		if s, ok := heap.Get(v.AsObject()).(*object.StringObject); ok {
			return fmt.Sprintf("%q", s.Chars)
		}
		return fmt.Sprintf("<obj %d>", v.AsObject())
	default:
		return "?"
	}
}

func constantInstruction(b *strings.Builder, heap *object.Heap, chunk *object.Chunk, op bytecode.Opcode, offset int) int {
	idx := chunk.Code[offset+1]
	fmt.Fprintf(b, "%-20s %4d '%s'\n", op, idx, simpleValue(heap, chunk.Constants[idx]))
	return offset + 2
}

func identifierInstruction(b *strings.Builder, chunk *object.Chunk, op bytecode.Opcode, offset int) int {
	idx := chunk.Code[offset+1]
	name := ""
	if int(idx) < len(chunk.Identifiers) {
		name = chunk.Identifiers[idx]
	}
	fmt.Fprintf(b, "%-20s %4d '%s'\n", op, idx, name)
	return offset + 2
}

func invokeInstruction(b *strings.Builder, chunk *object.Chunk, op bytecode.Opcode, offset int) int {
	idx := chunk.Code[offset+1]
	argCount := chunk.Code[offset+2]
	name := ""
	if int(idx) < len(chunk.Identifiers) {
		name = chunk.Identifiers[idx]
	}
	fmt.Fprintf(b, "%-20s (%d args) %4d '%s'\n", op, argCount, idx, name)
	return offset + 3
}

func byteInstruction(b *strings.Builder, op bytecode.Opcode, chunk *object.Chunk, offset int) int {
	slot := chunk.Code[offset+1]
	fmt.Fprintf(b, "%-20s %4d\n", op, slot)
	return offset + 2
}

func jumpInstruction(b *strings.Builder, op bytecode.Opcode, sign int, chunk *object.Chunk, offset int) int {
	jump := bytecode.DecodeJumpOffset(chunk.Code[offset+1], chunk.Code[offset+2])
	fmt.Fprintf(b, "%-20s %4d -> %d\n", op, offset, offset+3+sign*int(jump))
	return offset + 3
}

func closureInstruction(b *strings.Builder, heap *object.Heap, chunk *object.Chunk, offset int) int {
	offset++
	idx := chunk.Code[offset]
	offset++
	fn, ok := heap.Get(chunk.Constants[idx].AsObject()).(*object.FunctionObject)
	fmt.Fprintf(b, "%-20s %4d\n", bytecode.OpClosure, idx)
	if !ok {
		return offset
	}
	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[offset]
		index := chunk.Code[offset+1]
		offset += 2
		kind := "upvalue"
		if isLocal == 1 {
			kind = "local"
		}
		fmt.Fprintf(b, "%04d      |                     %s %d\n", offset-2, kind, index)
	}
	return offset
}
