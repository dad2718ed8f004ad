// Package bytecode defines the Lumen instruction set: the opcode enum
// that pkg/compiler emits into an object.Chunk and pkg/vm's dispatch
// loop decodes.
//
// This keeps the teacher (kristofer-smog)'s package name and its
// disassembly-friendly String() idiom, but the opcode set itself is
// spec.md §4.3's, not the teacher's Smalltalk message-send set: Lumen
// compiles directly to stack-machine bytecode with explicit local/
// upvalue/global slots, inline-cached property access, and class/trait
// emission, rather than routing every operation through OpSend.
//
// Operand encoding: every opcode is one byte; most operands are a single
// following byte (an index into the chunk's constant or identifier
// pool, a local/upvalue slot, or an argument count). Jump/Loop operands
// are two bytes, big-endian, per spec.md §4.3 ("All operands are one
// byte unless noted").
package bytecode

// Opcode is a single bytecode instruction's operation.
type Opcode byte

const (
	// Literals/constants
	OpConstant Opcode = iota
	OpNil
	OpTrue
	OpFalse

	// Stack
	OpPop
	OpDup

	// Variables
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpSetGlobal
	OpDefineGlobal
	OpGetUpvalue
	OpSetUpvalue
	OpCloseUpvalue

	// Properties
	OpGetProperty
	OpSetProperty
	OpGetSuper

	// Arithmetic/logic
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate

	// Control
	OpJump
	OpJumpIfFalse
	OpLoop

	// Calls
	OpCall
	OpInvoke
	OpSuperInvoke
	OpClosure
	OpReturn

	// Classes
	OpClass
	OpInherit
	OpMethod
	OpTrait
	OpTraitUse

	// Containers
	OpArray
	OpDictionary
	OpRange
	OpGetIndex
	OpSetIndex

	// Namespaces/modules
	OpNamespace
	OpPopNamespace
	OpGetNamespaceMember
	OpSetNamespaceMember

	// Exceptions
	OpThrow
	OpPushHandler
	OpPopHandler

	// Generators/promises
	OpYield
	OpAwait

	// Switch
	OpSwitchEqual
)

var names = map[Opcode]string{
	OpConstant:           "CONSTANT",
	OpNil:                "NIL",
	OpTrue:                "TRUE",
	OpFalse:               "FALSE",
	OpPop:                 "POP",
	OpDup:                 "DUP",
	OpGetLocal:            "GET_LOCAL",
	OpSetLocal:            "SET_LOCAL",
	OpGetGlobal:           "GET_GLOBAL",
	OpSetGlobal:           "SET_GLOBAL",
	OpDefineGlobal:        "DEFINE_GLOBAL",
	OpGetUpvalue:          "GET_UPVALUE",
	OpSetUpvalue:          "SET_UPVALUE",
	OpCloseUpvalue:        "CLOSE_UPVALUE",
	OpGetProperty:         "GET_PROPERTY",
	OpSetProperty:         "SET_PROPERTY",
	OpGetSuper:            "GET_SUPER",
	OpEqual:               "EQUAL",
	OpGreater:             "GREATER",
	OpLess:                "LESS",
	OpAdd:                 "ADD",
	OpSubtract:            "SUBTRACT",
	OpMultiply:            "MULTIPLY",
	OpDivide:              "DIVIDE",
	OpNot:                 "NOT",
	OpNegate:              "NEGATE",
	OpJump:                "JUMP",
	OpJumpIfFalse:         "JUMP_IF_FALSE",
	OpLoop:                "LOOP",
	OpCall:                "CALL",
	OpInvoke:              "INVOKE",
	OpSuperInvoke:         "SUPER_INVOKE",
	OpClosure:             "CLOSURE",
	OpReturn:              "RETURN",
	OpClass:               "CLASS",
	OpInherit:             "INHERIT",
	OpMethod:              "METHOD",
	OpTrait:               "TRAIT",
	OpTraitUse:            "TRAIT_USE",
	OpArray:               "ARRAY",
	OpDictionary:          "DICTIONARY",
	OpRange:               "RANGE",
	OpGetIndex:            "GET_INDEX",
	OpSetIndex:            "SET_INDEX",
	OpNamespace:           "NAMESPACE",
	OpPopNamespace:        "POP_NAMESPACE",
	OpGetNamespaceMember:  "GET_NAMESPACE_MEMBER",
	OpSetNamespaceMember:  "SET_NAMESPACE_MEMBER",
	OpThrow:               "THROW",
	OpPushHandler:         "PUSH_HANDLER",
	OpPopHandler:          "POP_HANDLER",
	OpYield:               "YIELD",
	OpAwait:               "AWAIT",
	OpSwitchEqual:         "SWITCH_EQUAL",
}

func (op Opcode) String() string {
	if n, ok := names[op]; ok {
		return n
	}
	return "UNKNOWN"
}

// EncodeSend packs a selector/identifier index and an argument count into
// the two operand bytes an Invoke/SuperInvoke instruction carries
// (spec.md §4.3: "Invoke idx argc").
func EncodeSend(identifierIdx, argc byte) (byte, byte) { return identifierIdx, argc }

// EncodeJumpOffset splits a 16-bit forward/backward jump offset into the
// big-endian (hi, lo) byte pair spec.md §4.3 specifies for Jump/
// JumpIfFalse/Loop.
func EncodeJumpOffset(offset uint16) (byte, byte) {
	return byte(offset >> 8), byte(offset & 0xFF)
}

// DecodeJumpOffset is EncodeJumpOffset's inverse.
func DecodeJumpOffset(hi, lo byte) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

const (
	// MaxLocals bounds a single compiler record's Locals array
	// (spec.md §4.2: "fixed-size arrays of Locals (≤256)").
	MaxLocals = 256
	// MaxUpvalues bounds a single compiler record's Upvalues array.
	MaxUpvalues = 256
	// MaxConstants bounds a chunk's constant pool (single-byte operand).
	MaxConstants = 256
	// MaxCases bounds a switch statement's case arms (spec.md §4.2).
	MaxCases = 256
	// MaxInterpolationDepth bounds nested `${...}` string interpolation
	// (spec.md §4.1).
	MaxInterpolationDepth = 15
	// MaxJumpOffset is the largest forward/backward jump a 16-bit
	// operand can encode.
	MaxJumpOffset = 1<<16 - 1
)
