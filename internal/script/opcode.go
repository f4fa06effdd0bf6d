// Package script implements the sandboxed bytecode machine that drives bot
// combatants. Programs can only compute on an operand stack, query a
// read-only board snapshot, and queue commands that then go through the
// same validation as human input.
package script

// ISAVersion is the instruction set revision encoded in every program image.
const ISAVersion = 1

// Opcode is one instruction of the fixed instruction set.
type Opcode byte

const (
	OpNop  Opcode = 0x00
	OpPush Opcode = 0x01 // int32 immediate
	OpPop  Opcode = 0x02
	OpDup  Opcode = 0x03
	OpSwap Opcode = 0x04
	OpOver Opcode = 0x05

	OpAdd Opcode = 0x10
	OpSub Opcode = 0x11
	OpMul Opcode = 0x12
	OpDiv Opcode = 0x13
	OpMod Opcode = 0x14
	OpNeg Opcode = 0x15

	OpEq  Opcode = 0x20
	OpNe  Opcode = 0x21
	OpLt  Opcode = 0x22
	OpLe  Opcode = 0x23
	OpGt  Opcode = 0x24
	OpGe  Opcode = 0x25
	OpNot Opcode = 0x26
	OpAnd Opcode = 0x27
	OpOr  Opcode = 0x28

	OpJmp Opcode = 0x30 // u16 absolute target
	OpJz  Opcode = 0x31
	OpJnz Opcode = 0x32

	OpCall Opcode = 0x40 // u8 native id

	OpYield Opcode = 0x50
	OpHalt  Opcode = 0xFF
)

type opInfo struct {
	name    string
	operand int // operand bytes following the opcode
}

var opcodes = map[Opcode]opInfo{
	OpNop:   {"nop", 0},
	OpPush:  {"push", 4},
	OpPop:   {"pop", 0},
	OpDup:   {"dup", 0},
	OpSwap:  {"swap", 0},
	OpOver:  {"over", 0},
	OpAdd:   {"add", 0},
	OpSub:   {"sub", 0},
	OpMul:   {"mul", 0},
	OpDiv:   {"div", 0},
	OpMod:   {"mod", 0},
	OpNeg:   {"neg", 0},
	OpEq:    {"eq", 0},
	OpNe:    {"ne", 0},
	OpLt:    {"lt", 0},
	OpLe:    {"le", 0},
	OpGt:    {"gt", 0},
	OpGe:    {"ge", 0},
	OpNot:   {"not", 0},
	OpAnd:   {"and", 0},
	OpOr:    {"or", 0},
	OpJmp:   {"jmp", 2},
	OpJz:    {"jz", 2},
	OpJnz:   {"jnz", 2},
	OpCall:  {"call", 1},
	OpYield: {"yield", 0},
	OpHalt:  {"halt", 0},
}

var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodes))
	for op, info := range opcodes {
		m[info.name] = op
	}
	return m
}()

// String returns the assembler mnemonic.
func (op Opcode) String() string {
	if info, ok := opcodes[op]; ok {
		return info.name
	}
	return "invalid"
}

func (op Opcode) isJump() bool {
	return op == OpJmp || op == OpJz || op == OpJnz
}
