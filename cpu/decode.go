package cpu

import (
	"errors"
)

// decodeFunc decodes one instruction whose leading byte is code[offset].
type decodeFunc func(code []byte, offset int) (inst Instruction, err error)

// opcodeClass matches a leading opcode byte by mask.
type opcodeClass struct {
	mask   byte
	match  byte
	decode decodeFunc
}

// classes is checked in order; the first match wins.
var classes = []opcodeClass{
	{0xfc, 0x88, decodeRegRm(OP_MOV)},
	{0xfc, 0x00, decodeRegRm(OP_ADD)},
	{0xfc, 0x28, decodeRegRm(OP_SUB)},
	{0xfc, 0x38, decodeRegRm(OP_CMP)},
	{0xfc, 0x04, decodeAccumulator(OP_ADD)},
	{0xfc, 0x2c, decodeAccumulator(OP_SUB)},
	{0xfc, 0x3c, decodeAccumulator(OP_CMP)},
	{0xfc, 0x80, decodeImmediateRm},
	{0xfe, 0xc6, decodeMovImmediateRm},
	{0xf0, 0xb0, decodeMovImmediateReg},
}

// groupOps maps the reg field of the immediate group to its operation.
var groupOps = map[byte]Op{
	0: OP_ADD,
	5: OP_SUB,
	7: OP_CMP,
}

// jumpTable holds the two byte jump and loop opcodes.
var jumpTable = map[byte]Op{
	0x74: OP_JE,
	0x7c: OP_JL,
	0x7e: OP_JLE,
	0x72: OP_JB,
	0x76: OP_JBE,
	0x7a: OP_JP,
	0x70: OP_JO,
	0x78: OP_JS,
	0x75: OP_JNE,
	0x7d: OP_JNL,
	0x7f: OP_JNLE,
	0x73: OP_JNB,
	0x77: OP_JNBE,
	0x7b: OP_JNP,
	0x71: OP_JNO,
	0x79: OP_JNS,
	0xe2: OP_LOOP,
	0xe1: OP_LOOPZ,
	0xe0: OP_LOOPNZ,
	0xe3: OP_JCXZ,
}

// Decode decodes the instruction at offset in code.
// On failure the returned instruction is OP_UNKNOWN, and the error
// wraps an ErrOpcode locating the failure.
func Decode(code []byte, offset int) (inst Instruction, err error) {
	defer func() {
		if err != nil {
			var opcode byte
			if offset >= 0 && offset < len(code) {
				opcode = code[offset]
			}
			inst = Instruction{Offset: offset}
			err = errors.Join(ErrOpcode{Offset: offset, Opcode: opcode}, err)
		}
	}()

	opcode, err := fetch8(code, offset)
	if err != nil {
		return
	}

	for _, class := range classes {
		if opcode&class.mask == class.match {
			inst, err = class.decode(code, offset)
			inst.Offset = offset
			return
		}
	}

	op, ok := jumpTable[opcode]
	if !ok {
		err = ErrOpcodeUnrecognized
		return
	}

	disp, err := fetch8(code, offset+1)
	if err != nil {
		return
	}

	inst = Instruction{
		Op:     op,
		Width:  WIDTH_BYTE,
		Branch: int8(disp),
		Offset: offset,
		Size:   2,
	}

	return
}

// Disassemble decodes all of code.
func Disassemble(code []byte) (insts []Instruction, err error) {
	for offset := 0; offset < len(code); {
		var inst Instruction
		inst, err = Decode(code, offset)
		if err != nil {
			return
		}
		insts = append(insts, inst)
		offset += inst.Size
	}

	return
}

func opcodeWidth(opcode byte) Width {
	return Width(opcode & 1)
}

// decodeRegRm decodes the register to/from register/memory forms.
func decodeRegRm(op Op) decodeFunc {
	return func(code []byte, offset int) (inst Instruction, err error) {
		opcode := code[offset]
		toReg := (opcode>>1)&1 == 1
		width := opcodeWidth(opcode)

		b, err := fetch8(code, offset+1)
		if err != nil {
			return
		}

		mod, reg, rm := modRm(b)
		operand, size, err := resolveRm(code, offset+2, mod, rm, width)
		if err != nil {
			return
		}

		inst = Instruction{
			Op:    op,
			Width: width,
			Dst:   operand,
			Src:   RegisterOperand(reg, width),
			Size:  2 + size,
		}
		if toReg {
			inst.Dst, inst.Src = inst.Src, inst.Dst
		}

		return
	}
}

// decodeAccumulator decodes the immediate to accumulator forms.
func decodeAccumulator(op Op) decodeFunc {
	return func(code []byte, offset int) (inst Instruction, err error) {
		width := opcodeWidth(code[offset])

		value, size, err := fetchImmediate(code, offset+1, width == WIDTH_WORD, false)
		if err != nil {
			return
		}

		inst = Instruction{
			Op:    op,
			Width: width,
			Dst:   RegisterOperand(REG_AX, width),
			Src:   ImmediateOperand(value),
			Size:  1 + size,
		}

		return
	}
}

// decodeImmediateRm decodes the add/sub/cmp immediate to register/memory group.
func decodeImmediateRm(code []byte, offset int) (inst Instruction, err error) {
	opcode := code[offset]
	extend := (opcode>>1)&1 == 1
	width := opcodeWidth(opcode)

	b, err := fetch8(code, offset+1)
	if err != nil {
		return
	}

	mod, reg, rm := modRm(b)
	op, ok := groupOps[reg]
	if !ok {
		err = ErrAddressingField
		return
	}

	operand, size, err := resolveRm(code, offset+2, mod, rm, width)
	if err != nil {
		return
	}

	wide := width == WIDTH_WORD && !extend
	value, immSize, err := fetchImmediate(code, offset+2+size, wide, extend && width == WIDTH_WORD)
	if err != nil {
		return
	}

	inst = Instruction{
		Op:    op,
		Width: width,
		Dst:   operand,
		Src:   ImmediateOperand(value),
		Size:  2 + size + immSize,
	}

	return
}

// decodeMovImmediateRm decodes the mov immediate to register/memory form.
func decodeMovImmediateRm(code []byte, offset int) (inst Instruction, err error) {
	width := opcodeWidth(code[offset])

	b, err := fetch8(code, offset+1)
	if err != nil {
		return
	}

	mod, _, rm := modRm(b)
	operand, size, err := resolveRm(code, offset+2, mod, rm, width)
	if err != nil {
		return
	}

	value, immSize, err := fetchImmediate(code, offset+2+size, width == WIDTH_WORD, false)
	if err != nil {
		return
	}

	inst = Instruction{
		Op:    OP_MOV,
		Width: width,
		Dst:   operand,
		Src:   ImmediateOperand(value),
		Size:  2 + size + immSize,
	}

	return
}

// decodeMovImmediateReg decodes the short mov immediate to register form.
func decodeMovImmediateReg(code []byte, offset int) (inst Instruction, err error) {
	opcode := code[offset]
	width := Width((opcode >> 3) & 1)

	value, size, err := fetchImmediate(code, offset+1, width == WIDTH_WORD, false)
	if err != nil {
		return
	}

	inst = Instruction{
		Op:    OP_MOV,
		Width: width,
		Dst:   RegisterOperand(opcode&7, width),
		Src:   ImmediateOperand(value),
		Size:  1 + size,
	}

	return
}
