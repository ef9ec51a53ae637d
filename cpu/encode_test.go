package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// stripped removes the fields that depend on where, and how, an
// instruction was encoded.
func stripped(inst Instruction) Instruction {
	inst.Offset = 0
	inst.Size = 0
	return inst
}

func TestEncodeRoundTrip(t *testing.T) {
	assert := assert.New(t)

	for _, entry := range decodeTable {
		inst, err := Decode(entry.code, 0)
		if !assert.NoError(err, entry.name) {
			continue
		}

		code, err := Encode(inst)
		if !assert.NoError(err, entry.name) {
			continue
		}
		assert.LessOrEqual(len(code), len(entry.code), entry.name)

		again, err := Decode(code, 0)
		if assert.NoError(err, entry.name) {
			assert.Equal(stripped(inst), stripped(again), entry.name)
			assert.Equal(len(code), again.Size, entry.name)
		}
	}
}

func TestEncodeShortest(t *testing.T) {
	assert := assert.New(t)

	word := func(index byte) Operand { return RegisterOperand(index, WIDTH_WORD) }
	mem := func(base Base, disp uint16) Operand {
		return MemoryOperand(Memory{HasBase: true, Base: base, HasDisplacement: true, Displacement: disp})
	}

	table := [](struct {
		name string
		inst Instruction
		code []byte
	}){
		{"mov_short", Instruction{Op: OP_MOV, Width: WIDTH_WORD, Dst: word(REG_AX), Src: ImmediateOperand(5)},
			[]byte{0xb8, 0x05, 0x00}},
		{"add_accumulator", Instruction{Op: OP_ADD, Width: WIDTH_WORD, Dst: word(REG_AX), Src: ImmediateOperand(1000)},
			[]byte{0x05, 0xe8, 0x03}},
		{"sub_sext", Instruction{Op: OP_SUB, Width: WIDTH_WORD, Dst: word(REG_CX), Src: ImmediateOperand(0xfffe)},
			[]byte{0x83, 0xe9, 0xfe}},
		{"cmp_wide", Instruction{Op: OP_CMP, Width: WIDTH_WORD, Dst: word(REG_CX), Src: ImmediateOperand(0x1234)},
			[]byte{0x81, 0xf9, 0x34, 0x12}},
		{"mov_reg_reg", Instruction{Op: OP_MOV, Width: WIDTH_WORD, Dst: word(REG_SI), Src: word(REG_BX)},
			[]byte{0x89, 0xde}},
		{"mov_disp8", Instruction{Op: OP_MOV, Width: WIDTH_WORD, Dst: word(REG_AX), Src: mem(BASE_BX_DI, 0xffdb)},
			[]byte{0x8b, 0x41, 0xdb}},
		{"mov_disp16", Instruction{Op: OP_MOV, Width: WIDTH_WORD, Dst: mem(BASE_SI, 10000), Src: word(REG_DX)},
			[]byte{0x89, 0x94, 0x10, 0x27}},
		{"mov_bp", Instruction{Op: OP_MOV, Width: WIDTH_WORD, Dst: word(REG_DX),
			Src: MemoryOperand(Memory{HasBase: true, Base: BASE_BP})},
			[]byte{0x8b, 0x56, 0x00}},
		{"mov_direct", Instruction{Op: OP_MOV, Width: WIDTH_BYTE,
			Dst: MemoryOperand(Memory{HasDisplacement: true, Displacement: 1000}), Src: ImmediateOperand(7)},
			[]byte{0xc6, 0x06, 0xe8, 0x03, 0x07}},
		{"jne", Instruction{Op: OP_JNE, Branch: -6}, []byte{0x75, 0xfa}},
	}

	for _, entry := range table {
		code, err := Encode(entry.inst)
		if assert.NoError(err, entry.name) {
			assert.Equal(entry.code, code, entry.name)
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	assert := assert.New(t)

	ax := RegisterOperand(REG_AX, WIDTH_WORD)
	al := RegisterOperand(REG_AL, WIDTH_BYTE)

	table := [](struct {
		name string
		inst Instruction
		err  error
	}){
		{"unknown", Instruction{Op: OP_UNKNOWN, Dst: ax, Src: ax}, ErrInstructionInvalid},
		{"missing_src", Instruction{Op: OP_MOV, Width: WIDTH_WORD, Dst: ax}, ErrOpcodeMissing},
		{"width_mismatch", Instruction{Op: OP_MOV, Width: WIDTH_WORD, Dst: ax, Src: al}, ErrOperandWidth},
		{"byte_range", Instruction{Op: OP_ADD, Width: WIDTH_BYTE, Dst: al, Src: ImmediateOperand(0x1234)}, ErrImmediateRange},
		{"no_address", Instruction{Op: OP_MOV, Width: WIDTH_WORD, Dst: MemoryOperand(Memory{}), Src: ax}, ErrEffectiveAddress},
		{"imm_dst", Instruction{Op: OP_MOV, Width: WIDTH_WORD, Dst: ImmediateOperand(1), Src: ax}, ErrOperandInvalid},
		{"mem_mem", Instruction{Op: OP_MOV, Width: WIDTH_WORD,
			Dst: MemoryOperand(Memory{HasDisplacement: true}),
			Src: MemoryOperand(Memory{HasDisplacement: true})}, ErrOperandInvalid},
	}

	for _, entry := range table {
		code, err := Encode(entry.inst)
		assert.ErrorIs(err, entry.err, entry.name)
		assert.ErrorIs(err, ErrInstruction{}, entry.name)
		assert.Nil(code, entry.name)
	}
}
