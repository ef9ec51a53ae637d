package cpu

import (
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal("0x10000", asm.Equate["MEMORY_SIZE"])
}

func opEqual(t *testing.T, expected, opcodes []Opcode) {
	assert := assert.New(t)

	assert.Equal(len(expected), len(opcodes))
	if len(expected) == len(opcodes) {
		for n := range len(expected) {
			assert.Equal(expected[n], opcodes[n])
		}
	}
}

func TestAssemblerForms(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	program := []string{
		"bits 16",
		"mov ax, 5",
		"mov cl, bl ; byte registers",
		"add word [bx + si + 4], 1000",
		"sub al, -1",
		"cmp dx, [bp]",
		"jne $-2",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
		return
	}

	expected := []Opcode{
		{2, 0, []string{"mov", "ax", "5"}, []byte{0xb8, 0x05, 0x00}, ""},
		{3, 3, []string{"mov", "cl", "bl"}, []byte{0x88, 0xd9}, ""},
		{4, 5, []string{"add", "word [bx + si + 4]", "1000"}, []byte{0x81, 0x40, 0x04, 0xe8, 0x03}, ""},
		{5, 10, []string{"sub", "al", "-1"}, []byte{0x2c, 0xff}, ""},
		{6, 12, []string{"cmp", "dx", "[bp]"}, []byte{0x3b, 0x56, 0x00}, ""},
		{7, 15, []string{"jne", "$-2"}, []byte{0x75, 0xfc}, ""},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerDisassembly(t *testing.T) {
	assert := assert.New(t)

	// Listings from Disassemble re-assemble to the same machine code.
	var code []byte
	for _, entry := range decodeTable {
		inst, err := Decode(entry.code, 0)
		assert.NoError(err)
		encoded, err := Encode(inst)
		assert.NoError(err)
		code = append(code, encoded...)
	}

	insts, err := Disassemble(code)
	assert.NoError(err)

	lines := []string{"bits 16"}
	for _, inst := range insts {
		lines = append(lines, inst.String())
	}

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(lines, "\n")))
	if assert.NoError(err) {
		assert.Equal(code, prog.Binary())
	}
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("SCALE", "3")

	program := []string{
		".equ COUNT 10",
		".equ BASE 0x100",
		"mov word [BASE], COUNT",
		"mov al, $(COUNT * 2 + 1)",
		"mov bl, 'A'",
		"mov dx, $(SCALE * COUNT)",
		"mov si, $(LINENO)",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(errors.Unwrap(err))
	}

	expected := []Opcode{
		{3, 0, []string{"mov", "word [0x100]", "10"}, []byte{0xc7, 0x06, 0x00, 0x01, 0x0a, 0x00}, ""},
		{4, 6, []string{"mov", "al", "21"}, []byte{0xb0, 0x15}, ""},
		{5, 8, []string{"mov", "bl", "65"}, []byte{0xb3, 0x41}, ""},
		{6, 10, []string{"mov", "dx", "30"}, []byte{0xba, 0x1e, 0x00}, ""},
		{7, 13, []string{"mov", "si", "7"}, []byte{0xbe, 0x07, 0x00}, ""},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		".macro ZERO reg",
		"sub reg, reg",
		".endm",
		".macro SETADD r, a, b",
		"mov r, a",
		"add r, b",
		".endm",
		"ZERO ax",
		"SETADD cx, 8, 8",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		log.Fatal(err)
	}

	expected := []Opcode{
		{2, 0, []string{"sub", "ax", "ax"}, []byte{0x29, 0xc0}, ""},
		{5, 2, []string{"mov", "cx", "8"}, []byte{0xb9, 0x08, 0x00}, ""},
		{6, 5, []string{"add", "cx", "8"}, []byte{0x83, 0xc1, 0x08}, ""},
	}

	opEqual(t, expected, prog.Opcodes)
}

func TestAssemblerMacroLocalLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		".macro SPIN",
		"@top: sub ax, 1",
		"jnz @top",
		".endm",
		"SPIN",
		"SPIN",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal([]byte{
		0x2d, 0x01, 0x00, 0x75, 0xfb,
		0x2d, 0x01, 0x00, 0x75, 0xfb,
	}, prog.Binary())
	assert.Equal(0, asm.Label["SPIN_5_top"])
	assert.Equal(5, asm.Label["SPIN_6_top"])
}

func TestAssemblerLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		"start:",
		"mov cx, 3",
		"loop_top: sub cx, 1",
		"jnz loop_top",
		"je done",
		"mov ax, 1",
		"done:",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	expected := []Opcode{
		{2, 0, []string{"mov", "cx", "3"}, []byte{0xb9, 0x03, 0x00}, ""},
		{3, 3, []string{"sub", "cx", "1"}, []byte{0x83, 0xe9, 0x01}, ""},
		{4, 6, []string{"jnz", "loop_top"}, []byte{0x75, 0xfb}, "loop_top"},
		{5, 8, []string{"je", "done"}, []byte{0x74, 0x03}, "done"},
		{6, 10, []string{"mov", "ax", "1"}, []byte{0xb8, 0x01, 0x00}, ""},
	}

	opEqual(t, expected, prog.Opcodes)

	assert.Equal(0, asm.Label["start"])
	assert.Equal(3, asm.Label["loop_top"])
	assert.Equal(13, asm.Label["done"])
}

func TestAssemblerErrSyntax(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	// Various syntax errors
	table := [](struct {
		prog string
		line int
		err  error
	}){
		{"DUP:\nDUP:\n", 2, ErrLabelDuplicate},
		{"mov ax", 1, ErrOpcodeMissing},
		{"mov ax,", 1, ErrOpcodeMissing},
		{"mov ax, bx, cx", 1, ErrOpcodeExtraArgs},
		{"mov [bx], 5", 1, ErrOperandWidth},
		{"mov ax, bl", 1, ErrOperandWidth},
		{"mov byte ax, 5", 1, ErrOperandWidth},
		{"mov al, 300", 1, ErrImmediateRange},
		{"mov ax, -40000", 1, ErrImmediateRange},
		{"mov 5, ax", 1, ErrTargetInvalid},
		{"mov ax, [bx+bp]", 1, ErrMemoryInvalid},
		{"mov ax, [al]", 1, ErrMemoryInvalid},
		{"mov ax, []", 1, ErrMemoryInvalid},
		{"mov ax, nothing", 1, ErrParseOperand("nothing")},
		{"mov ax, [bx+nothing]", 1, ErrParseNumber("+nothing")},
		{"xor ax, ax", 1, ErrInstructionInvalid},
		{"bits 32", 1, ErrInstructionInvalid},
		{"jne", 1, ErrOpcodeMissing},
		{"jne a, b", 1, ErrOpcodeExtraArgs},
		{"jne $-200", 1, ErrBranchRange},
		{"jne 1000", 1, ErrBranchRange},
		{"jne [bx]", 1, ErrTargetInvalid},
		{"mov ax, 1\njne nowhere\n", 2, ErrLabelMissing("nowhere")},
		{".equ", 1, ErrEquateSyntax},
		{".equ A", 1, ErrEquateSyntax},
		{".equ A 1\n.equ A 2\n", 2, ErrEquateDuplicate},
		{".macro A B C\n.endm\nA 1\n", 3, ErrMacroSyntax},
		{".macro A B\n.macro C\n.endm\n.endm", 2, ErrMacroNesting},
		{".macro A B\n.endm\n.macro A\n.endm\n", 3, ErrMacroDuplicate},
		{".macro A B\n.endm\n.endm\n", 3, ErrMacroLonelyEndm},
		{".macro A\nmov ax, 1\n", 2, ErrMacroLonely},
		{".macro A B\nmov B, 1\n.endm\nA ax\nA 5\n", 5, ErrOperandWidth},
		{".macro A B\nmov B, ax\n.endm\nA bx\nA 5\n", 5, ErrTargetInvalid},
	}

	for _, entry := range table {
		_, err := asm.Parse(strings.NewReader(entry.prog))
		var se *ErrSyntax
		assert.NotNil(err, entry.prog)
		if err != nil {
			assert.True(errors.As(err, &se), entry.prog)
			assert.Equal(entry.line, se.LineNo, entry.prog)
			assert.ErrorIs(err, entry.err, entry.prog)
		}
	}

	// Far branches to labels are caught at link time.
	far := []string{"top:"}
	for range 43 {
		far = append(far, "mov ax, 1")
	}
	far = append(far, "jne top")
	_, err := asm.Parse(strings.NewReader(strings.Join(far, "\n")))
	var se *ErrSyntax
	if assert.True(errors.As(err, &se)) {
		assert.Equal(45, se.LineNo)
		assert.ErrorIs(err, ErrBranchRange)
	}

	// Starlark expression failures.
	for _, prog := range []string{"mov ax, $(1 +)", "mov ax, $(\"aaa\")", "mov ax, $(0x10000000000000000)"} {
		_, err := asm.Parse(strings.NewReader(prog))
		assert.True(errors.As(err, &se), prog)
	}
}
