package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testProgram() *Program {
	return &Program{
		Opcodes: []Opcode{
			{LineNo: 1, Ip: 0, Words: []string{"mov", "ax", "5"}, Code: []byte{0xb8, 0x05, 0x00}},
			{LineNo: 2, Ip: 3, Words: []string{"mov", "cl", "bl"}, Code: []byte{0x88, 0xd9}},
			{LineNo: 4, Ip: 5, Words: []string{"jne", "top"}, Code: []byte{0x75, 0xf9}, LinkLabel: "top"},
		},
	}
}

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	table := [](struct {
		ip     uint16
		lineno int
		index  int
	}){
		{0, 1, 0},
		{2, 1, 2},
		{3, 2, 0},
		{4, 2, 1},
		{5, 4, 0},
		{6, 4, 1},
	}

	for _, entry := range table {
		dbg := prog.Debug(entry.ip)
		if assert.NotNil(dbg.Opcode, "ip %v", entry.ip) {
			assert.Equal(entry.lineno, dbg.LineNo, "ip %v", entry.ip)
			assert.Equal(entry.index, dbg.Index, "ip %v", entry.ip)
		}
	}
}

func TestProgram_Debug_NotFound(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	dbg := prog.Debug(7)
	assert.Nil(dbg.Opcode)
	assert.Equal(0, dbg.Index)

	dbg = (&Program{}).Debug(0)
	assert.Nil(dbg.Opcode)
}

func TestProgram_Binary(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()
	assert.Equal([]byte{0xb8, 0x05, 0x00, 0x88, 0xd9, 0x75, 0xf9}, prog.Binary())

	assert.Nil((&Program{}).Binary())
}

func TestProgram_Codes(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	var ips []uint16
	for ip, code := range prog.Codes() {
		ips = append(ips, ip)
		assert.Equal(prog.Binary()[ip], code)
	}
	assert.Equal([]uint16{0, 1, 2, 3, 4, 5, 6}, ips)
}

func TestProgram_Codes_EarlyReturn(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	count := 0
	for range prog.Codes() {
		count++
		if count == 4 {
			break
		}
	}
	assert.Equal(4, count)
}

func TestProgram_Integration_ParseAndDebug(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := strings.Join([]string{
		"mov ax, 0x100",
		"; comment only",
		"add ax, bx",
		"cmp ax, 0",
	}, "\n")

	prog, err := asm.Parse(strings.NewReader(program))
	assert.NoError(err)

	assert.Equal([]byte{0xb8, 0x00, 0x01, 0x01, 0xd8, 0x3d, 0x00, 0x00}, prog.Binary())

	dbg := prog.Debug(0)
	assert.NotNil(dbg.Opcode)
	assert.Equal(1, dbg.Opcode.LineNo)

	dbg = prog.Debug(4)
	assert.NotNil(dbg.Opcode)
	assert.Equal(3, dbg.Opcode.LineNo)

	dbg = prog.Debug(5)
	assert.NotNil(dbg.Opcode)
	assert.Equal(4, dbg.Opcode.LineNo)
}
