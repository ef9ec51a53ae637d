package cpu

import (
	"iter"
)

// Opcode represents a line of assembled code with its source location and generated machine code.
type Opcode struct {
	LineNo    int
	Ip        int
	Words     []string
	Code      []byte
	LinkLabel string
}

type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug locates the opcode containing the byte at ip.
func (prog *Program) Debug(ip uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(ip) >= op.Ip && int(ip) < op.Ip+len(op.Code) {
			index := int(ip) - op.Ip
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  index,
			}
			break
		}
	}

	return
}

// Binary returns the machine code of the program.
func (prog *Program) Binary() (bins []byte) {
	for _, code := range prog.Codes() {
		bins = append(bins, code)
	}

	return
}

// Codes iterates over the bytes of machine code by address.
func (prog *Program) Codes() iter.Seq2[uint16, byte] {
	return func(yield func(ip uint16, code byte) bool) {
		for _, op := range prog.Opcodes {
			ip := uint16(op.Ip)
			for n, code := range op.Code {
				if !yield(ip+uint16(n), code) {
					return
				}
			}
		}
	}
}
