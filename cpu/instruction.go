package cpu

import (
	"fmt"
)

// Instruction is a fully decoded instruction.
type Instruction struct {
	Op     Op      // Operation.
	Width  Width   // Operand width.
	Dst    Operand // Destination operand.
	Src    Operand // Source operand.
	Branch int8    // Relative branch displacement, for branch operations.
	Offset int     // Offset of the instruction in the code stream.
	Size   int     // Encoded length in bytes.
}

// Target returns the branch destination of a branch instruction.
func (inst Instruction) Target() int {
	return inst.Offset + inst.Size + int(inst.Branch)
}

// String returns the instruction in assembly syntax.
func (inst Instruction) String() string {
	if inst.Op.IsBranch() {
		// Relative to the start of this instruction, as NASM '$' does.
		return fmt.Sprintf("%v $%+d", inst.Op, int(inst.Branch)+inst.Size)
	}

	if inst.Dst.Kind == OPERAND_NONE {
		return inst.Op.String()
	}

	size := ""
	if inst.Dst.Kind == OPERAND_MEMORY && inst.Src.Kind == OPERAND_IMMEDIATE {
		size = inst.Width.String() + " "
	}

	if inst.Src.Kind == OPERAND_NONE {
		return fmt.Sprintf("%v %v%v", inst.Op, size, inst.Dst)
	}

	return fmt.Sprintf("%v %v%v, %v", inst.Op, size, inst.Dst, inst.Src)
}
