package cpu

import (
	"fmt"
)

// OperandKind selects which field of an Operand is in use.
type OperandKind int

//go:generate go tool stringer -linecomment -type=OperandKind
const (
	OPERAND_NONE      = OperandKind(0) // none
	OPERAND_REGISTER  = OperandKind(1) // register
	OPERAND_MEMORY    = OperandKind(2) // memory
	OPERAND_IMMEDIATE = OperandKind(3) // immediate
)

// Register is a general purpose register, or one of its byte halves.
type Register struct {
	Index byte  // Register index, 0-7.
	Width Width // Byte or word access.
}

func (reg Register) String() string {
	return regNames[int(reg.Width)&1][reg.Index&7]
}

// Word returns the 16-bit register containing this register.
func (reg Register) Word() Register {
	if reg.Width == WIDTH_WORD {
		return reg
	}
	return Register{Index: reg.Index & 3, Width: WIDTH_WORD}
}

// Memory is a memory reference: a base combination, a displacement, or both.
// With no base, the displacement is an absolute 16-bit address.
type Memory struct {
	HasBase         bool   // Set if Base is in use.
	Base            Base   // Base register combination.
	HasDisplacement bool   // Set if Displacement is in use.
	Displacement    uint16 // Displacement, sign extended to 16 bits.
}

func (mem Memory) String() string {
	switch {
	case !mem.HasBase:
		return fmt.Sprintf("[%d]", mem.Displacement)
	case mem.HasDisplacement && mem.Displacement != 0:
		return fmt.Sprintf("[%v%+d]", mem.Base, int16(mem.Displacement))
	default:
		return fmt.Sprintf("[%v]", mem.Base)
	}
}

// Operand is one side of an instruction. Only the field selected by
// Kind is meaningful.
type Operand struct {
	Kind      OperandKind
	Register  Register // OPERAND_REGISTER
	Memory    Memory   // OPERAND_MEMORY
	Immediate uint16   // OPERAND_IMMEDIATE
}

// RegisterOperand makes a register operand.
func RegisterOperand(index byte, width Width) Operand {
	return Operand{Kind: OPERAND_REGISTER, Register: Register{Index: index & 7, Width: width}}
}

// MemoryOperand makes a memory operand.
func MemoryOperand(mem Memory) Operand {
	return Operand{Kind: OPERAND_MEMORY, Memory: mem}
}

// ImmediateOperand makes an immediate operand.
func ImmediateOperand(value uint16) Operand {
	return Operand{Kind: OPERAND_IMMEDIATE, Immediate: value}
}

func (op Operand) String() string {
	switch op.Kind {
	case OPERAND_REGISTER:
		return op.Register.String()
	case OPERAND_MEMORY:
		return op.Memory.String()
	case OPERAND_IMMEDIATE:
		return fmt.Sprintf("%d", op.Immediate)
	}
	return ""
}
