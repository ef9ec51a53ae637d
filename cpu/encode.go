package cpu

import (
	"errors"
)

// regRmOpcodes are the register to/from register/memory opcodes, d=0 w=0.
var regRmOpcodes = map[Op]byte{
	OP_MOV: 0x88,
	OP_ADD: 0x00,
	OP_SUB: 0x28,
	OP_CMP: 0x38,
}

// accumulatorOpcodes are the immediate to accumulator opcodes, w=0.
var accumulatorOpcodes = map[Op]byte{
	OP_ADD: 0x04,
	OP_SUB: 0x2c,
	OP_CMP: 0x3c,
}

// groupSubs are the reg field values of the immediate group.
var groupSubs = map[Op]byte{
	OP_ADD: 0,
	OP_SUB: 5,
	OP_CMP: 7,
}

// Encode returns the shortest machine code for an instruction.
// Offset and Size of the instruction are ignored.
func Encode(inst Instruction) (code []byte, err error) {
	defer func() {
		if err != nil {
			code = nil
			err = errors.Join(ErrInstruction(inst), err)
		}
	}()

	if inst.Op.IsBranch() {
		for opcode, op := range jumpTable {
			if op == inst.Op {
				code = []byte{opcode, byte(inst.Branch)}
				return
			}
		}
	}

	if inst.Op != OP_MOV && !inst.Op.IsArithmetic() {
		err = ErrInstructionInvalid
		return
	}

	err = checkOperand(inst.Width, inst.Dst)
	if err != nil {
		err = errors.Join(ErrOperandDst, err)
		return
	}

	err = checkOperand(inst.Width, inst.Src)
	if err != nil {
		err = errors.Join(ErrOperandSrc, err)
		return
	}

	w := byte(inst.Width) & 1

	switch {
	case inst.Src.Kind == OPERAND_IMMEDIATE && inst.Dst.Kind == OPERAND_REGISTER && inst.Op == OP_MOV:
		code = []byte{0xb0 | w<<3 | inst.Dst.Register.Index}
		code = appendImmediate(code, inst.Width, inst.Src.Immediate)
	case inst.Src.Kind == OPERAND_IMMEDIATE && inst.Dst.Kind == OPERAND_REGISTER && inst.Dst.Register.Index == REG_AX:
		code = []byte{accumulatorOpcodes[inst.Op] | w}
		code = appendImmediate(code, inst.Width, inst.Src.Immediate)
	case inst.Src.Kind == OPERAND_IMMEDIATE && inst.Op == OP_MOV:
		code = []byte{0xc6 | w}
		code, err = appendRm(code, inst.Dst, 0)
		if err != nil {
			return
		}
		code = appendImmediate(code, inst.Width, inst.Src.Immediate)
	case inst.Src.Kind == OPERAND_IMMEDIATE:
		width := inst.Width
		if width == WIDTH_WORD && fitsInt8(inst.Src.Immediate) {
			code = []byte{0x83}
			width = WIDTH_BYTE
		} else {
			code = []byte{0x80 | w}
		}
		code, err = appendRm(code, inst.Dst, groupSubs[inst.Op])
		if err != nil {
			return
		}
		code = appendImmediate(code, width, inst.Src.Immediate)
	case inst.Src.Kind == OPERAND_REGISTER && inst.Dst.Kind != OPERAND_IMMEDIATE:
		code = []byte{regRmOpcodes[inst.Op] | w}
		code, err = appendRm(code, inst.Dst, inst.Src.Register.Index)
	case inst.Src.Kind == OPERAND_MEMORY && inst.Dst.Kind == OPERAND_REGISTER:
		code = []byte{regRmOpcodes[inst.Op] | 0b10 | w}
		code, err = appendRm(code, inst.Src, inst.Dst.Register.Index)
	default:
		err = ErrOperandInvalid
	}

	return
}

// checkOperand verifies an operand is consistent with the instruction width.
func checkOperand(width Width, operand Operand) (err error) {
	switch operand.Kind {
	case OPERAND_NONE:
		err = ErrOpcodeMissing
	case OPERAND_REGISTER:
		if operand.Register.Width != width || operand.Register.Index > 7 {
			err = ErrOperandWidth
		}
	case OPERAND_MEMORY:
		if !operand.Memory.HasBase && !operand.Memory.HasDisplacement {
			err = ErrEffectiveAddress
		}
	case OPERAND_IMMEDIATE:
		if width == WIDTH_BYTE && operand.Immediate > 0xff && !fitsInt8(operand.Immediate) {
			err = ErrImmediateRange
		}
	default:
		err = ErrOperandInvalid
	}

	return
}

// fitsInt8 returns true if value is the sign extension of a byte.
func fitsInt8(value uint16) bool {
	v := int16(value)
	return v >= -128 && v <= 127
}

func appendImmediate(code []byte, width Width, value uint16) []byte {
	if width == WIDTH_BYTE {
		return append(code, byte(value))
	}
	return append(code, byte(value), byte(value>>8))
}

// appendRm appends the addressing byte and displacement for operand.
func appendRm(code []byte, operand Operand, reg byte) ([]byte, error) {
	reg = (reg & 7) << 3

	if operand.Kind == OPERAND_REGISTER {
		return append(code, MOD_REGISTER<<6|reg|operand.Register.Index), nil
	}

	if operand.Kind != OPERAND_MEMORY {
		return code, ErrOperandInvalid
	}

	mem := operand.Memory
	rm := byte(mem.Base) & 7
	disp := mem.Displacement

	switch {
	case !mem.HasBase && !mem.HasDisplacement:
		return code, ErrEffectiveAddress
	case !mem.HasBase:
		return append(code, MOD_MEMORY<<6|reg|RM_DIRECT, byte(disp), byte(disp>>8)), nil
	case !mem.HasDisplacement && mem.Base != BASE_BP:
		return append(code, MOD_MEMORY<<6|reg|rm), nil
	case fitsInt8(disp):
		// [bp] has no mod 00 form, so it takes a zero displacement.
		return append(code, MOD_MEMORY_DISP<<6|reg|rm, byte(disp)), nil
	default:
		return append(code, MOD_MEMORY_WIDE<<6|reg|rm, byte(disp), byte(disp>>8)), nil
	}
}
