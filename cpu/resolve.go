package cpu

// Addressing mode field values.
const (
	MOD_MEMORY      = byte(0b00)
	MOD_MEMORY_DISP = byte(0b01)
	MOD_MEMORY_WIDE = byte(0b10)
	MOD_REGISTER    = byte(0b11)
)

// modRm splits an addressing byte into its mod, reg and r/m fields.
func modRm(b byte) (mod, reg, rm byte) {
	mod = b >> 6
	reg = (b >> 3) & 7
	rm = b & 7
	return
}

// fetch8 reads the byte at offset.
func fetch8(code []byte, offset int) (value byte, err error) {
	if offset < 0 || offset >= len(code) {
		err = ErrOpcodeTruncated
		return
	}

	value = code[offset]
	return
}

// fetch16 reads the little-endian word at offset.
func fetch16(code []byte, offset int) (value uint16, err error) {
	if offset < 0 || offset+1 >= len(code) {
		err = ErrOpcodeTruncated
		return
	}

	value = uint16(code[offset]) | uint16(code[offset+1])<<8
	return
}

// fetchImmediate reads a byte or word immediate at offset.
// A byte immediate is sign extended to 16 bits if extend is set.
func fetchImmediate(code []byte, offset int, wide bool, extend bool) (value uint16, size int, err error) {
	if wide {
		value, err = fetch16(code, offset)
		size = 2
		return
	}

	var b byte
	b, err = fetch8(code, offset)
	if err != nil {
		return
	}

	size = 1
	if extend {
		value = uint16(int16(int8(b)))
	} else {
		value = uint16(b)
	}
	return
}

// resolveRm resolves the r/m side of an addressing byte. The displacement,
// if any, is read starting at offset. size is the number of displacement
// bytes consumed.
func resolveRm(code []byte, offset int, mod byte, rm byte, width Width) (operand Operand, size int, err error) {
	switch mod {
	case MOD_REGISTER:
		operand = RegisterOperand(rm, width)
	case MOD_MEMORY:
		if rm == RM_DIRECT {
			var addr uint16
			addr, err = fetch16(code, offset)
			if err != nil {
				return
			}
			size = 2
			operand = MemoryOperand(Memory{HasDisplacement: true, Displacement: addr})
		} else {
			operand = MemoryOperand(Memory{HasBase: true, Base: Base(rm)})
		}
	case MOD_MEMORY_DISP:
		var disp byte
		disp, err = fetch8(code, offset)
		if err != nil {
			return
		}
		size = 1
		operand = MemoryOperand(Memory{
			HasBase:         true,
			Base:            Base(rm),
			HasDisplacement: true,
			Displacement:    uint16(int16(int8(disp))),
		})
	case MOD_MEMORY_WIDE:
		var disp uint16
		disp, err = fetch16(code, offset)
		if err != nil {
			return
		}
		size = 2
		operand = MemoryOperand(Memory{
			HasBase:         true,
			Base:            Base(rm),
			HasDisplacement: true,
			Displacement:    disp,
		})
	default:
		err = ErrAddressingField
	}

	return
}
