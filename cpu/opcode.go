package cpu

// Op is a decoded operation.
type Op int

//go:generate go tool stringer -linecomment -type=Op
const (
	OP_UNKNOWN = Op(0)  // (unknown)
	OP_MOV     = Op(1)  // mov
	OP_ADD     = Op(2)  // add
	OP_SUB     = Op(3)  // sub
	OP_CMP     = Op(4)  // cmp
	OP_JE      = Op(5)  // je
	OP_JL      = Op(6)  // jl
	OP_JLE     = Op(7)  // jle
	OP_JB      = Op(8)  // jb
	OP_JBE     = Op(9)  // jbe
	OP_JP      = Op(10) // jp
	OP_JO      = Op(11) // jo
	OP_JS      = Op(12) // js
	OP_JNE     = Op(13) // jne
	OP_JNL     = Op(14) // jnl
	OP_JNLE    = Op(15) // jnle
	OP_JNB     = Op(16) // jnb
	OP_JNBE    = Op(17) // jnbe
	OP_JNP     = Op(18) // jnp
	OP_JNO     = Op(19) // jno
	OP_JNS     = Op(20) // jns
	OP_LOOP    = Op(21) // loop
	OP_LOOPZ   = Op(22) // loopz
	OP_LOOPNZ  = Op(23) // loopnz
	OP_JCXZ    = Op(24) // jcxz
)

// IsBranch returns true for the conditional jump and loop operations.
func (op Op) IsBranch() bool {
	return op >= OP_JE && op <= OP_JCXZ
}

// IsArithmetic returns true for operations that update the flags.
func (op Op) IsArithmetic() bool {
	return op == OP_ADD || op == OP_SUB || op == OP_CMP
}

// Width is an operand width.
type Width int

//go:generate go tool stringer -linecomment -type=Width
const (
	WIDTH_BYTE = Width(0) // byte
	WIDTH_WORD = Width(1) // word
)

// Mask returns the value mask of the width.
func (width Width) Mask() uint16 {
	if width == WIDTH_BYTE {
		return 0x00ff
	}
	return 0xffff
}

// SignBit returns the most significant bit of the width.
func (width Width) SignBit() uint16 {
	if width == WIDTH_BYTE {
		return 0x0080
	}
	return 0x8000
}

// General purpose register indexes, as encoded in the reg and r/m fields.
// For byte operands, indexes 0-3 are the low halves of ax..bx, and
// indexes 4-7 are the high halves.
const (
	REG_AX = byte(0)
	REG_CX = byte(1)
	REG_DX = byte(2)
	REG_BX = byte(3)
	REG_SP = byte(4)
	REG_BP = byte(5)
	REG_SI = byte(6)
	REG_DI = byte(7)

	REG_AL = byte(0)
	REG_CL = byte(1)
	REG_DL = byte(2)
	REG_BL = byte(3)
	REG_AH = byte(4)
	REG_CH = byte(5)
	REG_DH = byte(6)
	REG_BH = byte(7)
)

var regNames = [2][8]string{
	{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"},
	{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"},
}

// Base is one of the eight effective address base combinations.
type Base int

//go:generate go tool stringer -linecomment -type=Base
const (
	BASE_BX_SI = Base(0) // bx+si
	BASE_BX_DI = Base(1) // bx+di
	BASE_BP_SI = Base(2) // bp+si
	BASE_BP_DI = Base(3) // bp+di
	BASE_SI    = Base(4) // si
	BASE_DI    = Base(5) // di
	BASE_BP    = Base(6) // bp
	BASE_BX    = Base(7) // bx
)

// RM_DIRECT is the r/m value that selects a direct address when mod is 00.
const RM_DIRECT = byte(0b110)

// baseTable lists the registers summed by each base combination.
var baseTable = [8][]byte{
	BASE_BX_SI: {REG_BX, REG_SI},
	BASE_BX_DI: {REG_BX, REG_DI},
	BASE_BP_SI: {REG_BP, REG_SI},
	BASE_BP_DI: {REG_BP, REG_DI},
	BASE_SI:    {REG_SI},
	BASE_DI:    {REG_DI},
	BASE_BP:    {REG_BP},
	BASE_BX:    {REG_BX},
}

// Registers returns the register indexes summed by the base combination.
func (base Base) Registers() []byte {
	return baseTable[int(base)&7]
}

// Flag bits, in their 8086 FLAGS register positions.
const (
	FLAG_ZERO = uint16(1 << 6)
	FLAG_SIGN = uint16(1 << 7)
)
