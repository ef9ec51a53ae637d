package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
)

// MEMORY_SIZE is the size of the addressable memory image.
const MEMORY_SIZE = 1 << 16

var _cpu_defines = map[string]string{
	"MEMORY_SIZE": fmt.Sprintf("0x%x", MEMORY_SIZE),
	"FLAG_ZERO":   fmt.Sprintf("0x%x", FLAG_ZERO),
	"FLAG_SIGN":   fmt.Sprintf("0x%x", FLAG_SIGN),
}

// Ram is the addressable memory image.
type Ram [MEMORY_SIZE]byte

// Read a byte or little-endian word. Word reads wrap at the top of memory.
func (ram *Ram) Read(addr uint16, width Width) (value uint16) {
	value = uint16(ram[addr])
	if width == WIDTH_WORD {
		value |= uint16(ram[addr+1]) << 8
	}

	return
}

// Write a byte or little-endian word. Word writes wrap at the top of memory.
func (ram *Ram) Write(addr uint16, width Width, value uint16) {
	ram[addr] = byte(value)
	if width == WIDTH_WORD {
		ram[addr+1] = byte(value >> 8)
	}
}

// Cpu is the processor state of the simulation.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Register [8]uint16 // ax, cx, dx, bx, sp, bp, si, di
	Ip       uint16    // Current instruction pointer.
	Zero     bool      // Zero flag.
	Sign     bool      // Sign flag.

	Memory *Ram // Memory image, or nil if memory is not modelled.

	Ticks       int // Instructions executed.
	Unevaluated int // Branches whose condition was not evaluated.
}

// NewCpu creates a new CPU, optionally with a memory image.
func NewCpu(withMemory bool) (cpu *Cpu) {
	cpu = &Cpu{}
	if withMemory {
		cpu.Memory = &Ram{}
	}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state.
// - Clears the registers, flags, instruction pointer and memory.
// - Zeros statistics counters.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Ip = 0
	cpu.Zero = false
	cpu.Sign = false
	if cpu.Memory != nil {
		clear(cpu.Memory[:])
	}
	cpu.Ticks = 0
	cpu.Unevaluated = 0
}

// Flags returns the flags in their FLAGS register positions.
func (cpu *Cpu) Flags() (flags uint16) {
	if cpu.Zero {
		flags |= FLAG_ZERO
	}
	if cpu.Sign {
		flags |= FLAG_SIGN
	}

	return
}

// flagsString renders a flags word as letters, 'Z' then 'S'.
func flagsString(flags uint16) (text string) {
	if flags&FLAG_ZERO != 0 {
		text += "Z"
	}
	if flags&FLAG_SIGN != 0 {
		text += "S"
	}

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	for n, reg := range regNames[WIDTH_WORD] {
		val := cpu.Register[n]
		text += fmt.Sprintf("% 5s: 0x%04x (%d)\n", reg, val, val)
	}
	text += fmt.Sprintf("% 5s: 0x%04x (%d)\n", "ip", cpu.Ip, cpu.Ip)
	text += fmt.Sprintf("% 5s: %v\n", "flags", flagsString(cpu.Flags()))

	return
}

// GetRegister reads a register, or a byte half of one.
func (cpu *Cpu) GetRegister(reg Register) (value uint16) {
	if reg.Width == WIDTH_WORD {
		return cpu.Register[reg.Index&7]
	}

	value = cpu.Register[reg.Index&3]
	if reg.Index&4 != 0 {
		value >>= 8
	}

	return value & 0xff
}

// SetRegister writes a register, or a byte half of one.
func (cpu *Cpu) SetRegister(reg Register, value uint16) {
	if reg.Width == WIDTH_WORD {
		cpu.Register[reg.Index&7] = value
		return
	}

	word := &cpu.Register[reg.Index&3]
	if reg.Index&4 != 0 {
		*word = (*word & 0x00ff) | (value&0xff)<<8
	} else {
		*word = (*word & 0xff00) | (value & 0xff)
	}
}

// EffectiveAddress computes the address of a memory reference.
func (cpu *Cpu) EffectiveAddress(mem Memory) (addr uint16, err error) {
	if !mem.HasBase && !mem.HasDisplacement {
		err = ErrEffectiveAddress
		return
	}

	if mem.HasBase {
		for _, reg := range mem.Base.Registers() {
			addr += cpu.Register[reg]
		}
	}

	if mem.HasDisplacement {
		addr += mem.Displacement
	}

	return
}

// Get reads the value of an operand.
func (cpu *Cpu) Get(operand Operand, width Width) (value uint16, err error) {
	switch operand.Kind {
	case OPERAND_REGISTER:
		value = cpu.GetRegister(operand.Register)
	case OPERAND_IMMEDIATE:
		value = operand.Immediate & width.Mask()
	case OPERAND_MEMORY:
		var addr uint16
		addr, err = cpu.EffectiveAddress(operand.Memory)
		if err != nil {
			return
		}
		if cpu.Memory == nil {
			err = ErrMemoryAbsent
			return
		}
		value = cpu.Memory.Read(addr, width)
	default:
		err = ErrOperandInvalid
	}

	return
}

// Put writes the value of an operand. A change record is returned
// if the value was altered.
func (cpu *Cpu) Put(operand Operand, width Width, value uint16) (changes []Change, err error) {
	value &= width.Mask()

	switch operand.Kind {
	case OPERAND_REGISTER:
		reg := operand.Register
		before := cpu.GetRegister(reg)
		cpu.SetRegister(reg, value)
		if before != value {
			changes = append(changes, Change{
				Kind:     CHANGE_REGISTER,
				Register: reg,
				Width:    reg.Width,
				Before:   before,
				After:    value,
			})
		}
	case OPERAND_MEMORY:
		var addr uint16
		addr, err = cpu.EffectiveAddress(operand.Memory)
		if err != nil {
			return
		}
		if cpu.Memory == nil {
			err = ErrMemoryAbsent
			return
		}
		before := cpu.Memory.Read(addr, width)
		cpu.Memory.Write(addr, width, value)
		if before != value {
			changes = append(changes, Change{
				Kind:    CHANGE_MEMORY,
				Address: addr,
				Width:   width,
				Before:  before,
				After:   value,
			})
		}
	default:
		err = ErrOperandInvalid
	}

	return
}

// Tick decodes and executes the instruction at the instruction pointer.
func (cpu *Cpu) Tick(code []byte) (inst Instruction, changes []Change, err error) {
	inst, err = Decode(code, int(cpu.Ip))
	if err != nil {
		return
	}

	changes, err = cpu.Execute(inst)
	if err != nil {
		return
	}

	cpu.Ticks++

	return
}

// checkMemory reports ErrMemoryAbsent for memory operands without a memory image.
func (cpu *Cpu) checkMemory(inst Instruction) (err error) {
	if cpu.Memory != nil {
		return
	}

	if inst.Dst.Kind == OPERAND_MEMORY {
		err = errors.Join(ErrOperandDst, ErrMemoryAbsent)
	} else if inst.Src.Kind == OPERAND_MEMORY {
		err = errors.Join(ErrOperandSrc, ErrMemoryAbsent)
	}

	return
}
