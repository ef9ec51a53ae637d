package cpu

import (
	"errors"
	"fmt"
	"log"
)

// ChangeKind is the kind of state altered by an instruction.
type ChangeKind int

//go:generate go tool stringer -linecomment -type=ChangeKind
const (
	CHANGE_REGISTER    = ChangeKind(0) // register
	CHANGE_MEMORY      = ChangeKind(1) // memory
	CHANGE_IP          = ChangeKind(2) // ip
	CHANGE_FLAGS       = ChangeKind(3) // flags
	CHANGE_UNEVALUATED = ChangeKind(4) // unevaluated
)

// Change records one state alteration made by an instruction.
type Change struct {
	Kind     ChangeKind
	Register Register // CHANGE_REGISTER
	Address  uint16   // CHANGE_MEMORY
	Width    Width    // CHANGE_REGISTER, CHANGE_MEMORY
	Op       Op       // CHANGE_UNEVALUATED
	Before   uint16
	After    uint16
}

func (ch Change) String() string {
	digits := 4
	if ch.Width == WIDTH_BYTE {
		digits = 2
	}

	switch ch.Kind {
	case CHANGE_REGISTER:
		return fmt.Sprintf("%v:0x%0*x->0x%0*x", ch.Register, digits, ch.Before, digits, ch.After)
	case CHANGE_MEMORY:
		return fmt.Sprintf("[0x%04x]:0x%0*x->0x%0*x", ch.Address, digits, ch.Before, digits, ch.After)
	case CHANGE_IP:
		return fmt.Sprintf("ip:0x%04x->0x%04x", ch.Before, ch.After)
	case CHANGE_FLAGS:
		return fmt.Sprintf("flags:%v->%v", flagsString(ch.Before), flagsString(ch.After))
	case CHANGE_UNEVALUATED:
		return fmt.Sprintf("%v:%v", ch.Op, ch.Kind)
	}

	return ch.Kind.String()
}

// setFlags sets ZF and SF from a result of the given width.
func (cpu *Cpu) setFlags(result uint16, width Width) {
	result &= width.Mask()
	cpu.Zero = result == 0
	cpu.Sign = result&width.SignBit() != 0
}

// Execute executes a single decoded instruction, and returns the
// state changes in the order: data, ip, flags, unevaluated branch.
func (cpu *Cpu) Execute(inst Instruction) (changes []Change, err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrInstruction(inst), err)
		}
	}()

	if cpu.Verbose {
		log.Printf("cpu: %04x: %v", cpu.Ip, inst)
	}

	if inst.Size <= 0 {
		err = ErrInstructionSize
		return
	}

	err = cpu.checkMemory(inst)
	if err != nil {
		return
	}

	flags := cpu.Flags()

	switch {
	case inst.Op == OP_MOV:
		var value uint16
		value, err = cpu.Get(inst.Src, inst.Width)
		if err != nil {
			err = errors.Join(ErrOperandSrc, err)
			return
		}
		var delta []Change
		delta, err = cpu.Put(inst.Dst, inst.Width, value)
		if err != nil {
			err = errors.Join(ErrOperandDst, err)
			return
		}
		changes = append(changes, delta...)
	case inst.Op.IsArithmetic():
		var dst, src uint16
		dst, err = cpu.Get(inst.Dst, inst.Width)
		if err != nil {
			err = errors.Join(ErrOperandDst, err)
			return
		}
		src, err = cpu.Get(inst.Src, inst.Width)
		if err != nil {
			err = errors.Join(ErrOperandSrc, err)
			return
		}

		var result uint16
		if inst.Op == OP_ADD {
			result = dst + src
		} else {
			result = dst - src
		}
		result &= inst.Width.Mask()

		if inst.Op != OP_CMP {
			var delta []Change
			delta, err = cpu.Put(inst.Dst, inst.Width, result)
			if err != nil {
				err = errors.Join(ErrOperandDst, err)
				return
			}
			changes = append(changes, delta...)
		}

		cpu.setFlags(result, inst.Width)
	case inst.Op.IsBranch():
		// Evaluated after the instruction pointer advances.
	default:
		err = ErrInstructionInvalid
		return
	}

	ip := cpu.Ip
	cpu.Ip += uint16(inst.Size)

	evaluated := true
	if inst.Op.IsBranch() {
		var taken bool
		taken, evaluated = Taken(inst.Op, cpu.Zero, cpu.Sign)
		if taken {
			cpu.Ip += uint16(int16(inst.Branch))
		}
		if cpu.Verbose {
			switch {
			case !evaluated:
				log.Printf("cpu: %04x: %v: condition not evaluated", ip, inst.Op)
			case taken:
				log.Printf("cpu: %04x: %v: taken to %04x", ip, inst.Op, cpu.Ip)
			}
		}
	}

	changes = append(changes, Change{Kind: CHANGE_IP, Width: WIDTH_WORD, Before: ip, After: cpu.Ip})

	if after := cpu.Flags(); after != flags {
		changes = append(changes, Change{Kind: CHANGE_FLAGS, Before: flags, After: after})
	}

	if !evaluated {
		cpu.Unevaluated++
		changes = append(changes, Change{Kind: CHANGE_UNEVALUATED, Op: inst.Op})
	}

	return
}
