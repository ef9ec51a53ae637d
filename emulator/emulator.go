// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/sim86/cpu"
	"github.com/ezrec/sim86/image"
	"github.com/ezrec/sim86/internal"
)

var _emulator_defines = map[string]string{
	"BRANCH_MIN": fmt.Sprintf("%v", -128),
	"BRANCH_MAX": fmt.Sprintf("%v", 127),
}

// Emulator state. CPU + code image.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Rom   image.Rom // Code image executed by the CPU.
	Trace io.Writer // If set, receives one line per executed instruction.
	Limit int       // If non-zero, the maximum ticks for Run.
}

// NewEmulator creates a new emulator, optionally with a memory image.
func NewEmulator(withMemory bool) (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(withMemory),
		Program: &cpu.Program{},
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
		emu.Rom.Defines(),
	)
}

// Load an assembled program as the code image.
func (emu *Emulator) Load(prog *cpu.Program) {
	emu.Program = prog
	emu.Rom.Data = prog.Binary()
}

// Reset the processor state. The code image is retained.
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Ip returns current instruction pointer.
func (emu *Emulator) Ip() int {
	return int(emu.Cpu.Ip)
}

// LineNo returns the current line number for the executing opcode,
// or zero if there is no listing for it.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	dbg := emu.Program.Debug(emu.Cpu.Ip)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Done returns true once the instruction pointer has left the code image.
func (emu *Emulator) Done() bool {
	return emu.Ip() >= len(emu.Rom.Data)
}

// Tick performs a single tick of the emulator.
// done is set once the instruction pointer has reached or passed the
// end of the code image.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if emu.Done() {
		done = true
		return
	}

	ip := emu.Cpu.Ip
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Ip: ip, LineNo: lineno, Err: err}
		}
	}()

	inst, changes, err := emu.Cpu.Tick(emu.Rom.Data)
	if err != nil {
		return
	}

	if emu.Trace != nil {
		var line strings.Builder
		line.WriteString(inst.String())
		line.WriteString(" ;")
		for _, change := range changes {
			line.WriteString(" ")
			line.WriteString(change.String())
		}
		line.WriteString("\n")
		_, err = io.WriteString(emu.Trace, line.String())
		if err != nil {
			return
		}
	}

	done = emu.Done()

	return
}

// Run ticks the emulator until the code image is exhausted, or an error occurs.
func (emu *Emulator) Run() (err error) {
	for {
		if emu.Limit > 0 && emu.Cpu.Ticks >= emu.Limit {
			err = &ErrRuntime{Ip: emu.Cpu.Ip, LineNo: emu.LineNo(), Err: ErrTickLimit}
			return
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			break
		}
	}

	if emu.Verbose {
		log.Printf("emulator: %v ticks, %v unevaluated branches", emu.Cpu.Ticks, emu.Cpu.Unevaluated)
	}

	return
}
