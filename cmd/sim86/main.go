// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ezrec/sim86/cpu"
	"github.com/ezrec/sim86/emulator"
	"github.com/ezrec/sim86/image"
	"github.com/ezrec/sim86/translate"
)

func main() {
	var source string
	var binary string
	var prefixed bool
	var execute bool
	var quiet bool
	var dump string
	var preload string
	var save string
	var registersOnly bool
	var limit int
	var verbose bool
	defines := map[string]string{}

	flag.StringVar(&source, "a", "", ".asm file to assemble")
	flag.StringVar(&binary, "i", "", "Binary code image to load")
	flag.BoolVar(&prefixed, "p", false, "Code images carry a 2-byte length prefix")
	flag.BoolVar(&execute, "x", false, "Execute, instead of disassembling")
	flag.BoolVar(&quiet, "q", false, "Do not trace executed instructions")
	flag.StringVar(&dump, "d", "", "Write the memory image to this file after execution ('-' for stdout)")
	flag.StringVar(&preload, "m", "", "Memory image to load before execution")
	flag.StringVar(&save, "s", "", "Save the code image to this file")
	flag.BoolVar(&registersOnly, "r", false, "Do not model memory")
	flag.IntVar(&limit, "t", 0, "Maximum instructions to execute (0 for no limit)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.Func("D", "Assembler define NAME=VALUE", func(text string) (err error) {
		name, value, ok := strings.Cut(text, "=")
		if !ok || len(name) == 0 {
			err = cpu.ErrEquateSyntax
			return
		}
		defines[name] = value
		return
	})

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if (len(source) == 0) == (len(binary) == 0) {
		log.Fatalf("%v: exactly one of -a or -i is required", os.Args[0])
	}

	if registersOnly && (len(dump) != 0 || len(preload) != 0) {
		log.Fatalf("%v: -d and -m need memory, and cannot be used with -r", os.Args[0])
	}

	if dump == "-" && term.IsTerminal(int(os.Stdout.Fd())) {
		log.Fatalf("%v: refusing to write a memory image to a terminal", os.Args[0])
	}

	emu := emulator.NewEmulator(!registersOnly)
	emu.Verbose = verbose
	emu.Limit = limit
	emu.Rom.Prefixed = prefixed

	// Assemble a new code image.
	if len(source) != 0 {
		inf, err := os.Open(source)
		if err != nil {
			log.Fatalf("%v: %v", source, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		for key, value := range defines {
			asm.Predefine(key, value)
		}

		prog, err := asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", source, err)
		}
		emu.Load(prog)
	}

	// Load an existing code image.
	if len(binary) != 0 {
		inf, err := os.Open(binary)
		if err != nil {
			log.Fatalf("%v: %v", binary, err)
		}
		defer inf.Close()

		err = emu.Rom.Unmarshal(inf)
		if err != nil {
			log.Fatalf("%v: %v", binary, err)
		}
	}

	if len(save) != 0 {
		ouf, err := os.Create(save)
		if err != nil {
			log.Fatalf("%v: %v", save, err)
		}
		err = emu.Rom.Marshal(ouf)
		if err == nil {
			err = ouf.Close()
		}
		if err != nil {
			log.Fatalf("%v: %v", save, err)
		}
	}

	if !execute {
		insts, err := cpu.Disassemble(emu.Rom.Data)
		if werr := writeListing(os.Stdout, insts); werr != nil {
			log.Fatalf("%v: %v", os.Args[0], werr)
		}
		if err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	emu.Reset()

	if len(preload) != 0 {
		inf, err := os.Open(preload)
		if err != nil {
			log.Fatalf("%v: %v", preload, err)
		}
		defer inf.Close()

		memory := &image.Dump{Memory: emu.Cpu.Memory}
		err = memory.Unmarshal(inf)
		if err != nil {
			log.Fatalf("%v: %v", preload, err)
		}
	}

	// Keep stdout clean for a memory image.
	var report io.Writer = os.Stdout
	if dump == "-" {
		report = os.Stderr
	}

	if !quiet {
		emu.Trace = report
	}

	runErr := emu.Run()
	if runErr != nil {
		log.Printf("%v", runErr)
	}

	if werr := writeSummary(report, emu); werr != nil {
		log.Fatalf("%v: %v", os.Args[0], werr)
	}

	if len(dump) != 0 {
		var err error
		var ouf io.WriteCloser = os.Stdout
		if dump != "-" {
			ouf, err = os.Create(dump)
			if err != nil {
				log.Fatalf("%v: %v", dump, err)
			}
		}
		memory := &image.Dump{Memory: emu.Cpu.Memory}
		err = memory.Marshal(ouf)
		if err == nil && dump != "-" {
			err = ouf.Close()
		}
		if err != nil {
			log.Fatalf("%v: %v", dump, err)
		}
	}

	if runErr != nil {
		os.Exit(1)
	}
}

// writeListing writes a disassembly listing that re-assembles to the same code.
func writeListing(w io.Writer, insts []cpu.Instruction) (err error) {
	_, err = translate.Fprintf(w, "bits 16\n")
	for _, inst := range insts {
		if err != nil {
			return
		}
		_, err = translate.Fprintf(w, "%v\n", inst.String())
	}

	return
}

// writeSummary writes the final processor state.
func writeSummary(w io.Writer, emu *emulator.Emulator) (err error) {
	_, err = translate.Fprintf(w, "\nFinal registers:\n%v", emu.Cpu.String())
	if err != nil {
		return
	}

	_, err = translate.Fprintf(w, "ticks: %v, unevaluated branches: %v\n", emu.Ticks(), emu.Cpu.Unevaluated)

	return
}
