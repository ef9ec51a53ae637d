// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":      "0",
	"MEMORY_SIZE": fmt.Sprintf("%#x", MEMORY_SIZE),
}

// Assembler is a single pass macro assembler for the 8086 subset.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of jump labels to code offsets.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// opMap maps mnemonics, including common aliases, to operations.
var opMap = map[string]Op{
	"mov":    OP_MOV,
	"add":    OP_ADD,
	"sub":    OP_SUB,
	"cmp":    OP_CMP,
	"je":     OP_JE,
	"jz":     OP_JE,
	"jl":     OP_JL,
	"jnge":   OP_JL,
	"jle":    OP_JLE,
	"jng":    OP_JLE,
	"jb":     OP_JB,
	"jnae":   OP_JB,
	"jc":     OP_JB,
	"jbe":    OP_JBE,
	"jna":    OP_JBE,
	"jp":     OP_JP,
	"jpe":    OP_JP,
	"jo":     OP_JO,
	"js":     OP_JS,
	"jne":    OP_JNE,
	"jnz":    OP_JNE,
	"jnl":    OP_JNL,
	"jge":    OP_JNL,
	"jnle":   OP_JNLE,
	"jg":     OP_JNLE,
	"jnb":    OP_JNB,
	"jae":    OP_JNB,
	"jnc":    OP_JNB,
	"jnbe":   OP_JNBE,
	"ja":     OP_JNBE,
	"jnp":    OP_JNP,
	"jpo":    OP_JNP,
	"jno":    OP_JNO,
	"jns":    OP_JNS,
	"loop":   OP_LOOP,
	"loopz":  OP_LOOPZ,
	"loope":  OP_LOOPZ,
	"loopnz": OP_LOOPNZ,
	"loopne": OP_LOOPNZ,
	"jcxz":   OP_JCXZ,
}

// registerMap maps register names to register operands.
var registerMap = func() map[string]Register {
	regs := make(map[string]Register, 16)
	for width, names := range regNames {
		for index, name := range names {
			regs[name] = Register{Index: byte(index), Width: Width(width)}
		}
	}
	return regs
}()

// widthMap maps operand size specifiers.
var widthMap = map[string]Width{
	"byte": WIDTH_BYTE,
	"word": WIDTH_WORD,
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reIdentifier = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)
	reTerm       = regexp.MustCompile(`[+-]?[^+-]+`)
	reLabel      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int64, err error) {
	invert := false
	if strings.HasPrefix(word, "~") {
		invert = true
		word = word[1:]
	}

	value, err = strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if invert {
		value = int64(^uint16(value))
	}

	return
}

// immediateOf returns the value of a word as an immediate of the given width.
func (asm *Assembler) immediateOf(word string, width Width) (value uint16, err error) {
	v64, err := asm.valueOf(word)
	if err != nil {
		return
	}

	limit := int64(width.Mask())
	if v64 > limit || v64 < -int64(width.SignBit()) {
		err = ErrImmediateRange
		return
	}

	value = uint16(v64) & width.Mask()
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v64 int64
		v64, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	err = nil
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// splitFirst splits the first whitespace separated word from a line.
func splitFirst(line string) (first string, rest string) {
	line = strings.TrimSpace(line)
	n := strings.IndexFunc(line, unicode.IsSpace)
	if n < 0 {
		return line, ""
	}

	return line[:n], strings.TrimSpace(line[n:])
}

// splitWords splits a line into the mnemonic, and its comma separated operands.
func splitWords(line string) (words []string, err error) {
	first, rest := splitFirst(line)
	if len(first) == 0 {
		return
	}

	words = []string{first}
	if len(rest) == 0 {
		return
	}

	for _, operand := range strings.Split(rest, ",") {
		operand = strings.Join(strings.Fields(operand), " ")
		if len(operand) == 0 {
			err = ErrOpcodeMissing
			return
		}
		words = append(words, operand)
	}

	return
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%v", value)
	})
	if err != nil {
		return
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	// .equ CONST VALUE
	if fields[0] == ".equ" {
		if len(fields) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[fields[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[fields[1]] = fields[2]
		return
	}

	for {
		first, rest := splitFirst(line)
		if !strings.HasSuffix(first, ":") {
			break
		}

		label := first[:len(first)-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentIp()
		line = rest
		if len(line) == 0 {
			return
		}
	}

	words, err = splitWords(line)
	if err != nil {
		return
	}

	// Substitute equates in the operands.
	for n := 1; n < len(words); n++ {
		words[n] = reIdentifier.ReplaceAllStringFunc(words[n], func(ident string) string {
			equate, ok := asm.Equate[ident]
			if ok {
				return equate
			}
			return ident
		})
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = args[n]
		}
		defer func() { asm.Equate = old_equate }()

		// Local labels are unique to each expansion.
		local := fmt.Sprintf("%v_%v_", name, lineno)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentIp gets the current Ip
func (asm *Assembler) currentIp() int {
	if len(asm.Opcode) == 0 {
		return 0
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Ip + len(last.Code)
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := strings.Fields(strings.ReplaceAll(line, ",", " "))

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of jump labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}

		lineno = op.LineNo
		line = strings.Join(op.Words, " ")

		label := op.LinkLabel
		ip, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		if len(op.Code) != 2 {
			log.Fatalf("Unable to link label '%s' to line %d: %v", label, op.LineNo, op.Words)
		}
		var branch int8
		branch, err = branchOf(ip, op.Ip)
		if err != nil {
			return
		}
		op.Code[1] = byte(branch)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// branchOf computes the displacement of a two byte branch at ip to target.
func branchOf(target int, ip int) (branch int8, err error) {
	delta := target - (ip + 2)
	if delta < -128 || delta > 127 {
		err = ErrBranchRange
		return
	}

	branch = int8(delta)
	return
}

// parseMemory parses a bracketed memory reference.
func (asm *Assembler) parseMemory(text string) (mem Memory, err error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "["), "]")
	inner = strings.Join(strings.Fields(inner), "")
	if len(inner) == 0 {
		err = ErrMemoryInvalid
		return
	}

	var regs []byte
	var disp int64
	for _, term := range reTerm.FindAllString(inner, -1) {
		reg, ok := registerMap[strings.TrimPrefix(term, "+")]
		if ok {
			if reg.Width != WIDTH_WORD {
				err = ErrMemoryInvalid
				return
			}
			regs = append(regs, reg.Index)
			continue
		}

		var value int64
		value, err = asm.valueOf(term)
		if err != nil {
			return
		}
		disp += value
		mem.HasDisplacement = true
	}

	if mem.HasDisplacement {
		if disp < -0x8000 || disp > 0xffff {
			err = ErrMemoryInvalid
			return
		}
		mem.Displacement = uint16(disp)
	}

	if len(regs) == 0 {
		return
	}

	slices.Sort(regs)
	for base, combo := range baseTable {
		if slices.Equal(regs, slices.Sorted(slices.Values(combo))) {
			mem.HasBase = true
			mem.Base = Base(base)
			return
		}
	}

	err = ErrMemoryInvalid
	return
}

// parseOperand parses an operand. sized is set if the width of the
// operand is known from a register or a size specifier.
func (asm *Assembler) parseOperand(text string) (operand Operand, width Width, sized bool, err error) {
	first, rest := splitFirst(text)
	if size, ok := widthMap[first]; ok && len(rest) > 0 {
		width = size
		sized = true
		text = rest
	}

	reg, ok := registerMap[text]
	switch {
	case ok:
		if sized && reg.Width != width {
			err = ErrOperandWidth
			return
		}
		operand = RegisterOperand(reg.Index, reg.Width)
		width = reg.Width
		sized = true
	case strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]"):
		var mem Memory
		mem, err = asm.parseMemory(text)
		if err != nil {
			return
		}
		operand = MemoryOperand(mem)
	default:
		_, err = asm.valueOf(text)
		if err != nil {
			err = ErrParseOperand(text)
			return
		}
		// Value is range checked once the width is known.
		operand = Operand{Kind: OPERAND_IMMEDIATE}
	}

	return
}

// parseBranch parses a branch target.
func (asm *Assembler) parseBranch(inst *Instruction, target string) (label string, err error) {
	ip := asm.currentIp()

	if strings.HasPrefix(target, "$") {
		var rel int64
		if len(target) > 1 {
			rel, err = asm.valueOf(target[1:])
			if err != nil {
				return
			}
		}
		inst.Branch, err = branchOf(ip+int(rel), ip)
		return
	}

	value, err := asm.valueOf(target)
	if err == nil {
		inst.Branch, err = branchOf(int(value), ip)
		return
	}
	err = nil

	if !reLabel.MatchString(target) {
		err = ErrTargetInvalid
		return
	}

	label = target
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var code []byte
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(code) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Ip: asm.currentIp(), Words: initial_words, Code: code, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	// NASM listing header.
	if words[0] == "bits" {
		if len(words) != 2 || words[1] != "16" {
			err = ErrInstructionInvalid
		}
		return
	}

	op, ok := opMap[strings.ToLower(words[0])]
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	inst := Instruction{Op: op}

	if op.IsBranch() {
		if len(words) < 2 {
			err = ErrOpcodeMissing
			return
		}
		if len(words) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		label, err = asm.parseBranch(&inst, words[1])
		if err != nil {
			return
		}
		code, err = Encode(inst)
		return
	}

	if len(words) < 3 {
		err = ErrOpcodeMissing
		return
	}
	if len(words) > 3 {
		err = ErrOpcodeExtraArgs
		return
	}

	dst, dstWidth, dstSized, err := asm.parseOperand(words[1])
	if err != nil {
		return
	}

	src, srcWidth, srcSized, err := asm.parseOperand(words[2])
	if err != nil {
		return
	}

	switch {
	case dstSized && srcSized && dstWidth != srcWidth:
		err = ErrOperandWidth
		return
	case dstSized:
		inst.Width = dstWidth
	case srcSized:
		inst.Width = srcWidth
	default:
		err = ErrOperandWidth
		return
	}

	if src.Kind == OPERAND_IMMEDIATE {
		var value uint16
		value, err = asm.immediateOf(strings.TrimPrefix(words[2], inst.Width.String()+" "), inst.Width)
		if err != nil {
			return
		}
		src = ImmediateOperand(value)
	}

	if dst.Kind == OPERAND_IMMEDIATE {
		err = ErrTargetInvalid
		return
	}

	inst.Dst = dst
	inst.Src = src

	code, err = Encode(inst)
	return
}
