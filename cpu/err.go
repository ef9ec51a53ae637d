package cpu

import (
	"errors"

	"github.com/ezrec/sim86/translate"
)

var f = translate.From

var (
	// Decode errors
	ErrOpcodeUnrecognized = errors.New(f("unrecognized opcode"))
	ErrOpcodeTruncated    = errors.New(f("truncated instruction"))
	ErrAddressingField    = errors.New(f("invalid addressing field"))

	// Execution errors
	ErrEffectiveAddress = errors.New(f("invalid effective address"))
	ErrMemoryAbsent     = errors.New(f("memory not present"))
	ErrOperandInvalid   = errors.New(f("operand invalid"))
	ErrOperandDst       = errors.New(f("dst"))
	ErrOperandSrc       = errors.New(f("src"))
	ErrInstructionSize  = errors.New(f("instruction size invalid"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissing      = errors.New(f("operand missing"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrOperandWidth       = errors.New(f("operand size mismatch or missing"))
	ErrImmediateRange     = errors.New(f("immediate out of range"))
	ErrBranchRange        = errors.New(f("branch out of range"))
	ErrTargetInvalid      = errors.New(f("target invalid"))
	ErrMemoryInvalid      = errors.New(f("memory reference invalid"))
)

// ErrOpcode locates a decode failure in the code stream.
type ErrOpcode struct {
	Offset int
	Opcode byte
}

func (eo ErrOpcode) Error() string {
	return f("bad opcode 0x%02x at 0x%04x", eo.Opcode, eo.Offset)
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrInstruction identifies the instruction that failed to execute.
type ErrInstruction Instruction

func (ei ErrInstruction) Error() string {
	return f("bad instruction '%v'", Instruction(ei).String())
}

func (ei ErrInstruction) Is(err error) (ok bool) {
	_, ok = err.(ErrInstruction)
	return
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseOperand string

func (err ErrParseOperand) Error() string {
	return f("'%v' is not a register, memory reference or value", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
