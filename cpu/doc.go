// Package cpu implements the decoder, executor and assembler for a subset
// of the 8086 instruction set.
//
// The subset covers register and memory forms of mov, add, sub and cmp,
// their immediate forms, the sixteen conditional short jumps, and the
// loop instructions. The processor state is the eight general registers,
// the instruction pointer, the zero and sign flags, and an optional 64K
// memory image.
//
// The assembler accepts NASM style syntax for the same subset, with
// labels, equates, macros, and compile-time expression evaluation.
package cpu
