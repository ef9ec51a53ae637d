package image

import (
	"errors"
	"io"

	"github.com/ezrec/sim86/cpu"
)

// Dump is a raw memory image: exactly cpu.MEMORY_SIZE bytes, no header.
type Dump struct {
	Memory *cpu.Ram
}

// Marshal writes the memory image to a writer.
func (dump *Dump) Marshal(file io.Writer) (err error) {
	if dump.Memory == nil {
		err = ErrMemoryAbsent
		return
	}

	_, err = file.Write(dump.Memory[:])

	return
}

// Unmarshal loads the memory image from a reader.
func (dump *Dump) Unmarshal(file io.Reader) (err error) {
	if dump.Memory == nil {
		dump.Memory = &cpu.Ram{}
	}

	_, err = io.ReadFull(file, dump.Memory[:])
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		err = errors.Join(ErrImageTruncated, err)
	}
	if err != nil {
		return
	}

	var extra [1]byte
	if n, _ := io.ReadFull(file, extra[:]); n != 0 {
		err = ErrImageSize
	}

	return
}
