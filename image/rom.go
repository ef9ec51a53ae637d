package image

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"maps"
)

// ROM_LIMIT is the largest code image addressable by the instruction pointer.
const ROM_LIMIT = 0xffff

var _rom_defines = map[string]string{
	"ROM_LIMIT": fmt.Sprintf("0x%x", ROM_LIMIT),
}

// Rom is a code image. A prefixed image starts with its length as a
// 2-byte little-endian word.
type Rom struct {
	Prefixed bool
	Data     []byte
}

// Defines for the rom
func (rom *Rom) Defines() iter.Seq2[string, string] {
	return maps.All(_rom_defines)
}

// Unmarshal loads the code image from a reader, replacing any existing data.
// Bytes following the length of a prefixed image are ignored.
func (rom *Rom) Unmarshal(file io.Reader) (err error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return
	}

	if rom.Prefixed {
		if len(data) < 2 {
			err = ErrImageTruncated
			return
		}
		size := int(binary.LittleEndian.Uint16(data))
		data = data[2:]
		if size > len(data) {
			err = ErrImageTruncated
			return
		}
		data = data[:size]
	}

	if len(data) > ROM_LIMIT {
		err = ErrImageSize
		return
	}

	rom.Data = data

	return
}

// Marshal writes the code image to a writer.
func (rom *Rom) Marshal(file io.Writer) (err error) {
	if len(rom.Data) > ROM_LIMIT {
		err = ErrImageSize
		return
	}

	if rom.Prefixed {
		err = binary.Write(file, binary.LittleEndian, uint16(len(rom.Data)))
		if err != nil {
			return
		}
	}

	_, err = file.Write(rom.Data)

	return
}

// Load reads a named code image from a file system.
func (rom *Rom) Load(filesys fs.FS, name string) (err error) {
	file, err := filesys.Open(name)
	if err != nil {
		return
	}
	defer file.Close()

	err = rom.Unmarshal(file)

	return
}
