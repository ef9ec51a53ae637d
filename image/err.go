package image

import (
	"errors"

	"github.com/ezrec/sim86/translate"
)

var f = translate.From

var (
	// Image errors
	ErrImageTruncated = errors.New(f("image truncated"))
	ErrImageSize      = errors.New(f("image too large"))
	ErrMemoryAbsent   = errors.New(f("memory not present"))
)
