package translate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("line 3 bad", From("line %d %v", 3, "bad"))
	assert.Equal("0x00ff", From("0x%04x", 255))
}

func TestFprintf(t *testing.T) {
	assert := assert.New(t)

	buf := &bytes.Buffer{}
	n, err := Fprintf(buf, "ticks: %v\n", "12")
	assert.NoError(err)
	assert.Equal(buf.Len(), n)
	assert.Equal("ticks: 12\n", buf.String())
}
