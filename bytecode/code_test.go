package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUint16RoundTrip(t *testing.T) {
	code := make([]byte, 4)
	PutUint16(code, 0, 0xBEEF)
	assert.Equal(t, uint16(0xBEEF), ReadUint16(code, 0))

	PutUint16(code, 2, 1)
	assert.Equal(t, uint16(1), ReadUint16(code, 2))
}

func TestUint16BigEndian(t *testing.T) {
	code := make([]byte, 2)
	PutUint16(code, 0, 0x0102)
	assert.Equal(t, byte(0x01), code[0])
	assert.Equal(t, byte(0x02), code[1])
}
