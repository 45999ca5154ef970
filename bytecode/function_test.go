package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFunctionStampsUniqueID(t *testing.T) {
	a := NewFunction("f", 1)
	b := NewFunction("f", 1)
	assert.NotEmpty(t, a.ID())
	assert.NotEmpty(t, b.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestFunctionString(t *testing.T) {
	named := NewFunction("greet", 2)
	assert.Equal(t, "function greet/2", named.String())

	anon := NewFunction("", 0)
	assert.Equal(t, "function <anonymous>/0", anon.String())
}
