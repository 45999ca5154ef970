package errz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileErrorsAggregatesMultiple(t *testing.T) {
	errs := NewCompileErrors()
	assert.False(t, errs.HasErrors())
	assert.NoError(t, errs.ErrorOrNil())

	errs.Add(NewCompileError(KindDuplicateLocal, 1, "duplicate %s", "x"))
	errs.Add(NewCompileError(KindTooManyLocals, 2, "too many locals"))

	require.True(t, errs.HasErrors())
	err := errs.ErrorOrNil()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate x")
	assert.Contains(t, err.Error(), "too many locals")
}

func TestCompileErrorMessageIncludesLine(t *testing.T) {
	err := NewCompileError(KindBreakOutsideLoop, 5, "break outside loop")
	assert.Contains(t, err.Error(), "line 5")
}

func TestRuntimeErrorMessageIncludesFunctionName(t *testing.T) {
	err := NewRuntimeError(KindDivideByZero, "main", "division by zero")
	assert.Contains(t, err.Error(), "main")
	assert.Contains(t, err.Error(), "division by zero")
}

func TestKindIsCompileKind(t *testing.T) {
	assert.True(t, KindDuplicateLocal.IsCompileKind())
	assert.True(t, KindContinueOutsideLoop.IsCompileKind())
	assert.False(t, KindTypeError.IsCompileKind())
	assert.False(t, KindStackOverflow.IsCompileKind())
}
