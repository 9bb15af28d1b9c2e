package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsBothCauses(t *testing.T) {
	cause := errors.New("connection reset")

	err := Write("insert recipe", cause)
	assert.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRead)
	assert.Equal(t, "failed to insert recipe: write failed: connection reset", err.Error())

	err = Read("list recipes", cause)
	assert.ErrorIs(t, err, ErrRead)
	assert.ErrorIs(t, err, cause)
}

func TestNotFoundAndInvalid(t *testing.T) {
	err := NotFound("ingredient", "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "ingredient abc: not found", err.Error())

	err = Invalid("line %d: amount must be >= 0", 2)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "line 2")
}
