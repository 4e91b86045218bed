package apperr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"MiniShop/internal/apperr"
)

func TestKindsAreDistinguishable(t *testing.T) {
	v := apperr.Validation("qty must be >= 1, got %d", 0)
	nf := apperr.NotFound("product", 7)
	st := apperr.Storage("insert order", errors.New("disk full"))

	assert.ErrorIs(t, v, apperr.ErrValidation)
	assert.NotErrorIs(t, v, apperr.ErrNotFound)
	assert.Equal(t, "invalid input: qty must be >= 1, got 0", v.Error())

	assert.ErrorIs(t, nf, apperr.ErrNotFound)
	assert.Equal(t, "product 7: not found", nf.Error())

	assert.ErrorIs(t, st, apperr.ErrStorage)
	assert.NotErrorIs(t, st, apperr.ErrValidation)
}

func TestStorage_KeepsClassifiedErrors(t *testing.T) {
	nf := apperr.NotFound("product", 1)
	assert.Same(t, nf, apperr.Storage("get product", nf))
	assert.Nil(t, apperr.Storage("noop", nil))

	cause := errors.New("boom")
	assert.ErrorIs(t, apperr.Storage("commit", cause), cause)
}
