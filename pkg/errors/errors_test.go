package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCodeAcrossCloneAndWrap(t *testing.T) {
	cloned := Clone(ErrConflict, "room LT-1 is taken")
	wrapped := Wrap(sql.ErrTxDone, ErrCapacityExhausted.Code, ErrCapacityExhausted.Status, "no slot left")

	assert.True(t, stdErrors.Is(cloned, ErrConflict))
	assert.True(t, stdErrors.Is(fmt.Errorf("schedule: %w", cloned), ErrConflict))
	assert.True(t, stdErrors.Is(wrapped, ErrCapacityExhausted))
	assert.True(t, stdErrors.Is(wrapped, sql.ErrTxDone))
	assert.False(t, stdErrors.Is(cloned, ErrValidation))
}

func TestCloneKeepsMessageWhenEmpty(t *testing.T) {
	assert.Equal(t, ErrNotFound.Message, Clone(ErrNotFound, "").Message)
	assert.Equal(t, "booking not found", Clone(ErrNotFound, "booking not found").Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Nil(t, Clone(nil, "x"))
}

func TestWithDetailsDoesNotMutateSentinel(t *testing.T) {
	detailed := WithDetails(ErrConflict, []string{"lecturer L1 busy"})

	require.NotNil(t, detailed)
	assert.Equal(t, []string{"lecturer L1 busy"}, detailed.Details)
	assert.Nil(t, ErrConflict.Details)
	assert.Nil(t, WithDetails(nil, "x"))
}

func TestFromErrorHidesUnknownCauses(t *testing.T) {
	appErr := FromError(stdErrors.New("pq: connection reset"))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Message, Clone(appErr, "").Message)

	typed := Clone(ErrValidation, "duration must be positive")
	assert.Same(t, typed, FromError(fmt.Errorf("wrap: %w", typed)))
	assert.Nil(t, FromError(nil))
}
