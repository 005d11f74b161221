package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeInsufficientFunds:        http.StatusUnprocessableEntity,
		ErrCodeInvalidState:             http.StatusConflict,
		ErrCodeDuplicateInteraction:     http.StatusConflict,
		ErrCodeSelfInteractionForbidden: http.StatusForbidden,
		ErrCodeUnknownReference:         http.StatusNotFound,
		ErrCodeForbidden:                http.StatusForbidden,
		ErrCodeDatabaseError:            http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, New(code, "x").HTTPStatus, code)
	}
}

func TestKindHelpers_SeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("escrow service: %w", ErrInsufficientFunds)
	assert.True(t, IsInsufficientFunds(err))
	assert.False(t, IsInvalidState(err))

	wrapped := Wrap(errors.New("sql: no rows"), ErrCodeInvalidState, "escrow уже закрыт")
	assert.True(t, IsInvalidState(wrapped))
	assert.Contains(t, wrapped.Error(), "sql: no rows")

	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}
