package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CodeConflict, "already published")
	assert.Equal(t, "conflict: already published", err.Error())

	wrapped := Wrap(errors.New("db closed"), CodeInternal, "failed to store ranking")
	assert.Equal(t, "internal: failed to store ranking: db closed", wrapped.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("row not found")
	err := Wrap(cause, CodeNotFound, "application not found")

	assert.ErrorIs(t, err, cause)

	var de *Error
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, CodeNotFound, de.Code)
}

func TestHasCode(t *testing.T) {
	inner := New(CodeConflict, "state error")
	outer := Wrap(inner, CodeInternal, "transaction failed")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeConflict), "inner codes stay reachable through the chain")
	assert.False(t, HasCode(outer, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestCodeOfAndMessageOf(t *testing.T) {
	err := New(CodeForbidden, "role STUDENT may not publish")
	assert.Equal(t, CodeForbidden, CodeOf(err))
	assert.Equal(t, "role STUDENT may not publish", MessageOf(err))

	// fmt wrapping keeps the chain intact.
	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, CodeForbidden, CodeOf(wrapped))

	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, "internal error", MessageOf(errors.New("plain")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidInput:       http.StatusBadRequest,
		CodeBadRequest:         http.StatusBadRequest,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeForbidden:          http.StatusForbidden,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeInvariantViolation: http.StatusUnprocessableEntity,
		CodeUnavailable:        http.StatusServiceUnavailable,
		CodeInternal:           http.StatusInternalServerError,
		Code("unknown"):        http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
