package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		CodeBadRequest:         http.StatusBadRequest,
		CodeValidationFailed:   http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodeProfileNotFound:    http.StatusNotFound,
		CodeLockTimeout:        http.StatusConflict,
		CodeInternal:           http.StatusInternalServerError,
		CodeDatabaseError:      http.StatusInternalServerError,
		CodeArtifactRead:       http.StatusInternalServerError,
		CodeEmptyCandidatePool: http.StatusInternalServerError,
	}
	for code, want := range cases {
		err := NewAppError(code, "msg", "")
		assert.Equal(t, want, err.StatusCode(), string(code))
	}
}

func TestErrorFormatting(t *testing.T) {
	err := NewAppError(CodeValidationFailed, "Validation failed", "date malformed")
	assert.Equal(t, "VALIDATION_FAILED: Validation failed (date malformed)", err.Error())

	bare := NewAppError(CodeInternal, "boom", "")
	assert.Equal(t, "INTERNAL_ERROR: boom", bare.Error())
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	wrapped := Wrap(cause, "lock backend unavailable")
	require.NotNil(t, wrapped)
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.ErrorIs(t, wrapped, cause)

	// An AppError passes through unchanged.
	original := NewValidationError("bad slot")
	assert.Same(t, original, Wrap(original, "ignored"))

	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestIsAndGetCode(t *testing.T) {
	err := NewProfileNotFoundError("u1")
	assert.True(t, Is(err, CodeProfileNotFound))
	assert.False(t, Is(err, CodeValidationFailed))
	assert.Equal(t, CodeProfileNotFound, GetCode(err))

	plain := errors.New("plain")
	assert.False(t, Is(plain, CodeInternal))
	assert.Equal(t, CodeInternal, GetCode(plain))
}

func TestConstructorMetadata(t *testing.T) {
	err := NewLockTimeoutError("rec:u1:20260828:L")
	assert.Equal(t, "rec:u1:20260828:L", err.Metadata["lock_key"])

	artifact := NewArtifactReadError("/tmp/x.csv", errors.New("no such file"))
	assert.Equal(t, "/tmp/x.csv", artifact.Metadata["path"])
	assert.Error(t, artifact.Unwrap())
	assert.NotEmpty(t, artifact.StackTrace)
}

func TestCompositeError(t *testing.T) {
	composite := NewCompositeError("read table", []error{
		errors.New("strict-header: column 0 mismatch"),
		errors.New("headerless: wrong field count"),
	})
	msg := composite.Error()
	assert.Contains(t, msg, "read table")
	assert.Contains(t, msg, "strict-header")
	assert.Contains(t, msg, "headerless")
}
