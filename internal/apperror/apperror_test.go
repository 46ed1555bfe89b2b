package apperror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ExitCode(t *testing.T) {
	assert.Equal(t, 1, New(CodeGeneral, "x").ExitCode())
	assert.Equal(t, 2, New(CodeAuthRequired, "x").ExitCode())
	assert.Equal(t, 3, New(CodeInvalidArgs, "x").ExitCode())
	assert.Equal(t, 4, New(CodeNetwork, "x").ExitCode())
	assert.Equal(t, 5, New(CodeRemoteAPI, "x").ExitCode())
	assert.Equal(t, 5, New(CodeRateLimited, "x").ExitCode())
	assert.Equal(t, 6, New(CodeAccountNotFound, "x").ExitCode())
	// codes without an explicit exit mapping fall back to general failure.
	assert.Equal(t, 1, New(CodeDaemonNotRunning, "x").ExitCode())
}

func TestAppError_WrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeNetwork, "fetch failed", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "fetch failed")
	assert.Contains(t, err.Error(), "boom")
}

func TestAppError_WithDetail(t *testing.T) {
	err := New(CodeGeneral, "x").WithDetail("field", "value")
	assert.Equal(t, "value", err.Details["field"])
}
