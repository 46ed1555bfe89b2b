package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
)

func TestAcquireSingleInstance_FreshFileSucceeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")

	err := AcquireSingleInstance(path)
	require.NoError(t, err)

	pid, running := ReadRunningPID(path)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquireSingleInstance_StaleDeadPIDIsOverwritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	// PID 1 belongs to init in most containers; pick an implausibly high
	// PID instead so the liveness probe reliably reports "not alive".
	require.NoError(t, writePIDFile(path, 999999))

	err := AcquireSingleInstance(path)
	require.NoError(t, err)

	pid, running := ReadRunningPID(path)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestAcquireSingleInstance_LivePIDIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")
	require.NoError(t, writePIDFile(path, os.Getpid()))

	err := AcquireSingleInstance(path)
	require.Error(t, err)
	ae, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDaemonAlreadyRun, ae.Code)
}

func TestReleasePIDFile_MissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.pid")
	assert.NoError(t, ReleasePIDFile(path))
}

func TestReadRunningPID_NoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pid")
	pid, running := ReadRunningPID(path)
	assert.False(t, running)
	assert.Equal(t, 0, pid)
}
