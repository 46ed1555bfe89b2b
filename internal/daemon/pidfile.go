// Package daemon implements process lifecycle: single-instance PID
// locking, signal-driven shutdown, account-worker supervision, and
// status snapshots (spec §4.8). The liveness-check idiom
// (syscall.Kill(pid, 0)) is grounded on the pack's process manager
// (cklxx-elephant.ai/internal/devops/process.isProcessAlive); the
// graceful-shutdown signal wiring is grounded on the teacher's
// cmd/rest.go (signal.Notify + StopApp sequencing).
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/neoromantic/telegram-sync-cli/internal/apperror"
)

// processAlive reports whether pid refers to a live process, using the
// null-signal probe (spec §4.8: "read the PID file ... recorded PID is
// alive").
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func writePIDFile(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644)
}

// AcquireSingleInstance implements spec §4.8's single-instance check:
// if a PID file exists and names a live process (ours or another's),
// the daemon must not start a second time; otherwise the file is
// (re)written with our own PID.
func AcquireSingleInstance(pidFilePath string) error {
	if existing, err := readPIDFile(pidFilePath); err == nil {
		if processAlive(existing) {
			return apperror.New(apperror.CodeDaemonAlreadyRun,
				fmt.Sprintf("daemon already running (pid %d)", existing))
		}
	}
	return writePIDFile(pidFilePath, os.Getpid())
}

// ReleasePIDFile removes the PID file on clean shutdown (spec §4.8).
func ReleasePIDFile(pidFilePath string) error {
	err := os.Remove(pidFilePath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// ReadRunningPID returns the PID recorded in the file iff that process
// is currently alive; used by `daemon stop`/`daemon status`.
func ReadRunningPID(pidFilePath string) (int, bool) {
	pid, err := readPIDFile(pidFilePath)
	if err != nil || !processAlive(pid) {
		return 0, false
	}
	return pid, true
}
