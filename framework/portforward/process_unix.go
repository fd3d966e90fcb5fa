//go:build unix

package portforward

import (
	"os"
	"os/exec"
	"syscall"
)

// detach puts the child into its own session so it is not killed when the
// parent's terminal goes away.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// processAlive reports whether a process with the given PID exists. On Unix,
// FindProcess always succeeds; signal 0 performs the actual liveness check.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// terminate sends SIGTERM to the process
func terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}
