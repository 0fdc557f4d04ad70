//go:build unix

package procreg

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Prepare puts the command in its own process group so that the whole tree
// can be signalled at once.
func Prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func killTree(p *os.Process) error {
	groupErr := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if groupErr == nil || errors.Is(groupErr, syscall.ESRCH) {
		return nil
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.Join(groupErr, err)
	}
	return nil
}

// waitGone polls with signal 0 until the process no longer exists or the
// deadline passes. Reaping is left to the executor that owns the process.
func waitGone(p *os.Process, limit time.Duration) {
	deadline := time.Now().Add(limit)
	for time.Now().Before(deadline) {
		if err := p.Signal(syscall.Signal(0)); err != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}
