//go:build !unix

package procreg

import (
	"errors"
	"os"
	"os/exec"
	"time"
)

// Prepare is a no-op where process groups are unavailable.
func Prepare(cmd *exec.Cmd) {}

func killTree(p *os.Process) error {
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func waitGone(p *os.Process, limit time.Duration) {}
