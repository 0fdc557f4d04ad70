// Package procreg tracks every child process spawned during a run so that a
// shutdown (normal exit, interrupt, or fatal fault) can terminate all of them.
package procreg

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// reapWait bounds how long KillAll waits for a killed process to disappear.
const reapWait = 200 * time.Millisecond

// Registry is the set of live child processes for one run. It is safe for
// concurrent use by multiple executors. The zero value is not usable; call New.
type Registry struct {
	procs  *xsync.MapOf[int, *os.Process]
	logger *slog.Logger
}

// New creates an empty registry. A nil logger discards diagnostics.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		procs:  xsync.NewMapOf[int, *os.Process](),
		logger: logger,
	}
}

// Register records a freshly spawned process. Executors must call it before
// blocking on the process.
func (r *Registry) Register(p *os.Process) {
	if p == nil {
		return
	}
	r.procs.Store(p.Pid, p)
	r.logger.Debug("process registered", "pid", p.Pid)
}

// Unregister forgets a process after its exit has been confirmed.
func (r *Registry) Unregister(pid int) {
	if _, ok := r.procs.LoadAndDelete(pid); ok {
		r.logger.Debug("process unregistered", "pid", pid)
	}
}

// Terminate force-kills the tracked process with the given pid together with
// its descendants. Failures are swallowed: a later KillAll sweep retries.
// The entry stays registered until the executor confirms the exit.
func (r *Registry) Terminate(pid int) {
	p, ok := r.procs.Load(pid)
	if !ok {
		return
	}
	if err := killTree(p); err != nil {
		r.logger.Debug("terminate failed", "pid", pid, "error", err)
	}
}

// KillAll terminates every tracked process and clears the set. It never
// fails; one stuck process does not prevent cleanup of the others.
func (r *Registry) KillAll() {
	r.procs.Range(func(pid int, p *os.Process) bool {
		if err := killTree(p); err != nil {
			r.logger.Debug("kill failed", "pid", pid, "error", err)
		}
		waitGone(p, reapWait)
		r.procs.Delete(pid)
		return true
	})
}

// Len reports the number of live tracked processes.
func (r *Registry) Len() int {
	return r.procs.Size()
}
