// Package proctest provides a fake process host for testing the shell without
// starting real programs.
package proctest

import (
	"os/exec"
	"sync"
	"syscall"

	"github.com/josephlewis42/tsh/core/proc"
)

// Kill records a signal sent through the fake host.
type Kill struct {
	PGID   int
	Signal syscall.Signal
}

// Host is an in-memory proc.Host. Started programs never run; tests queue the
// state changes they want the shell to observe with Push.
type Host struct {
	mu sync.Mutex

	nextPID int
	started []proc.Spec
	kills   []Kill
	pending []proc.Event

	// Missing holds program names that fail to start as if absent from PATH.
	Missing map[string]bool
	// KillErr, if set, is returned from every Kill.
	KillErr error
	// OnKill, if set, is called after a signal is recorded. It runs with the
	// host unlocked so it may call Push.
	OnKill func(h *Host, pgid int, sig syscall.Signal)
}

var _ proc.Host = (*Host)(nil)

// NewHost creates a fake host whose first pid is firstPID.
func NewHost(firstPID int) *Host {
	return &Host{
		nextPID: firstPID,
		Missing: make(map[string]bool),
	}
}

// Start implements proc.Host.Start.
func (h *Host) Start(spec proc.Spec) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(spec.Argv) == 0 {
		return 0, proc.ErrNoCommand
	}
	if h.Missing[spec.Argv[0]] {
		return 0, &exec.Error{Name: spec.Argv[0], Err: exec.ErrNotFound}
	}

	pid := h.nextPID
	h.nextPID++
	h.started = append(h.started, spec)
	return pid, nil
}

// Kill implements proc.Host.Kill.
func (h *Host) Kill(pgid int, sig syscall.Signal) error {
	h.mu.Lock()
	if h.KillErr != nil {
		h.mu.Unlock()
		return h.KillErr
	}
	h.kills = append(h.kills, Kill{PGID: pgid, Signal: sig})
	onKill := h.OnKill
	h.mu.Unlock()

	if onKill != nil {
		onKill(h, pgid, sig)
	}
	return nil
}

// Reap implements proc.Host.Reap.
func (h *Host) Reap() (proc.Event, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.pending) == 0 {
		return proc.Event{}, false, nil
	}
	event := h.pending[0]
	h.pending = h.pending[1:]
	return event, true, nil
}

// Push queues child state changes for Reap.
func (h *Host) Push(events ...proc.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pending = append(h.pending, events...)
}

// Pending returns the number of queued events.
func (h *Host) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.pending)
}

// Started returns the specs passed to Start.
func (h *Host) Started() []proc.Spec {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]proc.Spec(nil), h.started...)
}

// Kills returns the signals sent so far.
func (h *Host) Kills() []Kill {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]Kill(nil), h.kills...)
}

// Stop builds a Stopped event.
func Stop(pid int, sig syscall.Signal) proc.Event {
	return proc.Event{PID: pid, Change: proc.Stopped, Signal: sig}
}

// Terminate builds a Signaled event.
func Terminate(pid int, sig syscall.Signal) proc.Event {
	return proc.Event{PID: pid, Change: proc.Signaled, Signal: sig}
}

// Exit builds an Exited event.
func Exit(pid, code int) proc.Event {
	return proc.Event{PID: pid, Change: proc.Exited, ExitCode: code}
}
