//go:build linux || darwin || freebsd || netbsd || openbsd

package proc

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// OS is the Host backed by the real operating system.
type OS struct{}

var _ Host = OS{}

// Start implements Host.Start.
func (OS) Start(spec Spec) (int, error) {
	if len(spec.Argv) == 0 {
		return 0, ErrNoCommand
	}

	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Env = spec.Env

	// Assign only non-nil files, a typed nil in the interface would be used
	// as a real reader.
	if spec.Stdin != nil {
		cmd.Stdin = spec.Stdin
	}
	if spec.Stdout != nil {
		cmd.Stdout = spec.Stdout
	}
	if spec.Stderr != nil {
		cmd.Stderr = spec.Stderr
	}

	// A new process group keeps terminal generated signals away from the job
	// unless the shell forwards them.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid

	// The child is reaped with wait4 by the supervisor, never through
	// exec.Cmd.Wait. Release only drops the handle and returns nil on Unix.
	_ = cmd.Process.Release()

	return pid, nil
}

// Kill implements Host.Kill.
func (OS) Kill(pgid int, sig syscall.Signal) error {
	if pgid < 1 {
		return fmt.Errorf("invalid process group %d", pgid)
	}
	return unix.Kill(-pgid, sig)
}

// Reap implements Host.Reap.
func (OS) Reap() (Event, bool, error) {
	for {
		var status unix.WaitStatus
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG|unix.WUNTRACED, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			// No children at all.
			return Event{}, false, nil
		case err != nil:
			return Event{}, false, err
		case pid <= 0:
			return Event{}, false, nil
		}

		return eventFromStatus(pid, status), true, nil
	}
}

func eventFromStatus(pid int, status unix.WaitStatus) Event {
	switch {
	case status.Stopped():
		return Event{PID: pid, Change: Stopped, Signal: status.StopSignal()}
	case status.Signaled():
		return Event{PID: pid, Change: Signaled, Signal: status.Signal()}
	case status.Continued():
		return Event{PID: pid, Change: Continued}
	default:
		return Event{PID: pid, Change: Exited, ExitCode: status.ExitStatus()}
	}
}
