// Package proc wraps the operating system primitives the shell needs to run
// jobs: starting a program in its own process group, signalling a group and
// collecting child state changes without blocking.
package proc

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrNoCommand is returned by Start for an empty argument vector.
var ErrNoCommand = errors.New("no command")

// Change is the kind of state change a child reported.
type Change int

const (
	Exited Change = iota + 1
	Signaled
	Stopped
	Continued
)

func (c Change) String() string {
	switch c {
	case Exited:
		return "exited"
	case Signaled:
		return "signaled"
	case Stopped:
		return "stopped"
	case Continued:
		return "continued"
	default:
		return fmt.Sprintf("change(%d)", int(c))
	}
}

// Event is a single child state change.
type Event struct {
	PID    int
	Change Change
	// Signal is the stop or termination signal for Stopped and Signaled.
	Signal syscall.Signal
	// ExitCode is set for Exited.
	ExitCode int
}

// Spec describes a program to start.
type Spec struct {
	// Argv holds the program and its arguments. Argv[0] is looked up in PATH
	// unless it contains a slash.
	Argv []string
	// Env is the child environment, nil inherits the shell's.
	Env []string

	// Files the child gets as fd 0, 1 and 2. Nil leaves the descriptor
	// connected to the null device.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Host is the process interface used by the shell.
type Host interface {
	// Start launches the program described by spec as the leader of a new
	// process group and returns its pid. The child is not waited on, its
	// state changes are collected by Reap.
	Start(spec Spec) (pid int, err error)

	// Kill sends sig to every process in the group led by pgid.
	Kill(pgid int, sig syscall.Signal) error

	// Reap collects one pending child state change without blocking. ok is
	// false once nothing is pending.
	Reap() (event Event, ok bool, err error)
}

// OpenInput opens path for use as a child's standard input.
func OpenInput(path string) (*os.File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	return fd, nil
}

// OpenOutput opens path for use as a child's standard output, creating or
// truncating it.
func OpenOutput(path string) (*os.File, error) {
	fd, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	return fd, nil
}
