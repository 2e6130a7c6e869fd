// Package jobs holds the shell's job table.
package jobs

import (
	"errors"
	"fmt"
	"io"
)

// DefaultCapacity is the number of job slots used when none is configured.
const DefaultCapacity = 16

var (
	// ErrTableFull is returned by Add when every slot is in use.
	ErrTableFull = errors.New("tried to create too many jobs")
	// ErrInvalidPID is returned by Add for a pid less than one.
	ErrInvalidPID = errors.New("invalid pid")
	// ErrDuplicatePID is returned by Add when the pid already leads a job.
	ErrDuplicatePID = errors.New("pid already tracked")
)

// State is the lifecycle state of a job.
type State int

const (
	Undefined State = iota
	Foreground
	Background
	Stopped
)

// Label returns the fixed-width label used by the jobs listing.
func (s State) Label() string {
	switch s {
	case Background:
		return "Running    "
	case Foreground:
		return "Foreground "
	case Stopped:
		return "Stopped    "
	default:
		return fmt.Sprintf("Internal error: state=%d ", int(s))
	}
}

func (s State) String() string {
	switch s {
	case Foreground:
		return "foreground"
	case Background:
		return "background"
	case Stopped:
		return "stopped"
	default:
		return "undefined"
	}
}

// Job is a single tracked process group.
type Job struct {
	// PID of the group leader, 0 marks an empty slot.
	PID int
	// JID is the shell-local job number used by %N.
	JID     int
	State   State
	CmdLine string
}

func (j *Job) clear() {
	*j = Job{}
}

// Table is a fixed-capacity job table.
//
// Table is not safe for concurrent use. The shell guards it with the same
// lock that forms its registration barrier.
type Table struct {
	slots   []Job
	nextJID int
}

// NewTable creates a table with the given number of slots. A capacity below
// one selects DefaultCapacity.
func NewTable(capacity int) *Table {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Table{
		slots:   make([]Job, capacity),
		nextJID: 1,
	}
}

// Cap returns the number of slots.
func (t *Table) Cap() int {
	return len(t.slots)
}

// Len returns the number of live jobs.
func (t *Table) Len() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].PID != 0 {
			n++
		}
	}
	return n
}

// Add registers a new job and returns its job ID.
func (t *Table) Add(pid int, state State, cmdLine string) (int, error) {
	if pid < 1 {
		return 0, ErrInvalidPID
	}
	if t.FindByPid(pid) != nil {
		return 0, ErrDuplicatePID
	}

	for i := range t.slots {
		slot := &t.slots[i]
		if slot.PID != 0 {
			continue
		}

		jid := t.allocJID()
		*slot = Job{
			PID:     pid,
			JID:     jid,
			CmdLine: cmdLine,
		}
		t.SetState(pid, state)
		return jid, nil
	}

	return 0, ErrTableFull
}

// allocJID hands out nextJID, skipping IDs that are still live. IDs wrap back
// to 1 once they pass the table capacity. The caller guarantees a free slot so
// at least one ID in [1, Cap] is unused.
func (t *Table) allocJID() int {
	jid := t.nextJID
	for {
		if jid > len(t.slots) {
			jid = 1
		}
		if t.FindByJid(jid) == nil {
			break
		}
		jid++
	}

	t.nextJID = jid + 1
	return jid
}

// Remove deletes the job with the given pid, it returns false if no such job
// exists.
func (t *Table) Remove(pid int) bool {
	job := t.FindByPid(pid)
	if job == nil {
		return false
	}

	job.clear()
	t.nextJID = t.maxJID() + 1
	return true
}

func (t *Table) maxJID() int {
	highest := 0
	for i := range t.slots {
		if t.slots[i].JID > highest {
			highest = t.slots[i].JID
		}
	}
	return highest
}

// FindByPid returns the job led by pid or nil.
func (t *Table) FindByPid(pid int) *Job {
	if pid < 1 {
		return nil
	}
	for i := range t.slots {
		if t.slots[i].PID == pid {
			return &t.slots[i]
		}
	}
	return nil
}

// FindByJid returns the job with the given job ID or nil.
func (t *Table) FindByJid(jid int) *Job {
	if jid < 1 {
		return nil
	}
	for i := range t.slots {
		if t.slots[i].JID == jid {
			return &t.slots[i]
		}
	}
	return nil
}

// ForegroundPid returns the pid of the foreground job, or 0 if there is none.
func (t *Table) ForegroundPid() int {
	for i := range t.slots {
		if t.slots[i].PID != 0 && t.slots[i].State == Foreground {
			return t.slots[i].PID
		}
	}
	return 0
}

// JidOf maps a pid to its job ID, 0 if the pid isn't tracked.
func (t *Table) JidOf(pid int) int {
	if job := t.FindByPid(pid); job != nil {
		return job.JID
	}
	return 0
}

// SetState changes the state of the job led by pid. Moving a job to the
// foreground demotes any other foreground job to the background so there is
// never more than one.
func (t *Table) SetState(pid int, state State) bool {
	job := t.FindByPid(pid)
	if job == nil {
		return false
	}

	if state == Foreground {
		for i := range t.slots {
			other := &t.slots[i]
			if other.PID != 0 && other.PID != pid && other.State == Foreground {
				other.State = Background
			}
		}
	}

	job.State = state
	return true
}

// Jobs returns a copy of the live jobs in slot order.
func (t *Table) Jobs() []Job {
	var out []Job
	for _, job := range t.slots {
		if job.PID != 0 {
			out = append(out, job)
		}
	}
	return out
}

// List writes one line per live job to w.
func (t *Table) List(w io.Writer) error {
	for _, job := range t.Jobs() {
		if _, err := fmt.Fprintf(w, "[%d] (%d) %s%s\n", job.JID, job.PID, job.State.Label(), job.CmdLine); err != nil {
			return fmt.Errorf("error writing to output file: %w", err)
		}
	}
	return nil
}
