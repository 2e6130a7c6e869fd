package core

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/josephlewis42/tsh/core/jobs"
	"github.com/josephlewis42/tsh/core/logger"
	"github.com/josephlewis42/tsh/core/proc"
	"golang.org/x/sys/unix"
)

// supervisedSignals are caught for the life of the shell. Children get the
// default dispositions back on exec because none of these are ignored.
var supervisedSignals = []os.Signal{
	unix.SIGCHLD,
	unix.SIGINT,
	unix.SIGTSTP,
	unix.SIGQUIT,
	unix.SIGTTIN,
	unix.SIGTTOU,
}

// Start begins catching signals and supervising children.
func (s *Shell) Start() {
	signal.Notify(s.signals, supervisedSignals...)

	s.wg.Add(1)
	go s.supervise()

	// Children that changed state before Notify would otherwise go unseen.
	s.signals <- unix.SIGCHLD
}

// Stop releases the signals and waits for the supervisor to exit.
func (s *Shell) Stop() {
	s.stopOnce.Do(func() {
		signal.Stop(s.signals)
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Shell) supervise() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case sig := <-s.signals:
			s.handle(sig)
		}
	}
}

func (s *Shell) handle(sig os.Signal) {
	switch sig {
	case unix.SIGCHLD:
		s.handleChild()
	case unix.SIGINT:
		s.forward(unix.SIGINT)
	case unix.SIGTSTP:
		s.forward(unix.SIGTSTP)
	case unix.SIGQUIT:
		s.handleQuit()
	default:
		// SIGTTIN and SIGTTOU would stop the shell if left at the default.
		s.log.Debug("ignoring signal", logger.KeySignal, sig.String())
	}
}

// handleChild collects every pending child state change and wakes waiters.
func (s *Shell) handleChild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.cond.Broadcast()

	for {
		event, ok, err := s.host.Reap()
		if err != nil {
			s.log.Error("reaping children", logger.KeyError, err)
			return
		}
		if !ok {
			return
		}
		s.applyEvent(event)
	}
}

// applyEvent updates the table for one child state change. The caller must
// hold s.mu.
func (s *Shell) applyEvent(event proc.Event) {
	job := s.jobs.FindByPid(event.PID)
	if job == nil {
		s.log.Debug(logger.EventUnknownChild, logger.KeyPID, event.PID, logger.KeyState, event.Change.String())
		return
	}
	pid, jid := job.PID, job.JID

	switch event.Change {
	case proc.Stopped:
		s.jobs.SetState(pid, jobs.Stopped)
		s.log.Info(logger.EventStop, logger.KeyPID, pid, logger.KeyJID, jid, logger.KeySignal, int(event.Signal))
		s.printf("Job [%d] (%d) stopped by signal %d\n", jid, pid, int(event.Signal))

	case proc.Signaled:
		s.log.Info(logger.EventTerminate, logger.KeyPID, pid, logger.KeyJID, jid, logger.KeySignal, int(event.Signal))
		s.printf("Job [%d] (%d) terminated by signal %d\n", jid, pid, int(event.Signal))
		s.jobs.Remove(pid)

	case proc.Exited:
		s.log.Debug(logger.EventExit, logger.KeyPID, pid, logger.KeyJID, jid, logger.KeyExitCode, event.ExitCode, logger.KeyCmdLine, job.CmdLine)
		s.jobs.Remove(pid)

	case proc.Continued:
		s.log.Debug(logger.EventContinue, logger.KeyPID, pid, logger.KeyJID, jid)
	}
}

// forward sends sig to the foreground job's process group, if any.
func (s *Shell) forward(sig syscall.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pid := s.jobs.ForegroundPid()
	if pid == 0 {
		return
	}

	s.log.Debug(logger.EventForward, logger.KeyPID, pid, logger.KeySignal, int(sig))
	if err := s.host.Kill(pid, sig); err != nil {
		s.errorf("kill (%s): %v\n", unix.SignalName(sig), err)
	}
}

func (s *Shell) handleQuit() {
	s.printf("Terminating after receipt of SIGQUIT signal\n")
	s.exit(1)
}
