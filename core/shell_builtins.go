package core

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/josephlewis42/tsh/core/jobs"
	"github.com/josephlewis42/tsh/core/logger"
	"github.com/josephlewis42/tsh/core/shell"
	"golang.org/x/sys/unix"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, cmd *shell.Command) int
}

type ShellBuiltinFunc func(s *Shell, cmd *shell.Command) int

func (f ShellBuiltinFunc) Main(s *Shell, cmd *shell.Command) int {
	return f(s, cmd)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// BuiltinNames returns the registered builtin names in sorted order.
func BuiltinNames() []string {
	var out []string
	for name := range AllBuiltins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Shell) logInvalidInvocation(args []string, err error) {
	s.log.Debug(logger.EventInvalidInvocation, logger.KeyCmdLine, strings.Join(args, " "), logger.KeyError, err)
}

// Quit exits the shell.
func Quit(s *Shell, cmd *shell.Command) int {
	c := &SimpleCommand{
		Use:   "quit",
		Short: "Exit the shell.",
	}

	return c.Run(s, cmd.Argv, func([]string) int {
		s.Quit = true
		return 0
	})
}

// Jobs lists the job table.
func Jobs(s *Shell, cmd *shell.Command) int {
	c := &SimpleCommand{
		Use:   "jobs [> file]",
		Short: "List the running and stopped jobs.",
	}

	return c.Run(s, cmd.Argv, func([]string) int {
		w := s.stdout
		if cmd.OutFile != "" {
			fd, err := s.fs.OpenFile(cmd.OutFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
			if err != nil {
				s.errorf("error opening file: %v\n", err)
				return 1
			}
			defer fd.Close()
			w = fd
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.jobs.List(w); err != nil {
			s.errorf("%s: %v\n", cmd.Argv[0], err)
			return 1
		}
		return 0
	})
}

// Bg resumes a stopped job in the background.
func Bg(s *Shell, cmd *shell.Command) int {
	c := &SimpleCommand{
		Use:   "bg <pid|%jobid>",
		Short: "Resume a job in the background.",
	}

	return c.Run(s, cmd.Argv, func(operands []string) int {
		s.mu.Lock()
		defer s.mu.Unlock()

		job := s.resolveJob(cmd.Argv[0], operands)
		if job == nil {
			return 1
		}
		if !s.resume(job) {
			return 1
		}

		s.jobs.SetState(job.PID, jobs.Background)
		s.printf("[%d] (%d) %s\n", job.JID, job.PID, job.CmdLine)
		return 0
	})
}

// Fg resumes a job in the foreground and waits for it to stop or finish.
func Fg(s *Shell, cmd *shell.Command) int {
	c := &SimpleCommand{
		Use:   "fg <pid|%jobid>",
		Short: "Resume a job in the foreground.",
	}

	return c.Run(s, cmd.Argv, func(operands []string) int {
		s.mu.Lock()
		defer s.mu.Unlock()

		job := s.resolveJob(cmd.Argv[0], operands)
		if job == nil {
			return 1
		}
		if !s.resume(job) {
			return 1
		}

		pid := job.PID
		s.jobs.SetState(pid, jobs.Foreground)
		s.waitForeground(pid)
		return 0
	})
}

// resolveJob finds the job named by the first operand, reporting problems to
// the user. The caller must hold s.mu.
func (s *Shell) resolveJob(name string, operands []string) *jobs.Job {
	if len(operands) == 0 {
		s.errorf("%s command requires PID or %%jobid argument\n", name)
		return nil
	}

	arg := operands[0]
	var job *jobs.Job
	if strings.HasPrefix(arg, "%") {
		jid, err := strconv.Atoi(arg[1:])
		if err != nil || jid < 1 {
			s.errorf("%s: argument must be a PID or %%jobid\n", name)
			return nil
		}
		job = s.jobs.FindByJid(jid)
	} else {
		pid, err := strconv.Atoi(arg)
		if err != nil || pid < 1 {
			s.errorf("%s: argument must be a PID or %%jobid\n", name)
			return nil
		}
		job = s.jobs.FindByPid(pid)
	}

	if job == nil {
		s.errorf("%s: Job not found\n", arg)
		return nil
	}
	return job
}

// resume sends SIGCONT to the job's group. The caller must hold s.mu.
func (s *Shell) resume(job *jobs.Job) bool {
	if err := s.host.Kill(job.PID, unix.SIGCONT); err != nil {
		s.errorf("%%%d: %v\n", job.JID, err)
		return false
	}
	s.log.Debug(logger.EventContinue, logger.KeyPID, job.PID, logger.KeyJID, job.JID)
	return true
}

func init() {
	AllBuiltins[shell.BuiltinQuit.String()] = ShellBuiltinFunc(Quit)
	AllBuiltins[shell.BuiltinJobs.String()] = ShellBuiltinFunc(Jobs)
	AllBuiltins[shell.BuiltinBg.String()] = ShellBuiltinFunc(Bg)
	AllBuiltins[shell.BuiltinFg.String()] = ShellBuiltinFunc(Fg)
}
