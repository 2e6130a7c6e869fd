// Package core runs the job-control shell: it reads command lines, launches
// programs as jobs and keeps the job table in step with the state changes the
// kernel reports for them.
package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/josephlewis42/tsh/core/jobs"
	"github.com/josephlewis42/tsh/core/logger"
	"github.com/josephlewis42/tsh/core/proc"
	"github.com/josephlewis42/tsh/core/shell"
	"github.com/spf13/afero"
)

const DefaultPrompt = "tsh> "

// ErrQuit is returned by Eval when the line asked the shell to exit.
var ErrQuit = errors.New("quit")

// Options configures a Shell. Zero values select the process defaults.
type Options struct {
	// Host starts and signals children, defaults to the real OS.
	Host proc.Host
	// Fs is used for builtin output redirection, defaults to the OS filesystem.
	Fs afero.Fs
	Logger *slog.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Files the children inherit when they aren't redirected. Nil leaves the
	// descriptor on the null device.
	ChildStdin  *os.File
	ChildStdout *os.File
	ChildStderr *os.File
	// Env is the child environment, nil inherits the shell's.
	Env []string

	Prompt     string
	EmitPrompt bool
	// Color is always, auto or never.
	Color   string
	MaxJobs int

	// Exit terminates the process, defaults to os.Exit.
	Exit func(code int)
}

type Shell struct {
	host   proc.Host
	fs     afero.Fs
	log    *slog.Logger
	input  *bufio.Reader
	stdout io.Writer
	stderr io.Writer
	colors *ColorPrinter

	childStdin  *os.File
	childStdout *os.File
	childStderr *os.File
	env         []string

	prompt     string
	emitPrompt bool

	// mu guards jobs and is the registration barrier: it is held from before
	// a child is started until the child is in the table, and the supervisor
	// only reaps while holding it.
	mu   sync.Mutex
	cond *sync.Cond
	jobs *jobs.Table

	// Set to true to quit the shell
	Quit bool

	signals  chan os.Signal
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	exit     func(code int)
}

// NewShell creates a shell, call Start before running commands so children
// are supervised.
func NewShell(opts Options) *Shell {
	if opts.Host == nil {
		opts.Host = proc.OS{}
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}

	// Status lines come from both the reader and the supervisor.
	outMu := &sync.Mutex{}

	s := &Shell{
		host:        opts.Host,
		fs:          opts.Fs,
		log:         opts.Logger,
		input:       bufio.NewReader(opts.Stdin),
		stdout:      &lockedWriter{mu: outMu, w: opts.Stdout},
		stderr:      &lockedWriter{mu: outMu, w: opts.Stderr},
		colors:      NewColorPrinter(opts.Color, opts.Stdout),
		childStdin:  opts.ChildStdin,
		childStdout: opts.ChildStdout,
		childStderr: opts.ChildStderr,
		env:         opts.Env,
		prompt:      opts.Prompt,
		emitPrompt:  opts.EmitPrompt,
		jobs:        jobs.NewTable(opts.MaxJobs),
		signals:     make(chan os.Signal, 16),
		done:        make(chan struct{}),
		exit:        opts.Exit,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(b)
}

func (s *Shell) printf(format string, a ...interface{}) {
	fmt.Fprintf(s.stdout, format, a...)
}

func (s *Shell) errorf(format string, a ...interface{}) {
	fmt.Fprintf(s.stderr, format, a...)
}

// Jobs returns a snapshot of the job table.
func (s *Shell) Jobs() []jobs.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs.Jobs()
}

// Run reads and evaluates lines until end of input or quit and returns the
// exit status.
func (s *Shell) Run() int {
	for {
		if s.emitPrompt {
			s.printf("%s", s.colors.Sprintf(ColorBoldGreen, "%s", s.prompt))
		}

		line, err := s.input.ReadString('\n')
		switch {
		case errors.Is(err, io.EOF) && line == "":
			s.printf("\n")
			return 0
		case err != nil && !errors.Is(err, io.EOF):
			s.errorf("%s\n", s.colors.Sprintf(ColorBoldRed, "Error: reading input: %v", err))
			return 1
		}

		if err := s.Eval(line); errors.Is(err, ErrQuit) {
			return 0
		}
	}
}

// Eval runs one command line. Problems with the line are reported to the
// user, the only error returned is ErrQuit.
func (s *Shell) Eval(line string) error {
	line = strings.TrimRight(line, "\r\n")

	cmd, err := shell.Parse(line)
	if err != nil {
		s.log.Debug(logger.EventSyntaxError, logger.KeyCmdLine, line, logger.KeyError, err)
		s.errorf("%s\n", s.colors.Sprintf(ColorBoldRed, "Error: %v", err))
		return nil
	}

	if cmd.Empty() {
		return nil
	}

	if cmd.Builtin != shell.BuiltinNone {
		builtin, ok := AllBuiltins[cmd.Builtin.String()]
		if !ok {
			s.errorf("%s: builtin not registered\n", cmd.Argv[0])
			return nil
		}
		builtin.Main(s, cmd)
		if s.Quit {
			return ErrQuit
		}
		return nil
	}

	s.launch(cmd, line)
	return nil
}

// launch starts an external program as a new job.
func (s *Shell) launch(cmd *shell.Command, line string) {
	spec := proc.Spec{
		Argv:   cmd.Argv,
		Env:    s.env,
		Stdin:  s.childStdin,
		Stdout: s.childStdout,
		Stderr: s.childStderr,
	}

	if cmd.InFile != "" {
		fd, err := proc.OpenInput(cmd.InFile)
		if err != nil {
			s.errorf("%v\n", err)
			return
		}
		defer fd.Close()
		spec.Stdin = fd
	}

	if cmd.OutFile != "" {
		fd, err := proc.OpenOutput(cmd.OutFile)
		if err != nil {
			s.errorf("%v\n", err)
			return
		}
		defer fd.Close()
		spec.Stdout = fd
	}

	state := jobs.Foreground
	if cmd.Background {
		state = jobs.Background
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pid, err := s.host.Start(spec)
	if err != nil {
		s.log.Warn(logger.EventSpawnFailed, logger.KeyProgram, cmd.Argv[0], logger.KeyError, err)
		s.printf("%s: Command not found.\n", cmd.Argv[0])
		return
	}

	jid, err := s.jobs.Add(pid, state, line)
	if err != nil {
		// The child keeps running unmanaged, its state changes are reaped
		// and dropped.
		s.log.Warn(logger.EventTableFull, logger.KeyPID, pid, logger.KeyProgram, cmd.Argv[0], logger.KeyError, err)
		s.printf("Tried to create too many jobs\n")
		return
	}

	s.log.Debug(logger.EventSpawn,
		logger.KeyPID, pid,
		logger.KeyJID, jid,
		logger.KeyProgram, cmd.Argv[0],
		logger.KeyState, state.String(),
		logger.KeyCmdLine, line)

	if cmd.Background {
		s.printf("[%d] (%d) %s\n", jid, pid, line)
		return
	}

	s.waitForeground(pid)
}

// waitForeground blocks until pid is no longer the foreground job. The caller
// must hold s.mu.
func (s *Shell) waitForeground(pid int) {
	for s.jobs.ForegroundPid() == pid {
		s.cond.Wait()
	}
}
