package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/josephlewis42/tsh/core/jobs"
	"github.com/josephlewis42/tsh/core/proc/proctest"
	"github.com/josephlewis42/tsh/core/shell"
	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAllBuiltins(t *testing.T) {
	assert.Equal(t, shell.BuiltinNames(), BuiltinNames())

	for name, builtin := range AllBuiltins {
		t.Run(name, func(t *testing.T) {
			assert.NotNil(t, builtin)
		})
	}
}

// withStoppedJob leaves ./myspin as job 2, pid 1001, in the stopped state next
// to a running background job 1, pid 1000.
func withStoppedJob(t *testing.T) *testShell {
	t.Helper()

	ts := newTestShell(t, "", 0)
	require.NoError(t, ts.Eval("sleep 100 &"))
	require.NoError(t, ts.Eval("./myspin 10 &"))
	ts.child(proctest.Stop(1001, syscall.SIGTSTP))
	ts.eventuallyState(t, 1001, jobs.Stopped)

	return ts
}

func TestQuit(t *testing.T) {
	ts := newTestShell(t, "", 0)

	assert.ErrorIs(t, ts.Eval("quit"), ErrQuit)
	assert.Empty(t, ts.stdout.String())
}

func TestJobs(t *testing.T) {
	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	t.Run("stdout", func(t *testing.T) {
		ts := withStoppedJob(t)
		before := len(ts.stdout.String())

		assert.NoError(t, ts.Eval("jobs"))
		g.Assert(t, "stdout", []byte(ts.stdout.String()[before:]))
	})

	t.Run("redirected", func(t *testing.T) {
		ts := withStoppedJob(t)
		require.NoError(t, afero.WriteFile(ts.fs, "list.txt", []byte("previous contents that are longer\n"), 0644))
		before := ts.stdout.String()

		assert.NoError(t, ts.Eval("jobs > list.txt"))
		assert.Equal(t, before, ts.stdout.String())

		contents, err := afero.ReadFile(ts.fs, "list.txt")
		require.NoError(t, err)
		g.Assert(t, "redirected", contents)
	})

	t.Run("empty", func(t *testing.T) {
		ts := newTestShell(t, "", 0)

		assert.NoError(t, ts.Eval("jobs"))
		assert.Empty(t, ts.stdout.String())
	})

	t.Run("bad-file", func(t *testing.T) {
		ts := newTestShell(t, "", 0)
		ts.fs = afero.NewReadOnlyFs(afero.NewMemMapFs())
		ts.Shell.fs = ts.fs

		assert.NoError(t, ts.Eval("jobs > list.txt"))
		assert.Contains(t, ts.stderr.String(), "error opening file")
	})
}

func TestBg(t *testing.T) {
	for _, arg := range []string{"%2", "1001"} {
		t.Run(arg, func(t *testing.T) {
			ts := withStoppedJob(t)
			before := len(ts.stdout.String())

			assert.NoError(t, ts.Eval("bg "+arg))

			assert.Equal(t, "[2] (1001) ./myspin 10 &\n", ts.stdout.String()[before:])
			assert.Equal(t, []proctest.Kill{{PGID: 1001, Signal: unix.SIGCONT}}, ts.host.Kills())
			assert.Equal(t, jobs.Background, ts.state(t, 1001))
			assert.Equal(t, jobs.Background, ts.state(t, 1000))
		})
	}
}

func TestBgFg_Errors(t *testing.T) {
	cases := map[string]struct {
		line     string
		expected string
	}{
		"bg-missing":   {"bg", "bg command requires PID or %jobid argument\n"},
		"fg-missing":   {"fg", "fg command requires PID or %jobid argument\n"},
		"bg-malformed": {"bg abc", "bg: argument must be a PID or %jobid\n"},
		"fg-malformed": {"fg %x", "fg: argument must be a PID or %jobid\n"},
		"bg-zero":      {"bg %0", "bg: argument must be a PID or %jobid\n"},
		"bg-no-job":    {"bg %9", "%9: Job not found\n"},
		"fg-no-pid":    {"fg 4242", "4242: Job not found\n"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			ts := withStoppedJob(t)
			before := ts.stdout.String()

			assert.NoError(t, ts.Eval(tc.line))

			assert.Equal(t, tc.expected, ts.stderr.String())
			assert.Equal(t, before, ts.stdout.String())
			assert.Empty(t, ts.host.Kills())
			assert.Equal(t, jobs.Stopped, ts.state(t, 1001))
			assert.Equal(t, jobs.Background, ts.state(t, 1000))
		})
	}
}

func TestBgFg_KillError(t *testing.T) {
	for _, name := range []string{"bg", "fg"} {
		t.Run(name, func(t *testing.T) {
			ts := withStoppedJob(t)
			ts.host.KillErr = syscall.ESRCH

			assert.NoError(t, requireDone(t, ts.evalAsync(name+" %2")))

			assert.Equal(t, fmt.Sprintf("%%2: %v\n", syscall.ESRCH), ts.stderr.String())
			assert.Equal(t, jobs.Stopped, ts.state(t, 1001))
		})
	}
}

func TestFg(t *testing.T) {
	t.Run("until-exit", func(t *testing.T) {
		ts := withStoppedJob(t)

		done := ts.evalAsync("fg %2")
		ts.eventuallyState(t, 1001, jobs.Foreground)
		requireWaiting(t, done)

		assert.Equal(t, []proctest.Kill{{PGID: 1001, Signal: unix.SIGCONT}}, ts.host.Kills())

		ts.child(proctest.Exit(1001, 0))
		assert.NoError(t, requireDone(t, done))
		assert.Equal(t, []jobs.Job{
			{PID: 1000, JID: 1, State: jobs.Background, CmdLine: "sleep 100 &"},
		}, ts.Jobs())
	})

	t.Run("until-stop", func(t *testing.T) {
		ts := withStoppedJob(t)
		before := len(ts.stdout.String())

		done := ts.evalAsync("fg 1001")
		ts.eventuallyState(t, 1001, jobs.Foreground)

		ts.child(proctest.Stop(1001, syscall.SIGTSTP))
		assert.NoError(t, requireDone(t, done))

		assert.Equal(t, fmt.Sprintf("Job [2] (1001) stopped by signal %d\n", syscall.SIGTSTP), ts.stdout.String()[before:])
		assert.Equal(t, jobs.Stopped, ts.state(t, 1001))
	})

	t.Run("running-background", func(t *testing.T) {
		ts := withStoppedJob(t)

		done := ts.evalAsync("fg %1")
		ts.eventuallyState(t, 1000, jobs.Foreground)

		ts.child(proctest.Terminate(1000, syscall.SIGTERM))
		assert.NoError(t, requireDone(t, done))
		assert.Len(t, ts.Jobs(), 1)
	})
}

func TestBuiltinHelp(t *testing.T) {
	cases := map[string]string{
		"quit": "usage: quit\nExit the shell.\n",
		"jobs": "usage: jobs [> file]\nList the running and stopped jobs.\n",
		"bg":   "usage: bg <pid|%jobid>\nResume a job in the background.\n",
		"fg":   "usage: fg <pid|%jobid>\nResume a job in the foreground.\n",
	}

	for name, expected := range cases {
		t.Run(name, func(t *testing.T) {
			ts := newTestShell(t, "", 0)

			assert.NoError(t, ts.Eval(name+" --help"))
			assert.True(t, strings.HasPrefix(ts.stdout.String(), expected), ts.stdout.String())
			assert.Contains(t, ts.stdout.String(), "--help")
			assert.False(t, ts.Quit)
		})
	}
}

func TestBuiltinBadFlag(t *testing.T) {
	ts := newTestShell(t, "", 0)

	assert.NoError(t, ts.Eval("jobs -z"))
	assert.True(t, strings.HasPrefix(ts.stderr.String(), "jobs: "), ts.stderr.String())
	assert.Contains(t, ts.stdout.String(), "usage: jobs")
}
