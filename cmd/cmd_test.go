package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephlewis42/tsh/core/config"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuiltins(t *testing.T) {
	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	out, err := runCommand(t, "", "builtins")
	require.NoError(t, err)
	g.Assert(t, "builtins", []byte(out))
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tsh")

	_, err := runCommand(t, "", "init", "--config", dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, config.ConfigurationName))
	assert.NoError(t, err)
}

func TestEventsReport(t *testing.T) {
	dir := t.TempDir()
	cfg := "prompt: \"tsh> \"\nemit_prompt: true\nmax_jobs: 16\ncolor: never\nlog:\n  level: debug\n  format: json\n  file: app.log\n"
	log := `{"time":"2026-01-02T03:04:05Z","level":"DEBUG","msg":"job.spawn","session_id":"s1","pid":100,"jid":1,"program":"sleep"}
{"time":"2026-01-02T03:04:06Z","level":"INFO","msg":"job.terminate","session_id":"s1","pid":100,"jid":1,"signal":2}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigurationName), []byte(cfg), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.log"), []byte(log), 0600))

	out, err := runCommand(t, "", "events", "report", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "log_entries: 2")
	assert.Contains(t, out, "sleep: 1")
	assert.Contains(t, out, "event: job.terminate")
}

func TestEventsReport_NoLogFile(t *testing.T) {
	_, err := runCommand(t, "", "events", "report", "--config", t.TempDir())
	assert.ErrorIs(t, err, config.ErrNoAppLog)
}

func TestRoot(t *testing.T) {
	cases := map[string]struct {
		args     []string
		input    string
		expected string
	}{
		"quit":      {[]string{"-p"}, "quit\n", ""},
		"eof":       {[]string{"-p"}, "", "\n"},
		"bad-input": {[]string{"-p"}, "cat < a < b\nquit\n", "Error: Ambiguous I/O redirection\n"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			args := append([]string{"--config", t.TempDir()}, tc.args...)
			out, err := runCommand(t, tc.input, args...)

			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
			assert.Equal(t, 0, exitStatus)
		})
	}
}
