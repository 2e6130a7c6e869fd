// Package shell turns command lines into commands the job-control shell can
// run.
//
// The grammar is a single simple command:
//
//	command [arg ...] [< infile] [> outfile] [&]
//
// Words are split on whitespace. A word in single or double quotes is taken
// verbatim, without the quotes, so it keeps its whitespace and is never an
// operator. The redirection operators may stand alone or prefix the file
// name (<in.txt). A trailing & word runs the command in the background.
package shell

import (
	"errors"
	"sort"
	"strings"

	"github.com/anmitsu/go-shlex"
)

const (
	// MaxLine is the size of the line buffer, lines must be shorter than this.
	MaxLine = 1024
	// MaxArgs is the most arguments a command may have.
	MaxArgs = 128
)

var (
	ErrLineTooLong       = errors.New("command line too long")
	ErrUnmatchedQuote    = errors.New("unmatched quote")
	ErrAmbiguousRedirect = errors.New("Ambiguous I/O redirection")
	ErrMissingRedirect   = errors.New("must provide file name for redirection")
	ErrTooManyArgs       = errors.New("too many arguments")
)

// Builtin identifies a command the shell runs itself.
type Builtin int

const (
	BuiltinNone Builtin = iota
	BuiltinQuit
	BuiltinJobs
	BuiltinBg
	BuiltinFg
)

var builtinNames = map[string]Builtin{
	"quit": BuiltinQuit,
	"jobs": BuiltinJobs,
	"bg":   BuiltinBg,
	"fg":   BuiltinFg,
}

func (b Builtin) String() string {
	for name, v := range builtinNames {
		if v == b {
			return name
		}
	}
	return ""
}

// BuiltinNames lists the builtin command names in sorted order.
func BuiltinNames() []string {
	var out []string
	for name := range builtinNames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LookupBuiltin returns the builtin named by name, or BuiltinNone.
func LookupBuiltin(name string) Builtin {
	return builtinNames[name]
}

// Command is one parsed command line.
type Command struct {
	// Argv holds the program and its arguments.
	Argv []string
	// InFile is the input redirection target, empty if none.
	InFile string
	// OutFile is the output redirection target, empty if none.
	OutFile string
	// Builtin is set if Argv[0] names a shell builtin.
	Builtin Builtin
	// Background is set when the line ended in &.
	Background bool
}

// Empty is true if there's nothing to run.
func (c *Command) Empty() bool {
	return c == nil || len(c.Argv) == 0
}

type redirect int

const (
	redirectNone redirect = iota
	redirectIn
	redirectOut
)

// Parse tokenizes a single command line.
func Parse(line string) (*Command, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) >= MaxLine {
		return nil, ErrLineTooLong
	}

	// Non-POSIX mode keeps the quotes so quoted words can be told apart
	// from operators.
	words, err := shlex.Split(line, false)
	if err != nil {
		return nil, ErrUnmatchedQuote
	}

	cmd := &Command{}
	pending := redirectNone
	for _, word := range words {
		quoted := isQuoted(word)
		if quoted {
			word = word[1 : len(word)-1]
		}

		for !quoted && len(word) > 0 && (word[0] == '<' || word[0] == '>') {
			next := redirectIn
			if word[0] == '>' {
				next = redirectOut
			}

			// A repeated operator (>>) names the same target.
			if pending != redirectNone && pending != next {
				return nil, ErrAmbiguousRedirect
			}
			if (next == redirectIn && cmd.InFile != "") || (next == redirectOut && cmd.OutFile != "") {
				return nil, ErrAmbiguousRedirect
			}
			pending = next
			word = word[1:]
		}

		if word == "" && !quoted {
			continue
		}

		if word == "" && pending != redirectNone {
			return nil, ErrMissingRedirect
		}

		switch pending {
		case redirectIn:
			cmd.InFile = word
		case redirectOut:
			cmd.OutFile = word
		default:
			cmd.Argv = append(cmd.Argv, word)
		}
		pending = redirectNone
	}

	if pending != redirectNone {
		return nil, ErrMissingRedirect
	}

	if len(cmd.Argv) > MaxArgs {
		return nil, ErrTooManyArgs
	}

	if len(cmd.Argv) == 0 {
		return cmd, nil
	}

	cmd.Builtin = LookupBuiltin(cmd.Argv[0])

	if last := len(cmd.Argv) - 1; cmd.Argv[last] == "&" {
		cmd.Background = true
		cmd.Argv = cmd.Argv[:last]
	}

	return cmd, nil
}

// isQuoted reports whether word is wrapped in a matching pair of quotes.
func isQuoted(word string) bool {
	if len(word) < 2 {
		return false
	}
	q := word[0]
	return (q == '\'' || q == '"') && word[len(word)-1] == q
}
