package core

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	getopt "github.com/pborman/getopt/v2"
)

type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (c *SimpleCommand) Flags() *getopt.Set {
	if c.flags == nil {
		c.flags = getopt.New()
	}

	return c.flags
}

// PrintHelp writes help for the command to the given writer.
func (c *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, c.Use)
	fmt.Fprintln(w, c.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	c.Flags().PrintOptions(w)
}

// Run parses args, args[0] being the command name, and calls the callback
// with the remaining operands if parsing was successful.
func (c *SimpleCommand) Run(s *Shell, args []string, callback func(operands []string) int) int {
	opts := c.Flags()

	// Add help flag if not overridden.
	if c.ShowHelp == nil {
		c.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	if err := opts.Getopt(args, nil); err != nil {
		s.logInvalidInvocation(args, err)
		s.errorf("%s: %s\n", args[0], err)
		c.PrintHelp(s.stdout)
		return 1
	}

	if *c.ShowHelp {
		c.PrintHelp(s.stdout)
		return 0
	}

	return callback(opts.Args())
}

const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

var (
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

// ColorPrinter decides whether terminal output is colorized.
type ColorPrinter struct {
	mode string
	out  io.Writer
}

// NewColorPrinter creates a printer for output written to out. The auto mode
// colors only when out is a terminal.
func NewColorPrinter(mode string, out io.Writer) *ColorPrinter {
	return &ColorPrinter{mode: mode, out: out}
}

func (c *ColorPrinter) ShouldColor() bool {
	switch c.mode {
	case ColorNever:
		return false
	case ColorAlways:
		return true
	default:
		fd, ok := c.out.(*os.File)
		return ok && (isatty.IsTerminal(fd.Fd()) || isatty.IsCygwinTerminal(fd.Fd()))
	}
}

func (c *ColorPrinter) Sprintf(attrs *color.Color, format string, a ...interface{}) string {
	if c.ShouldColor() {
		// The color package checks the process' own stdout, force a copy on
		// since the mode was already resolved.
		forced := *attrs
		forced.EnableColor()
		return forced.Sprintf(format, a...)
	}
	return fmt.Sprintf(format, a...)
}
