package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hubertat/multiio/board"
)

const (
	ProgramName = "multiio"
	Version     = "1.0.0"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitArgCount = 2
	ExitArgRange = 3
)

var (
	errArgCount = errors.New("invalid parameters number")
	errArgValue = errors.New("invalid argument")
)

// Env is what a command runs against.
type Env struct {
	Out  io.Writer
	Err  io.Writer
	Open func(stack int) (*board.Card, error)
}

type runFunc func(card *board.Card, args []string, out io.Writer) error

// Command is one board tool option. Args lists the accepted numbers of
// arguments following the command name.
type Command struct {
	Name    string
	Help    string
	Usage   []string
	Example string
	Args    []int
	Run     runFunc
}

func (c Command) acceptsArgs(n int) bool {
	for _, a := range c.Args {
		if a == n {
			return true
		}
	}
	return false
}

func (c Command) writeUsage(w io.Writer) {
	for i, u := range c.Usage {
		label := "Usage:"
		if len(c.Usage) > 1 {
			label = fmt.Sprintf("Usage %d:", i+1)
		}
		fmt.Fprintf(w, "  %-16s %s %s\n", label, ProgramName, u)
	}
}

func (c Command) writeHelp(w io.Writer) {
	fmt.Fprintf(w, "  %-16s %s\n", c.Name, c.Help)
}

func (c Command) writeDetails(w io.Writer) {
	c.writeHelp(w)
	c.writeUsage(w)
	fmt.Fprintf(w, "  %-16s %s %s\n", "Example:", ProgramName, c.Example)
}

func find(name string) (Command, bool) {
	for _, c := range Commands {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Command{}, false
}

func generalHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s [options] [...]\n", ProgramName)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintf(w, "  %-16s %s\n", "-h", "Display the list of command options or one command option details")
	fmt.Fprintf(w, "  %-16s %s\n", "-v", "Display "+ProgramName+" command version")
	for _, c := range Commands {
		c.writeHelp(w)
	}
	fmt.Fprintf(w, "Use \"%s -h <option>\" for more details\n", ProgramName)
}

// Main runs the tool with the arguments following the program name and
// returns the process exit code.
func Main(args []string, env Env) int {
	if len(args) == 0 {
		fmt.Fprintln(env.Out, "Command option required!")
		generalHelp(env.Out)
		return ExitArgCount
	}

	switch strings.ToLower(args[0]) {
	case "-h", "--help":
		if len(args) == 2 {
			cmd, ok := find(args[1])
			if !ok {
				fmt.Fprintf(env.Err, "Unknown option %q\n", args[1])
				return ExitError
			}
			cmd.writeDetails(env.Out)
			return ExitOK
		}
		generalHelp(env.Out)
		return ExitOK
	case "-v", "--version":
		fmt.Fprintf(env.Out, "%s v%s\n", ProgramName, Version)
		return ExitOK
	}

	if len(args) < 2 {
		fmt.Fprintln(env.Out, "Invalid command option!")
		generalHelp(env.Out)
		return ExitError
	}
	cmd, ok := find(args[1])
	if !ok {
		fmt.Fprintln(env.Out, "Invalid command option!")
		generalHelp(env.Out)
		return ExitError
	}
	if !cmd.acceptsArgs(len(args) - 2) {
		fmt.Fprintln(env.Out, "Invalid parameters number!")
		cmd.writeUsage(env.Out)
		return ExitArgCount
	}

	stack, err := strconv.Atoi(args[0])
	if err != nil || stack < 0 || stack > board.MaxStack {
		fmt.Fprintf(env.Err, "Invalid stack level %q [0..%d]\n", args[0], board.MaxStack)
		return ExitArgRange
	}

	card, err := env.Open(stack)
	if err != nil {
		fmt.Fprintln(env.Err, err)
		return ExitError
	}
	defer card.Close()

	if err := cmd.Run(card, args[2:], env.Out); err != nil {
		fmt.Fprintln(env.Err, err)
		return exitCode(err)
	}
	return ExitOK
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, errArgCount):
		return ExitArgCount
	case errors.Is(err, errArgValue), errors.Is(err, board.ErrRange), errors.Is(err, board.ErrChannel):
		return ExitArgRange
	}
	return ExitError
}

func parseInt(s, what string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(errArgValue, "%s %q", what, s)
	}
	return v, nil
}

func parseFloat(s, what string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.Wrapf(errArgValue, "%s %q", what, s)
	}
	return v, nil
}

func parseState(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "on":
		return true, nil
	case "0", "off":
		return false, nil
	}
	return false, errors.Wrapf(errArgValue, "state %q, use 0/1", s)
}
