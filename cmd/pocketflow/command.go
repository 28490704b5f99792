package main

import (
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Command is one pocketflow subcommand.
type Command struct {
	Name        string
	Description string
	Usage       string
	Examples    []string
	Run         func(c *Command, args []string) error
}

func (c *Command) NewFlagSet(w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(c.Name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { c.PrintUsage(w) }
	return fs
}

func (c *Command) PrintUsage(w io.Writer) {
	fmt.Fprintf(w, "%s\n\nUSAGE:\n    %s\n", c.Description, c.Usage)
	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "\nEXAMPLES:\n")
		for _, ex := range c.Examples {
			fmt.Fprintf(w, "    %s\n", ex)
		}
	}
}

// CommandRegistry dispatches to registered commands by name.
type CommandRegistry struct {
	commands map[string]*Command
	out      io.Writer
}

func NewCommandRegistry(out io.Writer) *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]*Command), out: out}
}

func (r *CommandRegistry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
}

func (r *CommandRegistry) Execute(args []string) error {
	if len(args) < 1 {
		r.PrintHelp()
		return fmt.Errorf("no command specified")
	}
	switch args[0] {
	case "help", "-h", "--help":
		if len(args) > 1 {
			if cmd, ok := r.commands[args[1]]; ok {
				cmd.PrintUsage(r.out)
				return nil
			}
		}
		r.PrintHelp()
		return nil
	}
	cmd, ok := r.commands[args[0]]
	if !ok {
		r.PrintHelp()
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.Run(cmd, args[1:])
}

func (r *CommandRegistry) PrintHelp() {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString("pocketflow - track income and expenses\n\nUSAGE:\n    pocketflow <command> [flags]\n\nCOMMANDS:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "    %-10s %s\n", name, r.commands[name].Description)
	}
	b.WriteString("\nEnvironment: API_BASE_URL, CLIENT_TIMEOUT, OPTIONS_DIR, POCKETFLOW_USER\n")
	fmt.Fprint(r.out, b.String())
}
