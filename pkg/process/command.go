package process

import (
	"strings"
)

// Command is a program and its ordered argument vector.
type Command struct {
	Name string
	Args []string
}

// New creates a Command for name with the given arguments.
func New(name string, args ...string) *Command {
	return &Command{Name: name, Args: append([]string(nil), args...)}
}

// AddArgs appends arguments and returns the command for chaining.
func (c *Command) AddArgs(args ...string) *Command {
	c.Args = append(c.Args, args...)
	return c
}

// String renders the command line for logs. Arguments are not shell quoted.
func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}
