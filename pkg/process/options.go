package process

import (
	"io"
	"time"

	"github.com/bravo68web/gitkit/pkg/logger"
)

// DefaultSeparator is appended after every captured line.
const DefaultSeparator = "\n"

// Options configures one invocation. Zero values mean "not set".
type Options struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is overlaid on the parent environment.
	Env map[string]string

	// Timeout kills the process when it elapses. Zero disables the timer.
	Timeout time.Duration

	// Separator is appended after each line in the accumulated output.
	Separator string

	// StdoutLines and StderrLines receive every line as it arrives, without
	// its trailing newline. Sends block, so a slow reader slows the process.
	// The runner never closes these channels.
	StdoutLines chan<- string
	StderrLines chan<- string

	// Stdout receives the raw stdout bytes as they arrive. When set, stdout
	// is neither split into lines nor accumulated, and StdoutLines and
	// Separator do not apply to it.
	Stdout io.Writer

	// DiscardStdout skips accumulating stdout into Result.Stdout. Lines are
	// still sent to StdoutLines.
	DiscardStdout bool

	Logger *logger.Logger
}

// Option is a function that modifies Options
type Option func(*Options)

// DefaultOptions returns default execution options
func DefaultOptions() *Options {
	return &Options{
		Separator: DefaultSeparator,
		Env:       make(map[string]string),
	}
}

func (o *Options) clone() *Options {
	c := *o
	c.Env = make(map[string]string, len(o.Env))
	for k, v := range o.Env {
		c.Env[k] = v
	}
	return &c
}

// WithDir sets the working directory
func WithDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}

// WithEnv adds environment variables
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithEnvVar adds a single environment variable
func WithEnvVar(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		o.Env[key] = value
	}
}

// WithTimeout sets the kill deadline
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithSeparator sets the text appended after each accumulated line
func WithSeparator(sep string) Option {
	return func(o *Options) {
		o.Separator = sep
	}
}

// WithStdoutLines streams stdout lines to ch
func WithStdoutLines(ch chan<- string) Option {
	return func(o *Options) {
		o.StdoutLines = ch
	}
}

// WithStderrLines streams stderr lines to ch
func WithStderrLines(ch chan<- string) Option {
	return func(o *Options) {
		o.StderrLines = ch
	}
}

// WithStdout copies raw stdout to w instead of capturing it
func WithStdout(w io.Writer) Option {
	return func(o *Options) {
		o.Stdout = w
	}
}

// WithoutStdoutCapture leaves Result.Stdout empty
func WithoutStdoutCapture() Option {
	return func(o *Options) {
		o.DiscardStdout = true
	}
}

// WithLogger sets the logger used for invocation records
func WithLogger(l *logger.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
