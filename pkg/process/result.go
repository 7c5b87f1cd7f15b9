package process

import (
	"time"
)

// Result is the outcome of one invocation.
type Result struct {
	// ExitCode is nil when the process was killed by the timeout or by
	// context cancellation.
	ExitCode *int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// TimedOut reports whether the process was killed before it exited.
func (r *Result) TimedOut() bool {
	return r.ExitCode == nil
}

// Success reports a zero exit code.
func (r *Result) Success() bool {
	return r.ExitCode != nil && *r.ExitCode == 0
}

// Code returns the exit code, or -1 when the process was killed.
func (r *Result) Code() int {
	if r.ExitCode == nil {
		return -1
	}
	return *r.ExitCode
}
