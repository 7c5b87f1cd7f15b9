// Package process runs external programs, streaming their stdout and stderr
// line by line and enforcing an optional kill deadline.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bravo68web/gitkit/pkg/logger"
)

var (
	// ErrStartFailed is returned when the program could not be started.
	ErrStartFailed = errors.New("process failed to start")
	// ErrOutputWrite is returned when the writer given to WithStdout fails.
	ErrOutputWrite = errors.New("process output write failed")
)

const tracerName = "github.com/bravo68web/gitkit/pkg/process"

// Runner starts commands with a shared set of default options.
type Runner struct {
	options *Options
}

// NewRunner creates a Runner whose defaults are adjusted by opts.
func NewRunner(opts ...Option) *Runner {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Runner{options: o}
}

// Run executes c and returns once the process has exited and both output
// streams have been drained, or once the timeout or ctx fires.
//
// A non-zero exit is not an error: inspect Result.ExitCode. When the timeout
// fires the process is killed, ExitCode is nil and whatever output arrived
// before the kill is returned with a nil error. Cancellation of ctx behaves
// the same way but also returns ctx.Err(). If the program cannot be started
// the Result has ExitCode -1 and empty output.
func (r *Runner) Run(ctx context.Context, c *Command, opts ...Option) (*Result, error) {
	o := r.merge(opts...)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "process.run",
		trace.WithAttributes(
			attribute.String("process.command", c.Name),
			attribute.StringSlice("process.args", c.Args),
			attribute.String("process.dir", o.Dir),
		))
	defer span.End()

	log := o.Logger
	if log == nil {
		log = logger.Get()
	}
	log = log.WithContext(ctx)

	res, err := r.run(ctx, c, o)

	fields := []logger.Field{
		logger.Command(c.String()),
		logger.Dir(o.Dir),
		logger.ExitCode(res.ExitCode),
		logger.Duration("duration", res.Duration),
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug("process failed", append(fields, logger.Error(err))...)
	case res.TimedOut():
		span.SetStatus(codes.Error, "killed after timeout")
		log.Debug("process killed after timeout", append(fields, logger.Duration("timeout", o.Timeout))...)
	default:
		span.SetAttributes(attribute.Int("process.exit_code", *res.ExitCode))
		log.Debug("process finished", fields...)
	}
	return res, err
}

func (r *Runner) run(ctx context.Context, c *Command, o *Options) (*Result, error) {
	start := time.Now()

	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = o.Dir
	cmd.Env = buildEnv(o.Env)

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return startFailure(start), fmt.Errorf("%w: %w", ErrStartFailed, err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return startFailure(start), fmt.Errorf("%w: %w", ErrStartFailed, err)
	}
	defer stdoutR.Close()
	defer stderrR.Close()

	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := ctx.Err(); err != nil {
		stdoutW.Close()
		stderrW.Close()
		return startFailure(start), err
	}

	startErr := cmd.Start()
	// The child holds its own copies of the write ends; ours must go so the
	// pumps see EOF when the child exits.
	stdoutW.Close()
	stderrW.Close()
	if startErr != nil {
		return startFailure(start), fmt.Errorf("%w: %s: %w", ErrStartFailed, c.Name, startErr)
	}

	stop := make(chan struct{})
	var stdout sink = newLineSink(o.Separator, o.DiscardStdout, o.StdoutLines, stop)
	if o.Stdout != nil {
		stdout = &writerSink{w: o.Stdout}
	}
	stderr := newLineSink(o.Separator, false, o.StderrLines, stop)

	var pumps sync.WaitGroup
	pumps.Add(2)
	go func() {
		defer pumps.Done()
		stdout.pump(stdoutR)
	}()
	go func() {
		defer pumps.Done()
		stderr.pump(stderrR)
	}()

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	done := make(chan error, 1)
	go func() {
		err := <-exited
		pumps.Wait()
		done <- err
	}()

	var timeout <-chan time.Time
	if o.Timeout > 0 {
		timer := time.NewTimer(o.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	kill := func() {
		close(stop)
		_ = cmd.Process.Kill()
		// Descendants may still hold the write ends open.
		stdoutR.Close()
		stderrR.Close()
		pumps.Wait()
	}

	select {
	case waitErr := <-done:
		res := &Result{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Duration: time.Since(start),
		}
		code := cmd.ProcessState.ExitCode()
		res.ExitCode = &code

		var exitErr *exec.ExitError
		if waitErr != nil && !errors.As(waitErr, &exitErr) {
			return res, fmt.Errorf("wait for %s: %w", c.Name, waitErr)
		}
		if err := stdout.Err(); err != nil {
			return res, fmt.Errorf("%w: %s: %w", ErrOutputWrite, c.Name, err)
		}
		return res, nil

	case <-timeout:
		kill()
		return &Result{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Duration: time.Since(start),
		}, nil

	case <-ctx.Done():
		kill()
		return &Result{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Duration: time.Since(start),
		}, ctx.Err()
	}
}

func (r *Runner) merge(opts ...Option) *Options {
	merged := r.options.clone()
	for _, opt := range opts {
		opt(merged)
	}
	return merged
}

func startFailure(start time.Time) *Result {
	code := -1
	return &Result{ExitCode: &code, Duration: time.Since(start)}
}

// buildEnv overlays env on the parent environment. Keys are applied in
// sorted order so the child sees a deterministic environment.
func buildEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := os.Environ()
	for _, k := range keys {
		merged = append(merged, k+"="+env[k])
	}
	return merged
}
