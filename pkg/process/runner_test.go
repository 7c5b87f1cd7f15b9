package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bravo68web/gitkit/pkg/logger"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func newTestRunner(opts ...Option) *Runner {
	return NewRunner(append([]Option{WithLogger(logger.NewNop())}, opts...)...)
}

func TestRunCapturesOutput(t *testing.T) {
	requireShell(t)

	res, err := newTestRunner().Run(context.Background(),
		New("sh", "-c", "printf 'one\\ntwo\\n'; printf 'oops\\n' >&2"))
	require.NoError(t, err)
	require.NotNil(t, res.ExitCode)

	assert.True(t, res.Success())
	assert.Equal(t, "one\ntwo\n", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.False(t, res.TimedOut())
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	requireShell(t)

	res, err := newTestRunner().Run(context.Background(), New("sh", "-c", "echo bad >&2; exit 3"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Code())
	assert.False(t, res.Success())
	assert.Equal(t, "bad\n", res.Stderr)
}

func TestRunSeparator(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name string
		sep  string
		want string
	}{
		{name: "custom", sep: "|", want: "a|b|c"},
		{name: "none", sep: "", want: "abc"},
		{name: "default", sep: DefaultSeparator, want: "a\nb\nc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestRunner().Run(context.Background(),
				New("sh", "-c", "printf 'a\\nb\\nc'"), WithSeparator(tt.sep))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Stdout)
		})
	}
}

func TestRunStreamsLinesInOrder(t *testing.T) {
	requireShell(t)

	stdout := make(chan string, 16)
	stderr := make(chan string, 16)

	res, err := newTestRunner().Run(context.Background(),
		New("sh", "-c", "for i in 1 2 3 4 5; do echo $i; done; echo e1 >&2"),
		WithStdoutLines(stdout), WithStderrLines(stderr))
	require.NoError(t, err)
	require.True(t, res.Success())

	close(stdout)
	close(stderr)

	var got []string
	for line := range stdout {
		got = append(got, line)
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, got)
	assert.Equal(t, "e1", <-stderr)
}

func TestRunBackpressure(t *testing.T) {
	requireShell(t)

	lines := make(chan string)
	collected := make(chan []string, 1)
	go func() {
		var got []string
		for line := range lines {
			time.Sleep(time.Millisecond)
			got = append(got, line)
		}
		collected <- got
	}()

	res, err := newTestRunner().Run(context.Background(),
		New("sh", "-c", "i=0; while [ $i -lt 200 ]; do echo $i; i=$((i+1)); done"),
		WithStdoutLines(lines))
	require.NoError(t, err)
	close(lines)

	got := <-collected
	require.Len(t, got, 200)
	assert.Equal(t, "0", got[0])
	assert.Equal(t, "199", got[199])
	assert.Equal(t, 200, strings.Count(res.Stdout, "\n"))
}

func TestRunWithoutStdoutCapture(t *testing.T) {
	requireShell(t)

	lines := make(chan string, 16)
	res, err := newTestRunner().Run(context.Background(),
		New("sh", "-c", "echo a; echo b; echo warn >&2"),
		WithStdoutLines(lines), WithoutStdoutCapture())
	require.NoError(t, err)
	close(lines)

	var got []string
	for line := range lines {
		got = append(got, line)
	}
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Empty(t, res.Stdout)
	assert.Equal(t, "warn\n", res.Stderr)
}

func TestRunStdoutWriterCopiesRawBytes(t *testing.T) {
	requireShell(t)

	var buf bytes.Buffer
	res, err := newTestRunner(WithSeparator("|")).Run(context.Background(),
		New("sh", "-c", "printf 'a\\nb\\000c'; echo warn >&2"),
		WithStdout(&buf))
	require.NoError(t, err)
	require.True(t, res.Success())

	assert.Equal(t, "a\nb\x00c", buf.String())
	assert.Empty(t, res.Stdout)
	assert.Equal(t, "warn|", res.Stderr)
}

// signalWriter closes first on its first write.
type signalWriter struct {
	once  sync.Once
	first chan struct{}
}

func (w *signalWriter) Write(p []byte) (int, error) {
	w.once.Do(func() { close(w.first) })
	return len(p), nil
}

func TestRunStdoutWriterReceivesOutputBeforeExit(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &signalWriter{first: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		_, err := newTestRunner().Run(ctx, New("sh", "-c", "echo first; exec sleep 30"), WithStdout(w))
		done <- err
	}()

	select {
	case <-w.first:
	case <-time.After(10 * time.Second):
		t.Fatal("no output reached the writer while the process was running")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestRunStdoutWriterFailure(t *testing.T) {
	requireShell(t)

	res, err := newTestRunner().Run(context.Background(),
		New("sh", "-c", "i=0; while [ $i -lt 5000 ]; do echo line $i; i=$((i+1)); done"),
		WithStdout(failingWriter{}))
	require.ErrorIs(t, err, ErrOutputWrite)
	assert.True(t, res.Success(), "the child must run to completion")
}

func TestRunDirAndEnv(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	res, err := newTestRunner(WithEnvVar("GITKIT_BASE", "base")).Run(context.Background(),
		New("sh", "-c", "pwd; echo $GITKIT_BASE $GITKIT_CALL"),
		WithDir(dir), WithEnv(map[string]string{"GITKIT_CALL": "call"}))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	require.Len(t, lines, 2)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(lines[0])
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "base call", lines[1])
}

func TestRunOptionsDoNotLeakIntoRunner(t *testing.T) {
	requireShell(t)

	r := newTestRunner()
	_, err := r.Run(context.Background(), New("sh", "-c", "true"), WithEnvVar("GITKIT_ONCE", "1"))
	require.NoError(t, err)

	res, err := r.Run(context.Background(), New("sh", "-c", "echo ${GITKIT_ONCE:-unset}"))
	require.NoError(t, err)
	assert.Equal(t, "unset\n", res.Stdout)
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	requireShell(t)

	started := time.Now()
	res, err := newTestRunner().Run(context.Background(),
		New("sh", "-c", "echo $$; echo partial; exec sleep 30"),
		WithTimeout(300*time.Millisecond))
	require.NoError(t, err)

	assert.Less(t, time.Since(started), 10*time.Second)
	assert.True(t, res.TimedOut())
	assert.Nil(t, res.ExitCode)
	assert.Equal(t, -1, res.Code())

	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "partial", lines[1])

	pid, err := strconv.Atoi(lines[0])
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return errors.Is(syscall.Kill(pid, 0), syscall.ESRCH)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRunTimeoutUnblocksSlowConsumer(t *testing.T) {
	requireShell(t)

	lines := make(chan string)
	res, err := newTestRunner().Run(context.Background(),
		New("sh", "-c", "echo first; echo second; exec sleep 30"),
		WithStdoutLines(lines), WithTimeout(200*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, res.TimedOut())
	assert.Contains(t, res.Stdout, "first")
}

func TestRunContextCancel(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	res, err := newTestRunner().Run(ctx, New("sh", "-c", "exec sleep 30"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, res.TimedOut())
}

func TestRunStartFailure(t *testing.T) {
	res, err := newTestRunner().Run(context.Background(), New("gitkit-no-such-binary-for-tests"))
	require.ErrorIs(t, err, ErrStartFailed)
	require.NotNil(t, res.ExitCode)
	assert.Equal(t, -1, *res.ExitCode)
	assert.Empty(t, res.Stdout)
	assert.Empty(t, res.Stderr)
}

func TestCommandString(t *testing.T) {
	c := New("git", "log").AddArgs("-1", "--pretty=format:%H")
	assert.Equal(t, "git log -1 --pretty=format:%H", c.String())
	assert.Equal(t, "git", New("git").String())
}
