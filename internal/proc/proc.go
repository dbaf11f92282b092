// Package proc runs one external program to completion with its standard
// streams redirected to files.
package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Spec describes one synchronous invocation.
type Spec struct {
	Argv  []string
	Dir   string
	Env   []string // nil inherits the current environment
	Stdin io.Reader

	// StdoutPath and StderrPath are created (or truncated) before start.
	StdoutPath string
	StderrPath string

	// TailBytes bounds the in-memory copy of stderr kept for diagnostics.
	TailBytes int
}

type Result struct {
	// ExitCode is -1 when the process was terminated by a signal.
	ExitCode   int
	Duration   time.Duration
	OutBytes   int64
	ErrBytes   int64
	StderrTail string
}

// StartError reports that the program could not be started at all.
type StartError struct {
	Argv0 string
	Err   error
}

func (e *StartError) Error() string { return fmt.Sprintf("start %s: %v", e.Argv0, e.Err) }

func (e *StartError) Unwrap() error { return e.Err }

const (
	defaultTailBytes = 4096
	waitDelay        = 5 * time.Second
)

// Run starts spec.Argv and waits for it. A non-zero exit is reported through
// Result.ExitCode with a nil error; errors are reserved for failures to set
// up, start or wait for the process. Cancelling ctx kills the whole process
// group of the child.
func Run(ctx context.Context, spec Spec) (Result, error) {
	if len(spec.Argv) == 0 {
		return Result{ExitCode: -1}, errors.New("missing command argv")
	}

	stdout, err := createOutput(spec.StdoutPath)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	defer func() { _ = stdout.Close() }()
	stderr, err := createOutput(spec.StderrPath)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	defer func() { _ = stderr.Close() }()

	tailMax := spec.TailBytes
	if tailMax <= 0 {
		tailMax = defaultTailBytes
	}
	outCount := &countingWriter{w: stdout}
	errCount := &countingWriter{w: stderr}
	tail := newTailBuffer(int64(tailMax))

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = spec.Stdin
	cmd.Stdout = outCount
	cmd.Stderr = io.MultiWriter(errCount, tail)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, &StartError{Argv0: spec.Argv[0], Err: err}
	}
	waitErr := cmd.Wait()

	res := Result{
		ExitCode: -1,
		Duration: time.Since(start),
		OutBytes: outCount.count(),
		ErrBytes: errCount.count(),
	}
	if b, _ := tail.Snapshot(); len(b) > 0 {
		res.StderrTail = string(b)
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	if waitErr != nil {
		var ee *exec.ExitError
		if !errors.As(waitErr, &ee) {
			return res, waitErr
		}
	}
	if err := stdout.Sync(); err != nil {
		return res, err
	}
	if err := stderr.Sync(); err != nil {
		return res, err
	}
	return res, nil
}

func createOutput(path string) (*os.File, error) {
	if path == "" {
		return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

type countingWriter struct {
	mu sync.Mutex
	w  io.Writer
	n  int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.mu.Lock()
	c.n += int64(n)
	c.mu.Unlock()
	return n, err
}

func (c *countingWriter) count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
