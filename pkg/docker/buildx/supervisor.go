package buildx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cowwoc/buildforge/pkg/util/console"
)

// invocation is one running external process. Each invocation owns exactly
// one process and both of its output pipes. The pipes must be drained to EOF
// before Wait is called; captureStreams takes care of that.
type invocation struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser

	waitOnce sync.Once
	exitCode int
	waitErr  error
}

// startInvocation launches bin with args in dir. The process is started
// before returning; callers own draining its streams.
func startInvocation(ctx context.Context, bin string, args []string, dir string) (*invocation, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	console.Debug("$ " + strings.Join(cmd.Args, " "))

	if err := cmd.Start(); err != nil {
		if isExecErrNotFound(err) {
			return nil, fmt.Errorf("buildforge requires %s to be installed: %w", bin, err)
		}
		return nil, err
	}
	return &invocation{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// Wait blocks until the process terminates and returns its exit code. It must
// not be called before both output streams reached EOF, and never more than
// once concurrently per invocation.
func (inv *invocation) Wait() (int, error) {
	inv.waitOnce.Do(func() {
		err := inv.cmd.Wait()
		var exitErr *exec.ExitError
		switch {
		case err == nil:
			inv.exitCode = 0
		case errors.As(err, &exitErr):
			inv.exitCode = exitErr.ExitCode()
		default:
			inv.exitCode = -1
			inv.waitErr = err
		}
	})
	return inv.exitCode, inv.waitErr
}

func isExecErrNotFound(err error) bool {
	var execErr *exec.Error
	if !errors.As(err, &execErr) {
		return false
	}
	return errors.Is(execErr.Err, exec.ErrNotFound)
}

// streamCapture drains two streams on dedicated goroutines. Both drains start
// immediately so neither OS pipe buffer can fill and stall the child: a
// single-threaded drain of one stream while the other fills deadlocks.
type streamCapture struct {
	eg     errgroup.Group
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// captureStreams starts both drain goroutines. Each optional tee receives a
// live copy of the corresponding stream.
func captureStreams(stdout, stderr io.Reader, tees ...io.Writer) *streamCapture {
	var stdoutTee, stderrTee io.Writer
	if len(tees) > 0 {
		stdoutTee = tees[0]
	}
	if len(tees) > 1 {
		stderrTee = tees[1]
	}

	c := &streamCapture{}
	c.eg.Go(func() error {
		return drain(&c.stdout, stdout, stdoutTee)
	})
	c.eg.Go(func() error {
		return drain(&c.stderr, stderr, stderrTee)
	})
	return c
}

func drain(buf *bytes.Buffer, r io.Reader, tee io.Writer) error {
	w := io.Writer(buf)
	if tee != nil {
		w = io.MultiWriter(buf, tee)
	}
	_, err := io.Copy(w, r)
	// The pipe is closed underneath us when the process dies mid-write.
	if err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}

// join blocks until both streams reach EOF and returns the captured text.
func (c *streamCapture) join() (string, string, error) {
	err := c.eg.Wait()
	return c.stdout.String(), c.stderr.String(), err
}
