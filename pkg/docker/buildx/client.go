package buildx

import (
	"context"

	"github.com/cowwoc/buildforge/pkg/docker/command"
)

// Client drives the buildx CLI. The zero value is not usable; construct with NewClient.
type Client struct {
	dockerCommand  string
	defaultBuilder string
}

type Option func(*Client)

// WithDockerCommand overrides the binary used to invoke buildx.
func WithDockerCommand(cmd string) Option {
	return func(c *Client) {
		c.dockerCommand = cmd
	}
}

// WithDefaultBuilder targets every build at the named builder unless a
// request overrides it.
func WithDefaultBuilder(name string) Option {
	return func(c *Client) {
		c.defaultBuilder = name
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		dockerCommand: DockerCommandFromEnvironment(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run executes a short-lived docker invocation and captures both streams in
// full. Build invocations go through startInvocation directly so the listener
// protocol can observe them.
func (c *Client) run(ctx context.Context, args ...string) (command.CommandResult, error) {
	inv, err := startInvocation(ctx, c.dockerCommand, args, "")
	if err != nil {
		return command.CommandResult{}, err
	}
	capture := captureStreams(inv.stdout, inv.stderr)
	stdout, stderr, joinErr := capture.join()
	// Reap the child even when a drain failed, or it lingers as a zombie.
	exitCode, waitErr := inv.Wait()
	result := command.CommandResult{
		Args:     inv.cmd.Args,
		Dir:      inv.cmd.Dir,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
	}
	if joinErr != nil {
		return result, joinErr
	}
	if waitErr != nil {
		return result, waitErr
	}
	return result, nil
}
