package buildx

import (
	"io"

	"github.com/cowwoc/buildforge/pkg/docker/command"
)

// WaitFunc blocks until the external process terminates and returns its exit
// code. It is handed to the listener at BuildStarted and may be invoked at
// most once, from WaitUntilBuildCompletes.
type WaitFunc func() (int, error)

// BuildOutput is the result of a completed build invocation.
type BuildOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// BuildListener observes a single build invocation. For every invocation the
// pipeline calls exactly one BuildStarted, exactly one WaitUntilBuildCompletes,
// exactly one of BuildPassed or BuildFailed, and exactly one BuildCompleted,
// in that order. BuildCompleted runs even when an earlier step failed, so it
// is the place for unconditional cleanup.
//
// BaseBuildListener implements every step; embed it to override only the
// steps you care about.
type BuildListener interface {
	// BuildStarted is called synchronously, before the streams are assumed
	// connected. Implementations that read the streams must drain both
	// concurrently; draining one to EOF before touching the other deadlocks
	// once the neglected pipe's buffer fills.
	BuildStarted(stdout, stderr io.Reader, wait WaitFunc)

	// WaitUntilBuildCompletes blocks until the external process exits. It may
	// be suspended for arbitrarily long; only the external tool bounds it.
	WaitUntilBuildCompletes() (BuildOutput, error)

	// BuildPassed is invoked when the process exited with code zero.
	BuildPassed(output BuildOutput)

	// BuildFailed is invoked when the process exited with a nonzero code, or
	// when waiting on it failed before an exit code was observed (the result
	// then carries exit code -1 and empty streams).
	BuildFailed(result command.CommandResult)

	// BuildCompleted is always invoked last, regardless of outcome.
	BuildCompleted()
}

// BaseBuildListener is the default listener: it drains both streams on
// dedicated goroutines and captures them in full.
type BaseBuildListener struct {
	// StdoutTee and StderrTee, when set, receive a live copy of the
	// corresponding stream while it is being captured.
	StdoutTee io.Writer
	StderrTee io.Writer

	capture *streamCapture
	wait    WaitFunc
}

var _ BuildListener = (*BaseBuildListener)(nil)

func (l *BaseBuildListener) BuildStarted(stdout, stderr io.Reader, wait WaitFunc) {
	l.capture = captureStreams(stdout, stderr, l.StdoutTee, l.StderrTee)
	l.wait = wait
}

func (l *BaseBuildListener) WaitUntilBuildCompletes() (BuildOutput, error) {
	if l.capture == nil {
		panic("WaitUntilBuildCompletes invoked before BuildStarted")
	}
	stdout, stderr, err := l.capture.join()
	if err != nil {
		return BuildOutput{}, err
	}
	exitCode, err := l.wait()
	if err != nil {
		return BuildOutput{}, err
	}
	return BuildOutput{Stdout: stdout, Stderr: stderr, ExitCode: exitCode}, nil
}

func (l *BaseBuildListener) BuildPassed(output BuildOutput) {}

func (l *BaseBuildListener) BuildFailed(result command.CommandResult) {}

func (l *BaseBuildListener) BuildCompleted() {}

// runBuild drives the listener protocol for one invocation. BuildCompleted is
// deferred so it runs even when an earlier step panics.
func runBuild(inv *invocation, listener BuildListener) (output BuildOutput, err error) {
	defer listener.BuildCompleted()

	listener.BuildStarted(inv.stdout, inv.stderr, inv.Wait)

	output, err = listener.WaitUntilBuildCompletes()
	if err != nil {
		// The wait infrastructure failed before an exit code was observed;
		// the build still resolves to exactly one of pass or fail.
		listener.BuildFailed(command.CommandResult{
			Args:     inv.cmd.Args,
			Dir:      inv.cmd.Dir,
			ExitCode: -1,
		})
		return output, err
	}

	if output.ExitCode == 0 {
		listener.BuildPassed(output)
		return output, nil
	}

	result := command.CommandResult{
		Args:     inv.cmd.Args,
		Dir:      inv.cmd.Dir,
		ExitCode: output.ExitCode,
		Stdout:   output.Stdout,
		Stderr:   output.Stderr,
	}
	listener.BuildFailed(result)
	return output, translateBuildFailure(result)
}
