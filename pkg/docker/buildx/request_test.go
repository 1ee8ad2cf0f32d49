package buildx_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cowwoc/buildforge/pkg/docker/buildx"
	"github.com/cowwoc/buildforge/pkg/docker/buildx/buildxtest"
	"github.com/cowwoc/buildforge/pkg/docker/command"
)

func newBuildContext(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0o644)
	require.NoError(t, err)
	return dir
}

func TestBuildSuccessDrivesListenerInOrder(t *testing.T) {
	contextDir := newBuildContext(t)
	listener := &buildxtest.RecordingListener{}

	client := buildx.NewClient(buildx.WithDockerCommand("echo"))
	output, err := client.ImageBuild().
		Platform("linux/amd64").
		Tag("example.com/app:v1").
		Progress("plain").
		Listener(listener).
		Build(t.Context(), contextDir)
	require.NoError(t, err)

	require.Equal(t, []string{"BuildStarted", "WaitUntilBuildCompletes", "BuildPassed", "BuildCompleted"}, listener.Steps)
	require.Equal(t, 0, output.ExitCode)
	// echo prints the argument vector back on stdout
	require.Contains(t, output.Stdout, "buildx build")
	require.Contains(t, output.Stdout, "--platform linux/amd64")
}

func TestBuildFailureDrivesListenerInOrder(t *testing.T) {
	contextDir := newBuildContext(t)
	listener := &buildxtest.RecordingListener{}

	client := buildx.NewClient(buildx.WithDockerCommand("false"))
	output, err := client.ImageBuild().
		Progress("plain").
		Listener(listener).
		Build(t.Context(), contextDir)

	require.Equal(t, []string{"BuildStarted", "WaitUntilBuildCompletes", "BuildFailed", "BuildCompleted"}, listener.Steps)
	require.NotEqual(t, 0, output.ExitCode)

	var failed *buildx.BuildFailedError
	require.ErrorAs(t, err, &failed)
	require.Equal(t, output.ExitCode, failed.Result.ExitCode)
	require.Equal(t, contextDir, failed.Result.Dir)
	require.Contains(t, failed.Result.Args, "buildx")
	require.Equal(t, listener.Failure.Args, failed.Result.Args)
}

func TestBuildCompletedRunsWhenBuildPassedPanics(t *testing.T) {
	contextDir := newBuildContext(t)
	listener := &panickingListener{}

	client := buildx.NewClient(buildx.WithDockerCommand("true"))
	require.Panics(t, func() {
		_, _ = client.ImageBuild().
			Progress("plain").
			Listener(listener).
			Build(t.Context(), contextDir)
	})
	require.Equal(t, "BuildCompleted", listener.Steps[len(listener.Steps)-1])
}

func TestWaitFailureDispatchesBuildFailed(t *testing.T) {
	contextDir := newBuildContext(t)
	listener := &failingWaitListener{}

	client := buildx.NewClient(buildx.WithDockerCommand("true"))
	_, err := client.ImageBuild().
		Progress("plain").
		Listener(listener).
		Build(t.Context(), contextDir)

	require.Error(t, err)
	require.Contains(t, err.Error(), "stream capture torn down")
	require.Equal(t, []string{"BuildStarted", "WaitUntilBuildCompletes", "BuildFailed", "BuildCompleted"}, listener.Steps)
	require.Equal(t, -1, listener.Failure.ExitCode)
	require.Equal(t, contextDir, listener.Failure.Dir)
}

func TestBuildDockerfileOutsideContextSpawnsNoProcess(t *testing.T) {
	contextDir := newBuildContext(t)
	marker := filepath.Join(t.TempDir(), "invoked")

	script := filepath.Join(t.TempDir(), "record.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ntouch "+marker+"\n"), 0o755))

	client := buildx.NewClient(buildx.WithDockerCommand(script))
	_, err := client.ImageBuild().
		Dockerfile(filepath.Join("..", "somewhere", "Dockerfile")).
		Progress("plain").
		Build(t.Context(), contextDir)

	require.True(t, command.IsNotFoundError(err))
	_, statErr := os.Stat(marker)
	require.True(t, os.IsNotExist(statErr), "no process may be spawned for an invalid request")
}

func TestBuildMissingBinaryFailsFast(t *testing.T) {
	contextDir := newBuildContext(t)

	client := buildx.NewClient(buildx.WithDockerCommand("buildforge-test-no-such-binary"))
	_, err := client.ImageBuild().Progress("plain").Build(t.Context(), contextDir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires buildforge-test-no-such-binary to be installed")
}

func TestDockerCommandFromEnvironment(t *testing.T) {
	t.Setenv(buildx.DockerCommandEnvVarName, "echo")
	require.Equal(t, "echo", buildx.DockerCommandFromEnvironment())

	t.Setenv(buildx.DockerCommandEnvVarName, "")
	require.Equal(t, "docker", buildx.DockerCommandFromEnvironment())
}

// failingWaitListener reports an infrastructure failure from the wait step
// instead of an exit code.
type failingWaitListener struct {
	buildxtest.RecordingListener
}

func (l *failingWaitListener) WaitUntilBuildCompletes() (buildx.BuildOutput, error) {
	l.Steps = append(l.Steps, "WaitUntilBuildCompletes")
	return buildx.BuildOutput{}, errors.New("stream capture torn down")
}

// panickingListener raises from BuildPassed so tests can verify the
// always-finalize guarantee.
type panickingListener struct {
	buildxtest.RecordingListener
}

func (l *panickingListener) BuildPassed(output buildx.BuildOutput) {
	l.RecordingListener.BuildPassed(output)
	panic("listener failure")
}
