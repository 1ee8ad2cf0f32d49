// Package buildxtest provides test doubles for exercising the build pipeline
// without a Docker installation.
package buildxtest

import (
	"context"
	"io"

	"github.com/cowwoc/buildforge/pkg/docker/buildx"
	"github.com/cowwoc/buildforge/pkg/docker/command"
)

// RecordingListener captures the order of listener steps alongside the
// default stream-draining behavior, so tests can assert the protocol's
// exactly-once ordering guarantee.
type RecordingListener struct {
	buildx.BaseBuildListener

	Steps   []string
	Output  buildx.BuildOutput
	Failure command.CommandResult
}

func (l *RecordingListener) BuildStarted(stdout, stderr io.Reader, wait buildx.WaitFunc) {
	l.Steps = append(l.Steps, "BuildStarted")
	l.BaseBuildListener.BuildStarted(stdout, stderr, wait)
}

func (l *RecordingListener) WaitUntilBuildCompletes() (buildx.BuildOutput, error) {
	l.Steps = append(l.Steps, "WaitUntilBuildCompletes")
	output, err := l.BaseBuildListener.WaitUntilBuildCompletes()
	l.Output = output
	return output, err
}

func (l *RecordingListener) BuildPassed(output buildx.BuildOutput) {
	l.Steps = append(l.Steps, "BuildPassed")
}

func (l *RecordingListener) BuildFailed(result command.CommandResult) {
	l.Steps = append(l.Steps, "BuildFailed")
	l.Failure = result
}

func (l *RecordingListener) BuildCompleted() {
	l.Steps = append(l.Steps, "BuildCompleted")
}

// ScriptedQuerier replays a fixed sequence of builder views; the final view
// repeats once the script is exhausted. A nil entry reports absence.
type ScriptedQuerier struct {
	Views []*buildx.Builder
	Calls int
}

func (q *ScriptedQuerier) BuilderStatus(ctx context.Context, name string) (*buildx.Builder, error) {
	index := q.Calls
	if index >= len(q.Views) {
		index = len(q.Views) - 1
	}
	q.Calls++
	if index < 0 {
		return nil, nil
	}
	return q.Views[index], nil
}
