package buildx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cowwoc/buildforge/pkg/docker/buildx"
	"github.com/cowwoc/buildforge/pkg/docker/buildx/buildxtest"
	"github.com/cowwoc/buildforge/pkg/docker/command"
)

func TestWaitUntilReadyReturnsOnceRunning(t *testing.T) {
	querier := &buildxtest.ScriptedQuerier{
		Views: []*buildx.Builder{
			{Name: "forge", Status: buildx.StatusInactive},
			{Name: "forge", Status: buildx.StatusStarting},
			{Name: "forge", Status: buildx.StatusRunning},
		},
	}

	builder := buildx.NewBuilder("forge", querier)
	err := builder.WaitUntilReady(t.Context(), 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, buildx.StatusRunning, builder.Status)
	require.Equal(t, 3, querier.Calls)
}

func TestWaitUntilReadyFailsFastOnError(t *testing.T) {
	querier := &buildxtest.ScriptedQuerier{
		Views: []*buildx.Builder{
			{Name: "forge", Status: buildx.StatusStarting},
			{Name: "forge", Status: buildx.StatusError, Err: "boot loop"},
			{Name: "forge", Status: buildx.StatusRunning},
		},
	}

	builder := buildx.NewBuilder("forge", querier)
	err := builder.WaitUntilReady(t.Context(), 5*time.Second)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boot loop")
	// a reported error is terminal; the builder is not polled past it
	require.Equal(t, 2, querier.Calls)
}

func TestWaitUntilReadyTimesOut(t *testing.T) {
	querier := &buildxtest.ScriptedQuerier{
		Views: []*buildx.Builder{
			{Name: "forge", Status: buildx.StatusStarting},
		},
	}

	builder := buildx.NewBuilder("forge", querier)
	err := builder.WaitUntilReady(t.Context(), 250*time.Millisecond)
	require.True(t, command.IsTimeoutError(err))
}

func TestRefreshReportsAbsence(t *testing.T) {
	querier := &buildxtest.ScriptedQuerier{Views: []*buildx.Builder{nil}}

	builder := buildx.NewBuilder("ghost", querier)
	err := builder.Refresh(t.Context())
	require.True(t, command.IsNotFoundError(err))
}
