package buildx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBuilderRecords(t *testing.T) {
	t.Run("one JSON object per line", func(t *testing.T) {
		raw := `
{"Name":"forge","Driver":"docker-container","Nodes":[{"Name":"forge0","Status":"running"}]}
{"Name":"default","Driver":"docker","Default":true,"Nodes":[{"Name":"default","Status":"running"}]}
`
		records, err := parseBuilderRecords(raw)
		require.NoError(t, err)
		require.Len(t, records, 2)
		require.Equal(t, "forge", records[0].Name)
		require.True(t, records[1].Default)
	})

	t.Run("single JSON array", func(t *testing.T) {
		raw := `[{"Name":"forge","Driver":"kubernetes","Nodes":[]}]`
		records, err := parseBuilderRecords(raw)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, "kubernetes", records[0].Driver)
	})

	t.Run("empty output", func(t *testing.T) {
		records, err := parseBuilderRecords("  \n")
		require.NoError(t, err)
		require.Empty(t, records)
	})

	t.Run("malformed output", func(t *testing.T) {
		_, err := parseBuilderRecords("not json")
		require.Error(t, err)
	})
}

func TestBuilderFromRecord(t *testing.T) {
	record := func(statuses ...string) builderRecord {
		r := builderRecord{Name: "forge", Driver: "docker-container"}
		for _, status := range statuses {
			r.Nodes = append(r.Nodes, struct {
				Name   string `json:"Name"`
				Status string `json:"Status"`
				Err    string `json:"Err"`
			}{Name: "node", Status: status})
		}
		return r
	}

	tests := []struct {
		name     string
		record   builderRecord
		expected BuilderStatus
	}{
		{name: "no nodes", record: record(), expected: StatusInactive},
		{name: "inactive node", record: record("inactive"), expected: StatusInactive},
		{name: "starting node", record: record("starting"), expected: StatusStarting},
		{name: "running node", record: record("running"), expected: StatusRunning},
		{name: "running wins over starting", record: record("running", "starting"), expected: StatusRunning},
		{name: "unknown status treated as inactive", record: record("hibernating"), expected: StatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := builderFromRecord(tt.record)
			require.Equal(t, tt.expected, builder.Status)
		})
	}

	t.Run("node error dominates", func(t *testing.T) {
		r := record("running")
		r.Nodes[0].Err = "exec format error"
		builder := builderFromRecord(r)
		require.Equal(t, StatusError, builder.Status)
		require.Equal(t, "exec format error", builder.Err)
	})
}

func TestGenerateBuilderName(t *testing.T) {
	name, err := generateBuilderName()
	require.NoError(t, err)
	require.Regexp(t, `^buildforge-[0-9a-f]{8}$`, name)

	other, err := generateBuilderName()
	require.NoError(t, err)
	require.NotEqual(t, name, other)
}

func TestBuilderStatusString(t *testing.T) {
	require.Equal(t, "inactive", StatusInactive.String())
	require.Equal(t, "starting", StatusStarting.String())
	require.Equal(t, "running", StatusRunning.String())
	require.Equal(t, "error", StatusError.String())
}
