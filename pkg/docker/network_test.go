package docker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cowwoc/buildforge/pkg/docker/command"
)

func TestParseNetworkInspectOutput(t *testing.T) {
	data := []byte(`[
  {
    "Name": "forge-net",
    "Id": "b3f1f1e2",
    "Driver": "bridge",
    "IPAM": {
      "Driver": "default",
      "Config": [{"Subnet": "172.20.0.0/16", "Gateway": "172.20.0.1"}]
    }
  }
]`)

	inspected, err := ParseNetworkInspectOutput(data)
	require.NoError(t, err)
	require.Equal(t, "forge-net", inspected.Name)
	require.Len(t, inspected.IPAM.Config, 1)
	require.Equal(t, "172.20.0.0/16", inspected.IPAM.Config[0].Subnet)
	require.Equal(t, "172.20.0.1", inspected.IPAM.Config[0].Gateway)
}

func TestParseNetworkInspectOutputMissingIPAMConfig(t *testing.T) {
	data := []byte(`[{"Name": "host", "Driver": "host", "IPAM": {"Driver": "default"}}]`)

	inspected, err := ParseNetworkInspectOutput(data)
	require.NoError(t, err)
	require.NotNil(t, inspected.IPAM.Config)
	require.Empty(t, inspected.IPAM.Config)
}

func TestParseNetworkInspectOutputEmpty(t *testing.T) {
	_, err := ParseNetworkInspectOutput([]byte(`[]`))
	require.True(t, command.IsNotFoundError(err))
}

func TestParseNetworkInspectOutputMultiple(t *testing.T) {
	_, err := ParseNetworkInspectOutput([]byte(`[{"Name":"a"},{"Name":"b"}]`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected one network")
}

func TestParseNetworkInspectOutputMalformed(t *testing.T) {
	_, err := ParseNetworkInspectOutput([]byte(`{}`))
	require.Error(t, err)
}
