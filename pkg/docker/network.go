package docker

import (
	"encoding/json"
	"fmt"

	"github.com/docker/docker/api/types/network"

	"github.com/cowwoc/buildforge/pkg/docker/command"
)

// ParseNetworkInspectOutput decodes the JSON that `docker network inspect`
// prints: an array holding exactly one object per inspected network. A
// network without IPAM configuration yields an empty config list.
func ParseNetworkInspectOutput(data []byte) (*network.Inspect, error) {
	var networks []network.Inspect
	if err := json.Unmarshal(data, &networks); err != nil {
		return nil, fmt.Errorf("unable to parse network inspect output: %w", err)
	}
	if len(networks) == 0 {
		return nil, &command.NotFoundError{Object: "network"}
	}
	if len(networks) > 1 {
		return nil, fmt.Errorf("expected one network in inspect output, got %d", len(networks))
	}

	inspected := networks[0]
	if inspected.IPAM.Config == nil {
		inspected.IPAM.Config = []network.IPAMConfig{}
	}
	return &inspected, nil
}
