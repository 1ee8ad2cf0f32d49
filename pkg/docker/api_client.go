package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/network"
	dc "github.com/docker/docker/client"

	"github.com/cowwoc/buildforge/pkg/docker/command"
	"github.com/cowwoc/buildforge/pkg/util/console"
)

// NewAPIClient connects to the Docker engine and verifies it is reachable.
func NewAPIClient(ctx context.Context) (*APIClient, error) {
	c, err := dc.NewClientWithOpts(dc.FromEnv, dc.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("error creating docker client: %w", err)
	}

	if _, err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("error pinging docker daemon: %w", err)
	}

	return &APIClient{client: c}, nil
}

// APIClient is the thin Docker Engine API surface this project consumes:
// inspection only, never build execution (builds go through buildx).
type APIClient struct {
	client *dc.Client
}

func (c *APIClient) Close() error {
	return c.client.Close()
}

// NetworkInspect returns the named network. A network without IPAM
// configuration reports an empty config list, not an error.
func (c *APIClient) NetworkInspect(ctx context.Context, ref string) (*network.Inspect, error) {
	console.Debugf("=== APIClient.NetworkInspect %s", ref)

	resp, err := c.client.NetworkInspect(ctx, ref, network.InspectOptions{})
	if err != nil {
		if dc.IsErrNotFound(err) {
			return nil, &command.NotFoundError{Ref: ref, Object: "network"}
		}
		return nil, fmt.Errorf("failed to inspect network %q: %w", ref, err)
	}
	if resp.IPAM.Config == nil {
		resp.IPAM.Config = []network.IPAMConfig{}
	}
	return &resp, nil
}

// ImageExists reports whether ref resolves to a local image.
func (c *APIClient) ImageExists(ctx context.Context, ref string) (bool, error) {
	console.Debugf("=== APIClient.ImageExists %s", ref)

	_, err := c.client.ImageInspect(ctx, ref)
	if err != nil {
		if dc.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("error inspecting image: %w", err)
	}
	return true, nil
}
