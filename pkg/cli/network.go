package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cowwoc/buildforge/pkg/docker"
	"github.com/cowwoc/buildforge/pkg/util/console"
)

func newNetworkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Inspect engine networks",
	}
	cmd.AddCommand(newNetworkInspectCommand())
	return cmd
}

func newNetworkInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <name>",
		Short: "Show a network's name, id and IPAM configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := docker.NewAPIClient(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			inspected, err := client.NetworkInspect(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			console.Output(fmt.Sprintf("Name: %s", inspected.Name))
			console.Output(fmt.Sprintf("Id:   %s", inspected.ID))
			for _, config := range inspected.IPAM.Config {
				console.Output(fmt.Sprintf("Subnet: %s Gateway: %s", config.Subnet, config.Gateway))
			}
			return nil
		},
	}
}
