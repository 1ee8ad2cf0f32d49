package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cowwoc/buildforge/pkg/docker/buildx"
	"github.com/cowwoc/buildforge/pkg/global"
	"github.com/cowwoc/buildforge/pkg/util/console"
)

var builderName string
var builderDriver string
var builderContext string
var builderBootstrap bool
var builderWaitTimeout time.Duration

func newBuilderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builder",
		Short: "Manage builder instances",
	}
	cmd.AddCommand(
		newBuilderCreateCommand(),
		newBuilderInspectCommand(),
		newBuilderWaitCommand(),
	)
	return cmd
}

func newBuilderCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [context]",
		Short: "Create a new builder instance",
		Args:  cobra.MaximumNArgs(1),
		RunE:  builderCreateCommand,
	}
	cmd.Flags().StringVar(&builderName, "name", "", "Builder name (generated when omitted)")
	cmd.Flags().StringVar(&builderDriver, "driver", buildx.DockerContainer.String(), "Builder driver: 'docker-container', 'kubernetes' or 'remote'")
	cmd.Flags().BoolVar(&builderBootstrap, "bootstrap", false, "Boot the builder immediately to surface misconfiguration")
	return cmd
}

func builderCreateCommand(cmd *cobra.Command, args []string) error {
	driver, err := parseDriver(builderDriver)
	if err != nil {
		return err
	}

	var opts []buildx.CreateBuilderOption
	if len(args) == 1 {
		opts = append(opts, buildx.WithBuilderContext(args[0]))
	}
	if builderBootstrap {
		opts = append(opts, buildx.WithEagerStart())
	}

	client := buildx.NewClient()
	builder, err := client.CreateBuilder(cmd.Context(), builderName, driver, opts...)
	if err != nil {
		return err
	}

	console.Infof("Created builder %s (driver %s, status %s)", builder.Name, builder.Driver, builder.Status)
	return nil
}

func newBuilderInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [name]",
		Short: "Show a builder's current status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			client := buildx.NewClient()
			builder, err := client.GetBuilder(cmd.Context(), name)
			if err != nil {
				return err
			}
			if builder == nil {
				if name == "" {
					console.Output("no default builder")
				} else {
					console.Output(fmt.Sprintf("no builder named %q", name))
				}
				return nil
			}

			console.Output(fmt.Sprintf("Name:   %s", builder.Name))
			console.Output(fmt.Sprintf("Driver: %s", builder.Driver))
			console.Output(fmt.Sprintf("Status: %s", builder.Status))
			if builder.Err != "" {
				console.Output(fmt.Sprintf("Error:  %s", builder.Err))
			}
			return nil
		},
	}
}

func newBuilderWaitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait <name>",
		Short: "Block until a builder is running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := buildx.NewClient()
			builder, err := client.WaitUntilBuilderIsReady(cmd.Context(), args[0], builderWaitTimeout)
			if err != nil {
				return err
			}
			console.Infof("Builder %s is %s", builder.Name, builder.Status)
			return nil
		},
	}
	cmd.Flags().DurationVar(&builderWaitTimeout, "timeout", global.BuilderReadyTimeout, "How long to wait before giving up")
	return cmd
}

func parseDriver(name string) (buildx.Driver, error) {
	switch name {
	case buildx.DockerContainer.String():
		return buildx.DockerContainer, nil
	case buildx.Kubernetes.String():
		return buildx.Kubernetes, nil
	case buildx.Remote.String():
		return buildx.Remote, nil
	default:
		return nil, fmt.Errorf("unknown driver %q", name)
	}
}
