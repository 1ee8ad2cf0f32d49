package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cowwoc/buildforge/pkg/docker/buildx"
	"github.com/cowwoc/buildforge/pkg/util/console"
)

var buildDockerfile string
var buildTag string
var buildBuilder string
var buildPlatforms []string
var buildOutputs []string
var buildCacheFrom []string
var buildProgressOutput string

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <context>",
		Short: "Build an image from a Dockerfile",
		Args:  cobra.ExactArgs(1),
		RunE:  buildCommand,
	}
	cmd.Flags().StringVarP(&buildDockerfile, "file", "f", "", "Dockerfile location, relative to the build context")
	cmd.Flags().StringVarP(&buildTag, "tag", "t", "", "A name for the built image in the form 'repository:tag'")
	cmd.Flags().StringVar(&buildBuilder, "builder", "", "Target builder instance")
	cmd.Flags().StringArrayVar(&buildPlatforms, "platform", []string{}, "Target platform, e.g. 'linux/amd64' (repeatable)")
	cmd.Flags().StringArrayVar(&buildOutputs, "output", []string{}, "Output exporter in the form 'type=<oci|docker|contents>,dest=<path>[,dir]' (repeatable)")
	cmd.Flags().StringArrayVar(&buildCacheFrom, "cache-from", []string{}, "External cache source (repeatable)")
	addBuildProgressOutputFlag(cmd)
	return cmd
}

func buildCommand(cmd *cobra.Command, args []string) error {
	client := buildx.NewClient()
	if err := client.RequireBuildxVersion(cmd.Context(), buildx.MinBuildxVersion); err != nil {
		return err
	}

	build := client.ImageBuild().
		Progress(buildProgressOutput)
	if buildDockerfile != "" {
		build = build.Dockerfile(buildDockerfile)
	}
	if buildTag != "" {
		build = build.Tag(buildTag)
	}
	if buildBuilder != "" {
		build = build.Builder(buildBuilder)
	}
	for _, platform := range buildPlatforms {
		build = build.Platform(platform)
	}
	for _, ref := range buildCacheFrom {
		build = build.CacheFrom(ref)
	}
	for _, spec := range buildOutputs {
		exporter, err := parseExporter(spec)
		if err != nil {
			return err
		}
		build = build.Export(exporter)
	}

	listener := &buildx.BaseBuildListener{StdoutTee: os.Stdout, StderrTee: os.Stderr}
	output, err := build.Listener(listener).Build(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if id := buildx.ImageIDFromOutput(output.Stderr); id != "" {
		console.Infof("\nImage built as %s", id)
	}
	return nil
}

// parseExporter turns a --output flag value into an Exporter.
func parseExporter(spec string) (buildx.Exporter, error) {
	kind := ""
	dest := ""
	directory := false
	for _, field := range strings.Split(spec, ",") {
		key, value, _ := strings.Cut(field, "=")
		switch key {
		case "type":
			kind = value
		case "dest":
			dest = value
		case "dir":
			directory = true
		default:
			return nil, fmt.Errorf("unknown output field %q", key)
		}
	}
	if dest == "" {
		return nil, fmt.Errorf("output %q is missing dest=", spec)
	}

	switch kind {
	case "oci":
		e := buildx.OCIImage(dest)
		if directory {
			e = e.Directory()
		}
		return e, nil
	case "docker":
		e := buildx.DockerImage(dest)
		if directory {
			e = e.Directory()
		}
		return e, nil
	case "contents":
		e := buildx.Contents(dest)
		if directory {
			e = e.Directory()
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown output type %q", kind)
	}
}

func addBuildProgressOutputFlag(cmd *cobra.Command) {
	defaultOutput := "auto"
	if os.Getenv("TERM") == "dumb" {
		defaultOutput = "plain"
	}
	cmd.Flags().StringVar(&buildProgressOutput, "progress", defaultOutput, "Set type of build progress output, 'auto' (default), 'tty' or 'plain'")
}
