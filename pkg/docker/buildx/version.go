package buildx

import (
	"context"
	"fmt"
	"regexp"

	goversion "github.com/hashicorp/go-version"
)

// MinBuildxVersion is the oldest buildx release whose output formats this
// client understands (`ls --format json` appeared in 0.11).
const MinBuildxVersion = "0.11.0"

// `docker buildx version` prints e.g. "github.com/docker/buildx v0.14.0 171fcbe"
var buildxVersionPattern = regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)

// BuildxVersion queries and parses the version of the buildx plugin.
func (c *Client) BuildxVersion(ctx context.Context) (*goversion.Version, error) {
	result, err := c.run(ctx, "buildx", "version")
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, translateCommandFailure(result)
	}
	return parseBuildxVersion(result.Stdout)
}

func parseBuildxVersion(output string) (*goversion.Version, error) {
	match := buildxVersionPattern.FindStringSubmatch(output)
	if match == nil {
		return nil, fmt.Errorf("unable to parse buildx version from %q", output)
	}
	return goversion.NewVersion(match[1])
}

// RequireBuildxVersion fails fast when the installed buildx is older than min.
func (c *Client) RequireBuildxVersion(ctx context.Context, min string) error {
	minimum, err := goversion.NewVersion(min)
	if err != nil {
		return fmt.Errorf("invalid minimum version %q: %w", min, err)
	}
	installed, err := c.BuildxVersion(ctx)
	if err != nil {
		return err
	}
	if installed.LessThan(minimum) {
		return fmt.Errorf("buildx version %s is older than the required %s", installed, minimum)
	}
	return nil
}
