package buildx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/cowwoc/buildforge/pkg/docker/command"
)

// buildRequest is the read-only snapshot consumed by the pipeline once
// Build() is invoked. Slice ordering is meaningful and duplicates are
// deliberately preserved.
type buildRequest struct {
	dockerfile string
	platforms  []string
	exporters  []Exporter
	cacheFrom  []string
	builder    string
	tag        string
	progress   string
}

// encode validates the snapshot and produces the argument vector for one
// `docker buildx build` invocation. The working directory of the invocation
// is the build context, so the context is always emitted as ".".
func (r *buildRequest) encode(contextDir string) ([]string, error) {
	if r.tag != "" {
		if _, err := name.NewTag(r.tag, name.WeakValidation); err != nil {
			return nil, fmt.Errorf("invalid image reference %q: %w", r.tag, err)
		}
	}

	// Each exporter writes to its own path; two exporters aimed at one
	// destination would clobber each other's output.
	destinations := make(map[string]bool, len(r.exporters))
	for _, exporter := range r.exporters {
		dest := exporter.destination()
		if destinations[dest] {
			return nil, fmt.Errorf("multiple exporters write to %q", dest)
		}
		destinations[dest] = true
	}

	dockerfile := ""
	if r.dockerfile != "" {
		resolved, err := resolveDockerfile(contextDir, r.dockerfile)
		if err != nil {
			return nil, err
		}
		dockerfile = resolved
	}

	args := []string{"buildx", "build"}
	for _, platform := range r.platforms {
		args = append(args, "--platform", platform)
	}
	for _, exporter := range r.exporters {
		args = append(args, "--output", exporter.encode())
	}
	for _, ref := range r.cacheFrom {
		args = append(args, "--cache-from", ref)
	}
	if r.builder != "" {
		args = append(args, "--builder", r.builder)
	}
	if r.tag != "" {
		args = append(args, "--tag", r.tag)
	}
	if r.progress != "" {
		args = append(args, "--progress", r.progress)
	}
	if dockerfile != "" {
		args = append(args, "-f", dockerfile)
	}
	args = append(args, ".")
	return args, nil
}

// resolveDockerfile canonicalizes the dockerfile location and verifies it
// exists inside the build context. Both violations surface as the same
// not-found class so callers can't probe paths outside the context.
func resolveDockerfile(contextDir, dockerfile string) (string, error) {
	contextAbs, err := filepath.Abs(contextDir)
	if err != nil {
		return "", err
	}
	contextReal, err := filepath.EvalSymlinks(contextAbs)
	if err != nil {
		return "", fmt.Errorf("resolving build context %q: %w", contextDir, err)
	}

	path := dockerfile
	if !filepath.IsAbs(path) {
		path = filepath.Join(contextAbs, path)
	}
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &command.NotFoundError{Ref: dockerfile, Object: "dockerfile"}
		}
		return "", err
	}
	info, err := os.Stat(real)
	if err != nil || info.IsDir() {
		return "", &command.NotFoundError{Ref: dockerfile, Object: "dockerfile"}
	}

	rel, err := filepath.Rel(contextReal, real)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &command.NotFoundError{Ref: dockerfile, Object: "dockerfile"}
	}
	return rel, nil
}
