package buildx

import (
	"context"
	"os"

	"github.com/cowwoc/buildforge/pkg/util/console"
)

// ImageBuild accumulates the configuration for a single build invocation.
// It is owned exclusively by the caller until Build is invoked, at which
// point an immutable snapshot is handed to the pipeline.
type ImageBuild struct {
	client     *Client
	dockerfile string
	platforms  []string
	exporters  []Exporter
	cacheFrom  []string
	builder    string
	tag        string
	progress   string
	listener   BuildListener
}

// ImageBuild starts configuring a build.
func (c *Client) ImageBuild() *ImageBuild {
	return &ImageBuild{
		client:  c,
		builder: c.defaultBuilder,
	}
}

// Dockerfile sets the dockerfile location. Relative paths resolve against the
// build context. When unset, buildx's default (Dockerfile in the context) applies.
func (b *ImageBuild) Dockerfile(path string) *ImageBuild {
	b.dockerfile = path
	return b
}

// Platform adds a target platform. Platforms are emitted in insertion order
// and duplicates are preserved.
func (b *ImageBuild) Platform(platform string) *ImageBuild {
	b.platforms = append(b.platforms, platform)
	return b
}

// Export attaches an output exporter. Each exporter must use its own
// destination path.
func (b *ImageBuild) Export(exporter Exporter) *ImageBuild {
	b.exporters = append(b.exporters, exporter)
	return b
}

// CacheFrom adds an external cache source, in order.
func (b *ImageBuild) CacheFrom(ref string) *ImageBuild {
	b.cacheFrom = append(b.cacheFrom, ref)
	return b
}

// Builder targets the build at a named builder instance.
func (b *ImageBuild) Builder(name string) *ImageBuild {
	b.builder = name
	return b
}

// Tag names the built image.
func (b *ImageBuild) Tag(ref string) *ImageBuild {
	b.tag = ref
	return b
}

// Progress sets the progress output mode: "auto", "plain" or "tty".
func (b *ImageBuild) Progress(mode string) *ImageBuild {
	b.progress = mode
	return b
}

// Listener registers the listener that observes this build.
func (b *ImageBuild) Listener(listener BuildListener) *ImageBuild {
	b.listener = listener
	return b
}

func (b *ImageBuild) snapshot() *buildRequest {
	return &buildRequest{
		dockerfile: b.dockerfile,
		platforms:  append([]string(nil), b.platforms...),
		exporters:  append([]Exporter(nil), b.exporters...),
		cacheFrom:  append([]string(nil), b.cacheFrom...),
		builder:    b.builder,
		tag:        b.tag,
		progress:   resolveProgress(b.progress),
	}
}

// Build validates the request, launches the external build and drives the
// listener protocol to completion. Request validation failures surface before
// any process is spawned.
func (b *ImageBuild) Build(ctx context.Context, contextDir string) (BuildOutput, error) {
	request := b.snapshot()
	args, err := request.encode(contextDir)
	if err != nil {
		return BuildOutput{}, err
	}

	inv, err := startInvocation(ctx, b.client.dockerCommand, args, contextDir)
	if err != nil {
		return BuildOutput{}, err
	}

	listener := b.listener
	if listener == nil {
		listener = &BaseBuildListener{}
	}
	return runBuild(inv, listener)
}

// resolveProgress maps "auto" (and unset) to a concrete mode so the external
// tool never has to guess about a terminal it can't see.
func resolveProgress(mode string) string {
	if mode != "" && mode != "auto" {
		return mode
	}
	if console.IsTTY(os.Stderr) {
		return "tty"
	}
	return "plain"
}
