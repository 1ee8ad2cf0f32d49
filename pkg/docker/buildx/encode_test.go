package buildx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cowwoc/buildforge/pkg/docker/command"
)

func newBuildContext(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM scratch\n"), 0o644)
	require.NoError(t, err)
	return dir
}

func TestBuildArgs(t *testing.T) {
	contextDir := newBuildContext(t)

	tests := []struct {
		name     string
		request  buildRequest
		expected []string
	}{
		{
			name:    "basic build",
			request: buildRequest{progress: "plain"},
			expected: []string{
				"buildx", "build",
				"--progress", "plain",
				".",
			},
		},
		{
			name: "platforms in insertion order, duplicates preserved",
			request: buildRequest{
				platforms: []string{"linux/arm64", "linux/amd64", "linux/arm64"},
				progress:  "plain",
			},
			expected: []string{
				"buildx", "build",
				"--platform", "linux/arm64",
				"--platform", "linux/amd64",
				"--platform", "linux/arm64",
				"--progress", "plain",
				".",
			},
		},
		{
			name: "exporters each become one output flag",
			request: buildRequest{
				exporters: []Exporter{
					OCIImage("/tmp/image.tar"),
					Contents("/tmp/rootfs").Directory(),
				},
				progress: "plain",
			},
			expected: []string{
				"buildx", "build",
				"--output", "type=oci,dest=/tmp/image.tar",
				"--output", "type=local,dest=/tmp/rootfs",
				"--progress", "plain",
				".",
			},
		},
		{
			name: "cache sources in order",
			request: buildRequest{
				cacheFrom: []string{"type=registry,ref=example.com/app:cache", "deadbeef"},
				progress:  "plain",
			},
			expected: []string{
				"buildx", "build",
				"--cache-from", "type=registry,ref=example.com/app:cache",
				"--cache-from", "deadbeef",
				"--progress", "plain",
				".",
			},
		},
		{
			name: "builder and tag",
			request: buildRequest{
				builder:  "forge",
				tag:      "example.com/app:v1",
				progress: "plain",
			},
			expected: []string{
				"buildx", "build",
				"--builder", "forge",
				"--tag", "example.com/app:v1",
				"--progress", "plain",
				".",
			},
		},
		{
			name: "dockerfile emitted relative to the context",
			request: buildRequest{
				dockerfile: "Dockerfile",
				progress:   "plain",
			},
			expected: []string{
				"buildx", "build",
				"--progress", "plain",
				"-f", "Dockerfile",
				".",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := tt.request.encode(contextDir)
			require.NoError(t, err)
			require.Equal(t, tt.expected, args)
		})
	}
}

func TestBuildArgsRejectsDuplicateExporterDestinations(t *testing.T) {
	contextDir := newBuildContext(t)

	request := buildRequest{
		exporters: []Exporter{
			OCIImage("/tmp/out.tar"),
			Contents("/tmp/out.tar"),
		},
		progress: "plain",
	}
	_, err := request.encode(contextDir)
	require.Error(t, err)
	require.Contains(t, err.Error(), `multiple exporters write to "/tmp/out.tar"`)

	// distinct destinations stay valid
	request.exporters[1] = Contents("/tmp/rootfs.tar")
	_, err = request.encode(contextDir)
	require.NoError(t, err)
}

func TestBuildArgsRejectsInvalidTag(t *testing.T) {
	contextDir := newBuildContext(t)

	request := buildRequest{tag: ":::not-a-ref"}
	_, err := request.encode(contextDir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid image reference")
}

func TestResolveDockerfile(t *testing.T) {
	contextDir := newBuildContext(t)
	subdir := filepath.Join(contextDir, "docker")
	require.NoError(t, os.Mkdir(subdir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(subdir, "Dockerfile.release"), []byte("FROM scratch\n"), 0o644))

	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "Dockerfile"), []byte("FROM scratch\n"), 0o644))

	t.Run("relative path inside the context", func(t *testing.T) {
		rel, err := resolveDockerfile(contextDir, "docker/Dockerfile.release")
		require.NoError(t, err)
		require.Equal(t, filepath.Join("docker", "Dockerfile.release"), rel)
	})

	t.Run("absolute path inside the context", func(t *testing.T) {
		rel, err := resolveDockerfile(contextDir, filepath.Join(contextDir, "Dockerfile"))
		require.NoError(t, err)
		require.Equal(t, "Dockerfile", rel)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := resolveDockerfile(contextDir, "Dockerfile.missing")
		require.True(t, command.IsNotFoundError(err))
	})

	t.Run("escapes the context via ..", func(t *testing.T) {
		_, err := resolveDockerfile(contextDir, filepath.Join("..", filepath.Base(outside), "Dockerfile"))
		require.True(t, command.IsNotFoundError(err))
	})

	t.Run("absolute path outside the context", func(t *testing.T) {
		_, err := resolveDockerfile(contextDir, filepath.Join(outside, "Dockerfile"))
		require.True(t, command.IsNotFoundError(err))
	})

	t.Run("directory is not a dockerfile", func(t *testing.T) {
		_, err := resolveDockerfile(contextDir, "docker")
		require.True(t, command.IsNotFoundError(err))
	})
}
