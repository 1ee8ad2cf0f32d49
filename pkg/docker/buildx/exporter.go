package buildx

import "strings"

// Exporter is a configured destination and format for build output. Each
// exporter attached to a request becomes one --output flag. The set of
// exporters is closed.
type Exporter interface {
	// Type is the exporter kind keyword as buildx spells it.
	Type() string
	encode() string
	destination() string
}

// ImageExporter writes the built image as an OCI layout or a Docker image
// archive. The default destination mode is a single tar file; Directory
// switches to an unpacked directory layout.
type ImageExporter struct {
	kind      string
	dest      string
	directory bool
}

// OCIImage exports the build as an OCI image layout written to dest.
func OCIImage(dest string) *ImageExporter {
	return &ImageExporter{kind: "oci", dest: dest}
}

// DockerImage exports the build as a Docker image archive written to dest.
func DockerImage(dest string) *ImageExporter {
	return &ImageExporter{kind: "docker", dest: dest}
}

// Directory writes the layout unpacked into a directory instead of a tar file.
func (e *ImageExporter) Directory() *ImageExporter {
	e.directory = true
	return e
}

func (e *ImageExporter) Type() string {
	return e.kind
}

func (e *ImageExporter) encode() string {
	out := "type=" + e.kind + ",dest=" + e.dest
	if e.directory {
		out += ",tar=false"
	}
	return out
}

func (e *ImageExporter) destination() string {
	return e.dest
}

// ContentsExporter writes the root filesystem of the built image, either as
// a tar file or unpacked into a directory. With multiple target platforms the
// directory mode produces one immediate subdirectory per platform, named by
// PlatformDirectory.
type ContentsExporter struct {
	dest      string
	directory bool
}

// Contents exports the image's filesystem contents to dest.
func Contents(dest string) *ContentsExporter {
	return &ContentsExporter{dest: dest}
}

// Directory unpacks the contents into a directory instead of writing a tar file.
func (e *ContentsExporter) Directory() *ContentsExporter {
	e.directory = true
	return e
}

func (e *ContentsExporter) Type() string {
	if e.directory {
		return "local"
	}
	return "tar"
}

func (e *ContentsExporter) encode() string {
	return "type=" + e.Type() + ",dest=" + e.dest
}

func (e *ContentsExporter) destination() string {
	return e.dest
}

// PlatformDirectory returns the name of the per-platform subdirectory that a
// directory-mode contents export produces for the given platform.
func PlatformDirectory(platform string) string {
	return strings.ReplaceAll(platform, "/", "_")
}
