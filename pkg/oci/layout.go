// Package oci reads the OCI image layouts that buildx exporters produce.
// The layouts are consumed, never written: the package exists so callers
// (and tests) can verify what a build actually exported.
package oci

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/google/go-containerregistry/pkg/v1/layout"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/cowwoc/buildforge/pkg/docker/command"
)

// ImageNameAnnotation is the index annotation holding the canonical image
// reference of an exported image.
const ImageNameAnnotation = "io.containerd.image.name"

// ImageNameFromLayout reads the image reference recorded in an on-disk OCI
// layout directory.
func ImageNameFromLayout(dir string) (string, error) {
	p, err := layout.FromPath(dir)
	if err != nil {
		return "", fmt.Errorf("unable to open OCI layout at %q: %w", dir, err)
	}
	index, err := p.ImageIndex()
	if err != nil {
		return "", err
	}
	manifest, err := index.IndexManifest()
	if err != nil {
		return "", err
	}
	if len(manifest.Manifests) == 0 {
		return "", &command.NotFoundError{Ref: dir, Object: "image manifest"}
	}
	name, ok := manifest.Manifests[0].Annotations[ImageNameAnnotation]
	if !ok {
		return "", &command.NotFoundError{Ref: ImageNameAnnotation, Object: "annotation"}
	}
	return name, nil
}

// ImageNameFromTar scans a TAR stream for an OCI layout's index.json and
// returns the image reference recorded there. A free-form TAR without an
// index.json reports not-found.
func ImageNameFromTar(r io.Reader) (string, error) {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return "", &command.NotFoundError{Ref: "index.json", Object: "OCI layout index"}
		}
		if err != nil {
			return "", fmt.Errorf("unable to read tar stream: %w", err)
		}
		if path.Clean(header.Name) != "index.json" {
			continue
		}
		return imageNameFromIndex(tr)
	}
}

func imageNameFromIndex(r io.Reader) (string, error) {
	var index ocispec.Index
	if err := json.NewDecoder(r).Decode(&index); err != nil {
		return "", fmt.Errorf("unable to decode index.json: %w", err)
	}
	if len(index.Manifests) == 0 {
		return "", &command.NotFoundError{Ref: "index.json", Object: "image manifest"}
	}
	name, ok := index.Manifests[0].Annotations[ImageNameAnnotation]
	if !ok {
		return "", &command.NotFoundError{Ref: ImageNameAnnotation, Object: "annotation"}
	}
	return name, nil
}
