package buildx

import (
	"bufio"
	"regexp"
	"strings"
)

// BuildKit reports its results on stderr in `--progress plain` mode. These
// helpers scan that output; they are inherently coupled to BuildKit's output
// format and should be revisited when the minimum supported version moves.

var writingImagePattern = regexp.MustCompile(`writing image sha256:([0-9a-f]+)`)

// ImageIDFromOutput extracts the id of the written image from plain-progress
// build output, or "" when none was reported.
func ImageIDFromOutput(stderr string) string {
	id := ""
	scanner := bufio.NewScanner(strings.NewReader(stderr))
	for scanner.Scan() {
		if match := writingImagePattern.FindStringSubmatch(scanner.Text()); match != nil {
			id = match[1]
		}
	}
	return id
}

// CachedSteps returns the build steps that BuildKit satisfied from cache:
// plain-progress lines ending in "CACHED".
func CachedSteps(stderr string) []string {
	var steps []string
	scanner := bufio.NewScanner(strings.NewReader(stderr))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " ")
		if strings.HasSuffix(line, "CACHED") {
			steps = append(steps, line)
		}
	}
	return steps
}
