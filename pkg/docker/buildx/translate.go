package buildx

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cowwoc/buildforge/pkg/docker/command"
	"github.com/cowwoc/buildforge/pkg/util/console"
)

// BuildFailedError is the generic failure of an external build invocation.
// The translator only produces it when no richer classification applies.
type BuildFailedError struct {
	Result command.CommandResult
	// Message is the structured failure message, when one was decodable;
	// otherwise the tail of stderr stands in for it.
	Message string
	// Nested carries the structured stack traces decoded from an RPC status
	// payload, when one was available.
	Nested []NestedException
}

func (e *BuildFailedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "command exited with code %d: %s", e.Result.ExitCode, e.Result.CommandLine())
	if e.Result.Dir != "" {
		fmt.Fprintf(&sb, "\nworking directory: %s", e.Result.Dir)
	}
	message := e.Message
	if message == "" {
		message = lastLine(e.Result.Stderr)
	}
	if message != "" {
		fmt.Fprintf(&sb, "\n%s", message)
	}
	for i, nested := range e.Nested {
		fmt.Fprintf(&sb, "\nnested exception %d: %s", i+1, nested.Summary())
		for _, frame := range nested.Frames {
			fmt.Fprintf(&sb, "\n\tat %s", frame)
		}
	}
	return sb.String()
}

func (e *BuildFailedError) Is(target error) bool {
	_, ok := target.(*BuildFailedError)
	return ok
}

// Error messages vary between backends (dockerd, containerd, podman, orbstack)
// and even versions of docker, so detection is substring matching over known
// phrasings. Matching is tried before the generic classification; structured
// signals (JSON bodies, RPC status payloads) are preferred whenever the tool
// provides them.

func matchKnownFailure(text string) error {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "connection reset by peer"),
		strings.Contains(lower, "broken pipe"),
		strings.Contains(lower, "i/o timeout"):
		return &command.ConnectionResetError{Detail: firstMatchingLine(text, "connection reset by peer", "broken pipe", "i/o timeout")}

	case strings.Contains(lower, "docker exporter is not supported"),
		strings.Contains(lower, "docker exporter is currently unsupported"):
		return &command.UnsupportedExporterError{Exporter: "docker", Detail: firstMatchingLine(text, "exporter")}

	case strings.Contains(lower, "not a swarm manager"):
		return &command.NotSwarmManagerError{Detail: firstMatchingLine(text, "swarm manager")}

	case strings.Contains(lower, "is currently in use"),
		strings.Contains(lower, "already in use"),
		strings.Contains(lower, "existing instance for"):
		return &command.ResourceInUseError{Object: "resource", Detail: firstMatchingLine(text, "in use", "existing instance for")}

	case strings.Contains(lower, "not found"),
		strings.Contains(lower, "no such image"),
		strings.Contains(lower, "no such container"),
		strings.Contains(lower, "no such network"):
		return &command.NotFoundError{Ref: firstMatchingLine(text, "not found", "no such"), Object: "resource"}
	}
	return nil
}

// translateBuildFailure converts a failed build invocation into the most
// specific error the captured output supports: known text patterns first,
// then a structured JSON error body, finally the generic failure.
func translateBuildFailure(result command.CommandResult) error {
	return translateFailure(result, nil)
}

// translateCommandFailure classifies failures of non-build invocations
// (builder creation, listings) the same way.
func translateCommandFailure(result command.CommandResult) error {
	return translateFailure(result, nil)
}

func translateFailure(result command.CommandResult, nested []NestedException) error {
	if err := matchKnownFailure(result.Stderr); err != nil {
		return err
	}
	if message, ok := decodeJSONErrorBody(result.Stderr); ok {
		if err := matchKnownFailure(message); err != nil {
			return err
		}
		return &BuildFailedError{Result: result, Message: message, Nested: nested}
	}
	return &BuildFailedError{Result: result, Nested: nested}
}

// decodeJSONErrorBody extracts the message of a control-plane JSON error
// document when the output carries one. Fields are read by name with
// explicit presence checks; unexpected fields are logged, not rejected, to
// stay compatible with newer tool versions.
func decodeJSONErrorBody(text string) (string, bool) {
	line := lastJSONLine(text)
	if line == "" {
		return "", false
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &body); err != nil {
		return "", false
	}

	var message string
	found := false
	for key, value := range body {
		switch key {
		case "message":
			if err := json.Unmarshal(value, &message); err == nil {
				found = true
			}
		case "error":
			if !found {
				if err := json.Unmarshal(value, &message); err == nil {
					found = true
				}
			}
		default:
			console.Warnf("unexpected field %q in error response", key)
		}
	}
	return message, found
}

func lastJSONLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "{") && strings.HasSuffix(line, "}") {
			return line
		}
	}
	return ""
}

func firstMatchingLine(text string, needles ...string) string {
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, needle := range needles {
			if strings.Contains(lower, needle) {
				return strings.TrimSpace(line)
			}
		}
	}
	return strings.TrimSpace(text)
}

func lastLine(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
