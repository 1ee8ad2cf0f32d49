package buildx

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"

	"github.com/cowwoc/buildforge/pkg/docker/command"
	"github.com/cowwoc/buildforge/pkg/util/console"
)

// StatusTrailerKey is the well-known trailer key carrying a binary-encoded
// google.rpc.Status on failed BuildKit RPCs.
const StatusTrailerKey = "grpc-status-details-bin"

// stackTraceTypeURL identifies status details that carry a JSON-encoded
// BuildKit stack trace.
const stackTraceTypeURL = "type.googleapis.com/stack.Stack"

// StackFrame is one frame of a nested exception's call stack.
type StackFrame struct {
	Name string `json:"Name"`
	File string `json:"File"`
	Line int32  `json:"Line"`
}

func (f StackFrame) String() string {
	return fmt.Sprintf("%s (%s:%d)", f.Name, filepath.Base(f.File), f.Line)
}

// NestedException is one structured error embedded in an RPC status payload:
// the failing process's command line, its pid, and its call stack in original
// order.
type NestedException struct {
	Frames  []StackFrame `json:"frames"`
	Cmdline []string     `json:"cmdline"`
	Pid     int32        `json:"pid"`
}

// Summary renders the exception without its stack.
func (n NestedException) Summary() string {
	return fmt.Sprintf("pid %d: %s", n.Pid, strings.Join(n.Cmdline, " "))
}

// RPCStatus is the decoded failure metadata of a BuildKit RPC.
type RPCStatus struct {
	Code       codes.Code
	Message    string
	Exceptions []NestedException
}

// ComposeMessage renders the status message followed by every nested
// exception with its full per-frame call stack, in original order.
func (s *RPCStatus) ComposeMessage() string {
	var sb strings.Builder
	sb.WriteString(s.Message)
	for i, nested := range s.Exceptions {
		fmt.Fprintf(&sb, "\nnested exception %d: %s", i+1, nested.Summary())
		for _, frame := range nested.Frames {
			fmt.Fprintf(&sb, "\n\tat %s", frame)
		}
	}
	return sb.String()
}

// StatusFromTrailer decodes the status payload carried by failure metadata.
// The metadata must carry the trailer key exactly once; anything else means
// the protocol between this client and the external tool has drifted, which
// is an internal-invariant violation rather than a recoverable error.
func StatusFromTrailer(md metadata.MD) (*RPCStatus, error) {
	values := md.Get(StatusTrailerKey)
	if len(values) != 1 {
		panic(fmt.Sprintf("expected exactly one %q trailer, got %d", StatusTrailerKey, len(values)))
	}
	return DecodeStatusPayload([]byte(values[0]))
}

// DecodeStatusPayload unmarshals a binary (or base64-wrapped) google.rpc.Status
// and extracts every embedded stack-trace detail.
func DecodeStatusPayload(payload []byte) (*RPCStatus, error) {
	var st spb.Status
	if err := proto.Unmarshal(payload, &st); err != nil {
		decoded, ok := decodeBase64(payload)
		if !ok {
			return nil, fmt.Errorf("unable to decode status payload: %w", err)
		}
		if err := proto.Unmarshal(decoded, &st); err != nil {
			return nil, fmt.Errorf("unable to decode status payload: %w", err)
		}
	}

	status := &RPCStatus{
		Code:    codes.Code(st.GetCode()),
		Message: st.GetMessage(),
	}
	for _, detail := range st.GetDetails() {
		if detail.GetTypeUrl() != stackTraceTypeURL {
			console.Debugf("ignoring status detail of type %q", detail.GetTypeUrl())
			continue
		}
		var nested NestedException
		if err := json.Unmarshal(detail.GetValue(), &nested); err != nil {
			return nil, fmt.Errorf("unable to decode stack trace detail: %w", err)
		}
		if nested.Pid <= 0 {
			return nil, fmt.Errorf("stack trace detail has invalid pid %d", nested.Pid)
		}
		status.Exceptions = append(status.Exceptions, nested)
	}
	return status, nil
}

// trailer values that traveled through text protocols arrive base64-encoded
func decodeBase64(payload []byte) ([]byte, bool) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		decoded, err := enc.DecodeString(strings.TrimSpace(string(payload)))
		if err == nil {
			return decoded, true
		}
	}
	return nil, false
}

// TranslateRPCFailure upgrades a failed invocation with the nested exceptions
// decoded from its RPC failure metadata. This is the richest translation
// strategy and wins over text pattern matching when metadata is available.
func TranslateRPCFailure(result command.CommandResult, md metadata.MD) error {
	status, err := StatusFromTrailer(md)
	if err != nil {
		console.Warnf("unable to decode RPC failure metadata: %s", err)
		return translateFailure(result, nil)
	}
	if len(status.Exceptions) == 0 {
		if kind := matchKnownFailure(status.Message); kind != nil {
			return kind
		}
	}
	return &BuildFailedError{Result: result, Message: status.Message, Nested: status.Exceptions}
}
