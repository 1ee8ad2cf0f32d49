package command

import (
	"errors"
	"fmt"
	"time"
)

// NotFoundError represents “object <ref> wasn’t found” inside the Docker engine,
// on disk, or in a builder's inventory.
type NotFoundError struct {
	// Ref is a unique identifier, such as an image reference, builder name, file path, etc.
	Ref string
	// Object is the ref type, such as "builder", "image", "dockerfile", etc.
	Object string
}

func (e *NotFoundError) Error() string {
	objType := e.Object
	if objType == "" {
		objType = "object"
	}
	return fmt.Sprintf("%s not found: %q", objType, e.Ref)
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, &NotFoundError{})
}

// ResourceInUseError represents an operation that was rejected because the
// target object is still referenced by something else.
type ResourceInUseError struct {
	Ref    string
	Object string
	Detail string
}

func (e *ResourceInUseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %q is in use: %s", e.Object, e.Ref, e.Detail)
	}
	return fmt.Sprintf("%s %q is in use", e.Object, e.Ref)
}

func (e *ResourceInUseError) Is(target error) bool {
	_, ok := target.(*ResourceInUseError)
	return ok
}

func IsResourceInUseError(err error) bool {
	return errors.Is(err, &ResourceInUseError{})
}

// UnsupportedExporterError indicates the selected builder driver cannot
// serve one of the requested output exporters.
type UnsupportedExporterError struct {
	Exporter string
	Detail   string
}

func (e *UnsupportedExporterError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("exporter %q is not supported by the selected builder: %s", e.Exporter, e.Detail)
	}
	return fmt.Sprintf("exporter %q is not supported by the selected builder", e.Exporter)
}

func (e *UnsupportedExporterError) Is(target error) bool {
	_, ok := target.(*UnsupportedExporterError)
	return ok
}

func IsUnsupportedExporterError(err error) bool {
	return errors.Is(err, &UnsupportedExporterError{})
}

// NotSwarmManagerError indicates an operation that requires swarm membership
// was attempted against a node that is not a swarm manager.
type NotSwarmManagerError struct {
	Detail string
}

func (e *NotSwarmManagerError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "this node is not a swarm manager"
}

func (e *NotSwarmManagerError) Is(target error) bool {
	_, ok := target.(*NotSwarmManagerError)
	return ok
}

func IsNotSwarmManagerError(err error) bool {
	return errors.Is(err, &NotSwarmManagerError{})
}

// ConnectionResetError represents a transient transport failure. Callers may
// safely retry the operation.
type ConnectionResetError struct {
	Detail string
}

func (e *ConnectionResetError) Error() string {
	if e.Detail != "" {
		return "connection reset: " + e.Detail
	}
	return "connection reset"
}

// Temporary marks the failure as safe to retry.
func (e *ConnectionResetError) Temporary() bool { return true }

func (e *ConnectionResetError) Is(target error) bool {
	_, ok := target.(*ConnectionResetError)
	return ok
}

func IsConnectionResetError(err error) bool {
	return errors.Is(err, &ConnectionResetError{})
}

// IsTemporary reports whether err (or any error it wraps) is a transient
// failure that callers may retry.
func IsTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// TimeoutError indicates a deadline elapsed before the awaited condition held.
type TimeoutError struct {
	Operation string
	Deadline  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s", e.Deadline, e.Operation)
}

func (e *TimeoutError) Is(target error) bool {
	_, ok := target.(*TimeoutError)
	return ok
}

func IsTimeoutError(err error) bool {
	return errors.Is(err, &TimeoutError{})
}
