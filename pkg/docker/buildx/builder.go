package buildx

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cowwoc/buildforge/pkg/docker/command"
	"github.com/cowwoc/buildforge/pkg/util/console"
)

// BuilderStatus is the lifecycle state of a builder instance.
type BuilderStatus int

const (
	StatusInactive BuilderStatus = iota
	StatusStarting
	StatusRunning
	StatusError
)

func (s BuilderStatus) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("BuilderStatus(%d)", int(s))
	}
}

const builderPollInterval = 100 * time.Millisecond

// StatusQuerier reports a fresh view of a named builder. An empty name refers
// to the default builder. Absence is reported as (nil, nil): a missing
// builder is a normal outcome, not a failure.
type StatusQuerier interface {
	BuilderStatus(ctx context.Context, name string) (*Builder, error)
}

// Builder is a named, stateful build engine instance. The core only observes
// its status; the external tool owns the real lifecycle. Status is only
// meaningful immediately after construction or Refresh.
type Builder struct {
	Name   string
	Driver string
	Status BuilderStatus
	// Err carries the builder's reported failure when Status is StatusError.
	Err string

	querier StatusQuerier
}

// NewBuilder returns a handle on the named builder that refreshes through the
// given querier. Most callers obtain builders from a Client instead; this
// constructor exists so the refresh capability can be injected explicitly.
func NewBuilder(name string, querier StatusQuerier) *Builder {
	return &Builder{Name: name, querier: querier}
}

// Refresh replaces the builder's view with a fresh query.
func (b *Builder) Refresh(ctx context.Context) error {
	fresh, err := b.querier.BuilderStatus(ctx, b.Name)
	if err != nil {
		return err
	}
	if fresh == nil {
		return &command.NotFoundError{Ref: b.Name, Object: "builder"}
	}
	b.Driver = fresh.Driver
	b.Status = fresh.Status
	b.Err = fresh.Err
	return nil
}

// WaitUntilReady polls until the builder reports StatusRunning. A builder in
// StatusError fails immediately with the reported message; it is not polled
// past a reported error. A deadline elapsing first yields a timeout error.
func (b *Builder) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.After(timeout)
	ticker := time.NewTicker(builderPollInterval)
	defer ticker.Stop()

	for {
		if err := b.Refresh(ctx); err != nil {
			return err
		}
		switch b.Status {
		case StatusRunning:
			return nil
		case StatusError:
			return fmt.Errorf("builder %q failed: %s", b.Name, b.Err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return &command.TimeoutError{
				Operation: fmt.Sprintf("builder %q to become ready", b.Name),
				Deadline:  timeout,
			}
		case <-ticker.C:
		}
	}
}

type createBuilderOptions struct {
	endpoint   string
	eagerStart bool
}

type CreateBuilderOption func(*createBuilderOptions)

// WithBuilderContext pins the builder to a docker context or endpoint.
func WithBuilderContext(endpoint string) CreateBuilderOption {
	return func(o *createBuilderOptions) {
		o.endpoint = endpoint
	}
}

// WithEagerStart boots the builder immediately so misconfiguration surfaces
// at creation time instead of on first use.
func WithEagerStart() CreateBuilderOption {
	return func(o *createBuilderOptions) {
		o.eagerStart = true
	}
}

// CreateBuilder requests a new builder instance. An empty name is defaulted
// to a generated one so the handle returned here is always addressable.
func (c *Client) CreateBuilder(ctx context.Context, name string, driver Driver, opts ...CreateBuilderOption) (*Builder, error) {
	options := &createBuilderOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if name == "" {
		generated, err := generateBuilderName()
		if err != nil {
			return nil, err
		}
		name = generated
	}

	args := []string{"buildx", "create", driver.flag(), "--name", name}
	if options.eagerStart {
		args = append(args, "--bootstrap")
	}
	if options.endpoint != "" {
		args = append(args, options.endpoint)
	}

	result, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, translateCommandFailure(result)
	}

	builder, err := c.GetBuilder(ctx, name)
	if err != nil {
		return nil, err
	}
	if builder == nil {
		return nil, &command.NotFoundError{Ref: name, Object: "builder"}
	}
	return builder, nil
}

func generateBuilderName() (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("unable to generate builder name: %w", err)
	}
	return "buildforge-" + hex.EncodeToString(suffix), nil
}

// GetBuilder looks a builder up by name. It returns (nil, nil) when no
// builder matches.
func (c *Client) GetBuilder(ctx context.Context, name string) (*Builder, error) {
	return c.BuilderStatus(ctx, name)
}

// DefaultBuilder returns the external tool's default builder, or (nil, nil)
// when there is none.
func (c *Client) DefaultBuilder(ctx context.Context) (*Builder, error) {
	return c.BuilderStatus(ctx, "")
}

// WaitUntilBuilderIsReady looks up the named builder and blocks until it is
// running, subject to the timeout.
func (c *Client) WaitUntilBuilderIsReady(ctx context.Context, name string, timeout time.Duration) (*Builder, error) {
	builder, err := c.GetBuilder(ctx, name)
	if err != nil {
		return nil, err
	}
	if builder == nil {
		return nil, &command.NotFoundError{Ref: name, Object: "builder"}
	}
	if err := builder.WaitUntilReady(ctx, timeout); err != nil {
		return nil, err
	}
	return builder, nil
}

// builderRecord is the JSON document `buildx ls --format json` emits per builder.
type builderRecord struct {
	Name    string `json:"Name"`
	Driver  string `json:"Driver"`
	Default bool   `json:"Default"`
	Nodes   []struct {
		Name   string `json:"Name"`
		Status string `json:"Status"`
		Err    string `json:"Err"`
	} `json:"Nodes"`
}

// BuilderStatus implements StatusQuerier against the buildx CLI.
func (c *Client) BuilderStatus(ctx context.Context, name string) (*Builder, error) {
	result, err := c.run(ctx, "buildx", "ls", "--format", "json")
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, translateCommandFailure(result)
	}

	records, err := parseBuilderRecords(result.Stdout)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.Name == name || (name == "" && record.Default) {
			builder := builderFromRecord(record)
			builder.querier = c
			return builder, nil
		}
	}
	return nil, nil
}

// parseBuilderRecords accepts both framings buildx has used: one JSON object
// per line, or a single JSON array.
func parseBuilderRecords(raw string) ([]builderRecord, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var records []builderRecord
		if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
			return nil, fmt.Errorf("unable to parse builder listing: %w", err)
		}
		return records, nil
	}

	var records []builderRecord
	scanner := bufio.NewScanner(strings.NewReader(trimmed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record builderRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("unable to parse builder listing: %w", err)
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}

func builderFromRecord(record builderRecord) *Builder {
	builder := &Builder{
		Name:   record.Name,
		Driver: record.Driver,
		Status: StatusInactive,
	}
	for _, node := range record.Nodes {
		if node.Err != "" {
			builder.Status = StatusError
			builder.Err = node.Err
			return builder
		}
		switch strings.ToLower(node.Status) {
		case "running":
			builder.Status = StatusRunning
		case "starting":
			if builder.Status != StatusRunning {
				builder.Status = StatusStarting
			}
		case "", "inactive", "stopped":
			// keep the strongest status seen so far
		default:
			console.Debugf("unrecognized builder node status %q for %s", node.Status, record.Name)
		}
	}
	return builder
}
