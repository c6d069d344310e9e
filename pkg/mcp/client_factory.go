package mcp

import (
	"context"

	"github.com/sre-incident/orchestrator/pkg/config"
)

// ClientFactory creates Client instances for investigation runs.
type ClientFactory struct {
	registry *config.MCPServerRegistry

	// createClientFn allows tests to substitute in-memory session wiring
	// instead of the real Initialize() transport creation path.
	createClientFn func(ctx context.Context, serverIDs []string) (*Client, error)
}

// NewClientFactory creates a new factory.
func NewClientFactory(registry *config.MCPServerRegistry) *ClientFactory {
	return &ClientFactory{registry: registry}
}

// CreateClient creates a new Client connected to the specified servers.
// The caller is responsible for calling Close() when done.
func (f *ClientFactory) CreateClient(ctx context.Context, serverIDs []string) (*Client, error) {
	if f.createClientFn != nil {
		return f.createClientFn(ctx, serverIDs)
	}

	client := newClient(f.registry)
	if err := client.Initialize(ctx, serverIDs); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// CreateToolExecutor creates a fully-wired ToolExecutor for an investigation.
func (f *ClientFactory) CreateToolExecutor(
	ctx context.Context,
	serverIDs []string,
	toolFilter map[string][]string,
) (*ToolExecutor, *Client, error) {
	client, err := f.CreateClient(ctx, serverIDs)
	if err != nil {
		return nil, nil, err
	}
	return NewToolExecutor(client, f.registry, serverIDs, toolFilter), client, nil
}
