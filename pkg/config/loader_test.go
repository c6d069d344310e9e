package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestInitializeLoadsServersAndAppliesQueueDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "mcp-servers.yaml", `
mcp_servers:
  kubernetes:
    transport:
      type: stdio
      command: mcp-kubernetes
    tools:
      - get_pods
queue:
  max_concurrent_sessions: 2
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.True(t, cfg.MCPServerRegistry.Has("kubernetes"))
	assert.Equal(t, 2, cfg.Queue.MaxConcurrentSessions)
	assert.Equal(t, DefaultQueueConfig().SessionTimeout, cfg.Queue.SessionTimeout)
	assert.Equal(t, 0, cfg.Stats().KnowledgeComponents)
	assert.Equal(t, dir, cfg.ConfigDir())
}

func TestInitializeExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_MCP_COMMAND", "mcp-datadog")
	writeConfigFile(t, dir, "mcp-servers.yaml", `
mcp_servers:
  datadog:
    transport:
      type: stdio
      command: ${TEST_MCP_COMMAND}
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	server, err := cfg.GetMCPServer("datadog")
	require.NoError(t, err)
	assert.Equal(t, "mcp-datadog", server.Transport.Command)
}

func TestInitializeLoadsKnowledgeGraphWhenPresent(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "mcp-servers.yaml", `
mcp_servers:
  kubernetes:
    transport:
      type: stdio
      command: mcp-kubernetes
`)
	writeConfigFile(t, dir, "knowledge-graph.yaml", `
components:
  - name: api-gateway
    type: service
    depends_on:
      - auth-service
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, cfg.KnowledgeGraph.Components, 1)
	assert.Equal(t, "api-gateway", cfg.KnowledgeGraph.Components[0].Name)
}

func TestInitializeFailsValidationOnBadTransport(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "mcp-servers.yaml", `
mcp_servers:
  broken:
    transport:
      type: carrier-pigeon
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestInitializeFailsWhenServersYAMLMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestInitializeFailsOnInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "mcp-servers.yaml", "mcp_servers: [this is not a map")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}
