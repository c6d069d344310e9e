package config

// Config is the umbrella configuration object that encapsulates all
// registries, defaults, and configuration state. This is the primary
// object returned by Initialize() and used throughout the application.
type Config struct {
	configDir string

	Defaults          *Defaults
	Queue             *QueueConfig
	MCPServerRegistry *MCPServerRegistry
	KnowledgeGraph    *KnowledgeGraph
}

// ConfigStats contains statistics about loaded configuration.
type ConfigStats struct {
	MCPServers          int
	KnowledgeComponents int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	stats := ConfigStats{
		MCPServers: len(c.MCPServerRegistry.GetAll()),
	}
	if c.KnowledgeGraph != nil {
		stats.KnowledgeComponents = len(c.KnowledgeGraph.Components)
	}
	return stats
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetMCPServer retrieves an MCP server configuration by ID.
func (c *Config) GetMCPServer(serverID string) (*MCPServerConfig, error) {
	return c.MCPServerRegistry.Get(serverID)
}
