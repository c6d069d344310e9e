package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ServersYAMLConfig represents the complete mcp-servers.yaml file structure.
type ServersYAMLConfig struct {
	MCPServers map[string]MCPServerConfig `yaml:"mcp_servers"`
	Defaults   *Defaults                  `yaml:"defaults"`
	Queue      *QueueConfig               `yaml:"queue"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load mcp-servers.yaml from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Build the MCP server registry
//  5. Apply defaults (max iterations, queue concurrency/timeouts)
//  6. Validate every MCP server's transport shape
//  7. Load the optional knowledge-graph.yaml
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	graph, err := LoadKnowledgeGraph(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge graph: %w", err)
	}
	cfg.KnowledgeGraph = graph

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"mcp_servers", stats.MCPServers,
		"knowledge_components", stats.KnowledgeComponents)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	servers, err := loader.loadServersYAML()
	if err != nil {
		return nil, NewLoadError("mcp-servers.yaml", err)
	}

	mcpServers := make(map[string]*MCPServerConfig, len(servers.MCPServers))
	for id, server := range servers.MCPServers {
		serverCopy := server
		mcpServers[id] = &serverCopy
	}
	mcpServerRegistry := NewMCPServerRegistry(mcpServers)

	defaults := servers.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}

	queueConfig := DefaultQueueConfig()
	if servers.Queue != nil {
		if err := mergo.Merge(queueConfig, servers.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	return &Config{
		configDir:         configDir,
		Defaults:          defaults,
		Queue:             queueConfig,
		MCPServerRegistry: mcpServerRegistry,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	return ValidateMCPServers(cfg.MCPServerRegistry)
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadServersYAML() (*ServersYAMLConfig, error) {
	var cfg ServersYAMLConfig
	cfg.MCPServers = make(map[string]MCPServerConfig)

	if err := l.loadYAML("mcp-servers.yaml", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
