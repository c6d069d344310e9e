// Command orchestrator runs the SRE incident investigation HTTP server.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/sre-incident/orchestrator/pkg/api"
	"github.com/sre-incident/orchestrator/pkg/apperrors"
	"github.com/sre-incident/orchestrator/pkg/config"
	"github.com/sre-incident/orchestrator/pkg/incident"
	"github.com/sre-incident/orchestrator/pkg/llm"
	"github.com/sre-incident/orchestrator/pkg/mcp"
	"github.com/sre-incident/orchestrator/pkg/scheduler"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// validateToolNames connects to every configured MCP server once at startup
// and rejects a duplicate "server.tool" name before any investigation can
// run, rather than discovering the misconfiguration mid-incident.
func validateToolNames(ctx context.Context, factory *mcp.ClientFactory, serverIDs []string) error {
	if len(serverIDs) == 0 {
		return nil
	}

	executor, client, err := factory.CreateToolExecutor(ctx, serverIDs, nil)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	return executor.ValidateUniqueToolNames(ctx)
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	llmConfig, err := config.LoadLLMConfig()
	if err != nil {
		log.Fatalf("failed to load LLM configuration: %v", err)
	}

	mcpFactory := mcp.NewClientFactory(cfg.MCPServerRegistry)
	healthMonitor := mcp.NewHealthMonitor(mcpFactory, cfg.MCPServerRegistry)
	healthMonitor.Start(ctx)
	defer healthMonitor.Stop()

	if err := validateToolNames(ctx, mcpFactory, cfg.MCPServerRegistry.IDs()); err != nil {
		log.Fatalf("tool name validation failed: %v", err)
	}

	llmClient := llm.New(llmConfig)

	serverIDs := cfg.MCPServerRegistry.IDs()
	maxIterations := cfg.Defaults.ResolveMaxIterations()

	toolFilter := make(map[string][]string)
	for id, server := range cfg.MCPServerRegistry.GetAll() {
		if len(server.Tools) > 0 {
			toolFilter[id] = server.Tools
		}
	}

	graphFactory := scheduler.NewGraphFactory(mcpFactory, llmClient, llmConfig, serverIDs, toolFilter, maxIterations)

	store := incident.NewStore()
	sched := scheduler.New(store, graphFactory, cfg.Queue)

	ready := func() error {
		for _, st := range healthMonitor.GetStatuses() {
			if st.Healthy {
				return nil
			}
		}
		if len(serverIDs) == 0 {
			return nil
		}
		return apperrors.ServiceUnavailable("no healthy MCP servers available", nil)
	}

	server := api.NewServer(store, sched, healthMonitor, ready)
	router := server.Router()

	slog.Info("starting orchestrator",
		"http_port", httpPort,
		"config_dir", *configDir,
		"mcp_servers", len(serverIDs),
		"max_iterations", maxIterations)

	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
