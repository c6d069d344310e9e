// Package scheduler binds the submission endpoint to the Investigation
// Runner. Adapted from the teacher's pkg/queue/{pool.go,worker.go} worker
// shape, simplified because there is no persistence layer to claim work
// from: Submit spawns one goroutine per incident directly, gated by a
// buffered-channel semaphore sized by config.QueueConfig.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sre-incident/orchestrator/pkg/agent"
	"github.com/sre-incident/orchestrator/pkg/apperrors"
	"github.com/sre-incident/orchestrator/pkg/config"
	"github.com/sre-incident/orchestrator/pkg/incident"
	"github.com/sre-incident/orchestrator/pkg/investigation"
	"github.com/sre-incident/orchestrator/pkg/llm"
	"github.com/sre-incident/orchestrator/pkg/mcp"
)

// GraphFactory builds a fresh per-incident Agent Graph, reusing shared LLM
// client and tool set. Kept as a function field so tests can substitute
// fakes without standing up real MCP servers.
type GraphFactory func(ctx context.Context) (*agent.Graph, func(), error)

// Scheduler runs investigations in the background and writes their results
// back to the incident store.
type Scheduler struct {
	store        *incident.Store
	newGraph     GraphFactory
	sem          chan struct{}
	sessionTimeout time.Duration

	mu      sync.RWMutex
	cancels map[string]context.CancelFunc
}

// New creates a Scheduler. queueCfg.MaxConcurrentSessions bounds the number
// of investigations running at once; queueCfg.SessionTimeout bounds each
// investigation's wall-clock duration.
func New(store *incident.Store, newGraph GraphFactory, queueCfg *config.QueueConfig) *Scheduler {
	return &Scheduler{
		store:          store,
		newGraph:       newGraph,
		sem:            make(chan struct{}, queueCfg.MaxConcurrentSessions),
		sessionTimeout: queueCfg.SessionTimeout,
		cancels:        make(map[string]context.CancelFunc),
	}
}

// NewGraphFactory builds the default GraphFactory wiring a fresh MCP tool
// executor and the shared LLM client into a new agent.Graph per incident.
func NewGraphFactory(
	mcpFactory *mcp.ClientFactory,
	llmClient *llm.Client,
	llmConfig *config.LLMConfig,
	serverIDs []string,
	toolFilter map[string][]string,
	maxIterations int,
) GraphFactory {
	return func(ctx context.Context) (*agent.Graph, func(), error) {
		executor, client, err := mcpFactory.CreateToolExecutor(ctx, serverIDs, toolFilter)
		if err != nil {
			return nil, nil, apperrors.ServiceUnavailable("create tool executor", err)
		}
		graph := agent.NewGraph(llmClient, executor, llmConfig, maxIterations)
		cleanup := func() { _ = client.Close() }
		return graph, cleanup, nil
	}
}

// Submit creates a pending incident and spawns a background investigation.
// Returns immediately; the wall-clock bound on this call is the cost of
// Store.CreatePending plus acquiring a goroutine, both O(1).
func (s *Scheduler) Submit(description string) (*incident.Incident, error) {
	inc := s.store.CreatePending(description)

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[inc.ID] = cancel
	s.mu.Unlock()

	go s.run(ctx, inc.ID)

	return inc, nil
}

// Cancel stops a running investigation's background task, if any. Not
// exposed via the HTTP surface today, but kept so a future cancel endpoint
// has somewhere to call into — the registry costs nothing to maintain.
func (s *Scheduler) Cancel(incidentID string) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[incidentID]
	delete(s.cancels, incidentID)
	s.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

func (s *Scheduler) run(ctx context.Context, incidentID string) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		s.fail(incidentID, ctx.Err().Error())
		return
	}
	defer func() { <-s.sem }()

	defer func() {
		s.mu.Lock()
		delete(s.cancels, incidentID)
		s.mu.Unlock()
	}()

	runCtx, runCancel := context.WithTimeout(ctx, s.sessionTimeout)
	defer runCancel()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("investigation task panicked", "incident_id", incidentID, "panic", r)
			_ = s.store.UpdateStatus(incidentID, incident.StatusFailed,
				map[string]any{"error": fmt.Sprintf("panic: %v", r)})
		}
	}()

	if err := s.store.UpdateStatus(incidentID, incident.StatusInProgress, nil); err != nil {
		slog.Error("failed to mark incident in_progress", "incident_id", incidentID, "error", err)
		return
	}

	inc, err := s.store.Get(incidentID)
	if err != nil {
		slog.Error("incident vanished before investigation could start", "incident_id", incidentID, "error", err)
		return
	}

	graph, cleanup, err := s.newGraph(runCtx)
	if err != nil {
		s.fail(incidentID, err.Error())
		return
	}
	defer cleanup()

	// Investigate never returns a non-nil error: every failure mode, including
	// an exhausted retry budget, is folded into a Result with Status Failed so
	// the outcome is always recorded against the incident.
	result, _ := investigation.Investigate(runCtx, graph, incidentID, inc.Description, nil, "")

	s.apply(incidentID, result)
}

func (s *Scheduler) apply(incidentID string, result *investigation.Result) {
	_ = s.store.Update(incidentID, func(inc *incident.Incident) {
		inc.Evidence = result.Evidence
		inc.SuggestedRootCause = result.RootCause
		inc.ConfidenceScore = result.Confidence
	})

	if result.Status == incident.StatusCompleted {
		_ = s.store.UpdateStatus(incidentID, incident.StatusCompleted, nil)
		return
	}

	details := map[string]any{}
	if result.ErrorMessage != "" {
		details["error"] = result.ErrorMessage
	}
	_ = s.store.UpdateStatus(incidentID, incident.StatusFailed, details)
}

func (s *Scheduler) fail(incidentID, errMsg string) {
	_ = s.store.UpdateStatus(incidentID, incident.StatusFailed, map[string]any{"error": errMsg})
}
