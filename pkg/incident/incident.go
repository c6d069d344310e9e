// Package incident implements the in-memory incident store: the single
// source of truth for investigation lifecycle state. Adapted from the
// teacher's pkg/session/{manager.go,types.go} sync.RWMutex-guarded map
// pattern, with per-record mutation serialized by the owning runner and a
// Clone() snapshot for concurrent readers.
package incident

import (
	"time"

	"github.com/google/uuid"
)

// Status is the incident lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// StepStatus is the status of a single investigation step.
type StepStatus string

const (
	StepStarted   StepStatus = "started"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// ConfidenceLevel is the extracted confidence of the investigation verdict.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// InvestigationStep is one append-only entry in an incident's audit trail.
type InvestigationStep struct {
	StepName  string         `json:"step_name"`
	Timestamp time.Time      `json:"timestamp"`
	Status    StepStatus     `json:"status"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToolCallRecord is one tool invocation the agent made during investigation.
type ToolCallRecord struct {
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args"`
	Timestamp time.Time      `json:"timestamp"`
}

// EvidenceRecord is one piece of evidence collected during investigation,
// either from a tool response or from an agent's analysis narrative.
type EvidenceRecord struct {
	Source    string         `json:"source"` // tool name, or "agent_analysis"
	Args      map[string]any `json:"args,omitempty"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
}

// Evidence is the structured evidence bundle attached to an incident.
// Typed rather than a bag of map[string]any, mirroring the teacher's
// preference for typed ent fields over dynamic maps.
type Evidence struct {
	ToolCalls         []ToolCallRecord `json:"tool_calls,omitempty"`
	CollectedEvidence []EvidenceRecord `json:"collected_evidence,omitempty"`
	Reasoning         string           `json:"reasoning,omitempty"`
	Recommendations   []string         `json:"recommendations,omitempty"`

	// Partial variants, populated only when the investigation aborted
	// before producing a full verdict.
	PartialReasoning string `json:"partial_reasoning,omitempty"`
	PartialRootCause string `json:"partial_root_cause,omitempty"`
}

// Incident is the central entity: a single investigation request and its
// lifecycle state.
type Incident struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	Evidence           Evidence          `json:"evidence"`
	ExtractedEntities  map[string]any    `json:"extracted_entities,omitempty"`
	SuggestedRootCause string            `json:"suggested_root_cause,omitempty"`
	ConfidenceScore    ConfidenceLevel   `json:"confidence_score,omitempty"`
	InvestigationSteps []InvestigationStep `json:"investigation_steps"`
	ErrorMessage       string            `json:"error_message,omitempty"`
}

// Clone returns a deep-enough copy of the incident safe to hand to a
// reader: slices and maps are copied so the reader never observes a
// mutation racing with the owning runner's writes.
func (inc *Incident) Clone() *Incident {
	cp := *inc

	cp.InvestigationSteps = append([]InvestigationStep(nil), inc.InvestigationSteps...)
	cp.Evidence.ToolCalls = append([]ToolCallRecord(nil), inc.Evidence.ToolCalls...)
	cp.Evidence.CollectedEvidence = append([]EvidenceRecord(nil), inc.Evidence.CollectedEvidence...)
	cp.Evidence.Recommendations = append([]string(nil), inc.Evidence.Recommendations...)

	if inc.ExtractedEntities != nil {
		cp.ExtractedEntities = make(map[string]any, len(inc.ExtractedEntities))
		for k, v := range inc.ExtractedEntities {
			cp.ExtractedEntities[k] = v
		}
	}

	return &cp
}

// NewID generates an opaque incident identifier.
func NewID() string {
	return uuid.NewString()
}
