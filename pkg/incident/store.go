package incident

import (
	"sort"
	"sync"
	"time"

	"github.com/sre-incident/orchestrator/pkg/apperrors"
)

// record pairs an incident with the mutex that serializes updates to it.
// The store's own RWMutex only protects the map of records, not the
// incident fields themselves — field mutation is single-writer (the
// runner owning the incident), matching §5's ordering guarantees.
type record struct {
	mu       sync.Mutex
	incident *Incident
}

// Store is the in-memory, concurrent-safe incident store. It is the single
// source of truth readers observe; it does not emit events, so clients
// discover state changes by polling Get.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
}

// NewStore creates an empty incident store.
func NewStore() *Store {
	return &Store{records: make(map[string]*record)}
}

// CreatePending allocates a new incident, sets status=pending, stamps
// created_at, and appends one completed "incident_created" step.
func (s *Store) CreatePending(description string) *Incident {
	now := time.Now()
	inc := &Incident{
		ID:          NewID(),
		Description: description,
		Status:      StatusPending,
		CreatedAt:   now,
		InvestigationSteps: []InvestigationStep{
			{
				StepName:  "incident_created",
				Timestamp: now,
				Status:    StepCompleted,
				Details:   map[string]any{"description": description},
			},
		},
	}

	s.mu.Lock()
	s.records[inc.ID] = &record{incident: inc}
	s.mu.Unlock()

	return inc.Clone()
}

// Get returns a point-in-time snapshot of an incident, or an apperrors
// NotFound error if the id is unknown.
func (s *Store) Get(id string) (*Incident, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("incident " + id)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.incident.Clone(), nil
}

// List returns all incidents, newest-first, bounded by limit (0 means no
// limit applied beyond the full set).
func (s *Store) List(limit int) []*Incident {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	snapshots := make([]*Incident, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		snapshots = append(snapshots, rec.incident.Clone())
		rec.mu.Unlock()
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})

	if limit > 0 && len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}
	return snapshots
}

// legalTransitions enumerates which statuses a given status may move to.
var legalTransitions = map[Status]map[Status]bool{
	StatusPending:    {StatusInProgress: true, StatusCompleted: true, StatusFailed: true},
	StatusInProgress: {StatusCompleted: true, StatusFailed: true},
}

// UpdateStatus transitions an incident's status, enforcing legality.
// details["error"] becomes ErrorMessage when newStatus is failed.
// Illegal transitions are a no-op returning apperrors.ErrIllegalTransition;
// the incident's observable state is left unchanged.
func (s *Store) UpdateStatus(id string, newStatus Status, details map[string]any) error {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return apperrors.NotFound("incident " + id)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	inc := rec.incident
	allowed := legalTransitions[inc.Status]
	if !allowed[newStatus] {
		return apperrors.Conflict("cannot transition incident from " + string(inc.Status) + " to " + string(newStatus))
	}

	now := time.Now()
	stepStatus := StepCompleted
	if newStatus == StatusFailed {
		stepStatus = StepFailed
	}

	inc.Status = newStatus
	if newStatus == StatusCompleted || newStatus == StatusFailed {
		inc.CompletedAt = now
	}
	if newStatus == StatusFailed {
		if errMsg, ok := details["error"].(string); ok {
			inc.ErrorMessage = errMsg
		}
	}

	inc.InvestigationSteps = append(inc.InvestigationSteps, InvestigationStep{
		StepName:  "status_" + string(newStatus),
		Timestamp: now,
		Status:    stepStatus,
		Details:   details,
	})

	return nil
}

// Update applies an arbitrary mutation to an incident under its per-record
// lock, for the owning runner to write verdict fields (root cause,
// confidence, evidence) without going through UpdateStatus.
func (s *Store) Update(id string, fn func(inc *Incident)) error {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return apperrors.NotFound("incident " + id)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	fn(rec.incident)
	return nil
}

// AppendStep appends an investigation step under the incident's lock.
func (s *Store) AppendStep(id string, step InvestigationStep) error {
	return s.Update(id, func(inc *Incident) {
		inc.InvestigationSteps = append(inc.InvestigationSteps, step)
	})
}
