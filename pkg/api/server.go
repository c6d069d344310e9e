// Package api implements the HTTP surface: submit/fetch/list/health
// endpoints over gin-gonic, translating apperrors.Kind into status codes.
// Adapted from the teacher's pkg/api/handlers.go Server/NewServer shape.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sre-incident/orchestrator/pkg/apperrors"
	"github.com/sre-incident/orchestrator/pkg/incident"
	"github.com/sre-incident/orchestrator/pkg/mcp"
	"github.com/sre-incident/orchestrator/pkg/scheduler"
)

// Server holds the handlers' dependencies.
type Server struct {
	store     *incident.Store
	scheduler *scheduler.Scheduler
	health    *mcp.HealthMonitor
	ready     func() error // returns non-nil if the process isn't ready to accept submissions
}

// NewServer creates a new API server.
func NewServer(store *incident.Store, sched *scheduler.Scheduler, health *mcp.HealthMonitor, ready func() error) *Server {
	return &Server{store: store, scheduler: sched, health: health, ready: ready}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.POST("/api/incidents", s.SubmitIncident)
	r.GET("/api/incidents/:id", s.GetIncident)
	r.GET("/api/incidents", s.ListIncidents)
	r.GET("/health", s.Health)
	return r
}

// SubmitIncidentRequest is the submission endpoint's request body.
type SubmitIncidentRequest struct {
	Description string `json:"description" binding:"required"`
}

// SubmitIncident handles POST /api/incidents.
func (s *Server) SubmitIncident(c *gin.Context) {
	var req SubmitIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if s.ready != nil {
		if err := s.ready(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
	}

	inc, err := s.scheduler.Submit(req.Description)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"incident_id": inc.ID, "status": inc.Status})
}

// GetIncident handles GET /api/incidents/:id.
func (s *Server) GetIncident(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "incident id is required"})
		return
	}

	inc, err := s.store.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, inc)
}

// ListIncidents handles GET /api/incidents?limit=N.
func (s *Server) ListIncidents(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		if parsed, err := parsePositiveInt(v); err == nil {
			limit = parsed
		}
	}

	c.JSON(http.StatusOK, s.store.List(limit))
}

// Health handles GET /health.
func (s *Server) Health(c *gin.Context) {
	statuses := s.health.GetStatuses()

	overall := "ok"
	for _, st := range statuses {
		if !st.Healthy {
			overall = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      overall,
		"mcp_servers": statuses,
	})
}

func writeError(c *gin.Context, err error) {
	switch apperrors.ClassifyKind(err) {
	case apperrors.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.KindValidationError:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case apperrors.KindServiceUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, apperrors.ValidationError("limit must be a positive integer", nil)
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, apperrors.ValidationError("limit must be a positive integer", nil)
	}
	return n, nil
}
