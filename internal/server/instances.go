package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docketry/docket/pkg/api"
)

var errInstanceIDRequired = errors.New("instance ID is required")

// statusForError maps engine errors to HTTP status codes. Validation
// problems are the caller's fault, conflicts mean the instance's current
// run state rejected the operation, and fatal state errors are ours
func statusForError(err error) int {
	switch {
	case errors.Is(err, api.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrInstanceNotFound),
		errors.Is(err, api.ErrTemplateNotFound),
		errors.Is(err, api.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrInstanceExists),
		errors.Is(err, api.ErrStateConflict),
		errors.Is(err, api.ErrRequirementsIncomplete),
		errors.Is(err, api.ErrPaused),
		errors.Is(err, api.ErrCancelled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	c.JSON(status, api.ErrorResponse{
		Error:  err.Error(),
		Status: status,
	})
}

func (s *Server) listInstances(c *gin.Context) {
	digests, err := s.engine.ListInstances(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.InstancesListResponse{
		Instances: digests,
		Count:     len(digests),
	})
}

func (s *Server) startInstance(c *gin.Context) {
	var req api.CreateInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %w", api.ErrValidation, err))
		return
	}

	id, err := s.engine.StartInstance(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, api.InstanceStartedResponse{
		Message:    "Instance started",
		InstanceID: id,
	})
}

func (s *Server) getInstance(c *gin.Context) {
	id, ok := instanceIDParam(c)
	if !ok {
		return
	}
	state, err := s.engine.GetInstanceState(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) describeInstance(c *gin.Context) {
	id, ok := instanceIDParam(c)
	if !ok {
		return
	}
	desc, err := s.engine.Describe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, desc)
}

func (s *Server) signalInstance(c *gin.Context) {
	id, ok := instanceIDParam(c)
	if !ok {
		return
	}

	var sig api.Signal
	if err := c.ShouldBindJSON(&sig); err != nil {
		respondError(c, fmt.Errorf("%w: %w", api.ErrValidation, err))
		return
	}

	if err := s.engine.Signal(c.Request.Context(), id, &sig); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.SignalAcceptedResponse{
		Message:    "Signal applied",
		InstanceID: id,
		Signal:     sig.Kind,
	})
}

func (s *Server) getAuditLog(c *gin.Context) {
	id, ok := instanceIDParam(c)
	if !ok {
		return
	}
	entries, err := s.engine.GetAuditLog(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.AuditListResponse{
		Entries: entries,
		Count:   len(entries),
	})
}

func (s *Server) getSchedule(c *gin.Context) {
	id, ok := instanceIDParam(c)
	if !ok {
		return
	}
	items, err := s.engine.GetSchedule(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.ScheduleResponse{
		InstanceID: id,
		Items:      items,
		Count:      len(items),
	})
}

func instanceIDParam(c *gin.Context) (api.InstanceID, bool) {
	id := api.InstanceID(c.Param("instanceID"))
	if id == "" {
		respondError(c, fmt.Errorf("%w: %w",
			api.ErrValidation, errInstanceIDRequired))
		return "", false
	}
	return api.SanitizeID(id), true
}
