package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docketry/docket"
	"github.com/docketry/docket/pkg/api"
)

type (
	// HealthResponse is returned by the health check endpoint
	HealthResponse struct {
		Status    string    `json:"status"`
		Service   string    `json:"service"`
		Version   string    `json:"version"`
		Timestamp time.Time `json:"timestamp"`
	}

	// RegistryResponse summarizes the engine's registry for dashboards
	RegistryResponse struct {
		Active    map[api.InstanceID]*api.ActiveInstanceInfo `json:"active"`
		Instances int                                        `json:"instances"`
	}
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   docket.Name,
		Version:   docket.Version,
		Timestamp: time.Now(),
	})
}

func (s *Server) handleRegistry(c *gin.Context) {
	reg, err := s.engine.GetRegistryState(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, RegistryResponse{
		Active:    reg.Active,
		Instances: len(reg.Digests),
	})
}
