// Package server implements the HTTP and WebSocket API for the docket
// engine
package server

import (
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
	"github.com/kode4food/timebox"

	"github.com/docketry/docket/internal/engine"
	"github.com/docketry/docket/pkg/util"
)

// Server implements the HTTP API server for the docket engine
type Server struct {
	engine   *engine.Engine
	eventHub *timebox.EventHub
	sockets  util.Set[*Client]
	mu       sync.Mutex
}

// NewServer creates a new HTTP API server
func NewServer(eng *engine.Engine, hub *timebox.EventHub) *Server {
	return &Server{
		engine:   eng,
		eventHub: hub,
		sockets:  util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", s.handleHealth)

	eng := router.Group("/engine")
	{
		eng.GET("", s.handleRegistry)
		eng.GET("/", s.handleRegistry)

		// Template endpoints
		eng.GET("/template", s.listTemplates)
		eng.POST("/template", s.registerTemplate)
		eng.GET("/template/:templateID", s.getTemplate)

		// Instance endpoints
		eng.GET("/instance", s.listInstances)
		eng.POST("/instance", s.startInstance)
		eng.GET("/instance/:instanceID", s.getInstance)
		eng.GET("/instance/:instanceID/describe", s.describeInstance)
		eng.POST("/instance/:instanceID/signal", s.signalInstance)
		eng.GET("/instance/:instanceID/audit", s.getAuditLog)
		eng.GET("/instance/:instanceID/schedule", s.getSchedule)

		// WebSocket
		eng.GET("/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections.
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
