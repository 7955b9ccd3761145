package api

import (
	"net/http"
	"time"

	"signal-core/internal/engine"
	"signal-core/internal/events"
	"signal-core/internal/monitor"
	"signal-core/pkg/db"

	"github.com/gin-gonic/gin"
)

// Server wires HTTP endpoints around the decision engine and event bus.
type Server struct {
	Router      *gin.Engine
	Bus         *events.Bus
	DB          *db.Database
	Engine      engine.Service
	Metrics     *monitor.SystemMetrics
	PromHandler http.Handler
	JWTSecret   string
}

// NewServer builds the router with the full middleware stack.
func NewServer(bus *events.Bus, database *db.Database, svc engine.Service, metrics *monitor.SystemMetrics, promHandler http.Handler, jwtSecret string) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())              // Panic recovery (first)
	r.Use(RequestIDMiddleware())       // Request ID tracking
	r.Use(RequestLogger(metrics))      // Request logging (after ID is set)
	r.Use(RateLimitMiddleware())       // Rate limiting
	r.Use(TimeoutMiddleware(30 * time.Second)) // Request timeout (30s)
	r.Use(CORSMiddleware())            // CORS (last before routes)

	s := &Server{
		Router:      r,
		Bus:         bus,
		DB:          database,
		Engine:      svc,
		Metrics:     metrics,
		PromHandler: promHandler,
		JWTSecret:   jwtSecret,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)
	if s.PromHandler != nil {
		s.Router.GET("/metrics", gin.WrapH(s.PromHandler))
	}

	api := s.Router.Group("/api")
	{
		api.GET("/system/status", s.getSystemStatus)
		api.GET("/system/metrics", s.getMetrics)

		// Auth endpoints (no auth required)
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.registerUser)
			auth.POST("/login", s.loginUser)
		}

		// Protected API
		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.GET("/strategies", s.getStrategies)
			protected.POST("/strategies/:id/activate", s.activateStrategy)
			protected.POST("/strategies/:id/deactivate", s.deactivateStrategy)
			protected.GET("/strategies/:id/eligibility", s.getEligibility)

			protected.GET("/orchestrator/states", s.getOrchestratorStates)
			protected.POST("/trades", s.recordTrade)

			protected.POST("/evaluate/:symbol", s.evaluateSymbol)
			protected.GET("/decisions/:symbol", s.getLastDecision)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
