package httpapi

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/acsclub/clubnews/internal/ports"
	"github.com/acsclub/clubnews/internal/usecase"
)

// ServerDeps wires use cases and adapters into the HTTP surface.
type ServerDeps struct {
	Aggregator *usecase.Aggregator
	Dispatcher *usecase.Dispatcher
	Store      ports.NewsStore
	Scheduler  ports.Scheduler
	MailMode   string
	AdminToken string
	AdminEmail string
	Logger     *slog.Logger
}

// Server exposes the news pipeline over REST. Public GETs read the store
// only and never fail because of pipeline problems; fatal pipeline errors
// surface exclusively on the admin trigger routes.
type Server struct {
	engine     *gin.Engine
	aggregator *usecase.Aggregator
	dispatcher *usecase.Dispatcher
	store      ports.NewsStore
	scheduler  ports.Scheduler
	mailMode   string
	adminToken string
	adminEmail string
	logger     *slog.Logger
}

// NewServer builds the router with all routes registered.
func NewServer(deps ServerDeps) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:     gin.New(),
		aggregator: deps.Aggregator,
		dispatcher: deps.Dispatcher,
		store:      deps.Store,
		scheduler:  deps.Scheduler,
		mailMode:   deps.MailMode,
		adminToken: deps.AdminToken,
		adminEmail: deps.AdminEmail,
		logger:     deps.Logger,
	}

	s.engine.Use(gin.Recovery())

	s.engine.GET("/healthz", s.health)

	news := s.engine.Group("/news")
	{
		news.GET("", s.latestNews)
		news.GET("/history", s.history)

		admin := news.Group("", s.adminOnly())
		admin.POST("/aggregate", s.aggregate)
		admin.POST("/send-digest", s.sendDigest)
		admin.POST("/test-email", s.testEmail)
		admin.GET("/stats", s.stats)
	}

	return s
}

// Handler returns the underlying router for the HTTP server.
func (s *Server) Handler() http.Handler { return s.engine }

// adminOnly gates a route behind the configured bearer token. Token issuance
// belongs to the auth subsystem; this is only the gate.
func (s *Server) adminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.adminToken == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"message": "admin access is not configured",
			})
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "admin token required",
			})
			return
		}

		c.Next()
	}
}
