package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/aevon-lab/waypoint/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

// AuthRealm is sent in the WWW-Authenticate challenge.
const AuthRealm = "Secure Area"

const requestIDHeader = "X-Request-ID"

type Server struct {
	Engine *gin.Engine
	// API is the router services register on. It sits behind basic auth
	// when credentials are configured.
	API  gin.IRouter
	Addr string

	handler         http.Handler
	checkers        map[string]HealthChecker
	shutdownTimeout time.Duration
}

// HealthChecker is an interface for components that can report their health status.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr            string
	Mode            string // debug | release
	ShutdownTimeout time.Duration

	// Basic auth is enabled when Username is non-empty.
	Username string
	Password string

	AllowedOrigins   []string
	AllowCredentials bool

	// HealthCheckers are pinged by /health, keyed by component name.
	HealthCheckers map[string]HealthChecker
}

func New(opts Options) *Server {
	// Set Gin mode based on configuration
	if opts.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	r := gin.Default()
	r.Use(requestID(), metrics.Middleware())

	s := &Server{
		Engine:          r,
		API:             r,
		Addr:            opts.Addr,
		checkers:        opts.HealthCheckers,
		shutdownTimeout: opts.ShutdownTimeout,
	}

	// Probes stay reachable without credentials.
	r.GET("/health", s.healthHandler)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if opts.Username != "" {
		s.API = r.Group("/", gin.BasicAuthForRealm(gin.Accounts{opts.Username: opts.Password}, AuthRealm))
	}

	// CORS wraps the engine so preflight requests are answered before auth.
	s.handler = cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           300,
	})(r)

	return s
}

// Handler is the full HTTP handler including CORS.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checkers))
	for name := range s.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	components := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := s.checkers[name].Ping(ctx); err != nil {
			slog.Error("Health check failed", "component", name, "error", err)
			components[name] = "unreachable"
			healthy = false
			continue
		}
		components[name] = "connected"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "unhealthy",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"components": components,
	})
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Starting HTTP Server...", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("Stopping HTTP Server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP Server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
