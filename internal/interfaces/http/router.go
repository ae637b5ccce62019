package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Guwen-Annotator/internal/interfaces/http/handlers"
	"github.com/turtacn/Guwen-Annotator/internal/interfaces/http/middleware"
	"github.com/turtacn/Guwen-Annotator/pkg/errors"
)

// RouterConfig aggregates the handlers and middleware the route tree is
// built from.  Nil handlers and middleware are skipped.
type RouterConfig struct {
	ReadingHandler *handlers.ReadingHandler
	HealthHandler  *handlers.HealthHandler

	CORS        *middleware.CORSConfig
	RateLimiter *middleware.WindowLimiter
	MaxBodySize int64

	Logger           logging.Logger
	Metrics          *prom.AppMetrics
	MetricsCollector prom.MetricsCollector
	MetricsPath      string
}

// NewRouter builds the gin engine: global middleware, probes, metrics and
// the /api group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(logger, middleware.DefaultLoggingConfig()))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: "route not found", Code: errors.ErrCodeNotFound.String()})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, handlers.ErrorResponse{Error: "method not allowed", Code: errors.ErrCodeBadRequest.String()})
	})

	if h := cfg.HealthHandler; h != nil {
		r.GET("/healthz", h.Liveness)
		r.GET("/readyz", h.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api")
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimitByIP(cfg.RateLimiter))
	}
	if cfg.MaxBodySize > 0 {
		api.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	if h := cfg.HealthHandler; h != nil {
		api.GET("/ai/health", h.AIHealth)
	}
	if h := cfg.ReadingHandler; h != nil {
		h.RegisterRoutes(api)
	}

	return r
}
