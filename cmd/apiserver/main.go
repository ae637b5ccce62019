// Command apiserver serves the Guwen annotator HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/Guwen-Annotator/internal/app"
	"github.com/turtacn/Guwen-Annotator/internal/config"
	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/Guwen-Annotator/internal/interfaces/http"
	"github.com/turtacn/Guwen-Annotator/internal/interfaces/http/handlers"
	"github.com/turtacn/Guwen-Annotator/internal/interfaces/http/middleware"
)

// Version is injected via ldflags.
var Version = "dev"

const topicSetupTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := logging.NewLogger(cfg.Log.Logging())
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	logging.SetDefault(logger)
	gin.SetMode(cfg.Server.Mode)

	logger.Info("starting Guwen annotator API server",
		logging.String("version", Version),
		logging.Int("port", cfg.Server.Port),
		logging.String("model", cfg.LLM.Model),
		logging.String("segmenter", cfg.Segmenter.Engine),
	)

	application, err := app.Build(cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := application.Shutdown(ctx); err != nil {
			logger.Error("failed to release resources", logging.Err(err))
		}
	}()

	setupCtx, cancel := context.WithTimeout(context.Background(), topicSetupTimeout)
	if err := application.EnsureTopics(setupCtx); err != nil {
		logger.Warn("failed to create event topics", logging.Err(err))
	}
	cancel()

	checkers := make([]handlers.HealthChecker, 0, len(application.Checkers))
	for _, c := range application.Checkers {
		checkers = append(checkers, handlers.CheckerFunc{ComponentName: c.Name, Fn: c.Check})
	}

	routerCfg := httpserver.RouterConfig{
		ReadingHandler:   handlers.NewReadingHandler(application.Service, logger),
		HealthHandler:    handlers.NewHealthHandler(Version, application.Model, checkers...),
		MaxBodySize:      cfg.Server.MaxBodySize,
		Logger:           logger,
		Metrics:          application.Metrics,
		MetricsCollector: application.Collector,
		MetricsPath:      cfg.Metrics.Path,
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		routerCfg.CORS = &cors
	}
	if rl := cfg.Server.RateLimit; rl.Enabled {
		limiter := middleware.NewWindowLimiter(rl.RequestsPerMinute, time.Minute, 5*time.Minute)
		defer limiter.Stop()
		routerCfg.RateLimiter = limiter
	}

	srv := httpserver.NewServer(httpserver.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpserver.NewRouter(routerCfg), logger)

	if configPath != "" {
		watchLogLevel(configPath, logger)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", logging.String("signal", sig.String()))
	}

	ctx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	logger.Info("server stopped")
	return nil
}

// watchLogLevel applies log.level changes from the config file without a
// restart.  Other settings need one.
func watchLogLevel(configPath string, logger logging.Logger) {
	ls, ok := logger.(logging.LevelSetter)
	if !ok {
		return
	}
	err := config.Watch(configPath, func(c *config.Config) {
		ls.SetLevel(c.Log.Level)
		logger.Info("log level reloaded", logging.String("level", c.Log.Level))
	}, func(err error) {
		logger.Warn("ignoring invalid config change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}
