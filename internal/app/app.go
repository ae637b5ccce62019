// Package app assembles the reading service and its infrastructure from a
// loaded configuration.  Both the API server and the in-process CLI use it.
package app

import (
	"context"

	"github.com/turtacn/Guwen-Annotator/internal/application/reading"
	"github.com/turtacn/Guwen-Annotator/internal/config"
	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/database/redis"
	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Guwen-Annotator/internal/intelligence/llm"
	"github.com/turtacn/Guwen-Annotator/internal/intelligence/segment"
	"github.com/turtacn/Guwen-Annotator/pkg/errors"
)

// Checker is a named readiness probe.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options switch off infrastructure a caller does not need.
type Options struct {
	// SkipEvents leaves annotation events unpublished even when enabled in
	// the configuration.  The CLI sets it.
	SkipEvents bool
}

// App holds the assembled components.  Close releases them.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Service   reading.Service
	Model     llm.Describer
	Metrics   *prom.AppMetrics
	Collector prom.MetricsCollector // nil when metrics are disabled
	Checkers  []Checker

	closers []func() error
}

// Build wires the application.  On error everything already opened is
// closed again.
func Build(cfg *config.Config, logger logging.Logger, opts Options) (a *App, err error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	a = &App{Config: cfg, Logger: logger, Metrics: prom.NewNoopAppMetrics()}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	if cfg.Metrics.Enabled {
		collector, cerr := prom.NewMetricsCollector(prom.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableGoMetrics:      true,
			EnableProcessMetrics: true,
		}, logger)
		if cerr != nil {
			return nil, errors.Wrap(cerr, errors.ErrCodeInternal, "failed to create metrics collector")
		}
		a.Collector = collector
		a.Metrics = prom.NewAppMetrics(collector)
	}

	seg, err := segment.New(cfg.Segmenter, logger.Named("segment"))
	if err != nil {
		return nil, err
	}
	tokenizer := segment.NewTokenizer(seg, segment.NewPinyinAnnotator(cfg.Segmenter.PinyinStyle), logger)

	chat := llm.NewChatClient(cfg.LLM, llm.WithLogger(logger.Named("llm")), llm.WithMetrics(a.Metrics))
	a.Model = chat
	if !chat.Configured() {
		logger.Warn("DEEPSEEK_API_KEY is not set; model endpoints will answer 503")
	}

	gateway, err := a.buildGateway(chat)
	if err != nil {
		return nil, err
	}

	events, err := a.buildEvents(opts)
	if err != nil {
		return nil, err
	}

	a.Service = reading.NewService(reading.Deps{
		Tokenizer: tokenizer,
		Gateway:   gateway,
		Events:    events,
		Metrics:   a.Metrics,
		Logger:    logger,
		Model:     cfg.LLM.Model,
	})
	return a, nil
}

func (a *App) buildGateway(chat *llm.ChatClient) (llm.Gateway, error) {
	cfg := a.Config.Cache
	if !cfg.Enabled {
		return chat, nil
	}

	var cache llm.ResponseCache
	switch cfg.Backend {
	case "redis":
		client, err := redis.NewClient(&cfg.Redis, a.Logger.Named("redis"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		rc := llm.NewRedisResponseCache(redis.NewRedisCache(client, a.Logger, redis.WithPrefix(cfg.KeyPrefix), redis.WithDefaultTTL(cfg.TTL)), cfg.TTL)
		a.Checkers = append(a.Checkers, Checker{Name: "redis", Check: rc.Ping})
		cache = rc
	default:
		mc, err := llm.NewMemoryResponseCache(cfg.Size, cfg.TTL)
		if err != nil {
			return nil, err
		}
		cache = mc
	}
	a.Logger.Info("model response cache enabled", logging.String("backend", cache.Name()), logging.Duration("ttl", cfg.TTL))
	return llm.NewCachedGateway(chat, cache, a.Logger, a.Metrics, llm.WithCallTimeout(a.Config.LLM.Timeout)), nil
}

func (a *App) buildEvents(opts Options) (reading.EventPublisher, error) {
	cfg := a.Config.Events
	if !cfg.Enabled || opts.SkipEvents {
		return reading.NoopEventPublisher{}, nil
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Brokers,
		Acks:         "one",
		MaxRetries:   2,
		WriteTimeout: cfg.WriteTimeout,
		Async:        cfg.Async,
		SASLUsername: cfg.SASLUsername,
		SASLPassword: cfg.SASLPassword,
	}, a.Logger.Named("kafka"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, producer.Close)
	a.Logger.Info("annotation events enabled",
		logging.Any("brokers", cfg.Brokers),
		logging.String("topic", cfg.Topic),
		logging.String("failed_topic", cfg.FailedTopic))
	return reading.NewKafkaEventPublisher(producer, cfg.Topic, cfg.FailedTopic), nil
}

// EnsureTopics creates the configured event topics when they are missing.
func (a *App) EnsureTopics(ctx context.Context) error {
	cfg := a.Config.Events
	if !cfg.Enabled || !cfg.CreateTopics {
		return nil
	}
	tm, err := kafka.NewTopicManager(cfg.Brokers, a.Logger)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(ctx, EventTopics(cfg))
}

// EventTopics returns the topic definitions for cfg, using the configured
// topic names.
func EventTopics(cfg config.EventsConfig) []kafka.TopicConfig {
	topics := kafka.DefaultTopics(cfg.ReplicationFactor)
	topics[0].Name = cfg.Topic
	topics[1].Name = cfg.FailedTopic
	return topics
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// Shutdown is Close bounded by ctx.
func (a *App) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- a.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
