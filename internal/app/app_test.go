package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Guwen-Annotator/internal/application/reading"
	"github.com/turtacn/Guwen-Annotator/internal/config"
	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Guwen-Annotator/internal/intelligence/segment"
	"github.com/turtacn/Guwen-Annotator/pkg/errors"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Segmenter.Engine = segment.EngineRune
	config.ApplyDefaults(cfg)
	return cfg
}

func TestBuild_Minimal(t *testing.T) {
	a, err := Build(testConfig(), nil, Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Collector)
	assert.False(t, a.Model.Configured())
	assert.Empty(t, a.Checkers)

	out, err := a.Service.Segment(context.Background(), &reading.SegmentInput{Text: "学而"})
	require.NoError(t, err)
	assert.Len(t, out.Tokens, 2)

	_, err = a.Service.AutoAnnotate(context.Background(), &reading.AnnotateInput{Text: "孔子"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelNotConfigured))
}

func TestBuild_MetricsAndMemoryCache(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = true
	cfg.Cache.Enabled = true

	a, err := Build(cfg, nil, Options{})
	require.NoError(t, err)
	defer a.Close()
	assert.NotNil(t, a.Collector)
	assert.Empty(t, a.Checkers)
}

func TestBuild_RedisCacheAddsChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = mr.Addr()

	a, err := Build(cfg, nil, Options{})
	require.NoError(t, err)
	require.Len(t, a.Checkers, 1)
	assert.Equal(t, "redis", a.Checkers[0].Name)
	assert.NoError(t, a.Checkers[0].Check(context.Background()))
	assert.NoError(t, a.Close())
}

func TestBuild_RedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = "127.0.0.1:1"

	_, err := Build(cfg, nil, Options{})
	assert.Error(t, err)
}

func TestBuild_UnsupportedEngine(t *testing.T) {
	cfg := testConfig()
	cfg.Segmenter.Engine = "jieba"
	_, err := Build(cfg, nil, Options{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeSegmenterUnsupported))
}

func TestBuild_EventsSkipped(t *testing.T) {
	cfg := testConfig()
	cfg.Events.Enabled = true
	a, err := Build(cfg, nil, Options{SkipEvents: true})
	require.NoError(t, err)
	assert.NoError(t, a.Close())
	assert.NoError(t, a.EnsureTopics(context.Background()), "create_topics is off")
}

func TestEventTopics(t *testing.T) {
	topics := EventTopics(config.EventsConfig{Topic: "a", FailedTopic: "b", ReplicationFactor: 3})
	require.Len(t, topics, 2)
	assert.Equal(t, "a", topics[0].Name)
	assert.Equal(t, "b", topics[1].Name)
	assert.Equal(t, 3, topics[1].ReplicationFactor)
	assert.NotEqual(t, kafka.TopicAnnotationCompleted, topics[0].Name)
}

func TestClose_ReverseOrderFirstError(t *testing.T) {
	var order []int
	a := &App{closers: []func() error{
		func() error { order = append(order, 1); return assert.AnError },
		func() error { order = append(order, 2); return nil },
	}}
	assert.ErrorIs(t, a.Close(), assert.AnError)
	assert.Equal(t, []int{2, 1}, order)
	assert.NoError(t, a.Close())
}
