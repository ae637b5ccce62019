package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
)

type mockKafkaReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if len(m.queue) > 0 {
		msg := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockKafkaReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.committed = append(m.committed, msg.Offset)
	}
	return nil
}

func (m *mockKafkaReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func TestValidateConsumerConfig(t *testing.T) {
	valid := ConsumerConfig{Brokers: []string{"b:9092"}, GroupID: "g", Topics: []string{"t"}}
	assert.NoError(t, ValidateConsumerConfig(valid))

	noGroup := valid
	noGroup.GroupID = ""
	assert.Error(t, ValidateConsumerConfig(noGroup))

	noTopics := valid
	noTopics.Topics = nil
	assert.Error(t, ValidateConsumerConfig(noTopics))

	badReset := valid
	badReset.AutoOffsetReset = "middle"
	assert.Error(t, ValidateConsumerConfig(badReset))
}

func TestConsumerRun_HandlesAndCommits(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{
		{Topic: "t", Offset: 1, Value: []byte("a"), Headers: []kafka.Header{{Key: "event_type", Value: []byte("x")}}},
		{Topic: "t", Offset: 2, Value: []byte("b")},
	}}
	c := &Consumer{reader: reader, config: ConsumerConfig{GroupID: "g"}, logger: logging.NewNopLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	var seen []string
	var headers []map[string]string
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(_ context.Context, msg *Message) error {
			seen = append(seen, string(msg.Value))
			headers = append(headers, msg.Headers)
			if len(seen) == 2 {
				cancel()
				return errors.New("second fails")
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, "x", headers[0]["event_type"])
	assert.Equal(t, []int64{1, 2}, reader.committed)
	assert.True(t, reader.closed)
	assert.Equal(t, int64(2), c.consumed.Load())
	assert.Equal(t, int64(1), c.failed.Load())
}

func TestConsumerRun_AlreadyRunning(t *testing.T) {
	c := &Consumer{reader: &mockKafkaReader{}, logger: logging.NewNopLogger()}
	c.running.Store(true)
	assert.Equal(t, ErrAlreadyRunning, c.Run(context.Background(), nil))
}
