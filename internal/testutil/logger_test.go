package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Guwen-Annotator/internal/testutil"
)

func TestRecordingLogger(t *testing.T) {
	logger := testutil.NewRecordingLogger()

	logger.Info("segmented", logging.Int("tokens", 3))
	child := logger.Named("http").With(logging.String("request_id", "r-1"))
	child.Warn("slow request")

	entries := logger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "info", entries[0].Level)

	e, ok := logger.Find("warn", "slow request")
	require.True(t, ok)
	assert.Equal(t, "http", e.Logger)
	v, ok := e.Field("request_id")
	assert.True(t, ok)
	assert.Equal(t, "r-1", v)

	logger.Reset()
	assert.Empty(t, logger.Entries())
}

func TestRecordingLogger_SetLevel(t *testing.T) {
	logger := testutil.NewRecordingLogger()
	var ls logging.LevelSetter = logger
	ls.SetLevel("debug")
	assert.Equal(t, "debug", logger.Level())
}
