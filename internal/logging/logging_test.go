package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestReportSideEffectLogsWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	ReportSideEffect(logger, "create notification", errors.New("store down"), zap.String("user_id", "u1"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "create notification failed", entries[0].Message)
	assert.Equal(t, "u1", entries[0].ContextMap()["user_id"])
	assert.Equal(t, "store down", entries[0].ContextMap()["error"])
}

func TestReportSideEffectIgnoresNil(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ReportSideEffect(zap.New(core), "broadcast", nil)
	assert.Zero(t, logs.Len())
}

func TestNewPicksEncoding(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		logger, err := New(env)
		require.NoError(t, err, env)
		require.NotNil(t, logger)
	}
}

func TestInitSentryWithoutDSN(t *testing.T) {
	flush, err := InitSentry("", "test", "")
	require.NoError(t, err)
	flush()
}
