package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(func() {
		globalLogger = zap.NewNop()
	})

	require.NoError(t, InitWithFormat("debug", "json"))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestInitWithConsoleFormat(t *testing.T) {
	t.Cleanup(func() {
		globalLogger = zap.NewNop()
	})

	require.NoError(t, InitWithFormat("warn", "console"))
	require.False(t, Logger().Core().Enabled(zap.InfoLevel))
	require.True(t, Logger().Core().Enabled(zap.WarnLevel))
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() {
		globalLogger = zap.NewNop()
	})

	require.NoError(t, InitWithFormat("chatty", "json"))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestLoggingHelpersEmitEntries(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(func() {
		globalLogger = zap.NewNop()
	})
	globalLogger = zap.New(core)

	Info("info message", zap.String("k", "v"))
	Error("error message")
	Warn("warn message")
	Debug("debug message")

	require.Equal(t, 4, recorded.Len())
	want := []string{"info message", "error message", "warn message", "debug message"}
	for i, entry := range recorded.All() {
		require.Equal(t, want[i], entry.Message)
	}
	require.Equal(t, "v", recorded.All()[0].ContextMap()["k"])
}

func TestWithPrincipalAttachesFields(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(func() {
		globalLogger = zap.NewNop()
	})
	globalLogger = zap.New(core)

	WithPrincipal("claims", "hr", 7).Info("claim approved")

	entries := recorded.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	require.Equal(t, "claims", ctx["module"])
	require.Equal(t, "hr", ctx["role"])
	require.Equal(t, int64(7), ctx["user_id"])
}
