package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"info":    LevelInfo,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestFacadeWritesKeyValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Use(zap.New(core))
	defer Use(zap.NewNop())

	Info("source loaded", "id", "main", "rows", 12)
	Error("fetch failed", errors.New("boom"), "id", "backup")
	Debug("odd kv", "dangling")
	Warn("bad key", 42, "value")

	entries := logs.All()
	if assert.Len(t, entries, 4) {
		assert.Equal(t, "source loaded", entries[0].Message)
		assert.Equal(t, "main", entries[0].ContextMap()["id"])
		assert.EqualValues(t, 12, entries[0].ContextMap()["rows"])

		assert.Equal(t, "boom", entries[1].ContextMap()["err"])
		assert.Equal(t, "backup", entries[1].ContextMap()["id"])

		assert.Empty(t, entries[2].ContextMap())
		assert.Empty(t, entries[3].ContextMap())
	}
}
