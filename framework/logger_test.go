package framework

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCapturingLoggerDump(t *testing.T) {
	var l CapturingLogger
	l.Printf("hello %d", 1)
	l.Printf("world")

	var sb strings.Builder
	l.Output().Dump(&sb, "    DEBUG ")
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "    DEBUG ["))
	assert.True(t, strings.HasSuffix(lines[0], "] hello 1"))
	assert.True(t, strings.HasSuffix(lines[1], "] world"))
}

func TestLoggerWithPrefix(t *testing.T) {
	var l CapturingLogger
	LoggerWithPrefix(&l, "[token] ").Printf("saved %s", "abc")
	out := l.Output()
	require.Len(t, out, 1)
	assert.Equal(t, "[token] saved abc", out[0].Message)
}

func TestLoggerWithPrefixOfNilIsNull(t *testing.T) {
	assert.NotPanics(t, func() {
		LoggerWithPrefix(nil, "x").Printf("ignored")
	})
}

func TestZapLoggerWritesAtDebugLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ZapLogger(zap.New(core)).Printf("connecting to %s", "http://localhost:8080/api")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "connecting to http://localhost:8080/api", entries[0].Message)
}

func TestZapLoggerOfNilIsNull(t *testing.T) {
	assert.Equal(t, NullLogger(), ZapLogger(nil))
}
