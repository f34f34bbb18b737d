package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestContextFieldsReachEntries(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: "debug", Format: "json", Output: buf, ServiceName: "test"})

	ctx := log.WithContext(context.Background())
	ctx = SetRequestID(ctx, "req-1")
	ctx = WithField(ctx, FieldCollectionKey, "images")

	With(Fields{FieldStatus: "ok"}).WithCount(3).WithDuration(time.Now()).Info(ctx, "Page fetched %d", 1)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "Page fetched 1", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "req-1", entry[FieldRequestID])
	assert.Equal(t, "images", entry[FieldCollectionKey])
	assert.Equal(t, "ok", entry[FieldStatus])
	assert.EqualValues(t, 3, entry[FieldCount])
	assert.Contains(t, entry, FieldDurationMs)
	assert.Contains(t, entry, "timestamp")

	assert.Equal(t, "req-1", GetRequestID(ctx))
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(&Config{Level: "warn", Format: "json", Output: buf})
	ctx := log.WithContext(context.Background())

	CtxDebug(ctx, "hidden")
	CtxInfo(ctx, "hidden")
	CtxWarn(ctx, "shown")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	buf := &bytes.Buffer{}
	prev := GetDefault()
	t.Cleanup(func() { SetDefaultLogger(prev) })

	SetDefaultLogger(New(&Config{Level: "info", Format: "json", Output: buf}))
	SetDefaultLogger(nil)

	CtxInfo(context.Background(), "via default")
	assert.Contains(t, buf.String(), "via default")
}

func TestEntryWithDoesNotMutate(t *testing.T) {
	base := With(Fields{"a": 1})
	derived := base.With(Fields{"b": 2})

	assert.Len(t, base.fields, 1)
	assert.Len(t, derived.fields, 2)
}

func TestNewFromEnvWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := NewFromEnv(&EnvConfig{
		Level:       "info",
		Format:      "text",
		ServiceName: "test",
		Environment: "prod",
		LogFile:     path,
		LogFileOnly: true,
		MaxSize:     1,
	})
	t.Cleanup(func() { _ = Sync() })

	log.Info("written to file")
	require.NoError(t, Sync())

	assert.FileExists(t, path)
}

func TestEnsureLogger(t *testing.T) {
	first := New(&Config{Level: "info", Output: &bytes.Buffer{}, ServiceName: "first"})
	second := New(&Config{Level: "info", Output: &bytes.Buffer{}, ServiceName: "second"})

	ctx := EnsureLogger(context.Background(), first)
	assert.Same(t, first, FromContext(ctx))

	ctx = EnsureLogger(ctx, second)
	assert.Same(t, first, FromContext(ctx))
}
