package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]Level{
		"debug":   LevelDebug,
		"DEBUG":   LevelDebug,
		"dEbUg":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"Warning": LevelWarn,
		"ERROR":   LevelError,
		"":        LevelInfo,
		"trace":   LevelInfo,
		"fatal":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, "warn", "JSON")

	logger.Info("dropped")
	logger.Warn("collection skipped", "file", "broken.json")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"file":"broken.json"`)
	assert.Contains(t, out, `"component":"collmock"`)
}

func TestNew_TextFallback(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(&buf, "", "yaml").Info("rebuild complete", "collections", 2)

	assert.Contains(t, buf.String(), "msg=\"rebuild complete\" component=collmock collections=2")
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, OrNop(nil))
	assert.False(t, OrNop(nil).Enabled(t.Context(), LevelError))

	_, logger := NewRecorder()
	assert.Same(t, logger, OrNop(logger))
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	rec, logger := NewRecorder()
	logger.With("pass", "p1").Warn("collection skipped", "file", "a.json")
	logger.Info("rebuild complete")

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "p1", entries[0].Attrs["pass"])
	assert.Equal(t, "a.json", entries[0].Attrs["file"])
	assert.Equal(t, 1, rec.Count(LevelWarn))
}
