package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONEntry(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: LevelInfo}).With(Component("award"))

	l.Info("reward awarded", UserID("u1"), RewardID("r1"), Points(50))

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "reward awarded", entry.Message)
	assert.Equal(t, "award", entry.Fields["component"])
	assert.Equal(t, "u1", entry.Fields["user_id"])
	assert.Equal(t, float64(50), entry.Fields["points"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: LevelWarn})

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept", Err(errors.New("boom")))
	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: LevelDebug, Format: FormatText})

	l.Debug("consume", Status("CONSUMED"), RewardID("r1"))

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, "DEBUG consume")
	assert.True(t, strings.Index(line, "reward_id=r1") < strings.Index(line, "status=CONSUMED"))
}

func TestLogger_WithDoesNotLeakFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Output: &buf, Level: LevelInfo})
	_ = base.With(UserID("u1"))

	base.Info("plain")
	assert.NotContains(t, buf.String(), "user_id")
}

func TestContextPropagation(t *testing.T) {
	l := Discard()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelDebug, ParseLevel(" debug "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, slog.LevelError, ParseLevel("error").Slog())
}
