package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Swind/go-async-runner/core"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), "line: %s", sc.Text())
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestNewJSON_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, logiface.LevelDebug)

	log.Info("task completed",
		core.F("executor", "exec-1"),
		core.F("queue", core.QueueWorker),
		core.F("error", errors.New("boom")))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["lvl"])
	assert.Equal(t, "task completed", lines[0]["msg"])
	assert.Equal(t, "exec-1", lines[0]["executor"])
	assert.Equal(t, "worker", lines[0]["queue"])
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestNewJSON_LevelMapping(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, logiface.LevelDebug)

	log.Debug("d")
	log.Info("i")
	log.Warn("w")
	log.Error("e")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 4)
	var levels []any
	for _, l := range lines {
		levels = append(levels, l["lvl"])
	}
	assert.Equal(t, []any{"debug", "info", "warning", "err"}, levels)
}

func TestNewJSON_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, logiface.LevelWarning)

	log.Debug("loop counter", core.F("pending", 3))
	log.Info("run loop started")
	log.Warn("run loop abandoned")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "run loop abandoned", lines[0]["msg"])
}

func TestNew_NilLoggerDrops(t *testing.T) {
	log := New(nil)
	assert.NotPanics(t, func() {
		log.Debug("x", core.F("k", 1))
		log.Error("y")
	})
}

func TestParseLevel(t *testing.T) {
	cases := map[string]logiface.Level{
		"debug":   logiface.LevelDebug,
		"DEBUG":   logiface.LevelDebug,
		"":        logiface.LevelInformational,
		"info":    logiface.LevelInformational,
		"warn":    logiface.LevelWarning,
		"warning": logiface.LevelWarning,
		"error":   logiface.LevelError,
		"trace":   logiface.LevelTrace,
		" off ":   logiface.LevelDisabled,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, `unknown level "loud"`)
}

func TestExecutorLogsThroughAdapter(t *testing.T) {
	var buf bytes.Buffer
	cfg := core.DefaultExecutorConfig()
	cfg.Name = "logged"
	cfg.Logger = NewJSON(&buf, logiface.LevelDebug)

	loop := core.NewMainLoop("logged-main")
	queues := core.NewQueues(loop, loop)
	exec := core.NewExecutorWithConfig(queues, loop, cfg)

	exec.SubmitToPrimary(core.Lazy(func() any { return nil }))

	var msgs []any
	for _, l := range decodeLines(t, &buf) {
		msgs = append(msgs, l["msg"])
	}
	assert.Contains(t, msgs, "task completed")
}
