package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"WARNING": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		require.Equalf(t, want, ParseLevel(in, zerolog.InfoLevel), "ParseLevel(%q)", in)
	}
}

func TestJSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")

	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "shown", entry["message"])
	require.Equal(t, "v", entry["k"])
	require.Equal(t, "remindme", entry["app"])
}

func TestNewLeavesGlobalsAlone(t *testing.T) {
	require.Equal(t, "err", zerolog.ErrorFieldName)
	require.Equal(t, consoleTimeFormat, zerolog.TimeFieldFormat)

	zerolog.ErrorFieldName = "error"
	t.Cleanup(func() { zerolog.ErrorFieldName = "err" })

	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")
	require.Equal(t, "error", zerolog.ErrorFieldName)

	log.Error().Err(errors.New("boom")).Msg("failed")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "boom", entry["error"])
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	l := CronLogger{Log: NewWithWriter(&buf, "debug", "json")}

	l.Error(errors.New("boom"), "panic", "job", "tick", "dangling")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "boom", entry["err"])
	require.Equal(t, "tick", entry["job"])
}
