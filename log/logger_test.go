/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeEntries(t *testing.T, data []byte) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLogger := newLogger(&Config{Level: LevelInfo, Format: FormatJSON}, &buf)
	logger.With(CacheName("Async(cache=LRU)")).Warn("cache activity stopped")
	logger.Error("redis command failed", String("command", "MGET"), Error(errors.New("connection refused")))
	logger.Debug("cache lookup dropped", Key("k1"))
	closeLogger()

	entries := decodeEntries(t, buf.Bytes())
	require.Len(t, entries, 2, "debug entry must be filtered out")

	require.Equal(t, "warn", entries[0]["level"])
	require.Equal(t, "cache activity stopped", entries[0]["msg"])
	require.Equal(t, "Async(cache=LRU)", entries[0]["cache"])
	require.NotEmpty(t, entries[0]["time"])

	require.Equal(t, "error", entries[1]["level"])
	require.Equal(t, "MGET", entries[1]["command"])
	require.Equal(t, "connection refused", entries[1]["error"])
}

func TestLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLogger := newLogger(&Config{Level: LevelDebug, Format: FormatText, NoColor: true}, &buf)
	logger.Error("lookup failed", Key("k1"), Error(errors.New("some error")))
	closeLogger()

	require.Contains(t, buf.String(), "|ERRO|")
	require.Contains(t, buf.String(), " lookup failed ")
	require.Contains(t, buf.String(), "k1")
	require.Contains(t, buf.String(), `error="some error"`)
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batcher.log")
	logger, closeLogger := NewLogger(&Config{
		Level:  LevelInfo,
		Format: FormatJSON,
		Output: OutputFile,
		File:   FileConfig{Path: path, MaxSize: DefaultFileMaxSize},
	})
	logger.Info("benchmark finished", Int("requests", 100))
	closeLogger()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entries := decodeEntries(t, data)
	require.Len(t, entries, 1)
	require.Equal(t, "benchmark finished", entries[0]["msg"])
	require.EqualValues(t, 100, entries[0]["requests"])
}

func TestDisabledLogger(t *testing.T) {
	logger := NewDisabledLogger()
	require.NotPanics(t, func() {
		logger.With(Key("k1")).Error("nothing", Bool("written", false))
	})
}
