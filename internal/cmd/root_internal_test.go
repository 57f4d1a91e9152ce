package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("no preset logs text at info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log, err := newLogger(Config{}, &buf)
		require.NoError(t, err)
		log.Debug("hidden")
		log.Info("visible")

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "service=tailq")
	})

	t.Run("development preset enables debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log, err := newLogger(Config{Env: "development"}, &buf)
		require.NoError(t, err)
		log.Debug("cursor empty")
		assert.Contains(t, buf.String(), "env=development")
	})

	t.Run("staging preset logs json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log, err := newLogger(Config{Env: "staging"}, &buf)
		require.NoError(t, err)
		log.Info("started")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, "staging", entry["env"])
	})

	t.Run("explicit settings override preset", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log, err := newLogger(Config{Env: "production", LogLevel: "debug", LogFormat: "text"}, &buf)
		require.NoError(t, err)
		log.Debug("cursor empty")

		out := buf.String()
		assert.Contains(t, out, "msg=\"cursor empty\"")
		assert.Contains(t, out, "env=production")
	})
}
