package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{AppEnv: "production", LogFormat: "json"})

	logger.Info("server started", "addr", ":8080")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "server started", entry["msg"])
	require.Equal(t, "renewtrack", entry["service"])
	require.Equal(t, ":8080", entry["addr"])
}

func TestNewLoggerTextDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "pretty"})

	logger.Info("server started")
	require.Contains(t, buf.String(), "msg=\"server started\"")
	require.Contains(t, buf.String(), "service=renewtrack")
}

func TestNewLoggerLevelByEnvironment(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{AppEnv: "production", LogFormat: "json"}).Debug("query timing")
	require.Empty(t, buf.String(), "debug is suppressed in production")

	newLogger(&buf, &Config{AppEnv: "development", LogFormat: "json"}).Debug("query timing")
	require.NotEmpty(t, buf.String())
}
