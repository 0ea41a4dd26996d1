package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Formats(t *testing.T) {
	var out, errOut bytes.Buffer

	logger, err := New("both", "info", &out, &errOut)
	require.NoError(t, err)
	logger.Info("hello", "user", "ann")
	logger.Debug("hidden")

	assert.Contains(t, out.String(), "msg=hello user=ann")
	assert.NotContains(t, out.String(), "hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(errOut.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "ann", rec["user"])
}

func TestNew_SingleFormat(t *testing.T) {
	var out, errOut bytes.Buffer
	logger, err := New("json", "debug", &out, &errOut)
	require.NoError(t, err)
	logger.Debug("visible")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), `"msg":"visible"`)

	_, err = New("xml", "info", &out, &errOut)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
