package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("transfer_id", "abc").Msg("transfer approved")

	var output map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &output)
	require.NoError(t, err, "logger output should be valid JSON")

	assert.Equal(t, "transfer approved", output["message"])
	assert.Equal(t, "abc", output["transfer_id"])
	assert.Equal(t, "info", output["level"])
	assert.Contains(t, output, "time")
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info().Msg("should not appear")
	assert.Empty(t, buf.String())

	log.Warn().Msg("should appear")
	assert.NotEmpty(t, buf.String())
}

func TestNewWithWriter_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("nonsense", &buf)

	log.Debug().Msg("should not appear")
	assert.Empty(t, buf.String())

	log.Info().Msg("should appear")
	assert.NotEmpty(t, buf.String())
}

func TestNew_PrettyMode(t *testing.T) {
	// Pretty mode writes to stdout; ensure construction does not panic.
	log := New("debug", true)
	log.Debug().Msg("pretty mode")
}
