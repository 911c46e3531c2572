package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesToRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	Setup(Options{Level: "debug", File: path})
	log.Info().Str("case", "file").Msg("hello")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"case":"file"`)
	assert.Contains(t, string(b), `"service":"lamf-api"`)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetup_BadLevelFallsBackToInfo(t *testing.T) {
	Setup(Options{Level: "loud"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
