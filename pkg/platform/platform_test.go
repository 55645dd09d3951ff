package platform

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("PC_TEST_INT", "12")
	t.Setenv("PC_TEST_BAD_INT", "twelve")
	t.Setenv("PC_TEST_FLOAT", " 1.25 ")
	t.Setenv("PC_TEST_BOOL", "1")

	assert.Equal(t, 12, GetEnvInt("PC_TEST_INT", 3))
	assert.Equal(t, 3, GetEnvInt("PC_TEST_BAD_INT", 3))
	assert.Equal(t, 1.25, GetEnvFloat("PC_TEST_FLOAT", 1))
	assert.True(t, GetEnvBool("PC_TEST_BOOL", false))
	assert.Equal(t, "fallback", GetEnv("PC_TEST_MISSING", "fallback"))
}
