package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedMap(t *testing.T) {
	Env = map[string]string{"NEXO_TEST_KEY": "from-file"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("NEXO_TEST_KEY", "from-os")

	assert.Equal(t, "from-file", GetEnv("NEXO_TEST_KEY", "def"))
}

func TestGetEnvFallsBackToOSAndDefault(t *testing.T) {
	Env = nil
	t.Setenv("NEXO_TEST_OS", "from-os")

	assert.Equal(t, "from-os", GetEnv("NEXO_TEST_OS", "def"))
	assert.Equal(t, "def", GetEnv("NEXO_TEST_MISSING", "def"))
}

func TestGetEnvInt(t *testing.T) {
	Env = map[string]string{"A": "42", "B": "nope", "C": "  "}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, 42, GetEnvInt("A", 1))
	assert.Equal(t, 1, GetEnvInt("B", 1))
	assert.Equal(t, 7, GetEnvInt("C", 7))
}

func TestLookupEnv(t *testing.T) {
	Env = map[string]string{"SET": " value ", "BLANK": "   "}
	t.Cleanup(func() { Env = nil })

	v, ok := LookupEnv("SET")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = LookupEnv("BLANK")
	assert.False(t, ok)
}
