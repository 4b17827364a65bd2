package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

/*
Env helper cases:
- set variables win over fallbacks
- unset and unparseable variables fall back
*/

func TestGetString(t *testing.T) {
	t.Setenv("TEST_STRING", "value")
	assert.Equal(t, "value", GetString("TEST_STRING", "fallback"))
	assert.Equal(t, "fallback", GetString("TEST_STRING_UNSET", "fallback"))
}

func TestGetInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, GetInt("TEST_INT", 7))
	assert.Equal(t, 7, GetInt("TEST_INT_UNSET", 7))

	t.Setenv("TEST_INT_BAD", "forty-two")
	assert.Equal(t, 7, GetInt("TEST_INT_BAD", 7))
}

func TestGetDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, GetDuration("TEST_DURATION", time.Hour))
	assert.Equal(t, time.Hour, GetDuration("TEST_DURATION_UNSET", time.Hour))

	t.Setenv("TEST_DURATION_BAD", "soon")
	assert.Equal(t, time.Hour, GetDuration("TEST_DURATION_BAD", time.Hour))
}
