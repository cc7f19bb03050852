package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvDurationOrDefault(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "unset", value: "", want: 3 * time.Second},
		{name: "valid", value: "250ms", want: 250 * time.Millisecond},
		{name: "padded", value: " 2s ", want: 2 * time.Second},
		{name: "invalid", value: "soon", want: 3 * time.Second},
		{name: "negative", value: "-1s", want: 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, GetEnvDurationOrDefault("TEST_DURATION", 3*time.Second))
		})
	}
}

func TestGetEnvBoolOrDefault(t *testing.T) {
	t.Setenv("TEST_BOOL", "")
	assert.True(t, GetEnvBoolOrDefault("TEST_BOOL", true))

	t.Setenv("TEST_BOOL", "false")
	assert.False(t, GetEnvBoolOrDefault("TEST_BOOL", true))

	t.Setenv("TEST_BOOL", "maybe")
	assert.True(t, GetEnvBoolOrDefault("TEST_BOOL", true))
}

func TestGetEnvPositiveInt64OrDefault(t *testing.T) {
	t.Setenv("TEST_INT", "2048")
	assert.Equal(t, int64(2048), GetEnvPositiveInt64OrDefault("TEST_INT", 10))

	t.Setenv("TEST_INT", "0")
	assert.Equal(t, int64(10), GetEnvPositiveInt64OrDefault("TEST_INT", 10))

	t.Setenv("TEST_INT", "ten")
	assert.Equal(t, int64(10), GetEnvPositiveInt64OrDefault("TEST_INT", 10))
}

func TestTracingDefaults(t *testing.T) {
	t.Setenv("OTEL_TRACES_ENABLED", "")
	t.Setenv("OTEL_SERVICE_NAME", "")

	assert.False(t, IsTracingEnabled())
	assert.Equal(t, "caregiver-waitlist", OTelServiceName())
}
