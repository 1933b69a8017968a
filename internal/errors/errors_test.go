package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrBus,
		ErrServiceNotFound,
		ErrUnrecognizedEvent,
		ErrPayload,
		ErrSerial,
		ErrUI,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "config error",
			code:       ErrConfig,
			message:    "Invalid configuration in .portctl.yaml",
			suggestion: "Check your configuration file syntax",
		},
		{
			name:       "service not found",
			code:       ErrServiceNotFound,
			message:    "Service 'serial' is not registered",
			suggestion: "Start it with 'portctl serve serial'",
		},
		{
			name:       "no suggestion",
			code:       ErrPayload,
			message:    "Bad payload",
			suggestion: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)
			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)

			out := err.Error()
			assert.True(t, strings.HasPrefix(out, "✗ "+tt.message))
			if tt.suggestion != "" {
				assert.Contains(t, out, tt.suggestion)
			}
		})
	}
}

func TestWrapDefaultsToBusCode(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, "Publish failed")

	assert.Equal(t, ErrBus, err.Code)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, errors.Is(err, cause))
}

func TestWrapWithCode(t *testing.T) {
	cause := errors.New("redis: nil")
	err := WrapWithCode(cause, ErrServiceNotFound, "Service 'x' not found", "Check the name")

	assert.Equal(t, ErrServiceNotFound, err.Code)
	assert.Same(t, cause, err.Unwrap())

	out := err.Error()
	assert.Contains(t, out, "Service 'x' not found")
	assert.Contains(t, out, "redis: nil")
	assert.Contains(t, out, "Check the name")
}

func TestIsCode(t *testing.T) {
	structured := New(ErrUnrecognizedEvent, "unhandled method onBogus", "")

	assert.True(t, IsCode(structured, ErrUnrecognizedEvent))
	assert.False(t, IsCode(structured, ErrPayload))
	assert.False(t, IsCode(nil, ErrConfig))
	assert.False(t, IsCode(errors.New("plain"), ErrConfig))

	wrapped := fmt.Errorf("context: %w", structured)
	assert.True(t, IsCode(wrapped, ErrUnrecognizedEvent))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrSerial, CodeOf(New(ErrSerial, "bad parity", "")))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestSummary(t *testing.T) {
	wrapped := WrapWithCode(errors.New("EOF"), ErrBus, "Failed to send connect", "Check the bus")

	assert.Equal(t, "Failed to send connect", Summary(wrapped))
	assert.Equal(t, "Failed to send connect", Summary(fmt.Errorf("outer: %w", wrapped)))
	assert.Equal(t, "plain", Summary(errors.New("plain")))
	assert.Equal(t, "", Summary(nil))
}
