package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackName(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{TopicPortNames, CallbackPortNames},
		{TopicRefresh, CallbackRefresh},
		{TopicState, CallbackState},
		{TopicStats, CallbackStats},
		{"getPortNames", "onGetPortNames"},
		{"publish", "onPublish"},
		{"", "on"},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, CallbackName(tt.topic))
		})
	}
}

func TestSerialState_Connected(t *testing.T) {
	assert.False(t, SerialState{LastPortName: "/dev/ttyUSB0"}.Connected())
	assert.True(t, SerialState{ConnectedPortName: "/dev/ttyUSB0"}.Connected())
}

func TestSerialState_JSONFieldNames(t *testing.T) {
	raw, err := json.Marshal(SerialState{Name: "serial", ConnectedPortName: "/dev/ttyUSB0", LastPortName: "/dev/ttyUSB0"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "/dev/ttyUSB0", fields["connectedPortName"])
	assert.Equal(t, "/dev/ttyUSB0", fields["lastPortName"])
	assert.NotContains(t, fields, "rate")
}
