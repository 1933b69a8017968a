package portsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/rileyhilliard/portctl/internal/config"
	"github.com/rileyhilliard/portctl/internal/errors"
)

func TestMode(t *testing.T) {
	tests := []struct {
		name    string
		in      config.SerialConfig
		want    *serial.Mode
		wantErr bool
	}{
		{
			name: "9600 8N1",
			in:   config.SerialConfig{Rate: 9600, DataBits: 8, StopBits: 1, Parity: "none"},
			want: &serial.Mode{BaudRate: 9600, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
		},
		{
			name: "115200 7E2",
			in:   config.SerialConfig{Rate: 115200, DataBits: 7, StopBits: 2, Parity: "even"},
			want: &serial.Mode{BaudRate: 115200, DataBits: 7, Parity: serial.EvenParity, StopBits: serial.TwoStopBits},
		},
		{
			name: "one and a half stop bits",
			in:   config.SerialConfig{Rate: 4800, DataBits: 5, StopBits: 1.5, Parity: "mark"},
			want: &serial.Mode{BaudRate: 4800, DataBits: 5, Parity: serial.MarkParity, StopBits: serial.OnePointFiveStopBits},
		},
		{
			name:    "zero rate",
			in:      config.SerialConfig{Rate: 0, DataBits: 8, StopBits: 1, Parity: "none"},
			wantErr: true,
		},
		{
			name:    "nine data bits",
			in:      config.SerialConfig{Rate: 9600, DataBits: 9, StopBits: 1, Parity: "none"},
			wantErr: true,
		},
		{
			name:    "bad stop bits",
			in:      config.SerialConfig{Rate: 9600, DataBits: 8, StopBits: 3, Parity: "none"},
			wantErr: true,
		},
		{
			name:    "bad parity",
			in:      config.SerialConfig{Rate: 9600, DataBits: 8, StopBits: 1, Parity: "sometimes"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Mode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrSerial))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
