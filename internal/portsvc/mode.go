package portsvc

import (
	"go.bug.st/serial"

	"github.com/rileyhilliard/portctl/internal/config"
	"github.com/rileyhilliard/portctl/internal/errors"
	"github.com/rileyhilliard/portctl/pkg/protocol"
)

var parities = map[string]serial.Parity{
	protocol.ParityNone:  serial.NoParity,
	protocol.ParityOdd:   serial.OddParity,
	protocol.ParityEven:  serial.EvenParity,
	protocol.ParityMark:  serial.MarkParity,
	protocol.ParitySpace: serial.SpaceParity,
}

var stopBits = map[float64]serial.StopBits{
	1:   serial.OneStopBit,
	1.5: serial.OnePointFiveStopBits,
	2:   serial.TwoStopBits,
}

// Mode validates the parameters of a connect request and converts them to
// the mode a port would be opened with.
func Mode(p config.SerialConfig) (*serial.Mode, error) {
	if err := config.ValidateSerial(p); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSerial,
			"Invalid serial parameters", "")
	}
	return &serial.Mode{
		BaudRate: p.Rate,
		DataBits: p.DataBits,
		Parity:   parities[p.Parity],
		StopBits: stopBits[p.StopBits],
	}, nil
}
