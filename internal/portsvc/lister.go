package portsvc

import (
	"fmt"
	"runtime"
	"sort"

	"go.bug.st/serial/enumerator"

	"github.com/rileyhilliard/portctl/internal/errors"
)

// PortLister enumerates the serial port names a service can offer.
type PortLister interface {
	List() ([]string, error)
}

// ListerFunc adapts a function to PortLister.
type ListerFunc func() ([]string, error)

// List implements PortLister.
func (f ListerFunc) List() ([]string, error) {
	return f()
}

// StaticLister always returns the same names.
type StaticLister []string

// List implements PortLister.
func (s StaticLister) List() ([]string, error) {
	return append([]string(nil), s...), nil
}

// PortInfo describes one local serial port.
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
	Product      string `json:"product,omitempty"`
}

// PortDescriber is a PortLister that can also report port details.
type PortDescriber interface {
	PortLister
	Describe() ([]PortInfo, error)
}

// Describe reports details for the ports of l. Listers that only know names
// yield entries with just the name set.
func Describe(l PortLister) ([]PortInfo, error) {
	if d, ok := l.(PortDescriber); ok {
		return d.Describe()
	}
	names, err := l.List()
	if err != nil {
		return nil, err
	}
	infos := make([]PortInfo, len(names))
	for i, n := range names {
		infos[i] = PortInfo{Name: n}
	}
	return infos, nil
}

// SystemLister enumerates the ports of this machine. When the OS reports
// none it falls back to the device names common on the platform.
type SystemLister struct{}

// List implements PortLister.
func (l SystemLister) List() ([]string, error) {
	infos, err := l.Describe()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, p := range infos {
		names[i] = p.Name
	}
	return names, nil
}

// Describe implements PortDescriber.
func (SystemLister) Describe() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSerial,
			"Failed to enumerate serial ports",
			"Check that you have permission to list serial devices")
	}

	infos := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		infos = append(infos, PortInfo{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	if len(infos) == 0 {
		for _, n := range CommonPorts(runtime.GOOS) {
			infos = append(infos, PortInfo{Name: n})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// CommonPorts returns the usual serial device names for goos.
func CommonPorts(goos string) []string {
	switch goos {
	case "windows":
		ports := make([]string, 0, 20)
		for i := 1; i <= 20; i++ {
			ports = append(ports, fmt.Sprintf("COM%d", i))
		}
		return ports
	case "linux":
		return []string{
			"/dev/ttyACM0", "/dev/ttyACM1", "/dev/ttyACM2", "/dev/ttyACM3",
			"/dev/ttyS0", "/dev/ttyS1", "/dev/ttyS2", "/dev/ttyS3",
			"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB2", "/dev/ttyUSB3",
		}
	case "darwin":
		return []string{
			"/dev/cu.SLAB_USBtoUART", "/dev/cu.usbmodem", "/dev/cu.usbserial",
			"/dev/tty.SLAB_USBtoUART", "/dev/tty.usbmodem", "/dev/tty.usbserial",
		}
	default:
		return []string{}
	}
}
