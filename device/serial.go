package device

import (
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the rate the stock firmware listens at.
const DefaultBaudRate = 115200

// ErrNoPorts is returned by AutoPort when no serial devices are
// attached to the host.
var ErrNoPorts = errors.New("no serial ports found")

// AutoPort returns the name of the first serial port on the host.
func AutoPort() (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	if len(ports) == 0 {
		return "", ErrNoPorts
	}
	return ports[0], nil
}

// OpenSerial opens the named serial port at the given baud rate, or the
// first available port when name is empty.
func OpenSerial(name string, baud int) (io.ReadWriteCloser, error) {
	if name == "" {
		auto, err := AutoPort()
		if err != nil {
			return nil, err
		}
		name = auto
	}
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return port, nil
}
