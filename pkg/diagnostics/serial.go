package diagnostics

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
)

const DefaultBaudRate = 115200

// SerialReporter writes status lines to a UART.
type SerialReporter struct {
	lock sync.Mutex
	port io.WriteCloser
	name string

	failures int
}

func OpenSerial(portName string, baud int) (*SerialReporter, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", portName)
	}
	return &SerialReporter{port: port, name: portName}, nil
}

func (r *SerialReporter) Report(s odometry.Status) {
	r.lock.Lock()
	defer r.lock.Unlock()

	_, err := io.WriteString(r.port, Format(s))
	if err != nil {
		r.failures++
		// Only complain occasionally; a disconnected cable would otherwise flood the log.
		if r.failures == 1 || r.failures%100 == 0 {
			fmt.Printf("Serial %s: write failed (%d failures): %v\n", r.name, r.failures, err)
		}
		return
	}
	r.failures = 0
}

func (r *SerialReporter) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.port.Close()
}
