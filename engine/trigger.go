package engine

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Trigger marks stimulus onsets on an external recorder.
type Trigger interface {
	Pulse(code byte) error
	Close() error
}

// SerialTrigger writes one code byte per onset followed by a zero byte that
// clears the recorder's trigger lines.
type SerialTrigger struct {
	port io.WriteCloser
}

func OpenSerialTrigger(device string, baudrate int) (*SerialTrigger, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open trigger port %s: %w", device, err)
	}
	return &SerialTrigger{port: port}, nil
}

func (t *SerialTrigger) Pulse(code byte) error {
	if _, err := t.port.Write([]byte{code}); err != nil {
		return fmt.Errorf("write trigger %d: %w", code, err)
	}
	if _, err := t.port.Write([]byte{0}); err != nil {
		return fmt.Errorf("reset trigger: %w", err)
	}
	return nil
}

func (t *SerialTrigger) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
