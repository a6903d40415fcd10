package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const chunkBufferLength = 16

// ErrModemClosed is returned by Start when the port reaches EOF.
var ErrModemClosed = errors.New("modem: port closed")

// Port is the minimal interface needed from a serial port.
type Port interface {
	io.ReadWriter
	io.Closer
}

// OpenSerial opens an MMDVM modem on a serial device.
func OpenSerial(path string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open modem %s: %w", path, err)
	}
	return port, nil
}

type Modem struct {
	port   Port
	reader *FrameReader
	chunks chan []byte
	logger zerolog.Logger

	mu     sync.Mutex
	outBuf []byte
}

type ModemOption func(m *Modem)

func WithLogger(logger zerolog.Logger) ModemOption {
	return func(m *Modem) {
		m.logger = logger
	}
}

func NewModem(port Port, opts ...ModemOption) *Modem {
	m := &Modem{
		port:   port,
		reader: NewFrameReader(port),
		chunks: make(chan []byte, chunkBufferLength),
		logger: log.Logger,
		outBuf: make([]byte, 0, MaxFrameLength),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Chunks returns tagged FM chunks read from the modem.
func (m *Modem) Chunks() <-chan []byte {
	return m.chunks
}

// Start reads frames until ctx ends or the port fails. A port reaching EOF
// returns ErrModemClosed.
func (m *Modem) Start(ctx context.Context) error {
	for {
		frame, err := m.reader.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				m.logger.Warn().Msg("modem port closed")
				return ErrModemClosed
			}
			return fmt.Errorf("read modem frame: %w", err)
		}

		chunk, ok := frame.Tagged()
		if !ok {
			m.logger.Debug().Uint8("type", frame.Type).Int("length", len(frame.Payload)).Msg("ignoring modem frame")
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case m.chunks <- chunk:
		}
	}
}

// WriteFMData sends packed FM audio to the modem.
func (m *Modem) WriteFMData(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, err := AppendFrame(m.outBuf[:0], TypeFMData, data)
	if err != nil {
		return err
	}
	if _, err := m.port.Write(buf); err != nil {
		return fmt.Errorf("write modem frame: %w", err)
	}
	return nil
}

func (m *Modem) Close() error {
	return m.port.Close()
}
