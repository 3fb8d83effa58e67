// internal/transport/serial/serial.go
package serial

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"printer-bridge/internal/config"
	"printer-bridge/internal/model"
	"printer-bridge/internal/transport"
)

// Transport writes to a printer behind a tty device node. Bound RFCOMM
// ports (/dev/rfcomm*) and USB-serial adapters both land here.
type Transport struct {
	cfg    *config.SerialConfig
	logger *zap.Logger
}

// NewTransport creates a serial transport
func NewTransport(cfg *config.SerialConfig, logger *zap.Logger) *Transport {
	return &Transport{
		cfg:    cfg,
		logger: logger.With(zap.String("transport", "serial")),
	}
}

// Kind returns the transport kind
func (t *Transport) Kind() model.TransportKind {
	return model.TransportSerial
}

// Mode builds the port mode from configuration
func Mode(cfg *config.SerialConfig) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}

	switch cfg.StopBits {
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	switch cfg.Parity {
	case "odd":
		mode.Parity = serial.OddParity
	case "even":
		mode.Parity = serial.EvenParity
	case "mark":
		mode.Parity = serial.MarkParity
	case "space":
		mode.Parity = serial.SpaceParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode
}

// Open opens the tty at address
func (t *Transport) Open(ctx context.Context, address string) (transport.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.Wrap(model.ErrConnectFailed, "serial.open", err)
	}

	t.logger.Info("Opening serial port",
		zap.String("port", address),
		zap.Int("baud_rate", t.cfg.BaudRate),
	)

	port, err := serial.Open(address, Mode(t.cfg))
	if err != nil {
		t.logger.Error("Failed to open serial port", zap.Error(err))
		if pe, ok := err.(*serial.PortError); ok {
			switch pe.Code() {
			case serial.PortNotFound:
				return nil, model.Wrap(model.ErrDeviceNotFound, "serial.open", err)
			case serial.PermissionDenied:
				return nil, model.Wrap(model.ErrAccessDenied, "serial.open", err)
			}
		}
		return nil, model.Wrap(model.ErrConnectFailed, "serial.open", err)
	}

	s := &session{
		port:   port,
		frame:  t.cfg.FrameSize,
		logger: t.logger.With(zap.String("port", address)),
	}
	s.Opened(s.frame)

	t.logger.Info("Serial port opened successfully")
	return s, nil
}

type session struct {
	transport.StatsRecorder

	mutex  sync.Mutex
	port   serial.Port
	frame  int
	logger *zap.Logger
	closed bool
}

func (s *session) MaxFrameSize() int {
	return s.frame
}

func (s *session) WriteFrame(ctx context.Context, frame []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return fmt.Errorf("serial port not open")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	start := time.Now()
	n, err := s.port.Write(frame)
	if err == nil && n != len(frame) {
		err = fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(frame))
	}
	if err == nil {
		err = s.port.Drain()
	}
	s.Frame(n, time.Since(start), err)
	if err != nil {
		s.logger.Error("Serial write failed", zap.Error(err))
		return fmt.Errorf("failed to write to serial port: %w", err)
	}
	return nil
}

func (s *session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.port.Close(); err != nil {
		s.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	s.logger.Info("Serial port closed successfully")
	return nil
}
