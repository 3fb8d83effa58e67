// internal/discovery/serial.go
package discovery

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"printer-bridge/internal/model"
)

// SerialScanner lists USB-serial adapters and bound rfcomm ttys
type SerialScanner struct {
	logger *zap.Logger
	list   func() ([]*enumerator.PortDetails, error)
}

// NewSerialScanner creates a serial port scanner
func NewSerialScanner(logger *zap.Logger) *SerialScanner {
	return &SerialScanner{
		logger: logger.With(zap.String("scanner", "serial")),
		list:   enumerator.GetDetailedPortsList,
	}
}

// ScannerType returns scanner type identifier
func (s *SerialScanner) ScannerType() string {
	return "serial"
}

// Supports reports true for every mode
func (s *SerialScanner) Supports(model.ScanMode) bool {
	return true
}

// Scan enumerates ports once
func (s *SerialScanner) Scan(ctx context.Context, _ model.ScanMode, found func(model.Device)) error {
	ports, err := s.list()
	if err != nil {
		return fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	for _, p := range ports {
		if ctx.Err() != nil {
			return nil
		}
		if d, ok := serialDevice(p); ok {
			found(d)
		} else {
			s.logger.Debug("Skipping serial port", zap.String("port", p.Name))
		}
	}
	return nil
}

// serialDevice keeps ports that can plausibly reach a printer. Onboard
// UARTs that enumerate without hardware behind them are dropped.
func serialDevice(p *enumerator.PortDetails) (model.Device, bool) {
	base := filepath.Base(p.Name)
	switch {
	case p.IsUSB:
		name := p.Product
		if name == "" {
			name = fmt.Sprintf("USB serial %s:%s", strings.ToLower(p.VID), strings.ToLower(p.PID))
		}
		return model.NewDevice(name, p.Name, model.TransportSerial), true
	case strings.HasPrefix(base, "rfcomm"):
		return model.NewDevice(base, p.Name, model.TransportSerial), true
	}
	return model.Device{}, false
}
