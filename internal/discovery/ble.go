// internal/discovery/ble.go
package discovery

import (
	"context"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"printer-bridge/internal/model"
	"printer-bridge/internal/transport/ble"
)

// BLEScanner listens for advertisements until its context ends
type BLEScanner struct {
	kind   model.TransportKind
	logger *zap.Logger
}

// NewBLEScanner creates an advertisement scanner. kind is the transport
// that found devices will be opened with.
func NewBLEScanner(kind model.TransportKind, logger *zap.Logger) *BLEScanner {
	return &BLEScanner{
		kind:   kind,
		logger: logger.With(zap.String("scanner", "ble")),
	}
}

// ScannerType returns scanner type identifier
func (s *BLEScanner) ScannerType() string {
	return "ble"
}

// Supports reports whether mode includes unbonded devices
func (s *BLEScanner) Supports(mode model.ScanMode) bool {
	return mode == model.ScanModeAll
}

// Scan blocks until ctx is done
func (s *BLEScanner) Scan(ctx context.Context, _ model.ScanMode, found func(model.Device)) error {
	adapter, err := ble.Adapter()
	if err != nil {
		return err
	}

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			if err := adapter.StopScan(); err != nil {
				s.logger.Debug("StopScan failed", zap.Error(err))
			}
		case <-finished:
		}
	}()

	err = adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		d := model.NewDevice(result.LocalName(), result.Address.String(), s.kind)
		rssi := result.RSSI
		d.RSSI = &rssi
		found(d)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if ble.IsNotReady(err) {
			return model.Wrap(model.ErrRadioDisabled, "ble.scan", err)
		}
		return err
	}
	return nil
}
