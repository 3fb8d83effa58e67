// internal/transport/factory/factory.go
package factory

import (
	"fmt"

	"go.uber.org/zap"

	"printer-bridge/internal/config"
	"printer-bridge/internal/discovery"
	"printer-bridge/internal/model"
	"printer-bridge/internal/transport"
	"printer-bridge/internal/transport/ble"
	"printer-bridge/internal/transport/network"
	"printer-bridge/internal/transport/rfcomm"
	"printer-bridge/internal/transport/serial"
	"printer-bridge/internal/transport/usb"
)

// CreateTransports builds every transport the configuration enables
func CreateTransports(cfg *config.Config, logger *zap.Logger) (*transport.Set, error) {
	wireless, err := createWireless(&cfg.Bluetooth, logger)
	if err != nil {
		return nil, err
	}

	wired, err := usb.NewTransport(&cfg.USB, logger)
	if err != nil {
		return nil, fmt.Errorf("usb transport: %w", err)
	}

	return &transport.Set{
		Wireless: wireless,
		Serial:   serial.NewTransport(&cfg.Serial, logger),
		Wired:    wired,
		Network:  network.NewTransport(&cfg.Network, logger),
	}, nil
}

func createWireless(cfg *config.BluetoothConfig, logger *zap.Logger) (transport.Transport, error) {
	switch cfg.Mode {
	case "ble":
		t, err := ble.NewTransport(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("ble transport: %w", err)
		}
		return t, nil
	case "rfcomm", "":
		return rfcomm.NewTransport(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported bluetooth mode: %s", cfg.Mode)
	}
}

// CreateScanners registers the scanners matching the wireless transport.
// Bonded devices and ttys come first so the open-ended advertisement
// scan does not starve them.
func CreateScanners(cfg *config.Config, set *transport.Set, logger *zap.Logger) *discovery.ScannerManager {
	kind := model.TransportRFCOMM
	if set.Wireless != nil {
		kind = set.Wireless.Kind()
	}

	sm := discovery.NewScannerManager(cfg.Bluetooth.ScanTimeout, logger)
	sm.RegisterScanner(discovery.NewPairedScanner(kind, logger))
	sm.RegisterScanner(discovery.NewSerialScanner(logger))
	sm.RegisterScanner(discovery.NewBLEScanner(kind, logger))
	return sm
}
