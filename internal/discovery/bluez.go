// internal/discovery/bluez.go
package discovery

import (
	"context"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"printer-bridge/internal/model"
)

const (
	bluezService     = "org.bluez"
	bluezAdapter     = "org.bluez.Adapter1"
	bluezDevice      = "org.bluez.Device1"
	getManagedObject = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
)

type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// PairedScanner lists devices bonded through the system Bluetooth daemon
type PairedScanner struct {
	kind   model.TransportKind
	logger *zap.Logger
}

// NewPairedScanner creates a bonded-device scanner
func NewPairedScanner(kind model.TransportKind, logger *zap.Logger) *PairedScanner {
	return &PairedScanner{
		kind:   kind,
		logger: logger.With(zap.String("scanner", "paired")),
	}
}

// ScannerType returns scanner type identifier
func (s *PairedScanner) ScannerType() string {
	return "paired"
}

// Supports reports true for every mode; bonded devices are part of "all"
func (s *PairedScanner) Supports(model.ScanMode) bool {
	return true
}

// Scan queries the daemon's object tree once
func (s *PairedScanner) Scan(ctx context.Context, _ model.ScanMode, found func(model.Device)) error {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return model.Wrap(model.ErrNoRadioSupport, "paired.scan", err)
	}
	defer conn.Close()

	var objects managedObjects
	call := conn.Object(bluezService, "/").CallWithContext(ctx, getManagedObject, 0)
	if err := call.Store(&objects); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return model.Wrap(model.ErrNoRadioSupport, "paired.scan", err)
	}

	devices, err := pairedDevices(objects, s.kind)
	if err != nil {
		return err
	}
	for _, d := range devices {
		found(d)
	}
	return nil
}

// pairedDevices extracts bonded devices, failing when no adapter exists
// or every adapter is powered off.
func pairedDevices(objects managedObjects, kind model.TransportKind) ([]model.Device, error) {
	adapters, powered := 0, 0
	for _, ifaces := range objects {
		props, ok := ifaces[bluezAdapter]
		if !ok {
			continue
		}
		adapters++
		if on, _ := props["Powered"].Value().(bool); on {
			powered++
		}
	}
	if adapters == 0 {
		return nil, model.ErrNoRadioSupport
	}
	if powered == 0 {
		return nil, model.ErrRadioDisabled
	}

	var devices []model.Device
	for _, ifaces := range objects {
		props, ok := ifaces[bluezDevice]
		if !ok {
			continue
		}
		if paired, _ := props["Paired"].Value().(bool); !paired {
			continue
		}
		address, _ := props["Address"].Value().(string)
		if address == "" {
			continue
		}
		name, _ := props["Alias"].Value().(string)
		if name == "" {
			name, _ = props["Name"].Value().(string)
		}

		d := model.NewDevice(name, address, kind)
		d.Paired = true
		if rssi, ok := props["RSSI"].Value().(int16); ok {
			d.RSSI = &rssi
		}
		devices = append(devices, d)
	}
	return devices, nil
}
