package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"printer-bridge/internal/model"
)

type fakeScanner struct {
	name    string
	modes   []model.ScanMode
	devices []model.Device
	err     error
	calls   int
}

func (f *fakeScanner) ScannerType() string { return f.name }

func (f *fakeScanner) Supports(mode model.ScanMode) bool {
	for _, m := range f.modes {
		if m == mode {
			return true
		}
	}
	return false
}

func (f *fakeScanner) Scan(_ context.Context, _ model.ScanMode, found func(model.Device)) error {
	f.calls++
	for _, d := range f.devices {
		found(d)
	}
	return f.err
}

func both() []model.ScanMode { return []model.ScanMode{model.ScanModePaired, model.ScanModeAll} }

func TestDiscoverRunsScannersForMode(t *testing.T) {
	sm := NewScannerManager(0, zap.NewNop())
	paired := &fakeScanner{name: "paired", modes: both(), devices: []model.Device{
		model.NewDevice("Printer", "aa:bb:cc:dd:ee:ff", model.TransportRFCOMM),
	}}
	radio := &fakeScanner{name: "ble", modes: []model.ScanMode{model.ScanModeAll}, devices: []model.Device{
		model.NewDevice("", "AA:BB:CC:DD:EE:FF", model.TransportRFCOMM),
		model.NewDevice("Other", "11:22:33:44:55:66", model.TransportRFCOMM),
	}}
	sm.RegisterScanner(paired)
	sm.RegisterScanner(radio)

	var got []model.Device
	if err := sm.Discover(context.Background(), model.ScanModePaired, func(d model.Device) { got = append(got, d) }); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(got) != 1 || radio.calls != 0 {
		t.Fatalf("paired scan got %d devices, ble calls %d", len(got), radio.calls)
	}

	got = nil
	if err := sm.Discover(context.Background(), model.ScanModeAll, func(d model.Device) { got = append(got, d) }); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("all scan reported %d devices, want 3 before dedupe", len(got))
	}
	if deduped := model.DedupeDevices(got); len(deduped) != 2 {
		t.Errorf("deduped = %d devices, want 2", len(deduped))
	}
}

func TestDiscoverStopsOnCapabilityError(t *testing.T) {
	sm := NewScannerManager(0, zap.NewNop())
	first := &fakeScanner{name: "ble", modes: both(), err: model.Wrap(model.ErrRadioDisabled, "scan", errors.New("off"))}
	second := &fakeScanner{name: "serial", modes: both()}
	sm.RegisterScanner(first)
	sm.RegisterScanner(second)

	err := sm.Discover(context.Background(), model.ScanModeAll, func(model.Device) {})
	if !errors.Is(err, model.ErrRadioDisabled) {
		t.Fatalf("Discover() error = %v, want ErrRadioDisabled", err)
	}
	if second.calls != 0 {
		t.Error("scanner after capability failure should not run")
	}
}

func TestDiscoverSkipsOtherFailures(t *testing.T) {
	sm := NewScannerManager(0, zap.NewNop())
	broken := &fakeScanner{name: "serial", modes: both(), err: errors.New("enumerate failed")}
	ok := &fakeScanner{name: "paired", modes: both(), devices: []model.Device{
		model.NewDevice("P", "11:22:33:44:55:66", model.TransportRFCOMM),
	}}
	sm.RegisterScanner(broken)
	sm.RegisterScanner(ok)

	count := 0
	if err := sm.Discover(context.Background(), model.ScanModePaired, func(model.Device) { count++ }); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestPairedDevices(t *testing.T) {
	objects := managedObjects{
		"/org/bluez/hci0": {
			bluezAdapter: {"Powered": dbus.MakeVariant(true)},
		},
		"/org/bluez/hci0/dev_AA": {
			bluezDevice: {
				"Address": dbus.MakeVariant("aa:bb:cc:dd:ee:ff"),
				"Alias":   dbus.MakeVariant("MTP-II"),
				"Paired":  dbus.MakeVariant(true),
				"RSSI":    dbus.MakeVariant(int16(-60)),
			},
		},
		"/org/bluez/hci0/dev_BB": {
			bluezDevice: {
				"Address": dbus.MakeVariant("11:22:33:44:55:66"),
				"Paired":  dbus.MakeVariant(false),
			},
		},
	}

	devices, err := pairedDevices(objects, model.TransportRFCOMM)
	if err != nil {
		t.Fatalf("pairedDevices() error = %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("got %d devices, want 1", len(devices))
	}
	d := devices[0]
	if d.Address != "AA:BB:CC:DD:EE:FF" || d.DisplayName != "MTP-II" || !d.Paired {
		t.Errorf("device = %+v", d)
	}
	if d.RSSI == nil || *d.RSSI != -60 {
		t.Errorf("RSSI = %v", d.RSSI)
	}
}

func TestPairedDevicesRadioState(t *testing.T) {
	if _, err := pairedDevices(managedObjects{}, model.TransportRFCOMM); !errors.Is(err, model.ErrNoRadioSupport) {
		t.Errorf("no adapter: error = %v", err)
	}

	off := managedObjects{"/org/bluez/hci0": {bluezAdapter: {"Powered": dbus.MakeVariant(false)}}}
	if _, err := pairedDevices(off, model.TransportRFCOMM); !errors.Is(err, model.ErrRadioDisabled) {
		t.Errorf("powered off: error = %v", err)
	}
}

func TestPairedDevicesUnnamed(t *testing.T) {
	objects := managedObjects{
		"/org/bluez/hci0": {bluezAdapter: {"Powered": dbus.MakeVariant(true)}},
		"/org/bluez/hci0/dev_CC": {bluezDevice: {
			"Address": dbus.MakeVariant("01:02:03:04:05:06"),
			"Paired":  dbus.MakeVariant(true),
		}},
	}
	devices, err := pairedDevices(objects, model.TransportBLE)
	if err != nil {
		t.Fatalf("pairedDevices() error = %v", err)
	}
	if devices[0].DisplayName != model.UnknownDeviceName {
		t.Errorf("DisplayName = %q", devices[0].DisplayName)
	}
	if devices[0].Transport != model.TransportBLE {
		t.Errorf("Transport = %s", devices[0].Transport)
	}
}

func TestSerialScanner(t *testing.T) {
	s := NewSerialScanner(zap.NewNop())
	s.list = func() ([]*enumerator.PortDetails, error) {
		return []*enumerator.PortDetails{
			{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0483", PID: "5740", Product: "POS58"},
			{Name: "/dev/ttyACM0", IsUSB: true, VID: "1A86", PID: "7523"},
			{Name: "/dev/ttyS0"},
			{Name: "/dev/rfcomm0"},
		}, nil
	}

	var got []model.Device
	if err := s.Scan(context.Background(), model.ScanModePaired, func(d model.Device) { got = append(got, d) }); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d devices, want 3: %+v", len(got), got)
	}
	if got[0].DisplayName != "POS58" || got[0].Address != "/dev/ttyUSB0" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].DisplayName != "USB serial 1a86:7523" {
		t.Errorf("second name = %q", got[1].DisplayName)
	}
	if got[2].Address != "/dev/rfcomm0" || got[2].Transport != model.TransportSerial {
		t.Errorf("third = %+v", got[2])
	}
}

func TestSerialScannerError(t *testing.T) {
	s := NewSerialScanner(zap.NewNop())
	s.list = func() ([]*enumerator.PortDetails, error) { return nil, errors.New("boom") }
	if err := s.Scan(context.Background(), model.ScanModeAll, func(model.Device) {}); err == nil {
		t.Fatal("expected error")
	}
}
