// internal/transport/usb/usb.go
package usb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"printer-bridge/internal/config"
	"printer-bridge/internal/model"
	"printer-bridge/internal/transport"
)

// Transport reaches a receipt printer over a USB bulk OUT endpoint
type Transport struct {
	cfg     *config.USBConfig
	vendors *VendorTable
	logger  *zap.Logger
}

// NewTransport creates a USB transport
func NewTransport(cfg *config.USBConfig, logger *zap.Logger) (*Transport, error) {
	vendors, err := NewVendorTable(cfg.Vendors)
	if err != nil {
		return nil, err
	}
	return &Transport{
		cfg:     cfg,
		vendors: vendors,
		logger:  logger.With(zap.String("transport", "usb")),
	}, nil
}

// Kind returns the transport kind
func (t *Transport) Kind() model.TransportKind {
	return model.TransportUSB
}

// isPrinter matches the printer class on the device or any interface,
// falling back to the vendor table for vendor-specific class devices.
func (t *Transport) isPrinter(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassPrinter {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}
	return t.vendors.IsKnownVendor(desc.Vendor)
}

// Probe finds the first attached printer and checks whether it can be opened.
// A device node this process may not open yields Accessible=false.
func (t *Transport) Probe(ctx context.Context) (transport.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return transport.Candidate{}, err
	}

	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	var matched []gousb.DeviceDesc
	devices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if !t.isPrinter(desc) {
			return false
		}
		matched = append(matched, *desc)
		return true
	})
	for _, d := range devices {
		d.Close()
	}

	if len(matched) == 0 {
		if err != nil {
			return transport.Candidate{}, model.Wrap(model.ErrNoDeviceFound, "usb.probe", err)
		}
		return transport.Candidate{}, model.ErrNoDeviceFound
	}
	if len(matched) > 1 {
		t.logger.Warn("Multiple matching USB devices found, using first one",
			zap.Int("count", len(matched)),
		)
	}

	desc := matched[0]
	candidate := transport.Candidate{
		Device:     t.describe(desc),
		Accessible: len(devices) > 0,
	}

	if !candidate.Accessible {
		if !errors.Is(err, gousb.ErrorAccess) {
			return transport.Candidate{}, model.Wrap(model.ErrConnectFailed, "usb.probe", err)
		}
		t.logger.Info("USB printer requires access grant",
			zap.String("address", candidate.Device.Address),
		)
	}
	return candidate, nil
}

func (t *Transport) describe(desc gousb.DeviceDesc) model.Device {
	name := t.vendors.Name(desc.Vendor)
	if name == "" {
		name = fmt.Sprintf("USB printer %s:%s", desc.Vendor, desc.Product)
	} else {
		name = fmt.Sprintf("%s %s", name, desc.Product)
	}
	return model.NewDevice(name, Address(desc.Vendor, desc.Product), model.TransportUSB)
}

// Open claims the printer's interface and locates its bulk OUT endpoint
func (t *Transport) Open(ctx context.Context, address string) (transport.Session, error) {
	vendorID, productID, err := ParseAddress(address)
	if err != nil {
		return nil, model.Wrap(model.ErrDeviceNotFound, "usb.open", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, model.Wrap(model.ErrConnectFailed, "usb.open", err)
	}

	t.logger.Info("Opening USB connection",
		zap.String("vendor_id", vendorID.String()),
		zap.String("product_id", productID.String()),
	)

	usbCtx := gousb.NewContext()

	device, err := t.findAndOpenDevice(usbCtx, vendorID, productID)
	if err != nil {
		usbCtx.Close()
		if errors.Is(err, gousb.ErrorAccess) {
			return nil, model.Wrap(model.ErrAccessDenied, "usb.open", err)
		}
		return nil, model.Wrap(model.ErrConnectFailed, "usb.open", err)
	}

	// usblp usually owns the interface on Linux
	if err := device.SetAutoDetach(true); err != nil {
		t.logger.Debug("Kernel driver auto-detach unavailable", zap.Error(err))
	}

	intf, done, err := device.DefaultInterface()
	if err != nil {
		device.Close()
		usbCtx.Close()
		return nil, model.Errorf(model.ErrConnectFailed, "usb.open", "failed to claim interface: %w", err)
	}

	epDesc, ok := bulkOut(intf.Setting)
	if !ok {
		done()
		device.Close()
		usbCtx.Close()
		return nil, model.Errorf(model.ErrConnectFailed, "usb.open", "no bulk out endpoint")
	}

	out, err := intf.OutEndpoint(epDesc.Number)
	if err != nil {
		done()
		device.Close()
		usbCtx.Close()
		return nil, model.Errorf(model.ErrConnectFailed, "usb.open", "failed to get out endpoint: %w", err)
	}

	frame := t.cfg.BulkTransferSize
	if frame <= 0 {
		frame = epDesc.MaxPacketSize
	}

	s := &session{
		usbCtx:  usbCtx,
		device:  device,
		done:    done,
		out:     out,
		frame:   frame,
		timeout: t.cfg.Timeout,
		logger:  t.logger.With(zap.String("address", address)),
	}
	s.Opened(frame)

	t.logger.Info("USB connection opened successfully",
		zap.Int("endpoint", epDesc.Number),
		zap.Int("frame_size", frame),
	)
	return s, nil
}

func (t *Transport) findAndOpenDevice(usbCtx *gousb.Context, vendorID, productID gousb.ID) (*gousb.Device, error) {
	devices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendorID && desc.Product == productID
	})
	if len(devices) == 0 {
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
		}
		return nil, fmt.Errorf("USB device not found (VID: %s, PID: %s)", vendorID, productID)
	}

	if len(devices) > 1 {
		for i := 1; i < len(devices); i++ {
			devices[i].Close()
		}
		t.logger.Warn("Multiple matching USB devices found, using first one")
	}
	return devices[0], nil
}

func bulkOut(setting gousb.InterfaceSetting) (gousb.EndpointDesc, bool) {
	for _, ep := range setting.Endpoints {
		if ep.Direction == gousb.EndpointDirectionOut && ep.TransferType == gousb.TransferTypeBulk {
			return ep, true
		}
	}
	return gousb.EndpointDesc{}, false
}

type session struct {
	transport.StatsRecorder

	mutex   sync.Mutex
	usbCtx  *gousb.Context
	device  *gousb.Device
	done    func()
	out     *gousb.OutEndpoint
	frame   int
	timeout time.Duration
	logger  *zap.Logger
	closed  bool
}

func (s *session) MaxFrameSize() int {
	return s.frame
}

func (s *session) WriteFrame(ctx context.Context, frame []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return fmt.Errorf("USB connection not open")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	n, err := s.out.WriteContext(ctx, frame)
	if err == nil && n != len(frame) {
		err = fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(frame))
	}
	s.Frame(n, time.Since(start), err)
	if err != nil {
		s.logger.Error("USB write failed", zap.Error(err))
		return fmt.Errorf("failed to write to USB device: %w", err)
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

	s.done()
	err := s.device.Close()
	if cerr := s.usbCtx.Close(); err == nil {
		err = cerr
	}
	s.logger.Info("USB connection closed")
	return err
}
