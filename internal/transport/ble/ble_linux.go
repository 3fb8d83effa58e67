//go:build linux

// internal/transport/ble/ble_linux.go
package ble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"printer-bridge/internal/model"
	"printer-bridge/internal/transport"
)

// Open connects to address and locates a write characteristic
func (t *Transport) Open(ctx context.Context, address string) (transport.Session, error) {
	mac, err := bluetooth.ParseMAC(address)
	if err != nil {
		return nil, model.Wrap(model.ErrDeviceNotFound, "ble.open", err)
	}

	adapter, err := Adapter()
	if err != nil {
		return nil, err
	}

	t.logger.Info("Connecting BLE device", zap.String("address", address))

	type result struct {
		device bluetooth.Device
		err    error
	}
	done := make(chan result, 1)
	go func() {
		d, err := adapter.Connect(bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}, bluetooth.ConnectionParams{})
		done <- result{d, err}
	}()

	var device bluetooth.Device
	select {
	case r := <-done:
		if r.err != nil {
			if IsNotReady(r.err) {
				return nil, model.Wrap(model.ErrRadioDisabled, "ble.open", r.err)
			}
			return nil, model.Wrap(model.ErrConnectFailed, "ble.open", r.err)
		}
		device = r.device
	case <-ctx.Done():
		// the connect may still land; drop it when it does
		go func() {
			if r := <-done; r.err == nil {
				r.device.Disconnect()
			}
		}()
		return nil, model.Wrap(model.ErrConnectFailed, "ble.open", ctx.Err())
	}

	char, err := t.locate(device)
	if err != nil {
		device.Disconnect()
		return nil, model.Wrap(model.ErrConnectFailed, "ble.open", err)
	}

	mtu, err := char.GetMTU()
	if err != nil {
		t.logger.Debug("MTU unavailable, using configured frame size", zap.Error(err))
	}
	frame := FrameSize(mtu, t.cfg.FrameSize)

	s := &session{
		device: device,
		char:   char,
		frame:  frame,
		logger: t.logger.With(zap.String("address", address)),
	}
	s.Opened(frame)

	t.logger.Info("BLE device connected",
		zap.String("characteristic", char.UUID().String()),
		zap.Int("frame_size", frame),
	)
	return s, nil
}

func (t *Transport) locate(device bluetooth.Device) (bluetooth.DeviceCharacteristic, error) {
	services, err := device.DiscoverServices(nil)
	if err != nil {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("failed to discover services: %w", err)
	}

	var chars []bluetooth.DeviceCharacteristic
	var uuids []bluetooth.UUID
	for _, svc := range services {
		cs, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			t.logger.Debug("Characteristic discovery failed",
				zap.String("service", svc.UUID().String()),
				zap.Error(err),
			)
			continue
		}
		for _, c := range cs {
			chars = append(chars, c)
			uuids = append(uuids, c.UUID())
		}
	}

	i, ok := pick(t.preferred, uuids)
	if !ok {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("no writable characteristic among %d discovered", len(chars))
	}
	return chars[i], nil
}

type session struct {
	transport.StatsRecorder

	mutex  sync.Mutex
	device bluetooth.Device
	char   bluetooth.DeviceCharacteristic
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
		return fmt.Errorf("ble device disconnected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	n, err := s.char.WriteWithoutResponse(frame)
	s.Frame(n, time.Since(start), err)
	if err != nil {
		s.logger.Error("BLE write failed", zap.Error(err))
		return fmt.Errorf("failed to write characteristic: %w", err)
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
	if err := s.device.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	s.logger.Info("BLE device disconnected")
	return nil
}
