//go:build !linux

// internal/transport/ble/ble_other.go
package ble

import (
	"context"

	"printer-bridge/internal/model"
	"printer-bridge/internal/transport"
)

// Open reports that MAC-addressed GATT connects are unavailable here
func (t *Transport) Open(_ context.Context, _ string) (transport.Session, error) {
	return nil, model.ErrNoRadioSupport
}
