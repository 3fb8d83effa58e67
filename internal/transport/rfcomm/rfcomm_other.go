//go:build !linux

// internal/transport/rfcomm/rfcomm_other.go
package rfcomm

import (
	"context"

	"printer-bridge/internal/model"
	"printer-bridge/internal/transport"
)

// Open reports that RFCOMM sockets are unavailable on this platform
func (t *Transport) Open(_ context.Context, _ string) (transport.Session, error) {
	return nil, model.ErrNoRadioSupport
}
