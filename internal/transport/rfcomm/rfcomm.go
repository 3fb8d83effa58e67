// internal/transport/rfcomm/rfcomm.go
package rfcomm

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	"printer-bridge/internal/config"
	"printer-bridge/internal/model"
)

// Transport opens classic Bluetooth serial-port-profile sockets
type Transport struct {
	cfg    *config.BluetoothConfig
	logger *zap.Logger
}

// NewTransport creates an RFCOMM transport
func NewTransport(cfg *config.BluetoothConfig, logger *zap.Logger) *Transport {
	return &Transport{
		cfg:    cfg,
		logger: logger.With(zap.String("transport", "rfcomm")),
	}
}

// Kind returns the transport kind
func (t *Transport) Kind() model.TransportKind {
	return model.TransportRFCOMM
}

// BDAddr converts "AA:BB:CC:DD:EE:FF" to the little-endian
// byte order the kernel socket address expects.
func BDAddr(mac string) ([6]byte, error) {
	var b [6]byte
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return b, fmt.Errorf("invalid MAC address %s: %w", mac, err)
	}
	if len(hw) != 6 {
		return b, fmt.Errorf("MAC address must be 6 bytes, got %d", len(hw))
	}
	for i := 0; i < 6; i++ {
		b[i] = hw[5-i]
	}
	return b, nil
}
