// internal/transport/ble/ble.go
package ble

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"printer-bridge/internal/config"
	"printer-bridge/internal/model"
)

// attHeader is the ATT opcode plus handle that every write spends out of the MTU
const attHeader = 3

var (
	adapterMu      sync.Mutex
	adapterEnabled bool
)

// Adapter enables the default adapter once and returns it.
// A host with no usable controller maps to ErrNoRadioSupport.
func Adapter() (*bluetooth.Adapter, error) {
	adapterMu.Lock()
	defer adapterMu.Unlock()

	if adapterEnabled {
		return bluetooth.DefaultAdapter, nil
	}
	if err := bluetooth.DefaultAdapter.Enable(); err != nil {
		return nil, model.Wrap(model.ErrNoRadioSupport, "ble.enable", err)
	}
	adapterEnabled = true
	return bluetooth.DefaultAdapter, nil
}

// IsNotReady reports whether err is the stack saying the radio is powered off
func IsNotReady(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "NotReady") || strings.Contains(msg, "powered off")
}

// Transport writes to a printer's GATT write characteristic
type Transport struct {
	cfg       *config.BluetoothConfig
	logger    *zap.Logger
	preferred []bluetooth.UUID
}

// NewTransport creates a BLE transport. Characteristics are tried in the
// configured order.
func NewTransport(cfg *config.BluetoothConfig, logger *zap.Logger) (*Transport, error) {
	preferred := make([]bluetooth.UUID, 0, len(cfg.WriteCharacteristics))
	for _, s := range cfg.WriteCharacteristics {
		u, err := ParseUUID(s)
		if err != nil {
			return nil, fmt.Errorf("invalid write characteristic %q: %w", s, err)
		}
		preferred = append(preferred, u)
	}
	return &Transport{
		cfg:       cfg,
		logger:    logger.With(zap.String("transport", "ble")),
		preferred: preferred,
	}, nil
}

// Kind returns the transport kind
func (t *Transport) Kind() model.TransportKind {
	return model.TransportBLE
}

// ParseUUID accepts 16-bit short forms ("2af1", "0x2AF1") and full UUIDs
func ParseUUID(s string) (bluetooth.UUID, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) == 4 {
		v, err := strconv.ParseUint(s, 16, 16)
		if err != nil {
			return bluetooth.UUID{}, err
		}
		return bluetooth.New16BitUUID(uint16(v)), nil
	}
	return bluetooth.ParseUUID(s)
}

// FrameSize is the payload a single write-without-response can carry
func FrameSize(mtu uint16, fallback int) int {
	if mtu <= attHeader {
		return fallback
	}
	size := int(mtu) - attHeader
	if fallback > 0 && size > fallback {
		return fallback
	}
	return size
}

// pick returns the first preferred UUID present in available
func pick(preferred []bluetooth.UUID, available []bluetooth.UUID) (int, bool) {
	for _, want := range preferred {
		for i, have := range available {
			if have == want {
				return i, true
			}
		}
	}
	return 0, false
}
