// internal/transport/set.go
package transport

import (
	"strings"

	"printer-bridge/internal/model"
)

// Set holds the transports the process was configured with
type Set struct {
	Wireless Transport
	Serial   Transport
	Wired    WiredTransport
	Network  Transport
}

// ForAddress picks the transport an address belongs to. MAC addresses
// go over the radio, "usb:" identifiers over USB and "tcp:" endpoints
// over the network. Anything else is treated as a tty path.
func (s *Set) ForAddress(address string) (Transport, error) {
	address = strings.TrimSpace(address)
	switch {
	case address == "":
		return nil, model.Errorf(model.ErrDeviceNotFound, "transport.select", "empty address")
	case model.IsMAC(address):
		if s.Wireless == nil {
			return nil, model.ErrNoRadioSupport
		}
		return s.Wireless, nil
	case strings.HasPrefix(address, "usb:"):
		if s.Wired == nil {
			return nil, model.Errorf(model.ErrDeviceNotFound, "transport.select", "usb transport unavailable")
		}
		return s.Wired, nil
	case strings.HasPrefix(address, "tcp:"):
		if s.Network == nil {
			return nil, model.Errorf(model.ErrDeviceNotFound, "transport.select", "network transport unavailable")
		}
		return s.Network, nil
	default:
		if s.Serial == nil {
			return nil, model.Errorf(model.ErrDeviceNotFound, "transport.select", "serial transport unavailable")
		}
		return s.Serial, nil
	}
}
