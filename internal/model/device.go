// internal/model/device.go
package model

import "strings"

// TransportKind identifies the physical channel a printer is reached over
type TransportKind string

const (
	TransportRFCOMM  TransportKind = "RFCOMM"
	TransportBLE     TransportKind = "BLE"
	TransportUSB     TransportKind = "USB"
	TransportSerial  TransportKind = "SERIAL"
	TransportNetwork TransportKind = "NETWORK"
)

// ScanMode selects which devices a scan reports
type ScanMode string

const (
	ScanModePaired ScanMode = "paired"
	ScanModeAll    ScanMode = "all"
)

// ParseScanMode normalizes a caller supplied mode. Anything but "all" is paired.
func ParseScanMode(s string) ScanMode {
	if strings.EqualFold(strings.TrimSpace(s), string(ScanModeAll)) {
		return ScanModeAll
	}
	return ScanModePaired
}

// UnknownDeviceName is reported for devices that do not advertise a name
const UnknownDeviceName = "Unknown"

// Device is a single discovery result
type Device struct {
	DisplayName string        `json:"display_name"`
	Address     string        `json:"address"`
	Transport   TransportKind `json:"transport"`
	RSSI        *int16        `json:"rssi,omitempty"`
	Paired      bool          `json:"paired"`
}

// NewDevice builds a Device, defaulting an empty name to UnknownDeviceName
func NewDevice(name, address string, kind TransportKind) Device {
	name = strings.TrimSpace(name)
	if name == "" {
		name = UnknownDeviceName
	}
	return Device{
		DisplayName: name,
		Address:     NormalizeAddress(address),
		Transport:   kind,
	}
}

// NormalizeAddress upper-cases MAC style addresses so the same radio
// reported by two providers compares equal.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if IsMAC(address) {
		return strings.ToUpper(address)
	}
	return address
}

// IsMAC reports whether s looks like a colon separated 48-bit address
func IsMAC(s string) bool {
	if len(s) != 17 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if i%3 == 2 {
			if s[i] != ':' {
				return false
			}
			continue
		}
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

// DedupeDevices keeps the first occurrence of each address, preserving order.
// A later duplicate only fills in a missing name or signal strength.
func DedupeDevices(devices []Device) []Device {
	seen := make(map[string]int, len(devices))
	result := make([]Device, 0, len(devices))
	for _, d := range devices {
		key := NormalizeAddress(d.Address)
		if key == "" {
			continue
		}
		if idx, ok := seen[key]; ok {
			if result[idx].DisplayName == UnknownDeviceName && d.DisplayName != UnknownDeviceName {
				result[idx].DisplayName = d.DisplayName
			}
			if result[idx].RSSI == nil && d.RSSI != nil {
				result[idx].RSSI = d.RSSI
			}
			result[idx].Paired = result[idx].Paired || d.Paired
			continue
		}
		d.Address = key
		seen[key] = len(result)
		result = append(result, d)
	}
	return result
}
