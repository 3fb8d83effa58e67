// internal/transport/usb/vendors.go
package usb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// VendorTable maps USB vendor IDs of receipt printer makers to a name
type VendorTable struct {
	vendors map[gousb.ID]string
}

// NewVendorTable returns the built-in vendors plus extra IDs in hex form
func NewVendorTable(extra []string) (*VendorTable, error) {
	t := &VendorTable{vendors: map[gousb.ID]string{
		0x04B8: "Seiko Epson",
		0x0519: "Star Micronics",
		0x1D90: "Citizen",
		0x2730: "Citizen",
		0x1504: "Bixolon",
		0x154F: "SNBC",
		0x0DD4: "Custom Engineering",
		0x0FE6: "ICS Advent",
		0x0416: "Winbond",
		0x0483: "STMicroelectronics",
		0x28E9: "GigaDevice",
		0x1FC9: "NXP",
		0x6868: "Zjiang",
	}}
	for _, raw := range extra {
		id, err := ParseHexID(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid vendor id %q: %w", raw, err)
		}
		if _, ok := t.vendors[id]; !ok {
			t.vendors[id] = "Vendor " + id.String()
		}
	}
	return t, nil
}

// IsKnownVendor reports whether id belongs to a receipt printer maker
func (t *VendorTable) IsKnownVendor(id gousb.ID) bool {
	_, ok := t.vendors[id]
	return ok
}

// Name returns the vendor name or "" when unknown
func (t *VendorTable) Name(id gousb.ID) string {
	return t.vendors[id]
}

// ParseHexID parses hex ID string (0x1234 or 1234)
func ParseHexID(hexStr string) (gousb.ID, error) {
	hexStr = strings.TrimSpace(hexStr)
	hexStr = strings.TrimPrefix(strings.TrimPrefix(hexStr, "0x"), "0X")

	id, err := strconv.ParseUint(hexStr, 16, 16)
	if err != nil {
		return 0, err
	}
	return gousb.ID(id), nil
}

// Address formats the identity used to reopen a device
func Address(vendor, product gousb.ID) string {
	return fmt.Sprintf("usb:%s:%s", vendor, product)
}

// ParseAddress splits an address produced by Address
func ParseAddress(address string) (vendor, product gousb.ID, err error) {
	parts := strings.Split(address, ":")
	if len(parts) != 3 || parts[0] != "usb" {
		return 0, 0, fmt.Errorf("malformed usb address %q", address)
	}
	if vendor, err = ParseHexID(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("invalid vendor ID: %w", err)
	}
	if product, err = ParseHexID(parts[2]); err != nil {
		return 0, 0, fmt.Errorf("invalid product ID: %w", err)
	}
	return vendor, product, nil
}
