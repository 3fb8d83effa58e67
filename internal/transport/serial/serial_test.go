package serial

import (
	"testing"

	"go.bug.st/serial"

	"printer-bridge/internal/config"
)

func TestMode(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.SerialConfig
		wantStop   serial.StopBits
		wantParity serial.Parity
	}{
		{"defaults", config.SerialConfig{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "none"}, serial.OneStopBit, serial.NoParity},
		{"two stop bits", config.SerialConfig{BaudRate: 19200, DataBits: 8, StopBits: 2, Parity: "even"}, serial.TwoStopBits, serial.EvenParity},
		{"odd", config.SerialConfig{BaudRate: 115200, DataBits: 7, StopBits: 1, Parity: "odd"}, serial.OneStopBit, serial.OddParity},
		{"unknown parity", config.SerialConfig{BaudRate: 9600, DataBits: 8, Parity: "weird"}, serial.OneStopBit, serial.NoParity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Mode(&tt.cfg)
			if m.BaudRate != tt.cfg.BaudRate || m.DataBits != tt.cfg.DataBits {
				t.Errorf("mode = %+v", m)
			}
			if m.StopBits != tt.wantStop {
				t.Errorf("StopBits = %v, want %v", m.StopBits, tt.wantStop)
			}
			if m.Parity != tt.wantParity {
				t.Errorf("Parity = %v, want %v", m.Parity, tt.wantParity)
			}
		})
	}
}
