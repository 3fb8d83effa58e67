package network

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"printer-bridge/internal/config"
	"printer-bridge/internal/model"
	"printer-bridge/internal/transport"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		address string
		want    string
		wantErr bool
	}{
		{"tcp:192.168.1.50", "192.168.1.50:9100", false},
		{"tcp:192.168.1.50:515", "192.168.1.50:515", false},
		{"tcp://printer.local", "printer.local:9100", false},
		{"tcp:[fe80::1]:9100", "[fe80::1]:9100", false},
		{"tcp:fe80::1", "[fe80::1]:9100", false},
		{"tcp:", "", true},
		{"tcp:host:99999", "", true},
	}
	for _, tt := range tests {
		got, err := Endpoint(tt.address, 9100)
		if (err != nil) != tt.wantErr {
			t.Errorf("Endpoint(%q) error = %v, wantErr %v", tt.address, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Endpoint(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}

func TestOpenWriteClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("no loopback listener: %v", err)
	}
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	tr := NewTransport(&config.NetworkConfig{DialTimeout: time.Second, FrameSize: 4}, zap.NewNop())
	s, err := tr.Open(context.Background(), Prefix+ln.Addr().String())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	payload := []byte("\x1b@hello\n")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	frames, err := transport.Write(ctx, s, payload)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if frames != 2 {
		t.Errorf("frames = %d, want 2", frames)
	}
	if st := s.Stats(); st.BytesWritten != int64(len(payload)) {
		t.Errorf("stats bytes = %d", st.BytesWritten)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	select {
	case got := <-received:
		if !bytes.Equal(got, payload) {
			t.Errorf("printer got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("printer received nothing")
	}
}

func TestOpenRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("no loopback listener: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	tr := NewTransport(&config.NetworkConfig{DialTimeout: time.Second, FrameSize: 4}, zap.NewNop())
	_, err = tr.Open(context.Background(), Prefix+addr)
	if model.KindOf(err) != model.KindConnectFailed {
		t.Errorf("Open() error = %v, want ConnectFailed", err)
	}
}

func TestOpenBadAddress(t *testing.T) {
	tr := NewTransport(&config.NetworkConfig{Port: 9100, FrameSize: 4}, zap.NewNop())
	_, err := tr.Open(context.Background(), "tcp:")
	if model.KindOf(err) != model.KindNotFound {
		t.Errorf("Open() error = %v, want NotFound", err)
	}
}
