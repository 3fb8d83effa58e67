// internal/transport/network/network.go
package network

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"printer-bridge/internal/config"
	"printer-bridge/internal/model"
	"printer-bridge/internal/transport"
)

// Prefix marks network printer addresses
const Prefix = "tcp:"

// Transport writes to printers that listen on a raw TCP port
type Transport struct {
	cfg    *config.NetworkConfig
	logger *zap.Logger
}

// NewTransport creates a network transport
func NewTransport(cfg *config.NetworkConfig, logger *zap.Logger) *Transport {
	return &Transport{
		cfg:    cfg,
		logger: logger.With(zap.String("transport", "network")),
	}
}

// Kind returns the transport kind
func (t *Transport) Kind() model.TransportKind {
	return model.TransportNetwork
}

// Endpoint turns "tcp:host[:port]" into host:port, filling in defaultPort
func Endpoint(address string, defaultPort int) (string, error) {
	rest := strings.TrimPrefix(strings.TrimSpace(address), Prefix)
	rest = strings.TrimPrefix(rest, "//")
	rest = strings.TrimSuffix(rest, "/")
	if rest == "" {
		return "", fmt.Errorf("missing host in %q", address)
	}

	host, port, err := net.SplitHostPort(rest)
	if err != nil {
		// No port, or a bare IPv6 literal
		host = strings.Trim(rest, "[]")
		port = strconv.Itoa(defaultPort)
	}
	if host == "" {
		return "", fmt.Errorf("missing host in %q", address)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("invalid port in %q", address)
	}
	return net.JoinHostPort(host, port), nil
}

// Open dials the printer
func (t *Transport) Open(ctx context.Context, address string) (transport.Session, error) {
	endpoint, err := Endpoint(address, t.cfg.Port)
	if err != nil {
		return nil, model.Wrap(model.ErrDeviceNotFound, "network.open", err)
	}

	t.logger.Info("Opening TCP connection",
		zap.String("endpoint", endpoint),
		zap.Bool("tls", t.cfg.TLS),
	)

	dialer := &net.Dialer{
		Timeout:   t.cfg.DialTimeout,
		KeepAlive: t.cfg.KeepAlive,
	}

	var conn net.Conn
	if t.cfg.TLS {
		host, _, _ := net.SplitHostPort(endpoint)
		td := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: host}}
		conn, err = td.DialContext(ctx, "tcp", endpoint)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", endpoint)
	}
	if err != nil {
		t.logger.Error("Failed to open TCP connection", zap.Error(err))
		return nil, classify(err)
	}

	s := &session{
		conn:   conn,
		frame:  t.cfg.FrameSize,
		logger: t.logger.With(zap.String("endpoint", endpoint)),
	}
	s.Opened(s.frame)

	t.logger.Info("TCP connection opened successfully")
	return s, nil
}

// classify maps dial failures onto error kinds
func classify(err error) error {
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return model.Wrap(model.ErrDeviceNotFound, "network.open", err)
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return model.Wrap(model.ErrDeviceNotFound, "network.open", err)
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return model.Wrap(model.ErrAccessDenied, "network.open", err)
	default:
		return model.Wrap(model.ErrConnectFailed, "network.open", err)
	}
}

type session struct {
	transport.StatsRecorder

	mutex  sync.Mutex
	conn   net.Conn
	frame  int
	logger *zap.Logger
	closed bool
}

func (s *session) MaxFrameSize() int {
	return s.frame
}

// WriteFrame honors the ctx deadline through the socket write deadline
func (s *session) WriteFrame(ctx context.Context, frame []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return fmt.Errorf("TCP connection not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, _ := ctx.Deadline()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	start := time.Now()
	n, err := s.conn.Write(frame)
	if err == nil && n != len(frame) {
		err = fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(frame))
	}
	s.Frame(n, time.Since(start), err)
	if err != nil {
		s.logger.Error("TCP write failed", zap.Error(err))
		return fmt.Errorf("failed to write to TCP connection: %w", err)
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

	if err := s.conn.Close(); err != nil {
		s.logger.Error("Failed to close TCP connection", zap.Error(err))
		return fmt.Errorf("failed to close TCP connection: %w", err)
	}
	s.logger.Info("TCP connection closed successfully")
	return nil
}
