//go:build linux

// internal/transport/rfcomm/rfcomm_linux.go
package rfcomm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"printer-bridge/internal/model"
	"printer-bridge/internal/transport"
)

const pollInterval = 100 * time.Millisecond

// sendTimeout maps the ctx deadline onto SO_SNDTIMEO. A zero value blocks
// indefinitely and clears a timeout left by an earlier write.
func sendTimeout(ctx context.Context) (unix.Timeval, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return unix.Timeval{}, nil
	}
	tv := unix.NsecToTimeval(time.Until(deadline).Nanoseconds())
	if tv.Sec < 0 || (tv.Sec == 0 && tv.Usec <= 0) {
		return unix.Timeval{}, context.DeadlineExceeded
	}
	return tv, nil
}

// Open connects to the printer's RFCOMM channel. The connect is
// non-blocking so ctx can abandon a peer that never answers.
func (t *Transport) Open(ctx context.Context, address string) (transport.Session, error) {
	bdaddr, err := BDAddr(address)
	if err != nil {
		return nil, model.Wrap(model.ErrDeviceNotFound, "rfcomm.open", err)
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM, unix.BTPROTO_RFCOMM)
	if err != nil {
		if errors.Is(err, unix.EAFNOSUPPORT) || errors.Is(err, unix.EPROTONOSUPPORT) {
			return nil, model.Wrap(model.ErrNoRadioSupport, "rfcomm.open", err)
		}
		return nil, model.Errorf(model.ErrConnectFailed, "rfcomm.open", "failed to create socket: %w", err)
	}

	t.logger.Info("Connecting RFCOMM socket",
		zap.String("address", address),
		zap.Int("channel", t.cfg.RFCOMMChannel),
	)

	if err := connect(ctx, fd, &unix.SockaddrRFCOMM{Addr: bdaddr, Channel: uint8(t.cfg.RFCOMMChannel)}); err != nil {
		unix.Close(fd)
		switch {
		case errors.Is(err, unix.EHOSTDOWN), errors.Is(err, unix.EHOSTUNREACH):
			return nil, model.Wrap(model.ErrDeviceNotFound, "rfcomm.open", err)
		case errors.Is(err, unix.ENETDOWN):
			return nil, model.Wrap(model.ErrRadioDisabled, "rfcomm.open", err)
		case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
			return nil, model.Wrap(model.ErrAccessDenied, "rfcomm.open", err)
		}
		return nil, model.Wrap(model.ErrConnectFailed, "rfcomm.open", err)
	}

	s := &session{
		fd:     fd,
		frame:  t.cfg.FrameSize,
		logger: t.logger.With(zap.String("address", address)),
	}
	s.Opened(s.frame)

	t.logger.Info("RFCOMM socket connected", zap.Int("fd", fd))
	return s, nil
}

func connect(ctx context.Context, fd int, sa unix.Sockaddr) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}

	err := unix.Connect(fd, sa)
	if err != nil && !errors.Is(err, unix.EINPROGRESS) && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("failed to connect: %w", err)
	}

	for err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, perr := unix.Poll(fds, int(pollInterval/time.Millisecond))
		if perr != nil {
			if errors.Is(perr, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll: %w", perr)
		}
		if n == 0 {
			continue
		}
		soErr, gerr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if gerr != nil {
			return fmt.Errorf("getsockopt: %w", gerr)
		}
		if soErr != 0 {
			return fmt.Errorf("failed to connect: %w", unix.Errno(soErr))
		}
		err = nil
	}

	return unix.SetNonblock(fd, false)
}

type session struct {
	transport.StatsRecorder

	mutex  sync.Mutex
	fd     int
	frame  int
	logger *zap.Logger
	closed bool
}

func (s *session) MaxFrameSize() int {
	return s.frame
}

func (s *session) WriteFrame(ctx context.Context, frame []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return fmt.Errorf("rfcomm socket closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tv, err := sendTimeout(ctx)
	if err != nil {
		return err
	}
	if err := unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv); err != nil {
		s.logger.Debug("Failed to set send timeout", zap.Error(err))
	}

	start := time.Now()
	written := 0
	for written < len(frame) {
		var n int
		n, err = unix.Write(s.fd, frame[written:])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				err = nil
				continue
			}
			break
		}
		written += n
	}
	s.Frame(written, time.Since(start), err)
	if err != nil {
		s.logger.Error("RFCOMM write failed", zap.Error(err))
		return fmt.Errorf("failed to write to rfcomm socket: %w", err)
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
	if err := unix.Close(s.fd); err != nil {
		return fmt.Errorf("failed to close rfcomm socket: %w", err)
	}
	s.logger.Info("RFCOMM socket closed")
	return nil
}
