// internal/transport/transport.go
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"printer-bridge/internal/model"
)

// Session is one open byte-stream channel to a printer
type Session interface {
	// WriteFrame sends a single frame no larger than MaxFrameSize
	WriteFrame(ctx context.Context, frame []byte) error

	// MaxFrameSize is the negotiated largest frame the channel accepts
	MaxFrameSize() int

	Close() error
	Stats() Stats
}

// Transport opens sessions over one physical channel kind
type Transport interface {
	Kind() model.TransportKind
	Open(ctx context.Context, address string) (Session, error)
}

// Discoverer reports devices to found until the scan finishes or ctx ends.
// found may be called from another goroutine and may repeat an address.
type Discoverer interface {
	Discover(ctx context.Context, mode model.ScanMode, found func(model.Device)) error
}

// Candidate is the wired device a probe settled on
type Candidate struct {
	Device     model.Device
	Accessible bool
}

// WiredTransport locates the single attached printer and reports whether
// this process may open it yet.
type WiredTransport interface {
	Transport
	Probe(ctx context.Context) (Candidate, error)
}

// Write splits data into frames of at most s.MaxFrameSize bytes and sends
// them in order. It returns the number of frames sent.
func Write(ctx context.Context, s Session, data []byte) (int, error) {
	size := s.MaxFrameSize()
	if size <= 0 {
		return 0, fmt.Errorf("invalid frame size %d", size)
	}

	frames := 0
	for off := 0; off < len(data); off += size {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		end := off + size
		if end > len(data) {
			end = len(data)
		}
		if err := s.WriteFrame(ctx, data[off:end]); err != nil {
			return frames, fmt.Errorf("frame %d at offset %d: %w", frames, off, err)
		}
		frames++
	}
	return frames, nil
}

// Stats provides session-level statistics
type Stats struct {
	BytesWritten   int64         `json:"bytes_written"`
	FrameCount     int64         `json:"frame_count"`
	ErrorCount     int64         `json:"error_count"`
	MaxFrameSize   int           `json:"max_frame_size"`
	OpenedAt       time.Time     `json:"opened_at"`
	LastActivity   time.Time     `json:"last_activity"`
	AverageLatency time.Duration `json:"average_latency"`
}

// StatsRecorder is embedded by sessions to track Stats safely
type StatsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

// Opened marks the session start and its frame size
func (r *StatsRecorder) Opened(frameSize int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.OpenedAt = time.Now()
	r.stats.LastActivity = r.stats.OpenedAt
	r.stats.MaxFrameSize = frameSize
}

// Frame records one frame write outcome
func (r *StatsRecorder) Frame(n int, latency time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.LastActivity = time.Now()
	if err != nil {
		r.stats.ErrorCount++
		return
	}
	r.stats.BytesWritten += int64(n)
	r.stats.FrameCount++
	if r.stats.AverageLatency == 0 {
		r.stats.AverageLatency = latency
	} else {
		r.stats.AverageLatency = (r.stats.AverageLatency + latency) / 2
	}
}

// Stats returns a snapshot
func (r *StatsRecorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
