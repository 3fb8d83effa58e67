// internal/discovery/scanner.go
package discovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"printer-bridge/internal/model"
)

// Scanner is one source of candidate printers
type Scanner interface {
	// Scan reports devices to found until done or ctx ends. Ending
	// through ctx is not an error.
	Scan(ctx context.Context, mode model.ScanMode, found func(model.Device)) error
	ScannerType() string
	Supports(mode model.ScanMode) bool
}

// ScannerManager runs registered scanners in registration order
type ScannerManager struct {
	mutex    sync.RWMutex
	scanners []Scanner
	timeout  time.Duration
	logger   *zap.Logger
}

// NewScannerManager creates a new scanner manager. timeout bounds one
// Discover call; zero leaves it to the caller's context.
func NewScannerManager(timeout time.Duration, logger *zap.Logger) *ScannerManager {
	return &ScannerManager{
		timeout: timeout,
		logger:  logger.With(zap.String("component", "discovery")),
	}
}

// RegisterScanner registers a device scanner
func (sm *ScannerManager) RegisterScanner(scanner Scanner) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.scanners = append(sm.scanners, scanner)
	sm.logger.Info("Scanner registered", zap.String("type", scanner.ScannerType()))
}

// ScannerTypes returns the registered scanner types for mode
func (sm *ScannerManager) ScannerTypes(mode model.ScanMode) []string {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	var types []string
	for _, s := range sm.scanners {
		if s.Supports(mode) {
			types = append(types, s.ScannerType())
		}
	}
	return types
}

// Discover runs every scanner that supports mode. A radio capability
// failure ends the scan and is returned; other scanner failures are
// logged and the remaining scanners still run.
func (sm *ScannerManager) Discover(ctx context.Context, mode model.ScanMode, found func(model.Device)) error {
	if sm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sm.timeout)
		defer cancel()
	}

	sm.mutex.RLock()
	scanners := append([]Scanner(nil), sm.scanners...)
	sm.mutex.RUnlock()

	for _, scanner := range scanners {
		if !scanner.Supports(mode) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		count := 0
		err := scanner.Scan(ctx, mode, func(d model.Device) {
			count++
			found(d)
		})
		if err != nil {
			if model.KindOf(err) == model.KindUnsupportedCapability {
				sm.logger.Warn("Scanner unavailable",
					zap.String("type", scanner.ScannerType()),
					zap.Error(err),
				)
				return err
			}
			sm.logger.Error("Scanner failed", zap.String("type", scanner.ScannerType()), zap.Error(err))
			continue
		}

		sm.logger.Info("Scanner completed",
			zap.String("type", scanner.ScannerType()),
			zap.Int("devices_found", count),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return nil
}
