// internal/service/printer_service.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"printer-bridge/internal/config"
	"printer-bridge/internal/connection"
	"printer-bridge/internal/model"
	"printer-bridge/internal/ticket"
	"printer-bridge/internal/utils"
)

// PrinterService exposes the caller operations over the connection manager
// and the ticket compiler
type PrinterService struct {
	manager      *connection.Manager
	compiler     *ticket.Compiler
	fetcher      ticket.ImageFetcher
	defaults     ticket.Options
	writeTimeout time.Duration
	logger       *utils.ServiceLogger
}

// PrintResult describes a completed print
type PrintResult struct {
	Bytes    int           `json:"bytes"`
	Items    int           `json:"items"`
	Duration time.Duration `json:"duration"`
}

// NewPrinterService creates a new printer service instance
func NewPrinterService(manager *connection.Manager, fetcher ticket.ImageFetcher, cfg *config.Config, logger *zap.Logger) *PrinterService {
	return &PrinterService{
		manager:      manager,
		compiler:     ticket.NewCompiler(logger, cfg.Image.MaxPixels),
		fetcher:      fetcher,
		defaults:     DefaultOptions(&cfg.Printer),
		writeTimeout: cfg.Printer.WriteTimeout,
		logger:       utils.NewServiceLogger(logger, "printer-service"),
	}
}

// DefaultOptions maps printer configuration onto job options
func DefaultOptions(cfg *config.PrinterConfig) ticket.Options {
	opts := ticket.DefaultOptions()
	if cfg.WidthClass > 0 {
		opts.WidthClass = cfg.WidthClass
	}
	if cfg.Encoding != "" {
		opts.Encoding = cfg.Encoding
	}
	opts.LineSpacing = cfg.LineSpacing
	opts.FeedLines = cfg.FeedLines
	return opts
}

// Defaults returns the options applied to fields a job leaves out
func (ps *PrinterService) Defaults() ticket.Options {
	return ps.defaults
}

// ScanDevices discovers printers
func (ps *PrinterService) ScanDevices(ctx context.Context, mode model.ScanMode) ([]model.Device, error) {
	return ps.manager.Scan(ctx, mode)
}

// StopScan ends an in-flight scan with the devices found so far
func (ps *PrinterService) StopScan() bool {
	return ps.manager.StopScan()
}

// Connect opens the wireless or tty printer at address
func (ps *PrinterService) Connect(ctx context.Context, address string) error {
	return ps.manager.Connect(ctx, address)
}

// ConnectAlternateTransport connects the sole wired printer and returns its identifier
func (ps *PrinterService) ConnectAlternateTransport(ctx context.Context) (string, error) {
	return ps.manager.ConnectWired(ctx)
}

// Disconnect always succeeds
func (ps *PrinterService) Disconnect() {
	ps.manager.Disconnect()
}

// IsConnected reports whether a print would be accepted
func (ps *PrinterService) IsConnected() bool {
	return ps.manager.IsConnected()
}

// Status returns the link snapshot
func (ps *PrinterService) Status() connection.Status {
	return ps.manager.Status()
}

// PendingAccess lists wired connects waiting for a grant
func (ps *PrinterService) PendingAccess() []connection.AccessRequest {
	return ps.manager.PendingAccess()
}

// ResolveAccess grants or denies a pending wired connect
func (ps *PrinterService) ResolveAccess(token string, granted bool) error {
	return ps.manager.ResolveAccess(token, granted)
}

// Compile resolves remote images and renders job without touching the printer
func (ps *PrinterService) Compile(ctx context.Context, job ticket.Job) ([]byte, error) {
	resolved := ticket.ResolveImages(ctx, job, ps.fetcher, ps.logger.Logger)
	return ps.compiler.Compile(resolved)
}

// Print compiles job and writes it in one piece. Nothing is fetched or
// compiled while no printer is connected.
func (ps *PrinterService) Print(ctx context.Context, job ticket.Job) (*PrintResult, error) {
	start := time.Now()

	if !ps.manager.IsConnected() {
		return nil, model.ErrNotConnected
	}

	data, err := ps.Compile(ctx, job)
	if err != nil {
		ps.logger.Warn("Print job rejected", zap.Error(err))
		return nil, err
	}

	// a caller going away must not cut the stream and destroy the session;
	// only write_timeout bounds the write
	writeCtx := context.WithoutCancel(ctx)
	if ps.writeTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(writeCtx, ps.writeTimeout)
		defer cancel()
	}

	if err := ps.manager.Write(writeCtx, data); err != nil {
		return nil, err
	}

	result := &PrintResult{
		Bytes:    len(data),
		Items:    len(job.Items),
		Duration: time.Since(start),
	}
	ps.logger.Info("Print job sent",
		zap.Int("bytes", result.Bytes),
		zap.Int("items", result.Items),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}
