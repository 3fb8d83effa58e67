package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"printer-bridge/internal/config"
	"printer-bridge/internal/connection"
	"printer-bridge/internal/escpos"
	"printer-bridge/internal/model"
	"printer-bridge/internal/ticket"
	"printer-bridge/internal/transport"
)

type memorySession struct {
	transport.StatsRecorder
	mu  sync.Mutex
	buf bytes.Buffer

	// stall holds every frame until the write context ends
	stall bool
}

func (s *memorySession) WriteFrame(ctx context.Context, f []byte) error {
	if s.stall {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Write(f)
	return nil
}

func (s *memorySession) MaxFrameSize() int { return 16 }
func (s *memorySession) Close() error      { return nil }

type memoryTransport struct{ session *memorySession }

func (t *memoryTransport) Kind() model.TransportKind { return model.TransportSerial }

func (t *memoryTransport) Open(context.Context, string) (transport.Session, error) {
	return t.session, nil
}

func newTestService() (*PrinterService, *memorySession) {
	return newTestServiceWithConfig(config.PrinterConfig{WidthClass: 80, Encoding: "CP437", LineSpacing: 24})
}

func newTestServiceWithConfig(printer config.PrinterConfig) (*PrinterService, *memorySession) {
	session := &memorySession{}
	set := &transport.Set{Serial: &memoryTransport{session: session}}
	manager := connection.NewManager(set, nil, nil, connection.Options{}, zap.NewNop())
	cfg := &config.Config{Printer: printer}
	return NewPrinterService(manager, nil, cfg, zap.NewNop()), session
}

func hiJob(opts ticket.Options) ticket.Job {
	return ticket.Job{
		Items:   []ticket.Item{ticket.TextItem{Content: "Hi", Style: ticket.Style{Bold: true}}},
		Options: opts,
	}
}

func TestPrintRequiresConnection(t *testing.T) {
	svc, session := newTestService()

	_, err := svc.Print(context.Background(), hiJob(svc.Defaults()))
	if !errors.Is(err, model.ErrNotConnected) {
		t.Fatalf("Print() error = %v, want ErrNotConnected", err)
	}
	if session.buf.Len() != 0 {
		t.Error("bytes written while disconnected")
	}
}

func TestPrintWritesCompiledStream(t *testing.T) {
	svc, session := newTestService()
	if err := svc.Connect(context.Background(), "/dev/ttyUSB0"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	job := hiJob(svc.Defaults())
	want, err := svc.Compile(context.Background(), job)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	result, err := svc.Print(context.Background(), job)
	if err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	if result.Bytes != len(want) || result.Items != 1 {
		t.Errorf("result = %+v", result)
	}
	if !bytes.Equal(session.buf.Bytes(), want) {
		t.Errorf("written = % X\nwant      % X", session.buf.Bytes(), want)
	}
	// CP437 selector follows the reset
	if !bytes.HasPrefix(want, append(escpos.Initialize(), escpos.SetCodepage(0)...)) {
		t.Errorf("stream prefix = % X", want[:5])
	}
}

func TestPrintRejectsUnknownItem(t *testing.T) {
	svc, session := newTestService()
	if err := svc.Connect(context.Background(), "/dev/ttyUSB0"); err != nil {
		t.Fatal(err)
	}

	job := ticket.Job{Items: []ticket.Item{ticket.UnknownItem{Name: "barcode"}}, Options: svc.Defaults()}
	if _, err := svc.Print(context.Background(), job); !errors.Is(err, model.ErrCompile) {
		t.Fatalf("Print() error = %v, want ErrCompile", err)
	}
	if session.buf.Len() != 0 {
		t.Error("bytes written for a rejected job")
	}
	if !svc.IsConnected() {
		t.Error("compile error dropped the connection")
	}
}

func TestPrintOutlivesCancelledRequest(t *testing.T) {
	svc, session := newTestService()
	if err := svc.Connect(context.Background(), "/dev/ttyUSB0"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Print(ctx, hiJob(svc.Defaults())); err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	if session.buf.Len() == 0 {
		t.Error("nothing written for a request whose client went away")
	}
	if !svc.IsConnected() {
		t.Error("cancelled request destroyed the session")
	}
}

func TestPrintWriteTimeout(t *testing.T) {
	svc, session := newTestServiceWithConfig(config.PrinterConfig{WidthClass: 58, WriteTimeout: 20 * time.Millisecond})
	if err := svc.Connect(context.Background(), "/dev/ttyUSB0"); err != nil {
		t.Fatal(err)
	}
	session.stall = true

	_, err := svc.Print(context.Background(), hiJob(svc.Defaults()))
	if !errors.Is(err, model.ErrWriteFailed) {
		t.Fatalf("Print() error = %v, want ErrWriteFailed", err)
	}
	if svc.IsConnected() {
		t.Error("stalled session kept after write timeout")
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions(&config.PrinterConfig{WidthClass: 80, Encoding: "CP866", LineSpacing: 40, FeedLines: 3})
	want := ticket.Options{WidthClass: 80, Encoding: "CP866", LineSpacing: 40, FeedLines: 3}
	if opts != want {
		t.Errorf("DefaultOptions() = %+v, want %+v", opts, want)
	}

	fallback := DefaultOptions(&config.PrinterConfig{LineSpacing: 30})
	if fallback.WidthClass != 58 || fallback.Encoding != "UTF-8" {
		t.Errorf("fallback = %+v", fallback)
	}
}
