package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Printer.WidthClass != 58 {
		t.Errorf("width_class = %d, want 58", cfg.Printer.WidthClass)
	}
	if cfg.Printer.LineSpacing != 30 {
		t.Errorf("line_spacing = %d, want 30", cfg.Printer.LineSpacing)
	}
	if cfg.Bluetooth.ScanTimeout != 12*time.Second {
		t.Errorf("scan_timeout = %v, want 12s", cfg.Bluetooth.ScanTimeout)
	}
	if len(cfg.Bluetooth.WriteCharacteristics) == 0 {
		t.Error("expected default write characteristics")
	}
	if cfg.Image.MaxPixels != 24<<20 {
		t.Errorf("image.max_pixels = %d, want %d", cfg.Image.MaxPixels, 24<<20)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	body := []byte("printer:\n  width_class: 80\n  encoding: CP437\nbluetooth:\n  mode: ble\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Printer.WidthClass != 80 {
		t.Errorf("width_class = %d, want 80", cfg.Printer.WidthClass)
	}
	if cfg.Printer.Encoding != "CP437" {
		t.Errorf("encoding = %q, want CP437", cfg.Printer.Encoding)
	}
	if cfg.Bluetooth.Mode != "ble" {
		t.Errorf("bluetooth.mode = %q, want ble", cfg.Bluetooth.Mode)
	}
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	dir := t.TempDir()
	body := []byte("bluetooth:\n  mode: infrared\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("expected validation error for bluetooth.mode")
	}
}

func TestLoadRejectsNonPositiveMaxPixels(t *testing.T) {
	dir := t.TempDir()
	body := []byte("image:\n  max_pixels: 0\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("expected validation error for image.max_pixels")
	}
}
