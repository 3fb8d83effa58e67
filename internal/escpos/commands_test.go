package escpos

import (
	"bytes"
	"testing"
)

func TestPointSizeByteLevels(t *testing.T) {
	for level := 0; level <= 7; level++ {
		want := byte(level<<4 | level)
		if got := PointSizeByte(level); got != want {
			t.Errorf("PointSizeByte(%d) = %#x, want %#x", level, got, want)
		}
	}
}

func TestPointSizeByteRawPassThrough(t *testing.T) {
	for _, raw := range []int{8, 0x10, 0x11, 0x21, 0x70, 0x77, 255} {
		if got := PointSizeByte(raw); got != byte(raw) {
			t.Errorf("PointSizeByte(%d) = %#x, want %#x", raw, got, raw)
		}
	}
}

func TestPrimitiveEncodings(t *testing.T) {
	tests := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"initialize", Initialize(), []byte{0x1B, 0x40}},
		{"codepage", SetCodepage(16), []byte{0x1B, 0x74, 16}},
		{"line spacing", SetLineSpacing(30), []byte{0x1B, 0x33, 30}},
		{"line spacing clamp high", SetLineSpacing(999), []byte{0x1B, 0x33, 255}},
		{"line spacing clamp low", SetLineSpacing(-4), []byte{0x1B, 0x33, 0}},
		{"line spacing reset", ResetLineSpacing(), []byte{0x1B, 0x32}},
		{"feed", Feed(3), []byte{0x1B, 0x64, 3}},
		{"align center", Align(AlignCenter), []byte{0x1B, 0x61, 1}},
		{"align right", Align(AlignRight), []byte{0x1B, 0x61, 2}},
		{"align invalid", Align(Alignment(9)), []byte{0x1B, 0x61, 0}},
		{"bold on", Bold(true), []byte{0x1B, 0x45, 1}},
		{"bold off", Bold(false), []byte{0x1B, 0x45, 0}},
		{"size 1", PointSize(1), []byte{0x1D, 0x21, 0x11}},
		{"font secondary", SelectFont(FontSecondary), []byte{0x1B, 0x4D, 1}},
		{"font primary", SelectFont(FontPrimary), []byte{0x1B, 0x4D, 0}},
		{"raster header", RasterHeader(48, 300), []byte{0x1D, 0x76, 0x30, 0x00, 48, 0, 0x2C, 0x01}},
	}

	for _, tt := range tests {
		if !bytes.Equal(tt.got, tt.want) {
			t.Errorf("%s: got % x, want % x", tt.name, tt.got, tt.want)
		}
	}
}

func TestQRCodeFrames(t *testing.T) {
	got := QRCode([]byte("AB"), 0)
	want := []byte{
		0x1D, 0x28, 0x6B, 0x04, 0x00, 0x31, 0x41, 0x32, 0x00, // model 2
		0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x43, 0x06, // module size 6
		0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x45, 0x31, // error correction M
		0x1D, 0x28, 0x6B, 0x05, 0x00, 0x31, 0x50, 0x30, 'A', 'B', // store
		0x1D, 0x28, 0x6B, 0x03, 0x00, 0x31, 0x51, 0x30, // print
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("QRCode() =\n% x\nwant\n% x", got, want)
	}
}

func TestQRCodeStoreLengthIsLittleEndian(t *testing.T) {
	data := bytes.Repeat([]byte{'x'}, 300)
	got := QRCode(data, 20)

	if got[16] != 16 {
		t.Errorf("module size = %d, want clamp to 16", got[16])
	}
	store := got[25:]
	n := len(data) + 3
	if store[3] != byte(n) || store[4] != byte(n>>8) {
		t.Errorf("store length bytes = %#x %#x, want %#x %#x", store[3], store[4], byte(n), byte(n>>8))
	}
}
