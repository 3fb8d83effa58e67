package rfcomm

import "testing"

func TestBDAddrIsLittleEndian(t *testing.T) {
	got, err := BDAddr("AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("BDAddr() error = %v", err)
	}
	want := [6]byte{0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA}
	if got != want {
		t.Errorf("BDAddr() = % X, want % X", got, want)
	}
}

func TestBDAddrRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "AA:BB:CC", "usb:04b8:0202", "00:00:5e:00:53:01:00:00"} {
		if _, err := BDAddr(in); err == nil {
			t.Errorf("BDAddr(%q) expected error", in)
		}
	}
}
