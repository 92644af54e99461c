package pci_test

import (
	"errors"
	"testing"

	"github.com/bobuhiro11/hvconfig/pci"
)

func TestNewBDF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		b, d, f uint8
		wantErr bool
	}{
		{name: "host bridge", b: 0, d: 0, f: 0},
		{name: "max fields", b: 0xff, d: 0x1f, f: 0x7},
		{name: "device too large", b: 0, d: 0x20, f: 0, wantErr: true},
		{name: "function too large", b: 0, d: 0x1f, f: 0x8, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bdf, err := pci.NewBDF(tt.b, tt.d, tt.f)
			if tt.wantErr {
				if !errors.Is(err, pci.ErrInvalidBDF) {
					t.Fatalf("expected: %v, actual: %v", pci.ErrInvalidBDF, err)
				}

				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if !bdf.Valid() {
				t.Fatalf("%v should be valid", bdf)
			}
		})
	}
}

func TestBDFValue(t *testing.T) {
	t.Parallel()

	bdf := pci.MustBDF(0x3, 0x1f, 0x2)
	expected := uint16(0x03fa)

	if actual := bdf.Value(); actual != expected {
		t.Fatalf("expected: %#x, actual: %#x", expected, actual)
	}

	if actual := pci.FromValue(expected); actual != bdf {
		t.Fatalf("expected: %v, actual: %v", bdf, actual)
	}
}

func TestBDFString(t *testing.T) {
	t.Parallel()

	bdf := pci.MustBDF(0x0, 0x1f, 0x3)
	expected := "00:1f.3"

	if actual := bdf.String(); actual != expected {
		t.Fatalf("expected: %v, actual: %v", expected, actual)
	}

	parsed, err := pci.ParseBDF(expected)
	if err != nil {
		t.Fatal(err)
	}

	if parsed != bdf {
		t.Fatalf("expected: %v, actual: %v", bdf, parsed)
	}
}

func TestParseBDFInvalid(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "00", "00:1f", "zz:00.0", "00:20.0", "00:00.8"} {
		if _, err := pci.ParseBDF(s); !errors.Is(err, pci.ErrInvalidBDF) {
			t.Errorf("ParseBDF(%q): expected: %v, actual: %v", s, pci.ErrInvalidBDF, err)
		}
	}
}

func TestFromConfigAddress(t *testing.T) {
	t.Parallel()

	// enable | bus 2 | device 3 | function 1 | register 0x10
	v := uint32(1<<31 | 2<<16 | 3<<11 | 1<<8 | 0x10)

	bdf, err := pci.FromConfigAddress(v)
	if err != nil {
		t.Fatal(err)
	}

	expected := pci.MustBDF(2, 3, 1)
	if bdf != expected {
		t.Fatalf("expected: %v, actual: %v", expected, bdf)
	}

	if _, err := pci.FromConfigAddress(v &^ (1 << 31)); !errors.Is(err, pci.ErrInvalidBDF) {
		t.Fatalf("expected: %v, actual: %v", pci.ErrInvalidBDF, err)
	}
}

func TestEmuType(t *testing.T) {
	t.Parallel()

	dev := pci.DevConfig{EmuType: pci.EmuPassthrough}
	if !dev.IsPassthrough() {
		t.Fatal("passthrough device not detected")
	}

	dev.EmuType = pci.EmuHypervisor
	if dev.IsPassthrough() {
		t.Fatal("emulated device reported as passthrough")
	}

	for _, typ := range []pci.EmuType{pci.EmuPassthrough, pci.EmuHypervisor, pci.EmuServiceVM} {
		parsed, err := pci.ParseEmuType(typ.String())
		if err != nil {
			t.Fatal(err)
		}

		if parsed != typ {
			t.Fatalf("expected: %v, actual: %v", typ, parsed)
		}
	}
}

func TestParseCombinedEmuType(t *testing.T) {
	t.Parallel()

	combined := pci.EmuHypervisor | pci.EmuServiceVM

	tests := []struct {
		in       string
		expected pci.EmuType
	}{
		{combined.String(), combined},
		{"PTDEV | hv-emul", pci.EmuPassthrough | pci.EmuHypervisor},
		{"sos-emul|0x10", pci.EmuServiceVM | pci.EmuType(0x10)},
		{(pci.EmuType(0x20) | pci.EmuPassthrough).String(), pci.EmuType(0x20) | pci.EmuPassthrough},
	}

	for _, tt := range tests {
		actual, err := pci.ParseEmuType(tt.in)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}

		if actual != tt.expected {
			t.Fatalf("%q expected: %v, actual: %v", tt.in, tt.expected, actual)
		}
	}

	for _, in := range []string{"", "hv-emul|", "hv-emul|bogus", "0"} {
		if _, err := pci.ParseEmuType(in); err == nil {
			t.Fatalf("%q accepted", in)
		}
	}
}
