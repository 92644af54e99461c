package pci

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidBDF is returned when a bus/device/function triple does not fit
// the PCI address encoding.
var ErrInvalidBDF = errors.New("invalid PCI BDF")

const (
	MaxDevice   = 0x1f
	MaxFunction = 0x7

	// BARCount is the number of base address registers of a type 0 header.
	BARCount = 6
)

// Configuration Space Access Mechanism #1
//
// refs
// https://wiki.osdev.org/PCI
// http://www2.comp.ufscar.br/~helio/boot-int/pci.html
type address uint32

func (a address) getFunctionNumber() uint32 {
	return (uint32(a) >> 8) & 0x7
}

func (a address) getDeviceNumber() uint32 {
	return (uint32(a) >> 11) & 0x1f
}

func (a address) getBusNumber() uint32 {
	return (uint32(a) >> 16) & 0xff
}

func (a address) isEnable() bool {
	return uint32(a)>>31 == 0x1
}

// BDF identifies a PCI function by bus, device and function number.
type BDF struct {
	Bus      uint8
	Device   uint8
	Function uint8
}

// NewBDF returns the BDF for b:d.f. Device must be below 32 and function
// below 8.
func NewBDF(b, d, f uint8) (BDF, error) {
	if d > MaxDevice {
		return BDF{}, fmt.Errorf("device %#x: %w", d, ErrInvalidBDF)
	}

	if f > MaxFunction {
		return BDF{}, fmt.Errorf("function %#x: %w", f, ErrInvalidBDF)
	}

	return BDF{Bus: b, Device: d, Function: f}, nil
}

// MustBDF is like NewBDF but panics on invalid input.
func MustBDF(b, d, f uint8) BDF {
	bdf, err := NewBDF(b, d, f)
	if err != nil {
		panic(err)
	}

	return bdf
}

// FromValue decodes the 16-bit packed form (bus:8, device:5, function:3).
func FromValue(v uint16) BDF {
	return BDF{
		Bus:      uint8(v >> 8),
		Device:   uint8(v>>3) & MaxDevice,
		Function: uint8(v) & MaxFunction,
	}
}

// FromConfigAddress decodes the BDF selected by a value written to the
// CONFIG_ADDRESS port (0xCF8). The enable bit must be set.
func FromConfigAddress(v uint32) (BDF, error) {
	a := address(v)
	if !a.isEnable() {
		return BDF{}, fmt.Errorf("config address %#x not enabled: %w", v, ErrInvalidBDF)
	}

	return BDF{
		Bus:      uint8(a.getBusNumber()),
		Device:   uint8(a.getDeviceNumber()),
		Function: uint8(a.getFunctionNumber()),
	}, nil
}

// Valid reports whether every sub-field is in range.
func (b BDF) Valid() bool {
	return b.Device <= MaxDevice && b.Function <= MaxFunction
}

// Value returns the 16-bit packed form.
func (b BDF) Value() uint16 {
	return uint16(b.Bus)<<8 | uint16(b.Device&MaxDevice)<<3 | uint16(b.Function&MaxFunction)
}

func (b BDF) String() string {
	return fmt.Sprintf("%02x:%02x.%x", b.Bus, b.Device, b.Function)
}

// ParseBDF reads the "bb:dd.f" form.
func ParseBDF(s string) (BDF, error) {
	bus, df, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return BDF{}, fmt.Errorf("%q: %w", s, ErrInvalidBDF)
	}

	dev, fn, ok := strings.Cut(df, ".")
	if !ok {
		return BDF{}, fmt.Errorf("%q: %w", s, ErrInvalidBDF)
	}

	b, err := strconv.ParseUint(bus, 16, 8)
	if err != nil {
		return BDF{}, fmt.Errorf("%q: %w", s, ErrInvalidBDF)
	}

	d, err := strconv.ParseUint(dev, 16, 8)
	if err != nil {
		return BDF{}, fmt.Errorf("%q: %w", s, ErrInvalidBDF)
	}

	f, err := strconv.ParseUint(fn, 16, 8)
	if err != nil {
		return BDF{}, fmt.Errorf("%q: %w", s, ErrInvalidBDF)
	}

	return NewBDF(uint8(b), uint8(d), uint8(f))
}

// MarshalText implements encoding.TextMarshaler.
func (b BDF) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BDF) UnmarshalText(text []byte) error {
	v, err := ParseBDF(string(text))
	if err != nil {
		return err
	}

	*b = v

	return nil
}
