// Package vuart describes the virtual serial ports of a VM.
package vuart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bobuhiro11/hvconfig/pci"
)

const (
	// MaxPerVM is the number of vUART slots of a VM. Slot 0 is the console,
	// the others connect VMs with each other.
	MaxPerVM = 2

	COM1Addr = 0x3f8
	COM2Addr = 0x2f8
	COM3Addr = 0x3e8
	COM4Addr = 0x2e8

	COM1IRQ = 4
	COM2IRQ = 3
)

// Type is the kind of a vUART.
type Type uint8

const (
	// Disabled marks an unused vUART slot.
	Disabled Type = iota
	// LegacyPIO is an 8250 compatible port at a fixed I/O address.
	LegacyPIO
	// PCI is a vUART exposed as a PCI function.
	PCI
)

func (t Type) String() string {
	switch t {
	case Disabled:
		return "disabled"
	case LegacyPIO:
		return "legacy"
	case PCI:
		return "pci"
	}

	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType reads one of the names produced by String.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "disabled", "none":
		return Disabled, nil
	case "legacy", "pio", "legacy-pio":
		return LegacyPIO, nil
	case "pci":
		return PCI, nil
	}

	return Disabled, fmt.Errorf("unknown vuart type %q", s)
}

// Addr is the address of a vUART. The kind it was built with decides which
// accessor is meaningful.
type Addr struct {
	kind Type
	port uint16
	bdf  pci.BDF
}

// PortAddr returns a legacy I/O port address.
func PortAddr(port uint16) Addr {
	return Addr{kind: LegacyPIO, port: port}
}

// BDFAddr returns a PCI address.
func BDFAddr(bdf pci.BDF) Addr {
	return Addr{kind: PCI, bdf: bdf}
}

// Kind returns the kind the address was built with.
func (a Addr) Kind() Type {
	return a.kind
}

// Port returns the I/O port of a legacy address.
func (a Addr) Port() (uint16, bool) {
	return a.port, a.kind == LegacyPIO
}

// BDF returns the PCI address of a PCI vUART.
func (a Addr) BDF() (pci.BDF, bool) {
	return a.bdf, a.kind == PCI
}

// Equal reports whether a and o are the same kind and address.
func (a Addr) Equal(o Addr) bool {
	return a == o
}

func (a Addr) String() string {
	switch a.kind {
	case LegacyPIO:
		return "0x" + strconv.FormatUint(uint64(a.port), 16)
	case PCI:
		return a.bdf.String()
	}

	return "-"
}

// Target names the vUART of another VM this one is connected to.
type Target struct {
	VMID    uint16
	VUARTID uint8
}

// Config is one vUART slot of a VM. Target is only meaningful when
// Connected is set.
type Config struct {
	Addr      Addr
	IRQ       uint16
	Connected bool
	Target    Target
}

// Type returns the kind of the vUART, Disabled for an unused slot.
func (c Config) Type() Type {
	return c.Addr.Kind()
}

// Enabled reports whether the slot is in use.
func (c Config) Enabled() bool {
	return c.Addr.Kind() != Disabled
}

// Legacy returns a legacy vUART at port with irq.
func Legacy(port, irq uint16) Config {
	return Config{Addr: PortAddr(port), IRQ: irq}
}

// OnPCI returns a PCI vUART at bdf with irq.
func OnPCI(bdf pci.BDF, irq uint16) Config {
	return Config{Addr: BDFAddr(bdf), IRQ: irq}
}

// ConnectTo returns c connected to vUART vuartID of VM vmID.
func (c Config) ConnectTo(vmID uint16, vuartID uint8) Config {
	c.Connected = true
	c.Target = Target{VMID: vmID, VUARTID: vuartID}

	return c
}
