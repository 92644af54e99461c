package pci

import (
	"fmt"
	"strconv"
	"strings"
)

// EmuType says how a device is presented to a VM.
type EmuType uint32

const (
	// EmuPassthrough is a physical device assigned to exactly one VM.
	EmuPassthrough EmuType = 1 << iota
	// EmuHypervisor is a device emulated by the hypervisor.
	EmuHypervisor
	// EmuServiceVM is a device emulated by the service VM.
	EmuServiceVM
)

func (t EmuType) String() string {
	names := []string{}

	if t&EmuPassthrough != 0 {
		names = append(names, "passthrough")
	}

	if t&EmuHypervisor != 0 {
		names = append(names, "hv-emul")
	}

	if t&EmuServiceVM != 0 {
		names = append(names, "sos-emul")
	}

	if rest := t &^ (EmuPassthrough | EmuHypervisor | EmuServiceVM); rest != 0 {
		names = append(names, fmt.Sprintf("%#x", uint32(rest)))
	}

	return strings.Join(names, "|")
}

// ParseEmuType reads the names produced by String. Combined types are
// joined with "|".
func ParseEmuType(s string) (EmuType, error) {
	var t EmuType

	for _, part := range strings.Split(s, "|") {
		switch name := strings.ToLower(strings.TrimSpace(part)); name {
		case "passthrough", "ptdev":
			t |= EmuPassthrough
		case "hv-emul", "hvemul":
			t |= EmuHypervisor
		case "sos-emul", "sosemul":
			t |= EmuServiceVM
		default:
			bits, err := strconv.ParseUint(name, 0, 32)
			if err != nil || bits == 0 {
				return 0, fmt.Errorf("unknown PCI emulation type %q", part)
			}

			t |= EmuType(bits)
		}
	}

	return t, nil
}

// DeviceHandle is a weak reference to a physical device owned by the PCI
// subsystem. It is looked up by BDF and never keeps the device alive.
type DeviceHandle struct {
	BDF   BDF
	Valid bool
}

// Handle returns a handle naming the physical device at bdf.
func Handle(bdf BDF) DeviceHandle {
	return DeviceHandle{BDF: bdf, Valid: true}
}

// OpsHandle names the configuration-space operation table used for a virtual
// device. The table itself lives in the PCI emulation layer.
type OpsHandle string

// DevConfig describes one PCI device of a VM.
type DevConfig struct {
	EmuType  EmuType
	VBDF     BDF
	PBDF     BDF
	VBARBase [BARCount]uint64
	PDev     DeviceHandle
	VDevOps  OpsHandle
}

// IsPassthrough reports whether the device is a physical device assigned to
// the VM.
func (d DevConfig) IsPassthrough() bool {
	return d.EmuType&EmuPassthrough != 0
}

// DeviceRegistry resolves physical devices by BDF. It is implemented by the
// platform description.
type DeviceRegistry interface {
	Lookup(bdf BDF) (DeviceHandle, bool)
}
