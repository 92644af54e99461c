// Package platform describes the physical machine the VM table targets.
package platform

import (
	"slices"

	"github.com/bobuhiro11/hvconfig/cpuset"
	"github.com/bobuhiro11/hvconfig/pci"
)

// Info is the board description consumed by the sanitizer.
type Info struct {
	// PhysicalCPUs is the number of physical CPUs; valid ids are
	// [0, PhysicalCPUs).
	PhysicalCPUs int

	// ClosMax is the highest cache class of service id, or -1 if cache
	// allocation is not supported.
	ClosMax int

	// PCIDevices lists the physical PCI functions present. An empty list
	// means the inventory is unknown.
	PCIDevices []pci.BDF
}

// CPUs returns the set of valid physical CPU ids.
func (i Info) CPUs() cpuset.Set {
	var s cpuset.Set

	for id := 0; id < i.PhysicalCPUs && id < cpuset.MaxCPUs; id++ {
		_ = s.Add(id)
	}

	return s
}

// HasPCIInventory reports whether the PCI device list is known.
func (i Info) HasPCIInventory() bool {
	return len(i.PCIDevices) > 0
}

// Lookup resolves a physical device handle.
func (i Info) Lookup(bdf pci.BDF) (pci.DeviceHandle, bool) {
	if slices.Contains(i.PCIDevices, bdf) {
		return pci.Handle(bdf), true
	}

	return pci.DeviceHandle{}, false
}

var _ pci.DeviceRegistry = Info{}
