// Package vmcfg holds the static configuration of every VM the hypervisor
// may run.
//
// The table is filled once by the boot sequence through a Builder, frozen
// into a Table, certified by package sanitize and then published as a
// Registry that any number of goroutines may read without locking.
package vmcfg

import (
	"fmt"
	"slices"

	"github.com/bobuhiro11/hvconfig/cpuset"
	"github.com/bobuhiro11/hvconfig/memory"
	"github.com/bobuhiro11/hvconfig/pci"
	"github.com/bobuhiro11/hvconfig/vuart"
	"github.com/google/uuid"
)

const (
	// MaxVMs is the default capacity of a table.
	MaxVMs = 16

	// MaxVCPUsPerVM bounds the vCPU count of a VM.
	MaxVCPUsPerVM = cpuset.MaxCPUs

	// MaxNameLen is the longest VM or OS name, in bytes.
	MaxNameLen = 31

	// MaxModTagLen is the longest multiboot module tag, in bytes.
	MaxModTagLen = 31

	// MaxBootArgsSize is the size of the boot argument buffer including the
	// terminating NUL.
	MaxBootArgsSize = 2048

	// EPCAlign is the required alignment of an EPC section base.
	EPCAlign = 0x1000
)

// LoadOrder says who starts a VM.
type LoadOrder uint8

const (
	// PreLaunched VMs are started by the hypervisor itself.
	PreLaunched LoadOrder = iota + 1
	// ServiceVM is the privileged VM hosting the device model.
	ServiceVM
	// PostLaunched VMs are started later from within the service VM.
	PostLaunched
)

func (o LoadOrder) String() string {
	switch o {
	case PreLaunched:
		return "pre-launched"
	case ServiceVM:
		return "service-vm"
	case PostLaunched:
		return "post-launched"
	}

	return fmt.Sprintf("LoadOrder(%d)", uint8(o))
}

// Valid reports whether o is a known load order.
func (o LoadOrder) Valid() bool {
	return o >= PreLaunched && o <= PostLaunched
}

// IsStatic reports whether the memory of the VM is placed by the
// hypervisor at boot.
func (o LoadOrder) IsStatic() bool {
	return o == PreLaunched || o == ServiceVM
}

// Severity ranks VMs by criticality. A larger value is more critical.
type Severity uint8

const (
	SeverityStandard  Severity = 0x10
	SeverityServiceVM Severity = 0x20
	SeverityRTVM      Severity = 0x30
	SeveritySafety    Severity = 0x40
)

func (s Severity) String() string {
	switch s {
	case SeverityStandard:
		return "standard"
	case SeverityServiceVM:
		return "service-vm"
	case SeverityRTVM:
		return "rtvm"
	case SeveritySafety:
		return "safety"
	}

	return fmt.Sprintf("Severity(%#x)", uint8(s))
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityStandard, SeverityServiceVM, SeverityRTVM, SeveritySafety:
		return true
	}

	return false
}

// GuestFlags are per VM feature switches.
type GuestFlags uint64

const (
	GuestFlagSecureWorld GuestFlags = 1 << iota
	GuestFlagLAPICPassthrough
	GuestFlagIOCompletionPolling
	GuestFlagCLOSRequired
	GuestFlagHideMTRR
	GuestFlagRT
)

// Has reports whether every bit of f is set.
func (g GuestFlags) Has(f GuestFlags) bool {
	return g&f == f
}

// KernelType selects the loader used for a VM's kernel.
type KernelType uint8

const (
	// KernelUnspecified is only allowed for post-launched VMs, which are
	// loaded by the device model.
	KernelUnspecified KernelType = iota
	KernelBzImage
	KernelZephyr
)

func (k KernelType) String() string {
	switch k {
	case KernelUnspecified:
		return "unspecified"
	case KernelBzImage:
		return "bzimage"
	case KernelZephyr:
		return "zephyr"
	}

	return fmt.Sprintf("KernelType(%d)", uint8(k))
}

// MemConfig is the host physical memory of a VM. Secondary is used by
// pre-launched VMs whose memory is not contiguous.
type MemConfig struct {
	Primary   memory.Region
	Secondary memory.Region
}

// Regions returns the non-empty regions.
func (m MemConfig) Regions() []memory.Region {
	rs := []memory.Region{}

	for _, r := range []memory.Region{m.Primary, m.Secondary} {
		if !r.IsEmpty() {
			rs = append(rs, r)
		}
	}

	return rs
}

// EPCSection is the enclave page cache reserved for a VM.
type EPCSection struct {
	Base uint64
	Size uint64
}

// OSConfig describes the boot image of a VM.
type OSConfig struct {
	Name              string
	KernelType        KernelType
	KernelModTag      string
	RamdiskModTag     string
	BootArgs          string
	KernelLoadAddr    uint64
	KernelEntryAddr   uint64
	KernelRamdiskAddr uint64
}

// VMConfig is the static configuration of one VM slot.
type VMConfig struct {
	ID           uint16
	LoadOrder    LoadOrder
	Name         string
	UUID         uuid.UUID
	VCPUNum      uint16
	Severity     Severity
	VCPUAffinity []cpuset.Set
	GuestFlags   GuestFlags
	Memory       MemConfig
	EPC          EPCSection
	PCIDevNum    uint16
	PCIDevs      []pci.DevConfig
	OS           OSConfig
	CLOS         uint16
	VUART        [vuart.MaxPerVM]vuart.Config
}

// PCPUs returns the union of the affinity sets of all vCPUs.
func (c *VMConfig) PCPUs() cpuset.Set {
	var s cpuset.Set
	for _, a := range c.VCPUAffinity {
		s = s.Union(a)
	}

	return s
}

// LAPICPassthrough reports whether the VM owns the local APICs of its
// physical CPUs.
func (c *VMConfig) LAPICPassthrough() bool {
	return c.GuestFlags.Has(GuestFlagLAPICPassthrough)
}

// Clone returns a copy of c that shares no memory with it.
func (c *VMConfig) Clone() VMConfig {
	cp := *c
	cp.VCPUAffinity = slices.Clone(c.VCPUAffinity)
	cp.PCIDevs = slices.Clone(c.PCIDevs)

	return cp
}
