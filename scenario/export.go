package scenario

import (
	"fmt"

	"github.com/bobuhiro11/hvconfig/memory"
	"github.com/bobuhiro11/hvconfig/pci"
	"github.com/bobuhiro11/hvconfig/platform"
	"github.com/bobuhiro11/hvconfig/vmcfg"
	"github.com/bobuhiro11/hvconfig/vuart"
	"github.com/google/uuid"
)

// FromTable renders a table and its board back into scenario form.
func FromTable(t *vmcfg.Table, p platform.Info) *File {
	f := &File{Board: FromPlatform(p)}

	t.Each(func(c vmcfg.VMConfig) bool {
		f.VMs = append(f.VMs, FromConfig(c))

		return true
	})

	return f
}

// FromPlatform renders a board description.
func FromPlatform(p platform.Info) Board {
	b := Board{CPUs: p.PhysicalCPUs}

	if p.ClosMax >= 0 {
		clos := p.ClosMax
		b.ClosMax = &clos
	}

	for _, bdf := range p.PCIDevices {
		b.PCIDevices = append(b.PCIDevices, bdf.String())
	}

	return b
}

// FromConfig renders one VM.
func FromConfig(c vmcfg.VMConfig) VM {
	id := c.ID

	v := VM{
		ID:         &id,
		LoadOrder:  c.LoadOrder.String(),
		Name:       c.Name,
		Severity:   c.Severity.String(),
		GuestFlags: guestFlagNames(c.GuestFlags),
		Memory: Memory{
			Primary:   fromRegion(c.Memory.Primary),
			Secondary: fromRegion(c.Memory.Secondary),
		},
		EPC:  fromRegion(memory.Region{Base: c.EPC.Base, Size: c.EPC.Size}),
		CLOS: c.CLOS,
		OS: OS{
			Name:          c.OS.Name,
			KernelModTag:  c.OS.KernelModTag,
			RamdiskModTag: c.OS.RamdiskModTag,
			BootArgs:      c.OS.BootArgs,
			KernelLoad:    hex(c.OS.KernelLoadAddr),
			KernelEntry:   hex(c.OS.KernelEntryAddr),
			RamdiskLoad:   hex(c.OS.KernelRamdiskAddr),
		},
	}

	if c.UUID != uuid.Nil {
		v.UUID = c.UUID.String()
	}

	if c.OS.KernelType != vmcfg.KernelUnspecified {
		v.OS.KernelType = c.OS.KernelType.String()
	}

	if int(c.VCPUNum) != len(c.VCPUAffinity) {
		n := c.VCPUNum
		v.VCPUNum = &n
	}

	for _, set := range c.VCPUAffinity {
		v.CPUAffinity = append(v.CPUAffinity, set.String())
	}

	for _, d := range c.PCIDevs {
		dev := PCIDev{
			EmuType: d.EmuType.String(),
			VBDF:    d.VBDF.String(),
			Ops:     string(d.VDevOps),
		}

		if d.IsPassthrough() || d.PBDF != (pci.BDF{}) {
			dev.PBDF = d.PBDF.String()
		}

		last := -1
		for n, bar := range d.VBARBase {
			if bar != 0 {
				last = n
			}
		}

		for n := 0; n <= last; n++ {
			dev.VBARs = append(dev.VBARs, fmt.Sprintf("%#x", d.VBARBase[n]))
		}

		v.PCIDevs = append(v.PCIDevs, dev)
	}

	last := -1
	for n, u := range c.VUART {
		if u.Enabled() {
			last = n
		}
	}

	for n := 0; n <= last; n++ {
		v.VUARTs = append(v.VUARTs, fromVUART(c.VUART[n]))
	}

	return v
}

func fromRegion(r memory.Region) Region {
	if r.IsEmpty() && r.Base == 0 {
		return Region{}
	}

	return Region{Base: hex(r.Base), Size: hex(r.Size)}
}

func fromVUART(c vuart.Config) VUART {
	u := VUART{Type: c.Type().String(), IRQ: c.IRQ}

	if port, ok := c.Addr.Port(); ok {
		u.Port = fmt.Sprintf("%#x", port)
	}

	if bdf, ok := c.Addr.BDF(); ok {
		u.BDF = bdf.String()
	}

	if c.Connected {
		u.Target = &Target{VM: c.Target.VMID, VUART: c.Target.VUARTID}
	}

	return u
}

func hex(v uint64) string {
	if v == 0 {
		return ""
	}

	return fmt.Sprintf("%#x", v)
}
