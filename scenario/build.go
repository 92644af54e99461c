package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bobuhiro11/hvconfig/cpuset"
	"github.com/bobuhiro11/hvconfig/memory"
	"github.com/bobuhiro11/hvconfig/pci"
	"github.com/bobuhiro11/hvconfig/platform"
	"github.com/bobuhiro11/hvconfig/probe"
	"github.com/bobuhiro11/hvconfig/vmcfg"
	"github.com/bobuhiro11/hvconfig/vuart"
	"github.com/google/uuid"
)

// hostInfo is consulted when a board leaves out its CPU count.
var hostInfo = probe.Host

// Load reads the scenario at path and returns a builder holding its VMs
// together with the board they target.
func Load(path string) (*vmcfg.Builder, platform.Info, error) {
	file, err := ReadFile(path)
	if err != nil {
		return nil, platform.Info{}, err
	}

	p, err := file.Platform()
	if err != nil {
		return nil, platform.Info{}, fmt.Errorf("%s: %w", path, err)
	}

	b, err := file.Builder(p)
	if err != nil {
		return nil, platform.Info{}, fmt.Errorf("%s: %w", path, err)
	}

	return b, p, nil
}

// Platform returns the board description.
func (f *File) Platform() (platform.Info, error) {
	p := platform.Info{PhysicalCPUs: f.Board.CPUs, ClosMax: -1}

	if f.Board.ClosMax != nil {
		p.ClosMax = *f.Board.ClosMax
	}

	if p.PhysicalCPUs == 0 {
		host, err := hostInfo()
		if err != nil {
			return platform.Info{}, fmt.Errorf("board cpus: %w", err)
		}

		p.PhysicalCPUs = host.PhysicalCPUs
	}

	if p.PhysicalCPUs < 0 || p.PhysicalCPUs > cpuset.MaxCPUs {
		return platform.Info{}, fmt.Errorf("board cpus: %d not in [1, %d]", p.PhysicalCPUs, cpuset.MaxCPUs)
	}

	for _, s := range f.Board.PCIDevices {
		bdf, err := pci.ParseBDF(s)
		if err != nil {
			return platform.Info{}, fmt.Errorf("board pci device: %w", err)
		}

		p.PCIDevices = append(p.PCIDevices, bdf)
	}

	return p, nil
}

// Builder converts every VM of f. Passthrough devices are bound to the
// devices of p when p knows its PCI inventory.
func (f *File) Builder(p platform.Info) (*vmcfg.Builder, error) {
	b := vmcfg.NewBuilder(vmcfg.MaxVMs)

	for i := range f.VMs {
		vm, err := f.VMs[i].config(uint16(i), p)
		if err != nil {
			return nil, fmt.Errorf("vm %d: %w", i, err)
		}

		if err := b.Add(vm); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (v *VM) config(slot uint16, p platform.Info) (vmcfg.VMConfig, error) {
	var err error

	c := vmcfg.VMConfig{ID: slot, Name: v.Name, CLOS: v.CLOS}

	if v.ID != nil {
		c.ID = *v.ID
	}

	if c.LoadOrder, err = parseLoadOrder(v.LoadOrder); err != nil {
		return c, err
	}

	if c.Severity, err = parseSeverity(v.Severity, c.LoadOrder); err != nil {
		return c, err
	}

	if v.UUID != "" {
		if c.UUID, err = uuid.Parse(v.UUID); err != nil {
			return c, fmt.Errorf("uuid: %w", err)
		}
	}

	for n, list := range v.CPUAffinity {
		set, err := cpuset.Parse(list)
		if err != nil {
			return c, fmt.Errorf("cpu_affinity[%d]: %w", n, err)
		}

		c.VCPUAffinity = append(c.VCPUAffinity, set)
	}

	c.VCPUNum = uint16(len(c.VCPUAffinity))
	if v.VCPUNum != nil {
		c.VCPUNum = *v.VCPUNum
	}

	for _, name := range v.GuestFlags {
		flag, err := parseGuestFlag(name)
		if err != nil {
			return c, err
		}

		c.GuestFlags |= flag
	}

	if c.Memory.Primary, err = v.Memory.Primary.region(); err != nil {
		return c, fmt.Errorf("primary memory: %w", err)
	}

	if c.Memory.Secondary, err = v.Memory.Secondary.region(); err != nil {
		return c, fmt.Errorf("secondary memory: %w", err)
	}

	epc, err := v.EPC.region()
	if err != nil {
		return c, fmt.Errorf("epc: %w", err)
	}

	c.EPC = vmcfg.EPCSection{Base: epc.Base, Size: epc.Size}

	for n := range v.PCIDevs {
		dev, err := v.PCIDevs[n].config(p)
		if err != nil {
			return c, fmt.Errorf("pci_devs[%d]: %w", n, err)
		}

		c.PCIDevs = append(c.PCIDevs, dev)
	}

	c.PCIDevNum = uint16(len(c.PCIDevs))

	if c.OS, err = v.OS.config(); err != nil {
		return c, fmt.Errorf("os: %w", err)
	}

	if len(v.VUARTs) > vuart.MaxPerVM {
		return c, fmt.Errorf("%d vuarts, at most %d", len(v.VUARTs), vuart.MaxPerVM)
	}

	for n := range v.VUARTs {
		if c.VUART[n], err = v.VUARTs[n].config(); err != nil {
			return c, fmt.Errorf("vuarts[%d]: %w", n, err)
		}
	}

	return c, nil
}

func (r Region) region() (memory.Region, error) {
	base, err := parseAddr(r.Base)
	if err != nil {
		return memory.Region{}, fmt.Errorf("base: %w", err)
	}

	var size uint64

	if r.Size != "" {
		if size, err = memory.ParseSize(r.Size, ""); err != nil {
			return memory.Region{}, fmt.Errorf("size: %w", err)
		}
	}

	return memory.Region{Base: base, Size: size}, nil
}

func (d *PCIDev) config(p platform.Info) (pci.DevConfig, error) {
	var (
		c   pci.DevConfig
		err error
	)

	if c.EmuType, err = pci.ParseEmuType(d.EmuType); err != nil {
		return c, err
	}

	if c.VBDF, err = pci.ParseBDF(d.VBDF); err != nil {
		return c, fmt.Errorf("vbdf: %w", err)
	}

	if len(d.VBARs) > pci.BARCount {
		return c, fmt.Errorf("%d vbars, at most %d", len(d.VBARs), pci.BARCount)
	}

	for n, s := range d.VBARs {
		if c.VBARBase[n], err = parseAddr(s); err != nil {
			return c, fmt.Errorf("vbars[%d]: %w", n, err)
		}
	}

	c.VDevOps = pci.OpsHandle(d.Ops)

	if d.PBDF == "" {
		if c.IsPassthrough() {
			return c, fmt.Errorf("passthrough device without pbdf")
		}

		return c, nil
	}

	if c.PBDF, err = pci.ParseBDF(d.PBDF); err != nil {
		return c, fmt.Errorf("pbdf: %w", err)
	}

	c.PDev = pci.Handle(c.PBDF)
	if p.HasPCIInventory() {
		c.PDev, _ = p.Lookup(c.PBDF)
	}

	return c, nil
}

func (o *OS) config() (vmcfg.OSConfig, error) {
	var err error

	c := vmcfg.OSConfig{
		Name:          o.Name,
		KernelModTag:  o.KernelModTag,
		RamdiskModTag: o.RamdiskModTag,
		BootArgs:      o.BootArgs,
	}

	if c.KernelType, err = parseKernelType(o.KernelType); err != nil {
		return c, err
	}

	if c.KernelLoadAddr, err = parseAddr(o.KernelLoad); err != nil {
		return c, fmt.Errorf("kernel_load_addr: %w", err)
	}

	if c.KernelEntryAddr, err = parseAddr(o.KernelEntry); err != nil {
		return c, fmt.Errorf("kernel_entry_addr: %w", err)
	}

	if c.KernelRamdiskAddr, err = parseAddr(o.RamdiskLoad); err != nil {
		return c, fmt.Errorf("ramdisk_load_addr: %w", err)
	}

	return c, nil
}

func (u *VUART) config() (vuart.Config, error) {
	var c vuart.Config

	t, err := vuart.ParseType(u.Type)
	if err != nil {
		return c, err
	}

	switch t {
	case vuart.Disabled:
		return c, nil
	case vuart.LegacyPIO:
		port, err := parsePort(u.Port)
		if err != nil {
			return c, err
		}

		c = vuart.Legacy(port, u.IRQ)
	case vuart.PCI:
		bdf, err := pci.ParseBDF(u.BDF)
		if err != nil {
			return c, err
		}

		c = vuart.OnPCI(bdf, u.IRQ)
	}

	if u.Target != nil {
		c = c.ConnectTo(u.Target.VM, u.Target.VUART)
	}

	return c, nil
}

var comPorts = map[string]uint16{
	"COM1": vuart.COM1Addr,
	"COM2": vuart.COM2Addr,
	"COM3": vuart.COM3Addr,
	"COM4": vuart.COM4Addr,
}

func parsePort(s string) (uint16, error) {
	if port, ok := comPorts[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return port, nil
	}

	port, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("port %q: %w", s, err)
	}

	return uint16(port), nil
}

func parseAddr(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("address %q: %w", s, err)
	}

	return addr, nil
}
