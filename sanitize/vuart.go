package sanitize

import (
	"github.com/bobuhiro11/hvconfig/pci"
	"github.com/bobuhiro11/hvconfig/vmcfg"
	"github.com/bobuhiro11/hvconfig/vuart"
)

// checkVUART verifies that the enabled vUARTs of a VM use distinct IRQs and
// distinct addresses of their kind.
func (c *checker) checkVUART() {
	for i, vm := range c.vms {
		id := uint16(i)

		irqs := map[uint16]int{}
		ports := map[uint16]int{}
		bdfs := map[pci.BDF]int{}

		for u, cfg := range vm.VUART {
			if !cfg.Enabled() {
				continue
			}

			if first, ok := irqs[cfg.IRQ]; ok {
				c.fail(vmcfg.ErrDuplicateVuartResource, ids(id), "vUART %d and %d share IRQ %d", first, u, cfg.IRQ)
			} else {
				irqs[cfg.IRQ] = u
			}

			switch cfg.Type() {
			case vuart.LegacyPIO:
				port, _ := cfg.Addr.Port()

				if first, ok := ports[port]; ok {
					c.fail(vmcfg.ErrDuplicateVuartResource, ids(id), "vUART %d and %d share port %#x", first, u, port)
				} else {
					ports[port] = u
				}
			case vuart.PCI:
				bdf, _ := cfg.Addr.BDF()

				if first, ok := bdfs[bdf]; ok {
					c.fail(vmcfg.ErrDuplicateVuartResource, ids(id), "vUART %d and %d share BDF %v", first, u, bdf)
				} else {
					bdfs[bdf] = u
				}
			}
		}
	}
}

// checkVUARTTargets verifies that PCI vUARTs sit at a valid BDF and that
// connections name an existing peer.
func (c *checker) checkVUARTTargets() {
	for i, vm := range c.vms {
		id := uint16(i)

		for u, cfg := range vm.VUART {
			if !cfg.Enabled() {
				continue
			}

			if bdf, ok := cfg.Addr.BDF(); ok && !bdf.Valid() {
				c.fail(vmcfg.ErrMalformedVMConfig, ids(id), "vUART %d at invalid BDF %v", u, bdf)
			}

			if !cfg.Connected {
				continue
			}

			t := cfg.Target

			switch {
			case int(t.VMID) >= len(c.vms):
				c.fail(vmcfg.ErrVuartTarget, ids(id), "vUART %d targets unknown vm %d", u, t.VMID)
			case t.VMID == id:
				c.fail(vmcfg.ErrVuartTarget, ids(id), "vUART %d targets its own VM", u)
			case int(t.VUARTID) >= vuart.MaxPerVM:
				c.fail(vmcfg.ErrVuartTarget, ids(id, t.VMID), "vUART %d targets vUART %d", u, t.VUARTID)
			}
		}
	}
}

// checkVUARTPeers verifies that every connection is mirrored by its peer.
func (c *checker) checkVUARTPeers() {
	for i, vm := range c.vms {
		id := uint16(i)

		for u, cfg := range vm.VUART {
			if !cfg.Enabled() || !cfg.Connected {
				continue
			}

			t := cfg.Target
			if int(t.VMID) >= len(c.vms) || t.VMID == id || int(t.VUARTID) >= vuart.MaxPerVM {
				continue
			}

			peer := c.vms[t.VMID].VUART[t.VUARTID]
			back := vuart.Target{VMID: id, VUARTID: uint8(u)}

			if !peer.Enabled() || !peer.Connected || peer.Target != back {
				c.fail(vmcfg.ErrVuartTarget, ids(id, t.VMID),
					"vUART %d of vm %d is not connected back to vUART %d of vm %d", t.VUARTID, t.VMID, u, id)
			}
		}
	}
}
