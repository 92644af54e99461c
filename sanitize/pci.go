package sanitize

import (
	"github.com/bobuhiro11/hvconfig/pci"
	"github.com/bobuhiro11/hvconfig/vmcfg"
)

// checkPCI verifies the device lists: the declared count, virtual BDFs
// unique per VM and physical BDFs of passthrough devices unique across the
// hypervisor.
func (c *checker) checkPCI() {
	type ref struct {
		vm  uint16
		dev int
	}

	assigned := map[pci.BDF]ref{}

	for i, vm := range c.vms {
		id := uint16(i)

		if int(vm.PCIDevNum) != len(vm.PCIDevs) {
			c.fail(vmcfg.ErrMalformedVMConfig, ids(id), "pci_dev_num %d but %d devices", vm.PCIDevNum, len(vm.PCIDevs))
		}

		virtual := map[pci.BDF]int{}

		for d, dev := range vm.PCIDevs {
			if first, ok := virtual[dev.VBDF]; ok {
				c.fail(vmcfg.ErrDuplicateBDF, ids(id), "devices %d and %d both at virtual %v", first, d, dev.VBDF)
			} else {
				virtual[dev.VBDF] = d
			}

			if !dev.IsPassthrough() {
				continue
			}

			if first, ok := assigned[dev.PBDF]; ok {
				c.fail(vmcfg.ErrDuplicateBDF, pair(first.vm, id),
					"physical %v assigned as device %d of vm %d and device %d of vm %d",
					dev.PBDF, first.dev, first.vm, d, id)

				continue
			}

			assigned[dev.PBDF] = ref{vm: id, dev: d}
		}
	}
}

// checkDevices verifies that BDFs are in range and that passthrough devices
// exist on the board under the handle they were resolved to.
func (c *checker) checkDevices() {
	for i, vm := range c.vms {
		id := uint16(i)

		for d, dev := range vm.PCIDevs {
			if !dev.VBDF.Valid() {
				c.fail(vmcfg.ErrMalformedVMConfig, ids(id), "device %d: virtual BDF %v out of range", d, dev.VBDF)
			}

			if !dev.IsPassthrough() {
				continue
			}

			if !dev.PBDF.Valid() {
				c.fail(vmcfg.ErrMalformedVMConfig, ids(id), "device %d: physical BDF %v out of range", d, dev.PBDF)

				continue
			}

			if dev.PDev.Valid && dev.PDev.BDF != dev.PBDF {
				c.fail(vmcfg.ErrMalformedVMConfig, ids(id), "device %d: handle %v does not match physical %v", d, dev.PDev.BDF, dev.PBDF)
			}

			if c.p.HasPCIInventory() {
				if _, ok := c.p.Lookup(dev.PBDF); !ok {
					c.fail(vmcfg.ErrUnknownDevice, ids(id), "device %d: physical %v", d, dev.PBDF)
				}
			}
		}
	}
}
