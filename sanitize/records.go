package sanitize

import (
	"github.com/bobuhiro11/hvconfig/vmcfg"
)

// checkIDs verifies that ids are dense: each slot carries its own index.
func (c *checker) checkIDs() {
	for i, vm := range c.vms {
		if slot := uint16(i); vm.ID != slot {
			c.fail(vmcfg.ErrMalformedVMConfig, ids(slot), "slot %d carries vm id %d", slot, vm.ID)
		}
	}
}

// checkRecords validates the shape of each VM on its own: vCPU count,
// name and EPC placement.
func (c *checker) checkRecords() {
	for i, vm := range c.vms {
		slot := uint16(i)

		if len(vm.Name) > vmcfg.MaxNameLen {
			c.fail(vmcfg.ErrMalformedVMConfig, ids(slot), "name %q longer than %d bytes", vm.Name, vmcfg.MaxNameLen)
		}

		switch {
		case vm.VCPUNum == 0:
			c.fail(vmcfg.ErrMalformedVMConfig, ids(slot), "no vCPU")
		case vm.VCPUNum > vmcfg.MaxVCPUsPerVM:
			c.fail(vmcfg.ErrMalformedVMConfig, ids(slot), "%d vCPUs exceed %d", vm.VCPUNum, vmcfg.MaxVCPUsPerVM)
		case int(vm.VCPUNum) != len(vm.VCPUAffinity):
			c.fail(vmcfg.ErrMalformedVMConfig, ids(slot), "vcpu_num %d but %d affinity sets", vm.VCPUNum, len(vm.VCPUAffinity))
		}

		for v, set := range vm.VCPUAffinity {
			if set.IsEmpty() {
				c.fail(vmcfg.ErrMalformedVMConfig, ids(slot), "vCPU %d has an empty affinity", v)
			}
		}

		if vm.EPC.Size != 0 && (vm.EPC.Base%vmcfg.EPCAlign != 0 || vm.EPC.Size%vmcfg.EPCAlign != 0) {
			c.fail(vmcfg.ErrMalformedVMConfig, ids(slot), "EPC %#x+%#x not 4K aligned", vm.EPC.Base, vm.EPC.Size)
		}
	}
}
