package sanitize

import (
	"github.com/bobuhiro11/hvconfig/memory"
	"github.com/bobuhiro11/hvconfig/vmcfg"
)

const (
	tagPrimary   = "primary"
	tagSecondary = "secondary"
)

// checkMemory verifies that the host physical memory of statically placed
// VMs is pairwise disjoint, including a VM's primary against its own
// secondary region.
func (c *checker) checkMemory() {
	hpa := memory.NewAddressSpace("hpa", memory.Region{})

	for i, vm := range c.vms {
		id := uint16(i)

		if !vm.LoadOrder.IsStatic() {
			continue
		}

		regions := []struct {
			tag string
			r   memory.Region
		}{
			{tagPrimary, vm.Memory.Primary},
			{tagSecondary, vm.Memory.Secondary},
		}

		for _, reg := range regions {
			if !reg.r.Valid() {
				c.fail(vmcfg.ErrMalformedVMConfig, ids(id), "%s region %#x+%#x wraps", reg.tag, reg.r.Base, reg.r.Size)

				continue
			}

			overlaps, err := hpa.Insert(memory.Mapping{Region: reg.r, Owner: i, Tag: reg.tag})
			if err != nil {
				c.fail(vmcfg.ErrMalformedVMConfig, ids(id), "%s region %v: %v", reg.tag, reg.r, err)

				continue
			}

			for _, o := range overlaps {
				c.fail(vmcfg.ErrConfigOverlap, pair(uint16(o.Owner), id),
					"%s %v of vm %d overlaps %s %v of vm %d",
					o.Tag, o.Region, o.Owner, reg.tag, reg.r, id)
			}
		}
	}
}

// checkStaticMemory verifies that every pre-launched VM has memory.
func (c *checker) checkStaticMemory() {
	for i, vm := range c.vms {
		if vm.LoadOrder == vmcfg.PreLaunched && vm.Memory.Primary.IsEmpty() {
			c.fail(vmcfg.ErrMalformedVMConfig, ids(uint16(i)), "pre-launched VM without memory")
		}
	}
}
