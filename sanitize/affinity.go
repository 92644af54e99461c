package sanitize

import (
	"github.com/bobuhiro11/hvconfig/vmcfg"
)

// checkAffinityRange verifies that every affinity names an existing
// physical CPU.
func (c *checker) checkAffinityRange() {
	valid := c.p.CPUs()

	for i, vm := range c.vms {
		for v, set := range vm.VCPUAffinity {
			if extra := set.Difference(valid); !extra.IsEmpty() {
				c.fail(vmcfg.ErrAffinityOutOfRange, ids(uint16(i)),
					"vCPU %d uses pCPU %v, platform has %d", v, extra, c.p.PhysicalCPUs)
			}
		}
	}
}

// checkLAPICPassthrough verifies that no physical CPU is claimed by two
// LAPIC passthrough VMs.
func (c *checker) checkLAPICPassthrough() {
	pt := []uint16{}

	for i, vm := range c.vms {
		if vm.LAPICPassthrough() {
			pt = append(pt, uint16(i))
		}
	}

	for x := 0; x < len(pt); x++ {
		for y := x + 1; y < len(pt); y++ {
			a, b := c.vms[pt[x]], c.vms[pt[y]]

			if shared := a.PCPUs().Intersect(b.PCPUs()); !shared.IsEmpty() {
				c.fail(vmcfg.ErrAffinityConflict, ids(pt[x], pt[y]), "both claim pCPU %v", shared)
			}
		}
	}
}

// checkVCPUSharing verifies that the vCPUs of one LAPIC passthrough VM do
// not share a physical CPU.
func (c *checker) checkVCPUSharing() {
	for i, vm := range c.vms {
		if !vm.LAPICPassthrough() {
			continue
		}

		for a := 0; a < len(vm.VCPUAffinity); a++ {
			for b := a + 1; b < len(vm.VCPUAffinity); b++ {
				if shared := vm.VCPUAffinity[a].Intersect(vm.VCPUAffinity[b]); !shared.IsEmpty() {
					c.fail(vmcfg.ErrAffinityConflict, ids(uint16(i)), "vCPU %d and %d share pCPU %v", a, b, shared)
				}
			}
		}
	}
}

// checkPartitioning verifies that the physical CPUs of pre-launched VMs are
// used by no other VM.
func (c *checker) checkPartitioning() {
	for i, pre := range c.vms {
		if pre.LoadOrder != vmcfg.PreLaunched {
			continue
		}

		for j, other := range c.vms {
			if i == j || (other.LoadOrder == vmcfg.PreLaunched && j < i) {
				continue
			}

			// Two LAPIC passthrough VMs are already reported.
			if pre.LAPICPassthrough() && other.LAPICPassthrough() {
				continue
			}

			if shared := pre.PCPUs().Intersect(other.PCPUs()); !shared.IsEmpty() {
				c.fail(vmcfg.ErrAffinityConflict, ids(uint16(i), uint16(j)),
					"pCPU %v of pre-launched vm %d also used by %v vm %d", shared, i, other.LoadOrder, j)
			}
		}
	}
}
