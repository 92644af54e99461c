package sanitize

import (
	"github.com/bobuhiro11/hvconfig/vmcfg"
	"github.com/google/uuid"
)

// checkSeverity verifies that severities agree with load orders: exactly
// one service VM carrying the service VM severity, and at most one safety
// VM.
func (c *checker) checkSeverity() {
	services := []uint16{}
	safety := []uint16{}

	for i, vm := range c.vms {
		id := uint16(i)

		if !vm.Severity.Valid() {
			c.fail(vmcfg.ErrSeverityInconsistent, ids(id), "unknown severity %v", vm.Severity)

			continue
		}

		switch {
		case vm.LoadOrder == vmcfg.ServiceVM && vm.Severity != vmcfg.SeverityServiceVM:
			c.fail(vmcfg.ErrSeverityInconsistent, ids(id), "service VM with severity %v", vm.Severity)
		case vm.LoadOrder != vmcfg.ServiceVM && vm.Severity == vmcfg.SeverityServiceVM:
			c.fail(vmcfg.ErrSeverityInconsistent, ids(id), "%v VM with service VM severity", vm.LoadOrder)
		}

		if vm.LoadOrder == vmcfg.ServiceVM {
			services = append(services, id)
		}

		if vm.Severity == vmcfg.SeveritySafety {
			safety = append(safety, id)
		}
	}

	if len(services) != 1 {
		c.fail(vmcfg.ErrSeverityInconsistent, services, "%d service VMs, want exactly 1", len(services))
	}

	if len(safety) > 1 {
		c.fail(vmcfg.ErrSeverityInconsistent, safety, "%d safety VMs, want at most 1", len(safety))
	}
}

// checkRoles verifies that the service VM keeps its LAPIC and that the
// safety VM is pre-launched.
func (c *checker) checkRoles() {
	for i, vm := range c.vms {
		id := uint16(i)

		if vm.LoadOrder == vmcfg.ServiceVM && vm.LAPICPassthrough() {
			c.fail(vmcfg.ErrSeverityInconsistent, ids(id), "service VM with LAPIC passthrough")
		}

		if vm.Severity == vmcfg.SeveritySafety && vm.LoadOrder != vmcfg.PreLaunched {
			c.fail(vmcfg.ErrSeverityInconsistent, ids(id), "safety VM is %v", vm.LoadOrder)
		}
	}
}

// checkUUID verifies that UUIDs are unique.
func (c *checker) checkUUID() {
	owner := map[uuid.UUID]uint16{}

	for i, vm := range c.vms {
		id := uint16(i)

		if first, ok := owner[vm.UUID]; ok {
			c.fail(vmcfg.ErrDuplicateUUID, ids(first, id), "UUID %v", vm.UUID)

			continue
		}

		owner[vm.UUID] = id
	}
}

// checkNilUUID verifies that every UUID is set.
func (c *checker) checkNilUUID() {
	for i, vm := range c.vms {
		if vm.UUID == uuid.Nil {
			c.fail(vmcfg.ErrMalformedVMConfig, ids(uint16(i)), "nil UUID")
		}
	}
}

// checkReservedUUID verifies that the UUIDs reserved for the RT and the
// safety VM are used with the matching severity.
func (c *checker) checkReservedUUID() {
	for i, vm := range c.vms {
		switch {
		case vm.UUID == vmcfg.SafetyVMUUID && vm.Severity != vmcfg.SeveritySafety:
			c.fail(vmcfg.ErrSeverityInconsistent, ids(uint16(i)), "safety VM UUID with severity %v", vm.Severity)
		case vm.UUID == vmcfg.RTVMUUID && vm.Severity != vmcfg.SeverityRTVM:
			c.fail(vmcfg.ErrSeverityInconsistent, ids(uint16(i)), "RTVM UUID with severity %v", vm.Severity)
		}
	}
}

// checkGuestFlags verifies that the RT flag comes with LAPIC passthrough.
func (c *checker) checkGuestFlags() {
	for i, vm := range c.vms {
		if vm.GuestFlags.Has(vmcfg.GuestFlagRT) && !vm.LAPICPassthrough() {
			c.fail(vmcfg.ErrMalformedVMConfig, ids(uint16(i)), "RT flag without LAPIC passthrough")
		}
	}
}

// checkCLOS verifies the cache class of VMs that require one.
func (c *checker) checkCLOS() {
	for i, vm := range c.vms {
		if !vm.GuestFlags.Has(vmcfg.GuestFlagCLOSRequired) {
			continue
		}

		if c.p.ClosMax < 0 || int(vm.CLOS) > c.p.ClosMax {
			c.fail(vmcfg.ErrMalformedVMConfig, ids(uint16(i)), "CLOS %d not available (max %d)", vm.CLOS, c.p.ClosMax)
		}
	}
}
